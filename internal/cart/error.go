package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("invalid cart quantity")

	// -- Resource State --
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)
