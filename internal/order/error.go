package order

import "errors"

var (
	// -- Validation & Input --
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidAddress  = errors.New("incomplete shipping address")
	ErrInvalidPayment  = errors.New("invalid payment method")
	ErrProductNotFound = errors.New("product not found")

	// -- Resource State --
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")

	// -- Authorization --
	ErrUnauthorized = errors.New("not allowed to access this order")
)

// pgUniqueViolation is the Postgres error code for a unique constraint
// violation, used to detect order number collisions.
const pgUniqueViolation = "23505"
