package inventory

import (
	"errors"
	"fmt"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError names the product that could not be reserved and
// how much of it was left at the instant of the attempt.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: available=%d, requested=%d",
		name, e.Available, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientStock) match the typed error.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
