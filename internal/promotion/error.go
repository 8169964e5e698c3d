package promotion

import "errors"

var (
	ErrPromotionNotFound  = errors.New("promotion not found")
	ErrPromotionNotUsable = errors.New("promotion not usable")
	ErrBelowMinimumOrder  = errors.New("order amount below promotion minimum")
)
