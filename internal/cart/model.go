package cart

import (
	"time"

	"gerai-be/internal/product"
)

type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartRow is a cart item joined with its live product, as listed back to the
// customer. Prices here are informational; the order snapshots its own.
type CartRow struct {
	CartItem
	ProductName   string         `json:"product_name"`
	UnitPrice     int64          `json:"unit_price"`
	Stock         int            `json:"stock"`
	ProductStatus product.Status `json:"product_status"`
}

type AddToCartParams struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

type UpdateQuantityParams struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

type RemoveFromCartParams struct {
	UserID    int64
	ProductID int64
}

type ListFilter struct {
	Search  *string
	InStock *bool
}

type ListSort struct {
	Field string
	Desc  bool
}
