package product

import "time"

type Status string

const (
	StatusAvailable    Status = "AVAILABLE"
	StatusLowStock     Status = "LOW_STOCK"
	StatusOutOfStock   Status = "OUT_OF_STOCK"
	StatusDiscontinued Status = "DISCONTINUED"
)

// Orderable reports whether the product may enter a cart or an order.
func (s Status) Orderable() bool {
	return s == StatusAvailable || s == StatusLowStock
}

type Product struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description,omitempty"`
	Price             int64     `json:"price"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ListOptions struct {
	Search   *string
	Status   *Status
	MinPrice *int64
	MaxPrice *int64
	InStock  *bool

	SortField string
	SortDesc  bool
	Limit     int32
	Page      int32
}
