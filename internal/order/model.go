package order

import "time"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions is the full adjacency of the order lifecycle. DELIVERED and
// CANCELLED are terminal. Customer-initiated cancellation is further
// restricted to PENDING by the service layer; the admin path may cancel a
// PROCESSING order.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

type ShippingAddress struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine   string `json:"address_line"`
	City          string `json:"city"`
	PostalCode    string `json:"postal_code"`
}

// Order is immutable once created except for status, payment_status and
// updated_at. Every monetary field is snapshotted at checkout and never
// recomputed from live product data.
type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          int64           `json:"user_id"`
	Status          Status          `json:"status"`
	Subtotal        int64           `json:"subtotal"`
	ShippingFee     int64           `json:"shipping_fee"`
	Discount        int64           `json:"discount"`
	Total           int64           `json:"total"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PromoCode       *string         `json:"promo_code,omitempty"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Lines []*OrderLine `json:"lines,omitempty"`
}

// OrderLine snapshots the product name and unit price at the instant the
// order was assembled. Later price changes must not affect it.
type OrderLine struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

type PlaceOrderParams struct {
	UserID          int64
	ShippingAddress ShippingAddress
	PaymentMethod   string
	PromoCode       *string
}

type ListFilter struct {
	UserID *int64
	Status *Status
}

type ListSort struct {
	Field string
	Desc  bool
}
