package notify

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
)

type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

type OrderLineData struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Total       int64           `json:"total"`
	Lines       []OrderLineData `json:"lines"`
}

func NewOrderCreatedEvent(orderID int64, orderNumber string, userID, total int64, lines []OrderLineData) OrderCreatedEvent {
	return OrderCreatedEvent{
		BaseEvent:   newBaseEvent(EventOrderCreated),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		UserID:      userID,
		Total:       total,
		Lines:       lines,
	}
}

type OrderCancelledEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	Reason      string `json:"reason,omitempty"`
}

func NewOrderCancelledEvent(orderID int64, orderNumber string, userID int64, reason string) OrderCancelledEvent {
	return OrderCancelledEvent{
		BaseEvent:   newBaseEvent(EventOrderCancelled),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		UserID:      userID,
		Reason:      reason,
	}
}
