package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderCreatedEvent(t *testing.T) {
	lines := []OrderLineData{
		{ProductID: 3, ProductName: "Kopi Gayo 250g", UnitPrice: 85000, Quantity: 2, Subtotal: 170000},
	}

	event := NewOrderCreatedEvent(7, "ORD-20260830-101500-123-0042", 42, 200000, lines)

	assert.Equal(t, EventOrderCreated, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, int64(7), event.OrderID)
	assert.Len(t, event.Lines, 1)
}

func TestOrderCancelledEventPayload(t *testing.T) {
	event := NewOrderCancelledEvent(7, "ORD-20260830-101500-123-0042", 42, "customer request")

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, EventOrderCancelled, decoded["event_type"])
	assert.Equal(t, "ORD-20260830-101500-123-0042", decoded["order_number"])
	assert.Equal(t, "customer request", decoded["reason"])
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}

	err := p.Publish(context.Background(), "order-7", NewOrderCancelledEvent(7, "ORD-X", 42, ""))
	assert.NoError(t, err)
	assert.NoError(t, p.Close())
}
