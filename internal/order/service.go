package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gerai-be/internal/inventory"
	"gerai-be/internal/logger"
	"gerai-be/internal/metrics"
	"gerai-be/internal/notify"
	"gerai-be/internal/promotion"
	"gerai-be/internal/settings"

	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

type Service interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*Order, error)
	GetOrders(ctx context.Context, filter *ListFilter, sort *ListSort, limit, page *uint16) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderID, requesterID int64, isAdmin bool) (*Order, error)
	CancelOrder(ctx context.Context, orderID, userID int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, next Status) (*Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status PaymentStatus) error
}

type service struct {
	repo         Repository
	settingsRepo settings.Repository
	publisher    notify.Publisher
}

func NewService(repo Repository, settingsRepo settings.Repository, publisher notify.Publisher) Service {
	return &service{
		repo:         repo,
		settingsRepo: settingsRepo,
		publisher:    publisher,
	}
}

// PlaceOrder runs the checkout. Everything up to the commit happens inside
// one transaction in the repository; this layer validates input, loads
// checkout settings, records metrics and fires the post-commit notification.
func (s *service) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Int64("user_id", params.UserID),
	)

	if err := validateShippingAddress(params.ShippingAddress); err != nil {
		return nil, err
	}
	if params.PaymentMethod == "" {
		return nil, ErrInvalidPayment
	}

	checkout, err := s.settingsRepo.GetCheckoutSettings(ctx)
	if err != nil {
		log.Error("failed to load checkout settings", zap.Error(err))
		return nil, err
	}

	start := time.Now()

	order, err := s.repo.CreateOrderTx(ctx, params, checkout)
	if err != nil {
		metrics.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		log.Info("checkout failed", zap.Error(err))
		return nil, err
	}

	metrics.CheckoutLatency.Observe(time.Since(start).Seconds())
	metrics.OrdersPlacedTotal.Inc()
	for _, line := range order.Lines {
		metrics.StockReservedTotal.Add(float64(line.Quantity))
	}
	if order.PromoCode != nil {
		metrics.PromotionsConsumedTotal.Inc()
	}

	s.notifyOrderCreated(ctx, order)

	return order, nil
}

func validateShippingAddress(addr ShippingAddress) error {
	if addr.RecipientName == "" || addr.Phone == "" || addr.AddressLine == "" ||
		addr.City == "" || addr.PostalCode == "" {
		return ErrInvalidAddress
	}
	return nil
}

// failureReason maps a checkout error to a bounded metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, promotion.ErrPromotionNotFound),
		errors.Is(err, promotion.ErrPromotionNotUsable),
		errors.Is(err, promotion.ErrBelowMinimumOrder):
		return "promotion"
	default:
		return "internal"
	}
}

// notifyOrderCreated publishes the order event on a detached context so a
// slow or failing broker can never affect the committed order.
func (s *service) notifyOrderCreated(ctx context.Context, order *Order) {
	lines := make([]notify.OrderLineData, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, notify.OrderLineData{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal,
		})
	}

	event := notify.NewOrderCreatedEvent(order.ID, order.OrderNumber, order.UserID, order.Total, lines)

	detached := context.WithoutCancel(ctx)
	go func() {
		publishCtx, cancel := context.WithTimeout(detached, notifyTimeout)
		defer cancel()

		if err := s.publisher.Publish(publishCtx, orderEventKey(order.ID), event); err != nil {
			logger.FromCtx(publishCtx).Error("failed to publish order created event",
				zap.Int64("order_id", order.ID),
				zap.Error(err),
			)
		}
	}()
}

func (s *service) notifyOrderCancelled(ctx context.Context, order *Order, reason string) {
	event := notify.NewOrderCancelledEvent(order.ID, order.OrderNumber, order.UserID, reason)

	detached := context.WithoutCancel(ctx)
	go func() {
		publishCtx, cancel := context.WithTimeout(detached, notifyTimeout)
		defer cancel()

		if err := s.publisher.Publish(publishCtx, orderEventKey(order.ID), event); err != nil {
			logger.FromCtx(publishCtx).Error("failed to publish order cancelled event",
				zap.Int64("order_id", order.ID),
				zap.Error(err),
			)
		}
	}()
}

func orderEventKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

func (s *service) GetOrders(
	ctx context.Context,
	filter *ListFilter,
	sort *ListSort,
	limit, page *uint16,
) ([]*Order, error) {
	return s.repo.GetOrders(ctx, filter, sort, limit, page)
}

// GetOrderDetail returns the order with its lines. Non-admin requesters only
// see their own orders; a foreign order reads as not found rather than as
// forbidden, so order ids are not probeable.
func (s *service) GetOrderDetail(ctx context.Context, orderID, requesterID int64, isAdmin bool) (*Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != requesterID {
		return nil, ErrOrderNotFound
	}

	return order, nil
}

// CancelOrder is the customer path: only the owner may cancel, and only
// while the order is still PENDING.
func (s *service) CancelOrder(ctx context.Context, orderID, userID int64) (*Order, error) {
	order, err := s.repo.CancelTx(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	metrics.OrdersCancelledTotal.Inc()
	for _, line := range order.Lines {
		metrics.StockReleasedTotal.Add(float64(line.Quantity))
	}

	s.notifyOrderCancelled(ctx, order, "customer request")

	return order, nil
}

// UpdateOrderStatus is the back-office path and follows the full transition
// table, so an admin can also cancel a PROCESSING order.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID int64, next Status) (*Order, error) {
	order, err := s.repo.UpdateStatusTx(ctx, orderID, next)
	if err != nil {
		return nil, err
	}

	if next == StatusCancelled {
		metrics.OrdersCancelledTotal.Inc()
		s.notifyOrderCancelled(ctx, order, "cancelled by admin")
	}

	return order, nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := s.repo.DeleteTx(ctx, orderID); err != nil {
		return err
	}

	metrics.OrdersDeletedTotal.Inc()

	return nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, orderID int64, status PaymentStatus) error {
	switch status {
	case PaymentPending, PaymentPaid, PaymentFailed:
	default:
		return ErrInvalidPayment
	}

	return s.repo.UpdatePaymentStatus(ctx, orderID, status)
}
