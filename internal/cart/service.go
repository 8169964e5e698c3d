package cart

import (
	"context"
	"errors"

	"gerai-be/internal/logger"
	"gerai-be/internal/product"

	"go.uber.org/zap"
)

type Service interface {
	AddToCart(ctx context.Context, params AddToCartParams) (*CartItem, error)
	GetCart(ctx context.Context, userID int64, filter *ListFilter, sort *ListSort, limit, page *uint16) ([]*CartRow, error)
	UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (*CartItem, error)
	RemoveFromCart(ctx context.Context, params RemoveFromCartParams) error
	ClearCart(ctx context.Context, userID int64) error
}

type service struct {
	repo        Repository
	productRepo product.Repository
}

func NewService(repo Repository, productRepo product.Repository) Service {
	return &service{repo: repo, productRepo: productRepo}
}

// AddToCart merges quantity into an existing row when the product is already
// in the cart. The combined quantity is validated against live stock so the
// cart never holds more of a product than the store can sell.
func (s *service) AddToCart(ctx context.Context, params AddToCartParams) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddToCart"),
		zap.Int64("user_id", params.UserID),
		zap.Int64("product_id", params.ProductID),
	)

	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	prod, err := s.productRepo.GetByID(ctx, params.ProductID)
	if err != nil {
		log.Error("failed to fetch product", zap.Error(err))
		return nil, err
	}
	if prod == nil || !prod.Status.Orderable() {
		return nil, ErrProductNotFound
	}

	existing, err := s.repo.GetItemByUserAndProduct(ctx, params.UserID, params.ProductID)
	if err != nil {
		log.Error("failed to fetch cart item", zap.Error(err))
		return nil, err
	}

	total := params.Quantity
	if existing != nil {
		total += existing.Quantity
	}

	if total > prod.Stock {
		log.Info("requested quantity exceeds stock",
			zap.Int("requested", total),
			zap.Int("stock", prod.Stock),
		)
		return nil, ErrInsufficientStock
	}

	if existing != nil {
		return s.repo.UpdateItemQuantity(ctx, existing.ID, total)
	}

	return s.repo.CreateItem(ctx, params)
}

func (s *service) GetCart(
	ctx context.Context,
	userID int64,
	filter *ListFilter,
	sort *ListSort,
	limit, page *uint16,
) ([]*CartRow, error) {
	return s.repo.GetCartRows(ctx, userID, filter, sort, limit, page)
}

// UpdateQuantity sets the absolute quantity of a cart row. A quantity of
// zero or less removes the row.
func (s *service) UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (*CartItem, error) {
	if params.Quantity <= 0 {
		err := s.repo.RemoveFromCart(ctx, RemoveFromCartParams{
			UserID:    params.UserID,
			ProductID: params.ProductID,
		})
		if err != nil && !errors.Is(err, ErrCartItemNotFound) {
			return nil, err
		}
		return nil, nil
	}

	prod, err := s.productRepo.GetByID(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}
	if prod == nil || !prod.Status.Orderable() {
		return nil, ErrProductNotFound
	}

	if params.Quantity > prod.Stock {
		return nil, ErrInsufficientStock
	}

	existing, err := s.repo.GetItemByUserAndProduct(ctx, params.UserID, params.ProductID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCartItemNotFound
	}

	return s.repo.UpdateItemQuantity(ctx, existing.ID, params.Quantity)
}

func (s *service) RemoveFromCart(ctx context.Context, params RemoveFromCartParams) error {
	return s.repo.RemoveFromCart(ctx, params)
}

func (s *service) ClearCart(ctx context.Context, userID int64) error {
	return s.repo.ClearCart(ctx, userID)
}
