package promotion

import (
	"context"
	"time"

	"gerai-be/internal/logger"

	"go.uber.org/zap"
)

// Service is the read-only evaluator exposed to callers outside the order
// transaction. Validation never touches used_count; consumption happens only
// when an order commits.
type Service interface {
	Validate(ctx context.Context, code string, orderAmount int64) (*Quote, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Validate(ctx context.Context, code string, orderAmount int64) (*Quote, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Validate"),
		zap.String("code", NormalizeCode(code)),
		zap.Int64("order_amount", orderAmount),
	)

	promo, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		log.Error("promotion lookup failed", zap.Error(err))
		return nil, err
	}
	if promo == nil {
		log.Debug("promotion not found")
		return nil, ErrPromotionNotFound
	}

	quote, err := Evaluate(promo, orderAmount, time.Now())
	if err != nil {
		log.Debug("promotion not applicable", zap.Error(err))
		return nil, err
	}

	log.Info("promotion validated",
		zap.Int64("discount", quote.Discount),
		zap.Int64("final_amount", quote.FinalAmount),
	)

	return quote, nil
}
