package promotion

import (
	"context"
	"database/sql"

	"gerai-be/internal/logger"

	"go.uber.org/zap"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so the same lookup serves
// the read-only validate path and the order transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	GetByCodeForUpdate(ctx context.Context, tx Querier, code string) (*Promotion, error)
	Consume(ctx context.Context, tx Querier, promotionID int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const promotionColumns = `
	id,
	code,
	promo_type,
	value,
	min_order_amount,
	max_discount_amount,
	usage_limit,
	used_count,
	start_date,
	end_date,
	status,
	created_at,
	updated_at`

func scanPromotion(row *sql.Row) (*Promotion, error) {
	var p Promotion
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Type,
		&p.Value,
		&p.MinOrderAmount,
		&p.MaxDiscountAmount,
		&p.UsageLimit,
		&p.UsedCount,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Promotion, error) {
	query := `SELECT` + promotionColumns + `
	FROM promotions
	WHERE code = $1`

	return scanPromotion(r.db.QueryRowContext(ctx, query, NormalizeCode(code)))
}

// GetByCodeForUpdate locks the promotion row for the duration of the order
// transaction so the usage check and the later Consume are atomic.
func (r *repository) GetByCodeForUpdate(ctx context.Context, tx Querier, code string) (*Promotion, error) {
	query := `SELECT` + promotionColumns + `
	FROM promotions
	WHERE code = $1
	FOR UPDATE`

	return scanPromotion(tx.QueryRowContext(ctx, query, NormalizeCode(code)))
}

// Consume records one usage. The usage cap is re-checked in the WHERE clause
// so the counter can never pass its limit, whatever the caller read earlier.
func (r *repository) Consume(ctx context.Context, tx Querier, promotionID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE promotions
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`, promotionID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		logger.L().Warn("promotion usage cap reached at consume time",
			zap.Int64("promotion_id", promotionID),
		)
		return ErrPromotionNotUsable
	}

	return nil
}
