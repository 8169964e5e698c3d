package settings

import (
	"context"
	"database/sql"
	"strconv"

	"gerai-be/internal/logger"

	"go.uber.org/zap"
)

const (
	keyShippingFee     = "shipping_fee"
	keyFreeShippingMin = "free_shipping_min"

	defaultShippingFee = 30_000
)

// CheckoutSettings is the read-only input the order total computation
// consumes. Managing the values is back-office CRUD and lives elsewhere.
type CheckoutSettings struct {
	ShippingFee     int64
	FreeShippingMin *int64
}

type Repository interface {
	GetCheckoutSettings(ctx context.Context) (*CheckoutSettings, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCheckoutSettings(ctx context.Context) (*CheckoutSettings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, value
		FROM settings
		WHERE key IN ($1, $2)
	`, keyShippingFee, keyFreeShippingMin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &CheckoutSettings{ShippingFee: defaultShippingFee}

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}

		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			logger.FromCtx(ctx).Warn("malformed settings value, keeping default",
				zap.String("key", key),
				zap.String("value", value),
			)
			continue
		}

		switch key {
		case keyShippingFee:
			out.ShippingFee = n
		case keyFreeShippingMin:
			out.FreeShippingMin = &n
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
