package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"gerai-be/internal/logger"
	"gerai-be/internal/product"

	"go.uber.org/zap"
)

// Execer is the subset of *sql.Tx the ledger needs. Stock is only ever
// mutated as part of an enclosing transaction, so the ledger never holds a
// connection of its own.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Ledger owns every write to products.stock. The guard `stock >= $1` makes
// the check and the decrement a single statement, so two transactions racing
// for the last unit cannot both succeed.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements available stock for one order line. The status column
// follows the stock level in the same statement: zero flips the product to
// OUT_OF_STOCK, at or below the threshold flips it to LOW_STOCK.
func (l *Ledger) Reserve(ctx context.Context, tx Execer, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1,
		    status = CASE
		        WHEN stock - $1 <= 0 THEN 'OUT_OF_STOCK'
		        WHEN stock - $1 <= low_stock_threshold THEN 'LOW_STOCK'
		        ELSE status
		    END,
		    updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &InsufficientStockError{ProductID: productID, Requested: quantity}
	}

	return nil
}

// Release credits stock back for a cancelled or deleted order line. The
// quantity must come from the recorded order line, never from the caller's
// request. There is no upper bound.
func (l *Ledger) Release(ctx context.Context, tx Execer, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1,
		    status = CASE
		        WHEN status = $3 THEN status
		        WHEN stock + $1 <= low_stock_threshold THEN 'LOW_STOCK'
		        ELSE 'AVAILABLE'
		    END,
		    updated_at = NOW()
		WHERE id = $2
	`, quantity, productID, product.StatusDiscontinued)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		logger.L().Warn("release hit no product row",
			zap.Int64("product_id", productID),
			zap.Int("quantity", quantity),
		)
	}

	return nil
}
