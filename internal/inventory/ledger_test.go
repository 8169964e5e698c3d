package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Reserve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE products").
			WithArgs(3, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := ledger.Reserve(context.Background(), db, 10, 3)
		assert.NoError(t, err)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		// Guard clause matched no row: stock below requested quantity.
		mock.ExpectExec("UPDATE products").
			WithArgs(5, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := ledger.Reserve(context.Background(), db, 10, 5)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
		assert.Equal(t, int64(10), stockErr.ProductID)
		assert.Equal(t, 5, stockErr.Requested)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		err := ledger.Reserve(context.Background(), db, 10, 0)
		assert.Error(t, err)

		err = ledger.Reserve(context.Background(), db, 10, -2)
		assert.Error(t, err)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectExec("UPDATE products").
			WillReturnError(errors.New("db error"))

		err := ledger.Reserve(context.Background(), db, 10, 1)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInsufficientStock)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Release(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ledger := NewLedger()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE products").
			WithArgs(3, int64(10), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := ledger.Release(context.Background(), db, 10, 3)
		assert.NoError(t, err)
	})

	t.Run("MissingProductIsNotFatal", func(t *testing.T) {
		// Release must never fail a cancellation just because the product
		// row is gone; it logs and moves on.
		mock.ExpectExec("UPDATE products").
			WithArgs(3, int64(99), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := ledger.Release(context.Background(), db, 99, 3)
		assert.NoError(t, err)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		err := ledger.Release(context.Background(), db, 10, 0)
		assert.Error(t, err)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectExec("UPDATE products").
			WillReturnError(errors.New("db error"))

		err := ledger.Release(context.Background(), db, 10, 1)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsufficientStockError_Message(t *testing.T) {
	e := &InsufficientStockError{ProductID: 7, ProductName: "Kopi Arabica", Available: 1, Requested: 2}
	assert.Contains(t, e.Error(), "Kopi Arabica")
	assert.Contains(t, e.Error(), "available=1")
	assert.Contains(t, e.Error(), "requested=2")

	anon := &InsufficientStockError{ProductID: 7, Requested: 2}
	assert.Contains(t, anon.Error(), "product 7")
}
