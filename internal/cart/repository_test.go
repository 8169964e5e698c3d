package cart

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return NewRepository(db), mock, func() { db.Close() }
}

func cartItemColumns() []string {
	return []string{"id", "user_id", "product_id", "quantity", "created_at", "updated_at"}
}

func TestGetItemByUserAndProduct(t *testing.T) {
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(cartItemColumns()).
			AddRow(int64(7), int64(42), int64(3), 2, now, now)

		mock.ExpectQuery("SELECT(.|\n)+FROM carts").
			WithArgs(int64(42), int64(3)).
			WillReturnRows(rows)

		item, err := repo.GetItemByUserAndProduct(context.Background(), 42, 3)

		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, int64(7), item.ID)
		assert.Equal(t, 2, item.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found returns nil, nil", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		mock.ExpectQuery("SELECT(.|\n)+FROM carts").
			WithArgs(int64(42), int64(99)).
			WillReturnError(sql.ErrNoRows)

		item, err := repo.GetItemByUserAndProduct(context.Background(), 42, 99)

		require.NoError(t, err)
		assert.Nil(t, item)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateItem(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Now()

	rows := sqlmock.NewRows(cartItemColumns()).
		AddRow(int64(11), int64(42), int64(3), 2, now, now)

	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(int64(42), int64(3), 2).
		WillReturnRows(rows)

	item, err := repo.CreateItem(context.Background(), AddToCartParams{
		UserID:    42,
		ProductID: 3,
		Quantity:  2,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), item.ID)
	assert.Equal(t, 2, item.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemQuantity(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Now()

	rows := sqlmock.NewRows(cartItemColumns()).
		AddRow(int64(11), int64(42), int64(3), 5, now, now)

	mock.ExpectQuery("UPDATE carts").
		WithArgs(5, int64(11)).
		WillReturnRows(rows)

	item, err := repo.UpdateItemQuantity(context.Background(), 11, 5)

	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveFromCart(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carts")).
			WithArgs(int64(42), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RemoveFromCart(context.Background(), RemoveFromCartParams{
			UserID:    42,
			ProductID: 3,
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carts")).
			WithArgs(int64(42), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RemoveFromCart(context.Background(), RemoveFromCartParams{
			UserID:    42,
			ProductID: 3,
		})

		assert.ErrorIs(t, err, ErrCartItemNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClearCart(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carts WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.ClearCart(context.Background(), 42)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartRows(t *testing.T) {
	cols := []string{
		"id", "user_id", "product_id", "quantity", "created_at", "updated_at",
		"name", "price", "stock", "status",
	}
	now := time.Now()

	t.Run("default pagination", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(cols).
			AddRow(int64(1), int64(42), int64(3), 2, now, now, "Kopi Gayo 250g", int64(85000), 10, "AVAILABLE").
			AddRow(int64(2), int64(42), int64(5), 1, now, now, "Teh Melati", int64(30000), 0, "OUT_OF_STOCK")

		mock.ExpectQuery("SELECT(.|\n)+FROM carts c(.|\n)+JOIN products p").
			WithArgs(int64(42), uint16(20), 0).
			WillReturnRows(rows)

		result, err := repo.GetCartRows(context.Background(), 42, nil, nil, nil, nil)

		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "Kopi Gayo 250g", result[0].ProductName)
		assert.Equal(t, int64(85000), result[0].UnitPrice)
		assert.Equal(t, 0, result[1].Stock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("with search filter and paging", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(cols).
			AddRow(int64(1), int64(42), int64(3), 2, now, now, "Kopi Gayo 250g", int64(85000), 10, "AVAILABLE")

		search := "kopi"
		limit := uint16(5)
		page := uint16(2)

		mock.ExpectQuery("SELECT(.|\n)+FROM carts c(.|\n)+JOIN products p").
			WithArgs(int64(42), "%kopi%", uint16(5), 5).
			WillReturnRows(rows)

		result, err := repo.GetCartRows(context.Background(), 42,
			&ListFilter{Search: &search}, nil, &limit, &page)

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
