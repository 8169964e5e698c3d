package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByCode(ctx context.Context, code string) (*Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Promotion), args.Error(1)
}

func (m *MockRepository) GetByCodeForUpdate(ctx context.Context, tx Querier, code string) (*Promotion, error) {
	args := m.Called(ctx, tx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Promotion), args.Error(1)
}

func (m *MockRepository) Consume(ctx context.Context, tx Querier, promotionID int64) error {
	args := m.Called(ctx, tx, promotionID)
	return args.Error(0)
}

func TestService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		now := time.Now()
		repo.On("GetByCode", ctx, "sale10").Return(&Promotion{
			ID:        1,
			Code:      "SALE10",
			Type:      TypePercentage,
			Value:     10,
			StartDate: now.Add(-time.Hour),
			EndDate:   now.Add(time.Hour),
			Status:    StatusActive,
		}, nil)

		quote, err := svc.Validate(ctx, "sale10", 250_000)
		assert.NoError(t, err)
		assert.Equal(t, int64(25_000), quote.Discount)
		assert.Equal(t, int64(225_000), quote.FinalAmount)
		repo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByCode", ctx, "ghost").Return(nil, nil)

		_, err := svc.Validate(ctx, "ghost", 250_000)
		assert.ErrorIs(t, err, ErrPromotionNotFound)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByCode", ctx, "sale10").Return(nil, errors.New("db down"))

		_, err := svc.Validate(ctx, "sale10", 250_000)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrPromotionNotFound)
	})

	t.Run("ValidationIsSideEffectFree", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		now := time.Now()
		promo := &Promotion{
			ID:        1,
			Code:      "SALE10",
			Type:      TypeFixed,
			Value:     5_000,
			StartDate: now.Add(-time.Hour),
			EndDate:   now.Add(time.Hour),
			Status:    StatusActive,
		}
		repo.On("GetByCode", ctx, "SALE10").Return(promo, nil)

		for i := 0; i < 5; i++ {
			_, err := svc.Validate(ctx, "SALE10", 100_000)
			assert.NoError(t, err)
		}

		// used_count is only touched by Consume inside the order transaction.
		repo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 0, promo.UsedCount)
	})
}
