package product

import (
	"context"
)

type Service interface {
	GetList(ctx context.Context, opts ListOptions) ([]*Product, error)
	GetProductByID(ctx context.Context, productID int64) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetList(ctx context.Context, opts ListOptions) ([]*Product, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	} else if opts.Limit > 100 {
		opts.Limit = 100
	}

	return s.repo.GetList(ctx, opts)
}

func (s *service) GetProductByID(ctx context.Context, productID int64) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}
