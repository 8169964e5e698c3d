package product

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gerai-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetList(ctx context.Context, opts ListOptions) ([]*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `
	id,
	name,
	description,
	price,
	stock,
	low_stock_threshold,
	status,
	created_at,
	updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.LowStockThreshold,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT` + productColumns + `
	FROM products
	WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (r *repository) GetList(ctx context.Context, opts ListOptions) ([]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetList"),
	)

	start := time.Now()

	// ---------- pagination ----------
	finalLimit := int32(20)
	if opts.Limit > 0 {
		finalLimit = opts.Limit
	}
	if finalLimit > 100 {
		finalLimit = 100
	}

	finalPage := int32(1)
	if opts.Page > 0 {
		finalPage = opts.Page
	}

	offset := (finalPage - 1) * finalLimit

	// ---------- where ----------
	where := []string{"1=1"}
	args := []any{}

	if opts.Search != nil && *opts.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+*opts.Search+"%")
	}

	if opts.Status != nil && *opts.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *opts.Status)
	}

	if opts.MinPrice != nil {
		where = append(where, fmt.Sprintf("price >= $%d", len(args)+1))
		args = append(args, *opts.MinPrice)
	}

	if opts.MaxPrice != nil {
		where = append(where, fmt.Sprintf("price <= $%d", len(args)+1))
		args = append(args, *opts.MaxPrice)
	}

	if opts.InStock != nil {
		if *opts.InStock {
			where = append(where, "stock > 0")
		} else {
			where = append(where, "stock = 0")
		}
	}

	// ---------- sort ----------
	orderBy := "created_at DESC"
	if opts.SortField != "" {
		field := "created_at"
		switch opts.SortField {
		case "price":
			field = "price"
		case "name":
			field = "name"
		case "stock":
			field = "stock"
		}

		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		orderBy = field + " " + dir
	}

	query := `SELECT` + productColumns + `
	FROM products
	WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY ` + orderBy + `
	LIMIT $` + fmt.Sprint(len(args)+1) + `
	OFFSET $` + fmt.Sprint(len(args)+2)

	args = append(args, finalLimit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("query failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}
	defer rows.Close()

	result := make([]*Product, 0, finalLimit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	log.Debug("query success",
		zap.Int("rows", len(result)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}
