package cart

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
	GetItemByUserAndProduct(ctx context.Context, userID, productID int64) (*CartItem, error)
	CreateItem(ctx context.Context, params AddToCartParams) (*CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) (*CartItem, error)
	RemoveFromCart(ctx context.Context, params RemoveFromCartParams) error
	ClearCart(ctx context.Context, userID int64) error
	GetCartRows(ctx context.Context, userID int64, filter *ListFilter, sort *ListSort, limit, page *uint16) ([]*CartRow, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetItemByUserAndProduct(
	ctx context.Context,
	userID, productID int64,
) (*CartItem, error) {

	query := `
	SELECT
		id,
		user_id,
		product_id,
		quantity,
		created_at,
		updated_at
	FROM carts
	WHERE user_id = $1 AND product_id = $2
	`

	item := &CartItem{}
	row := r.db.QueryRowContext(ctx, query, userID, productID)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *repository) CreateItem(
	ctx context.Context,
	params AddToCartParams,
) (*CartItem, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateItem"),
		zap.Int64("user_id", params.UserID),
		zap.Int64("product_id", params.ProductID),
	)

	log.Debug("start create cart item")

	query := `
	INSERT INTO carts (
		user_id,
		product_id,
		quantity
	)
	VALUES ($1, $2, $3)
	RETURNING
		id,
		user_id,
		product_id,
		quantity,
		created_at,
		updated_at
	`

	item := &CartItem{}
	row := r.db.QueryRowContext(ctx, query, params.UserID, params.ProductID, params.Quantity)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create cart item", zap.Error(err))
		return nil, err
	}

	log.Info("success create cart item", zap.Int64("cart_item_id", item.ID))

	return item, nil
}

func (r *repository) UpdateItemQuantity(
	ctx context.Context,
	itemID int64,
	quantity int,
) (*CartItem, error) {

	query := `
	UPDATE carts
	SET quantity = $1,
	    updated_at = NOW()
	WHERE id = $2
	RETURNING
		id,
		user_id,
		product_id,
		quantity,
		created_at,
		updated_at
	`

	item := &CartItem{}
	row := r.db.QueryRowContext(ctx, query, quantity, itemID)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *repository) RemoveFromCart(ctx context.Context, params RemoveFromCartParams) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE user_id = $1 AND product_id = $2
	`, params.UserID, params.ProductID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *repository) ClearCart(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}

func (r *repository) GetCartRows(
	ctx context.Context,
	userID int64,
	filter *ListFilter,
	sort *ListSort,
	limit, page *uint16,
) ([]*CartRow, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetCartRows"),
		zap.Int64("user_id", userID),
	)

	start := time.Now()

	// ---------- pagination ----------
	finalLimit := uint16(20)
	if limit != nil && *limit > 0 {
		finalLimit = *limit
	}
	if finalLimit > 100 {
		finalLimit = 100
	}

	finalPage := uint16(1)
	if page != nil && *page > 0 {
		finalPage = *page
	}

	offset := int((finalPage - 1) * finalLimit)

	// ---------- where ----------
	where := []string{"c.user_id = $1"}
	args := []any{userID}

	if filter != nil {
		if filter.InStock != nil {
			if *filter.InStock {
				where = append(where, "p.stock > 0")
			} else {
				where = append(where, "p.stock = 0")
			}
		}

		if filter.Search != nil && *filter.Search != "" {
			where = append(where, fmt.Sprintf("p.name ILIKE $%d", len(args)+1))
			args = append(args, "%"+*filter.Search+"%")
		}
	}

	// ---------- sort ----------
	orderBy := "c.created_at DESC"
	if sort != nil {
		field := "c.created_at"
		switch sort.Field {
		case "price":
			field = "p.price"
		case "name":
			field = "p.name"
		case "stock":
			field = "p.stock"
		}

		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		orderBy = field + " " + dir
	}

	// ---------- query ----------
	query := `
	SELECT
		c.id,
		c.user_id,
		c.product_id,
		c.quantity,
		c.created_at,
		c.updated_at,

		p.name,
		p.price,
		p.stock,
		p.status
	FROM carts c
	JOIN products p ON c.product_id = p.id
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

	result := make([]*CartRow, 0, finalLimit)

	for rows.Next() {
		var row CartRow
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.ProductID,
			&row.Quantity,
			&row.CreatedAt,
			&row.UpdatedAt,

			&row.ProductName,
			&row.UnitPrice,
			&row.Stock,
			&row.ProductStatus,
		); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}

		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	log.Info("query success",
		zap.Int("rows", len(result)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}
