package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gerai-be/internal/inventory"
	"gerai-be/internal/logger"
	"gerai-be/internal/product"
	"gerai-be/internal/promotion"
	"gerai-be/internal/settings"
	"gerai-be/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const maxOrderNumberAttempts = 5

type Repository interface {
	CreateOrderTx(ctx context.Context, params PlaceOrderParams, checkout *settings.CheckoutSettings) (*Order, error)
	CancelTx(ctx context.Context, orderID, userID int64) (*Order, error)
	UpdateStatusTx(ctx context.Context, orderID int64, next Status) (*Order, error)
	DeleteTx(ctx context.Context, orderID int64) error
	GetOrderByID(ctx context.Context, orderID int64) (*Order, error)
	GetOrders(ctx context.Context, filter *ListFilter, sort *ListSort, limit, page *uint16) ([]*Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID int64, status PaymentStatus) error
}

type repository struct {
	db        *sql.DB
	ledger    *inventory.Ledger
	promoRepo promotion.Repository
}

func NewRepository(db *sql.DB, ledger *inventory.Ledger, promoRepo promotion.Repository) Repository {
	return &repository{db: db, ledger: ledger, promoRepo: promoRepo}
}

const orderColumns = `
	id,
	order_number,
	user_id,
	status,
	subtotal,
	shipping_fee,
	discount,
	total,
	payment_method,
	payment_status,
	promo_code,
	recipient_name,
	phone,
	address_line,
	city,
	postal_code,
	created_at,
	updated_at
`

func scanOrder(row interface{ Scan(dest ...any) error }) (*Order, error) {
	o := &Order{}
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Subtotal,
		&o.ShippingFee,
		&o.Discount,
		&o.Total,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PromoCode,
		&o.ShippingAddress.RecipientName,
		&o.ShippingAddress.Phone,
		&o.ShippingAddress.AddressLine,
		&o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// cartLine is a cart row joined with its locked product, as read inside the
// order transaction.
type cartLine struct {
	productID   int64
	productName string
	unitPrice   int64
	stock       int
	status      product.Status
	quantity    int
}

// CreateOrderTx assembles an order from the user's cart in one transaction:
// cart load, per-product stock validation under row locks, price snapshot,
// promotion evaluation and consumption, order + line inserts, stock
// reservation, cart clearing. Any failure before commit rolls everything
// back; no partial order is ever visible.
func (r *repository) CreateOrderTx(
	ctx context.Context,
	params PlaceOrderParams,
	checkout *settings.CheckoutSettings,
) (*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.Int64("user_id", params.UserID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. cart snapshot, ordered by product_id so concurrent checkouts
	// acquire product locks in the same order and cannot deadlock
	lines, err := r.loadCartLines(ctx, tx, params.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// 2-3. validate stock and snapshot prices
	var subtotal int64
	for _, line := range lines {
		if !line.status.Orderable() {
			return nil, ErrProductNotFound
		}
		if line.stock < line.quantity {
			return nil, &inventory.InsufficientStockError{
				ProductID:   line.productID,
				ProductName: line.productName,
				Available:   line.stock,
				Requested:   line.quantity,
			}
		}
		subtotal += line.unitPrice * int64(line.quantity)
	}

	// 4. promotion
	var (
		discount  int64
		promo     *promotion.Promotion
		promoCode *string
	)
	if params.PromoCode != nil && *params.PromoCode != "" {
		code := promotion.NormalizeCode(*params.PromoCode)

		promo, err = r.promoRepo.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return nil, err
		}
		if promo == nil {
			return nil, promotion.ErrPromotionNotFound
		}

		quote, err := promotion.Evaluate(promo, subtotal, time.Now())
		if err != nil {
			return nil, err
		}

		discount = quote.Discount
		promoCode = &code
	}

	// 5. totals
	shippingFee := checkout.ShippingFee
	if checkout.FreeShippingMin != nil && subtotal >= *checkout.FreeShippingMin {
		shippingFee = 0
	}
	total := subtotal + shippingFee - discount
	if total < 0 {
		total = 0
	}

	// 6. order number; an insert retry would abort the whole transaction on
	// a unique violation, so collisions are checked with a select first
	orderNumber, err := r.uniqueOrderNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	// 7. persist order and lines
	order, err := r.insertOrder(ctx, tx, params, orderNumber, subtotal, shippingFee, discount, total, promoCode)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		ol, err := r.insertOrderLine(ctx, tx, order.ID, line)
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, ol)
	}

	// 8. reserve stock per line
	for _, line := range lines {
		if err := r.ledger.Reserve(ctx, tx, line.productID, line.quantity); err != nil {
			var insufficient *inventory.InsufficientStockError
			if errors.As(err, &insufficient) {
				insufficient.ProductName = line.productName
			}
			return nil, err
		}
	}

	// 9. clear the cart
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, params.UserID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	// 10. consume the promotion exactly once
	if promo != nil {
		if err := r.promoRepo.Consume(ctx, tx, promo.ID); err != nil {
			return nil, err
		}
	}

	// 11. commit
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.Total),
		zap.Int("lines", len(order.Lines)),
	)

	return order, nil
}

// loadCartLines reads the user's cart joined with its products and locks the
// product rows for the remainder of the transaction.
func (r *repository) loadCartLines(ctx context.Context, tx *sql.Tx, userID int64) ([]*cartLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT
			p.id,
			p.name,
			p.price,
			p.stock,
			p.status,
			c.quantity
		FROM carts c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF p
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	defer rows.Close()

	var lines []*cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(
			&line.productID,
			&line.productName,
			&line.unitPrice,
			&line.stock,
			&line.status,
			&line.quantity,
		); err != nil {
			return nil, err
		}
		lines = append(lines, &line)
	}

	return lines, rows.Err()
}

func (r *repository) uniqueOrderNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		candidate := utils.GenerateOrderNumber()

		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`,
			candidate,
		).Scan(&exists)
		if err != nil {
			return "", err
		}

		if !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique order number after %d attempts", maxOrderNumberAttempts)
}

func (r *repository) insertOrder(
	ctx context.Context,
	tx *sql.Tx,
	params PlaceOrderParams,
	orderNumber string,
	subtotal, shippingFee, discount, total int64,
	promoCode *string,
) (*Order, error) {

	query := `
	INSERT INTO orders (
		order_number,
		user_id,
		status,
		subtotal,
		shipping_fee,
		discount,
		total,
		payment_method,
		payment_status,
		promo_code,
		recipient_name,
		phone,
		address_line,
		city,
		postal_code
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING ` + orderColumns

	row := tx.QueryRowContext(ctx, query,
		orderNumber,
		params.UserID,
		StatusPending,
		subtotal,
		shippingFee,
		discount,
		total,
		params.PaymentMethod,
		PaymentPending,
		promoCode,
		params.ShippingAddress.RecipientName,
		params.ShippingAddress.Phone,
		params.ShippingAddress.AddressLine,
		params.ShippingAddress.City,
		params.ShippingAddress.PostalCode,
	)

	order, err := scanOrder(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			// lost the race between the existence check and the insert
			return nil, fmt.Errorf("order number collision on insert: %w", err)
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	return order, nil
}

func (r *repository) insertOrderLine(ctx context.Context, tx *sql.Tx, orderID int64, line *cartLine) (*OrderLine, error) {
	ol := &OrderLine{
		OrderID:     orderID,
		ProductID:   line.productID,
		ProductName: line.productName,
		UnitPrice:   line.unitPrice,
		Quantity:    line.quantity,
		Subtotal:    line.unitPrice * int64(line.quantity),
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO order_lines (
			order_id,
			product_id,
			product_name,
			unit_price,
			quantity,
			subtotal
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, ol.OrderID, ol.ProductID, ol.ProductName, ol.UnitPrice, ol.Quantity, ol.Subtotal).Scan(&ol.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order line: %w", err)
	}

	return ol, nil
}

// CancelTx is the customer-facing cancellation path. It locks the order,
// verifies ownership and that the order is still PENDING, releases every
// line's stock and flips the status, all in one transaction.
func (r *repository) CancelTx(ctx context.Context, orderID, userID int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CancelTx"),
		zap.Int64("order_id", orderID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	lines, err := r.releaseLines(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	order, err = r.setStatus(ctx, tx, orderID, StatusCancelled)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	log.Info("order cancelled", zap.String("order_number", order.OrderNumber))

	return order, nil
}

// UpdateStatusTx is the back-office transition path. The full adjacency
// applies, so an admin may also cancel a PROCESSING order; a transition to
// CANCELLED releases stock atomically with the status write.
func (r *repository) UpdateStatusTx(ctx context.Context, orderID int64, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, ErrInvalidTransition
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	var lines []*OrderLine
	if next == StatusCancelled {
		lines, err = r.releaseLines(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
	}

	order, err = r.setStatus(ctx, tx, orderID, next)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	return order, nil
}

// DeleteTx removes an order and its lines. Stock is released first unless
// the order is already CANCELLED, whose cancellation released it already.
func (r *repository) DeleteTx(ctx context.Context, orderID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if order.Status != StatusCancelled {
		if _, err := r.releaseLines(ctx, tx, orderID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}

	return nil
}

func (r *repository) lockOrder(ctx context.Context, tx *sql.Tx, orderID int64) (*Order, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`,
		orderID,
	)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return order, nil
}

// releaseLines credits stock back for every line of the order, using the
// quantity recorded on the line rather than anything caller-supplied. The
// released lines are returned so callers can attach them to the order.
func (r *repository) releaseLines(ctx context.Context, tx *sql.Tx, orderID int64) ([]*OrderLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT
			id,
			order_id,
			product_id,
			product_name,
			unit_price,
			quantity,
			subtotal
		FROM order_lines
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	var lines []*OrderLine
	for rows.Next() {
		line := &OrderLine{}
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.UnitPrice,
			&line.Quantity,
			&line.Subtotal,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, line := range lines {
		if err := r.ledger.Release(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	return lines, nil
}

func (r *repository) setStatus(ctx context.Context, tx *sql.Tx, orderID int64, status Status) (*Order, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING `+orderColumns,
		status, orderID,
	)

	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return order, nil
}

func (r *repository) GetOrderByID(ctx context.Context, orderID int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		orderID,
	)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	lines, err := r.getOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

func (r *repository) getOrderLines(ctx context.Context, orderID int64) ([]*OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id,
			order_id,
			product_id,
			product_name,
			unit_price,
			quantity,
			subtotal
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*OrderLine
	for rows.Next() {
		line := &OrderLine{}
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.UnitPrice,
			&line.Quantity,
			&line.Subtotal,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func (r *repository) GetOrders(
	ctx context.Context,
	filter *ListFilter,
	sort *ListSort,
	limit, page *uint16,
) ([]*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetOrders"),
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
	where := []string{"1=1"}
	args := []any{}

	if filter != nil {
		if filter.UserID != nil {
			where = append(where, fmt.Sprintf("user_id = $%d", len(args)+1))
			args = append(args, *filter.UserID)
		}
		if filter.Status != nil {
			where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
			args = append(args, *filter.Status)
		}
	}

	// ---------- sort ----------
	orderBy := "created_at DESC"
	if sort != nil {
		field := "created_at"
		switch sort.Field {
		case "total":
			field = "total"
		case "status":
			field = "status"
		}

		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		orderBy = field + " " + dir
	}

	query := `
	SELECT ` + orderColumns + `
	FROM orders
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

	result := make([]*Order, 0, finalLimit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		result = append(result, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Info("query success",
		zap.Int("rows", len(result)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, orderID int64, status PaymentStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1,
		    updated_at = NOW()
		WHERE id = $2
	`, status, orderID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
