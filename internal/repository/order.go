package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/discount"
	"github.com/xenking/storefront-admin/internal/domain/order"
	"github.com/xenking/storefront-admin/internal/domain/product"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

const (
	insertOrderSQL = `INSERT INTO orders (user_id, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	updateOrderHeaderSQL = `UPDATE orders SET user_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	getOrderSQL = `SELECT id, user_id, status, created_at, updated_at, deleted_at
		FROM orders WHERE id = $1 AND deleted_at IS NULL`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	softDeleteOrderSQL = `UPDATE orders SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, user_id, status, created_at, updated_at, deleted_at`

	listOrderItemsSQL = `SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	updateOrderItemQuantitySQL = `UPDATE order_items SET quantity = $2 WHERE id = $1`

	deleteOrderItemSQL = `DELETE FROM order_items WHERE id = $1`

	listActiveDiscountsSQL = `SELECT id, order_id, coupon_id, coupon_code, created_at, deleted_at
		FROM discounts WHERE order_id = $1 AND deleted_at IS NULL ORDER BY id`

	countActiveDiscountsSQL = `SELECT count(*) FROM discounts
		WHERE order_id = $1 AND deleted_at IS NULL`

	findActiveDiscountSQL = `SELECT id, order_id, coupon_id, coupon_code, created_at, deleted_at
		FROM discounts WHERE order_id = $1 AND coupon_id = $2 AND deleted_at IS NULL`

	insertDiscountSQL = `INSERT INTO discounts (order_id, coupon_id, coupon_code)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	softDeleteDiscountSQL = `UPDATE discounts SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, order_id, coupon_id, coupon_code, created_at, deleted_at`
)

// querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx, so the
// same statements can run inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ order.Ledger   = (*Ledger)(nil)
	_ order.LedgerTx = (*ledgerTx)(nil)
)

// Ledger persists orders, their items, and their discounts in PostgreSQL.
// Multi-statement workflows run through WithinTx; everything else runs
// directly on the pool.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a Ledger that uses the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// WithinTx runs fn inside a single transaction, committing when fn returns
// nil and rolling back otherwise.
func (l *Ledger) WithinTx(ctx context.Context, fn func(tx order.LedgerTx) error) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

// GetOrder returns a live order header by id.
func (l *Ledger) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, l.pool, getOrderSQL, id)
}

// ListOrders returns one page of live orders matching the filter. Rows are
// ordered by id so pages stay stable between calls.
func (l *Ledger) ListOrders(ctx context.Context, f order.Filter) (*order.Page, error) {
	where := "deleted_at IS NULL"
	args := make([]any, 0, 4)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.IDPattern != "" {
		args = append(args, f.IDPattern)
		where += fmt.Sprintf(" AND id::text LIKE $%d", len(args))
	}

	var total int
	err := l.pool.QueryRow(ctx, "SELECT count(*) FROM orders WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	listSQL := fmt.Sprintf(
		"SELECT id, user_id, status, created_at, updated_at, deleted_at FROM orders WHERE %s ORDER BY id LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	)
	rows, err := l.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	return &order.Page{Orders: orders, Total: total, Page: f.Page, PerPage: f.PerPage}, nil
}

// ListItems returns the order's line items ordered by id.
func (l *Ledger) ListItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	return listItems(ctx, l.pool, orderID)
}

// ListActiveDiscounts returns the order's active discounts ordered by id.
func (l *Ledger) ListActiveDiscounts(ctx context.Context, orderID int64) ([]discount.Discount, error) {
	return listActiveDiscounts(ctx, l.pool, orderID)
}

// SoftDeleteOrder marks a live order deleted and returns it. Items and
// discounts are left in place.
func (l *Ledger) SoftDeleteOrder(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := l.pool.Query(ctx, softDeleteOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("deleting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("deleting order %d: %w", id, err)
	}
	return &o, nil
}

// SoftDeleteDiscount marks a live discount deleted and returns it.
func (l *Ledger) SoftDeleteDiscount(ctx context.Context, id int64) (*discount.Discount, error) {
	rows, err := l.pool.Query(ctx, softDeleteDiscountSQL, id)
	if err != nil {
		return nil, fmt.Errorf("removing discount %d: %w", id, err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("removing discount %d: %w", id, err)
	}
	return &d, nil
}

// ledgerTx runs ledger statements inside one pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL, o.UserID, string(o.Status)).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func (t *ledgerTx) UpdateOrderHeader(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, updateOrderHeaderSQL, o.ID, o.UserID, string(o.Status)).
		Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return fmt.Errorf("updating order %d: %w", o.ID, err)
	}
	return nil
}

func (t *ledgerTx) GetOrderForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, t.tx, getOrderForUpdateSQL, id)
}

func (t *ledgerTx) ListItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	return listItems(ctx, t.tx, orderID)
}

func (t *ledgerTx) InsertItem(ctx context.Context, it *order.Item) error {
	err := t.tx.QueryRow(ctx, insertOrderItemSQL, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice).
		Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("inserting item for order %d: %w", it.OrderID, err)
	}
	return nil
}

func (t *ledgerTx) UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := t.tx.Exec(ctx, updateOrderItemQuantitySQL, itemID, quantity)
	if err != nil {
		return fmt.Errorf("updating item %d quantity: %w", itemID, err)
	}
	return nil
}

func (t *ledgerTx) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := t.tx.Exec(ctx, deleteOrderItemSQL, itemID)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", itemID, err)
	}
	return nil
}

func (t *ledgerTx) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, getProductPricesSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProductPrice)
}

func (t *ledgerTx) FindCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCouponByCode(ctx, t.tx, code)
}

func (t *ledgerTx) CountActiveDiscounts(ctx context.Context, orderID int64) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, countActiveDiscountsSQL, orderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting discounts for order %d: %w", orderID, err)
	}
	return n, nil
}

func (t *ledgerTx) FindActiveDiscount(ctx context.Context, orderID, couponID int64) (*discount.Discount, error) {
	rows, err := t.tx.Query(ctx, findActiveDiscountSQL, orderID, couponID)
	if err != nil {
		return nil, fmt.Errorf("finding discount for order %d: %w", orderID, err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount for order %d: %w", orderID, err)
	}
	return &d, nil
}

func (t *ledgerTx) InsertDiscount(ctx context.Context, d *discount.Discount) error {
	err := t.tx.QueryRow(ctx, insertDiscountSQL, d.OrderID, d.CouponID, d.CouponCode).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return discount.ErrConflict
		}
		return fmt.Errorf("inserting discount for order %d: %w", d.OrderID, err)
	}
	return nil
}

func (t *ledgerTx) ListActiveDiscounts(ctx context.Context, orderID int64) ([]discount.Discount, error) {
	return listActiveDiscounts(ctx, t.tx, orderID)
}

// --- Shared statements ---

func getOrder(ctx context.Context, q querier, query string, id int64) (*order.Order, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

func listItems(ctx context.Context, q querier, orderID int64) ([]order.Item, error) {
	rows, err := q.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

func listActiveDiscounts(ctx context.Context, q querier, orderID int64) ([]discount.Discount, error) {
	rows, err := q.Query(ctx, listActiveDiscountsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing discounts for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it    order.Item
		price decimal.Decimal
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price)
	it.UnitPrice = price
	return it, err
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var d discount.Discount
	err := row.Scan(&d.ID, &d.OrderID, &d.CouponID, &d.CouponCode, &d.CreatedAt, &d.DeletedAt)
	return d, err
}
