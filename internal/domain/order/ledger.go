package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/discount"
	"github.com/xenking/storefront-admin/internal/domain/product"
)

// Ledger is the persistence surface the order workflow depends on. Reads
// and single-statement mutations run directly; multi-statement mutations go
// through WithinTx so they commit or roll back as one unit.
type Ledger interface {
	// WithinTx runs fn inside one transaction: commit when fn returns nil,
	// roll back when it returns an error. A rolled-back transaction leaves
	// no trace.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, filter Filter) (*Page, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
	ListActiveDiscounts(ctx context.Context, orderID int64) ([]discount.Discount, error)

	// SoftDeleteOrder marks the order deleted and returns it. Items and
	// discounts are left untouched. Returns ErrNotFound when the id does
	// not resolve to a live order.
	SoftDeleteOrder(ctx context.Context, id int64) (*Order, error)

	// SoftDeleteDiscount marks the discount deleted and returns it.
	// Returns discount.ErrNotFound for missing or already-removed rows.
	SoftDeleteDiscount(ctx context.Context, id int64) (*discount.Discount, error)
}

// LedgerTx is the transactional slice of the ledger. Every method joins the
// transaction it was obtained from; nothing is visible to other readers
// until the enclosing WithinTx commits.
type LedgerTx interface {
	// CreateOrder inserts the order header and fills the generated id and
	// timestamps.
	CreateOrder(ctx context.Context, o *Order) error
	// UpdateOrderHeader persists user id and status for a live order.
	UpdateOrderHeader(ctx context.Context, o *Order) error
	// GetOrderForUpdate loads a live order and locks its row until the
	// transaction ends, serializing concurrent mutations of the same order.
	GetOrderForUpdate(ctx context.Context, id int64) (*Order, error)

	ListItems(ctx context.Context, orderID int64) ([]Item, error)
	InsertItem(ctx context.Context, it *Item) error
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error

	// ProductsByIDs batch-loads catalog products for unit price snapshots.
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]product.Product, error)

	// FindCouponByCode expects a normalized code.
	FindCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	CountActiveDiscounts(ctx context.Context, orderID int64) (int, error)
	// FindActiveDiscount returns the active discount for (order, coupon),
	// or discount.ErrNotFound.
	FindActiveDiscount(ctx context.Context, orderID, couponID int64) (*discount.Discount, error)
	// InsertDiscount records a coupon application. A lost stacking race
	// surfaces as discount.ErrConflict.
	InsertDiscount(ctx context.Context, d *discount.Discount) error
	ListActiveDiscounts(ctx context.Context, orderID int64) ([]discount.Discount, error)
}
