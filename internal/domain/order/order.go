package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-admin/internal/domain/discount"
)

// ErrNotFound is returned when an order id does not resolve to a live
// (non-deleted) order.
var ErrNotFound = errors.New("order not found")

// Status is an order's lifecycle state. The set is open: the listed
// constants cover the known states, but unknown values are stored as-is.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Order is a purchase record owned by a user. Deleted orders are kept as
// soft-deleted rows; deletion does not cascade to items or discounts.
type Order struct {
	ID        int64
	UserID    int64
	Status    Status
	Items     []Item
	Discounts []discount.Discount
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Active reports whether the order is live (not soft-deleted).
func (o *Order) Active() bool {
	return o.DeletedAt == nil
}

// Subtotal is the sum of unit price times quantity across all items.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Item is a line item belonging to exactly one order. UnitPrice is
// snapshotted from the catalog when the line is inserted and survives
// quantity updates.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// ItemSpec describes one requested order line: which product and how many.
type ItemSpec struct {
	ProductID uuid.UUID
	Quantity  int
}

// Filter narrows and pages ListOrders results. Zero-valued fields are
// ignored; IDPattern is a SQL LIKE pattern matched against the id text.
type Filter struct {
	Status    Status
	IDPattern string
	Page      int
	PerPage   int
}

// Page is one page of orders plus paging metadata.
type Page struct {
	Orders  []Order
	Total   int
	Page    int
	PerPage int
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// validationf builds a ValidationError for the given field.
func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
