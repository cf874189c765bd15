// Package discount holds the join entity recording one coupon applied to
// one order. An order carries at most one active discount per coupon;
// database-level enforcement backs the application-level stacking check.
package discount

import (
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a discount id does not resolve to an
	// active (non-deleted) discount.
	ErrNotFound = errors.New("discount not found")
	// ErrConflict is returned when a concurrent application of the same
	// coupon wins the race and the active-discount uniqueness rule would
	// be violated.
	ErrConflict = errors.New("discount already applied")
)

// Discount links one Order to one Coupon. Removed discounts are kept as
// soft-deleted rows.
type Discount struct {
	ID         int64
	OrderID    int64
	CouponID   int64
	CouponCode string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// Active reports whether the discount still applies to its order.
func (d *Discount) Active() bool {
	return d.DeletedAt == nil
}
