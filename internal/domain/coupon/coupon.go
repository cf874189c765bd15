package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a coupon code does not resolve to a
	// stored coupon.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeExists is returned when creating a coupon whose code is
	// already taken.
	ErrCodeExists = errors.New("coupon code already exists")
)

// Coupon is a named promotional code. Recursive coupons may stack on top of
// other active discounts; non-recursive coupons only apply to orders with no
// active discount.
type Coupon struct {
	ID            int64
	Code          string
	Recursive     bool
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	MinOrderValue decimal.Decimal
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeCode canonicalizes a coupon code for storage and lookup.
// Codes are stored upper-case; lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides coupon persistence for the admin surface.
// FindByCode expects a normalized code.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
