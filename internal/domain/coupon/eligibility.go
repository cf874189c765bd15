package coupon

import (
	"context"
	"time"
)

var _ Eligibility = (*ValidityEligibility)(nil)

// ValidityEligibility is the default eligibility predicate: it checks the
// coupon's validity window and minimum order value against the order
// snapshot. Coupons with no window are always in range; a zero minimum
// accepts any subtotal.
type ValidityEligibility struct {
	now func() time.Time
}

// NewValidityEligibility creates the default eligibility predicate.
func NewValidityEligibility() *ValidityEligibility {
	return &ValidityEligibility{now: time.Now}
}

// CanApply reports whether the coupon is currently valid and the order is
// large enough to use it.
func (v *ValidityEligibility) CanApply(_ context.Context, o OrderSnapshot, c Coupon) (bool, string) {
	now := v.now()

	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false, "coupon is not valid yet"
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false, "coupon has expired"
	}
	if c.MinOrderValue.IsPositive() && o.Subtotal.LessThan(c.MinOrderValue) {
		return false, "order subtotal is below the coupon minimum"
	}
	return true, ""
}
