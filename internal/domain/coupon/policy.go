package coupon

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderSnapshot is the read-only view of an order that eligibility
// predicates may inspect. It carries no persistence handles, so predicates
// stay free of storage concerns.
type OrderSnapshot struct {
	ID       int64
	UserID   int64
	Status   string
	Subtotal decimal.Decimal
	Items    int
}

// Eligibility decides whether a particular coupon may be applied to a
// particular order at all (validity window, minimum order value, and so on).
// It is independent of the stacking rule. When the coupon is not eligible,
// the returned reason is surfaced to the caller verbatim.
type Eligibility interface {
	CanApply(ctx context.Context, o OrderSnapshot, c Coupon) (bool, string)
}

// Decision is the outcome of a policy evaluation. A disallowed decision is
// a normal result, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

// CanStack reports whether a coupon may be applied to an order that already
// carries activeCount non-deleted discounts. Only the incoming coupon's
// Recursive flag is consulted; the flags of previously applied coupons are
// deliberately ignored.
func CanStack(c Coupon, activeCount int) bool {
	return activeCount < 1 || c.Recursive
}

// Policy combines the stacking rule with an injected eligibility predicate.
// Both gates must pass for a coupon to be applied.
type Policy struct {
	eligibility Eligibility
}

// NewPolicy creates a Policy using the given eligibility predicate.
func NewPolicy(eligibility Eligibility) *Policy {
	return &Policy{eligibility: eligibility}
}

// Evaluate decides whether coupon c may be applied to the order described by
// snap, given that the order already has activeCount active discounts.
func (p *Policy) Evaluate(ctx context.Context, snap OrderSnapshot, c Coupon, activeCount int) Decision {
	if !CanStack(c, activeCount) {
		return Decision{Reason: "order already has an active discount"}
	}
	if ok, reason := p.eligibility.CanApply(ctx, snap, c); !ok {
		return Decision{Reason: reason}
	}
	return Decision{Allowed: true}
}
