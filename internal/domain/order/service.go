package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/discount"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// CreateOrderRequest holds the input for creating an order. An empty Items
// list creates a zero-item order; a missing Status defaults to pending.
type CreateOrderRequest struct {
	UserID int64
	Status Status
	Items  []ItemSpec
}

// UpdateOrderRequest patches an order header and optionally reconciles its
// items. Nil fields are left untouched. A nil Items slice keeps the current
// lines; an empty non-nil slice removes them all.
type UpdateOrderRequest struct {
	UserID *int64
	Status *Status
	Items  []ItemSpec
}

// ApplyDiscountResult is the outcome of a coupon application. A policy
// rejection is a normal result: Applied is false and Message carries the
// reason, but no error is returned.
type ApplyDiscountResult struct {
	Order   *Order
	Applied bool
	Message string
}

// Service is the order workflow facade. It owns transaction boundaries:
// each mutating operation runs inside one ledger transaction and either
// fully commits or leaves no trace.
type Service struct {
	ledger Ledger
	policy *coupon.Policy
}

// NewService creates the order workflow with its ledger and discount policy.
func NewService(ledger Ledger, policy *coupon.Policy) *Service {
	return &Service{
		ledger: ledger,
		policy: policy,
	}
}

// CreateOrder persists a new order header together with its line items.
// Unit prices are snapshotted from the catalog inside the same transaction;
// any failure rolls the whole operation back.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.UserID <= 0 {
		return nil, validationf("userId", "user id is required")
	}
	status := req.Status
	if status == "" {
		status = StatusPending
	}

	plan, err := planItemSync(nil, req.Items)
	if err != nil {
		return nil, err
	}

	var created *Order
	err = s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		o := &Order{UserID: req.UserID, Status: status}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}

		items, err := insertItems(ctx, tx, o.ID, plan.insert)
		if err != nil {
			return err
		}
		o.Items = items
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateOrder applies the header patch and, when req.Items is non-nil,
// reconciles the order's lines to exactly match it. The order row is locked
// for the duration of the transaction.
func (s *Service) UpdateOrder(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	if req.UserID != nil && *req.UserID <= 0 {
		return nil, validationf("userId", "user id must be greater than 0")
	}
	if req.Status != nil && *req.Status == "" {
		return nil, validationf("status", "status must not be empty")
	}

	var updated *Order
	err := s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.UserID != nil {
			o.UserID = *req.UserID
		}
		if req.Status != nil {
			o.Status = *req.Status
		}
		if err := tx.UpdateOrderHeader(ctx, o); err != nil {
			return errors.Wrap(err, "update order header")
		}

		if req.Items != nil {
			current, err := tx.ListItems(ctx, id)
			if err != nil {
				return errors.Wrap(err, "list items")
			}
			plan, err := planItemSync(current, req.Items)
			if err != nil {
				return err
			}
			if _, err := insertItems(ctx, tx, id, plan.insert); err != nil {
				return err
			}
			for _, ch := range plan.update {
				if err := tx.UpdateItemQuantity(ctx, ch.itemID, ch.quantity); err != nil {
					return errors.Wrap(err, "update item quantity")
				}
			}
			for _, itemID := range plan.remove {
				if err := tx.DeleteItem(ctx, itemID); err != nil {
					return errors.Wrap(err, "delete item")
				}
			}
		}

		items, err := tx.ListItems(ctx, id)
		if err != nil {
			return errors.Wrap(err, "list items")
		}
		discounts, err := tx.ListActiveDiscounts(ctx, id)
		if err != nil {
			return errors.Wrap(err, "list discounts")
		}
		o.Items = items
		o.Discounts = discounts
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetOrder returns a live order hydrated with its items and active
// discounts.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.ledger.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns one page of live order headers matching the filter.
// Page defaults to 1 and PerPage to 20, capped at 100.
func (s *Service) ListOrders(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	return s.ledger.ListOrders(ctx, f)
}

// DeleteOrder soft-deletes the order and returns it. Items and discounts
// are not cascaded.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.ledger.SoftDeleteOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ApplyDiscount applies the coupon with the given code to the order. The
// order row is locked while the stacking rule is checked, so concurrent
// applications to the same order serialize. Re-applying a coupon that is
// already active on the order succeeds without creating a duplicate row.
func (s *Service) ApplyDiscount(ctx context.Context, orderID int64, code string) (*ApplyDiscountResult, error) {
	code = coupon.NormalizeCode(code)
	if code == "" {
		return nil, validationf("couponCode", "coupon code is required")
	}

	var res *ApplyDiscountResult
	err := s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		c, err := tx.FindCouponByCode(ctx, code)
		if err != nil {
			return err
		}

		items, err := tx.ListItems(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "list items")
		}
		o.Items = items

		active, err := tx.CountActiveDiscounts(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "count active discounts")
		}

		dec := s.policy.Evaluate(ctx, snapshot(o), *c, active)
		if !dec.Allowed {
			if err := loadDiscounts(ctx, tx, o); err != nil {
				return err
			}
			res = &ApplyDiscountResult{Order: o, Message: dec.Reason}
			return nil
		}

		_, err = tx.FindActiveDiscount(ctx, orderID, c.ID)
		switch {
		case err == nil:
			// Identical coupon already active: idempotent success.
		case errors.Is(err, discount.ErrNotFound):
			d := &discount.Discount{OrderID: orderID, CouponID: c.ID, CouponCode: c.Code}
			if err := tx.InsertDiscount(ctx, d); err != nil {
				return errors.Wrapf(err, "apply coupon %s", c.Code)
			}
		default:
			return errors.Wrap(err, "find active discount")
		}

		if err := loadDiscounts(ctx, tx, o); err != nil {
			return err
		}
		res = &ApplyDiscountResult{Order: o, Applied: true, Message: "discount applied"}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveDiscount soft-deletes a discount by id. Removing a missing or
// already-removed discount reports discount.ErrNotFound.
func (s *Service) RemoveDiscount(ctx context.Context, id int64) (*discount.Discount, error) {
	return s.ledger.SoftDeleteDiscount(ctx, id)
}

// hydrate fills items and active discounts on an order loaded outside a
// transaction.
func (s *Service) hydrate(ctx context.Context, o *Order) error {
	items, err := s.ledger.ListItems(ctx, o.ID)
	if err != nil {
		return errors.Wrap(err, "list items")
	}
	discounts, err := s.ledger.ListActiveDiscounts(ctx, o.ID)
	if err != nil {
		return errors.Wrap(err, "list discounts")
	}
	o.Items = items
	o.Discounts = discounts
	return nil
}

func loadDiscounts(ctx context.Context, tx LedgerTx, o *Order) error {
	discounts, err := tx.ListActiveDiscounts(ctx, o.ID)
	if err != nil {
		return errors.Wrap(err, "list discounts")
	}
	o.Discounts = discounts
	return nil
}

// snapshot projects an order into the read-only view eligibility
// predicates receive.
func snapshot(o *Order) coupon.OrderSnapshot {
	return coupon.OrderSnapshot{
		ID:       o.ID,
		UserID:   o.UserID,
		Status:   string(o.Status),
		Subtotal: o.Subtotal(),
		Items:    len(o.Items),
	}
}

// insertItems snapshots unit prices from the catalog and inserts one line
// per spec. A spec referencing an unknown product fails validation.
func insertItems(ctx context.Context, tx LedgerTx, orderID int64, specs []ItemSpec) ([]Item, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(specs))
	for i, spec := range specs {
		ids[i] = spec.ProductID
	}
	products, err := tx.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	items := make([]Item, 0, len(specs))
	for _, spec := range specs {
		price, ok := prices[spec.ProductID]
		if !ok {
			return nil, validationf("items.productId", "product %s not found", spec.ProductID)
		}

		it := Item{
			OrderID:   orderID,
			ProductID: spec.ProductID,
			Quantity:  spec.Quantity,
			UnitPrice: price,
		}
		if err := tx.InsertItem(ctx, &it); err != nil {
			return nil, errors.Wrapf(err, "insert item for product %s", spec.ProductID)
		}
		items = append(items, it)
	}
	return items, nil
}
