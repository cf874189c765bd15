package order

import (
	"github.com/google/uuid"
)

// itemChange pairs an existing order line with its requested quantity.
type itemChange struct {
	itemID   int64
	quantity int
}

// syncPlan lists the line mutations that reconcile an order's current items
// with a requested target list. Lines whose product and quantity already
// match appear in no bucket.
type syncPlan struct {
	insert []ItemSpec
	update []itemChange
	remove []int64
}

// planItemSync diffs current lines against the target list, keyed by
// product: target products not yet on the order are inserted, order lines
// whose product left the target are removed, and matching lines have their
// quantity updated in place (keeping the original unit price snapshot).
// The same product may appear at most once in the target list.
func planItemSync(current []Item, target []ItemSpec) (syncPlan, error) {
	var plan syncPlan

	seen := make(map[uuid.UUID]struct{}, len(target))
	for _, spec := range target {
		if spec.ProductID == uuid.Nil {
			return syncPlan{}, validationf("items.productId", "product id is required")
		}
		if spec.Quantity <= 0 {
			return syncPlan{}, validationf("items.quantity", "quantity must be greater than 0 for product %s", spec.ProductID)
		}
		if _, dup := seen[spec.ProductID]; dup {
			return syncPlan{}, validationf("items.productId", "product %s appears more than once", spec.ProductID)
		}
		seen[spec.ProductID] = struct{}{}
	}

	existing := make(map[uuid.UUID]Item, len(current))
	for _, it := range current {
		existing[it.ProductID] = it
	}

	for _, spec := range target {
		it, ok := existing[spec.ProductID]
		if !ok {
			plan.insert = append(plan.insert, spec)
			continue
		}
		if it.Quantity != spec.Quantity {
			plan.update = append(plan.update, itemChange{itemID: it.ID, quantity: spec.Quantity})
		}
	}

	for _, it := range current {
		if _, keep := seen[it.ProductID]; !keep {
			plan.remove = append(plan.remove, it.ID)
		}
	}

	return plan, nil
}
