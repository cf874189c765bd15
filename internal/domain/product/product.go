package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. The order workflow reads products to snapshot
// unit prices onto order lines; it never mutates the catalog.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Image       Image
	Gallery     []Image
	Categories  []Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image holds responsive image URLs for a product.
type Image struct {
	ID        int64
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Category is a named product grouping.
type Category struct {
	ID   int64
	Name string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
}
