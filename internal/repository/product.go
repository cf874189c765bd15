package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-admin/internal/domain/product"
)

const (
	listProductsSQL = `SELECT p.id, p.name, p.description, p.price, p.created_at, p.updated_at,
		COALESCE(i.id, 0), COALESCE(i.thumbnail, ''), COALESCE(i.mobile, ''), COALESCE(i.tablet, ''), COALESCE(i.desktop, '')
		FROM products p
		LEFT JOIN images i ON i.id = p.image_id
		ORDER BY p.name`

	getProductByIDSQL = `SELECT p.id, p.name, p.description, p.price, p.created_at, p.updated_at,
		COALESCE(i.id, 0), COALESCE(i.thumbnail, ''), COALESCE(i.mobile, ''), COALESCE(i.tablet, ''), COALESCE(i.desktop, '')
		FROM products p
		LEFT JOIN images i ON i.id = p.image_id
		WHERE p.id = $1`

	getProductPricesSQL = `SELECT id, name, price FROM products WHERE id = ANY($1)`

	getGalleriesSQL = `SELECT ip.product_id, i.id, i.thumbnail, i.mobile, i.tablet, i.desktop
		FROM image_product ip
		JOIN images i ON i.id = ip.image_id
		WHERE ip.product_id = ANY($1)
		ORDER BY i.id`

	getCategoriesSQL = `SELECT cp.product_id, c.id, c.name
		FROM category_product cp
		JOIN categories c ON c.id = cp.category_id
		WHERE cp.product_id = ANY($1)
		ORDER BY c.name`

	insertImageSQL = `INSERT INTO images (thumbnail, mobile, tablet, desktop)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	insertProductSQL = `INSERT INTO products (id, name, description, price, image_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	ensureCategorySQL = `INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	linkGalleryImageSQL = `INSERT INTO image_product (image_id, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	linkCategorySQL = `INSERT INTO category_product (category_id, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by name, with galleries and
// categories attached.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product with its gallery and categories.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}

	products := []product.Product{p}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// Create inserts a product with its main image, gallery, and categories in
// one transaction. A zero id is replaced with a fresh one.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var imageID *int64
		if p.Image != (product.Image{}) {
			id, err := insertImage(ctx, tx, &p.Image)
			if err != nil {
				return err
			}
			imageID = &id
		}

		err := tx.QueryRow(ctx, insertProductSQL, p.ID, p.Name, p.Description, p.Price, imageID).
			Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting product %q: %w", p.Name, err)
		}

		for i := range p.Gallery {
			id, err := insertImage(ctx, tx, &p.Gallery[i])
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, linkGalleryImageSQL, id, p.ID); err != nil {
				return fmt.Errorf("linking gallery image: %w", err)
			}
		}

		for i := range p.Categories {
			c := &p.Categories[i]
			if err := tx.QueryRow(ctx, ensureCategorySQL, c.Name).Scan(&c.ID); err != nil {
				return fmt.Errorf("ensuring category %q: %w", c.Name, err)
			}
			if _, err := tx.Exec(ctx, linkCategorySQL, c.ID, p.ID); err != nil {
				return fmt.Errorf("linking category %q: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// attachRelations loads galleries and categories for the given products in
// two batched queries.
func (r *ProductRepository) attachRelations(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(products))
	index := make(map[uuid.UUID]*product.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, getGalleriesSQL, ids)
	if err != nil {
		return fmt.Errorf("loading product galleries: %w", err)
	}
	for rows.Next() {
		var (
			productID uuid.UUID
			img       product.Image
		)
		if err := rows.Scan(&productID, &img.ID, &img.Thumbnail, &img.Mobile, &img.Tablet, &img.Desktop); err != nil {
			rows.Close()
			return fmt.Errorf("scanning gallery image: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Gallery = append(p.Gallery, img)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading product galleries: %w", err)
	}

	rows, err = r.pool.Query(ctx, getCategoriesSQL, ids)
	if err != nil {
		return fmt.Errorf("loading product categories: %w", err)
	}
	for rows.Next() {
		var (
			productID uuid.UUID
			cat       product.Category
		)
		if err := rows.Scan(&productID, &cat.ID, &cat.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scanning category: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Categories = append(p.Categories, cat)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading product categories: %w", err)
	}

	return nil
}

func insertImage(ctx context.Context, q querier, img *product.Image) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, insertImageSQL, img.Thumbnail, img.Mobile, img.Tablet, img.Desktop).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting image: %w", err)
	}
	img.ID = id
	return id, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &price, &p.CreatedAt, &p.UpdatedAt,
		&p.Image.ID, &p.Image.Thumbnail, &p.Image.Mobile, &p.Image.Tablet, &p.Image.Desktop,
	)
	p.Price = price
	return p, err
}

func scanProductPrice(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &price)
	p.Price = price
	return p, err
}
