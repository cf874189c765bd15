package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
)

const (
	insertCouponSQL = `INSERT INTO coupons (code, recursive, valid_from, valid_until, min_order_value, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	upsertCouponSQL = `INSERT INTO coupons (code, recursive, valid_from, valid_until, min_order_value, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			recursive = EXCLUDED.recursive,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			min_order_value = EXCLUDED.min_order_value,
			description = EXCLUDED.description,
			updated_at = now()`

	getCouponByCodeSQL = `SELECT id, code, recursive, valid_from, valid_until, min_order_value, description,
		created_at, updated_at
		FROM coupons WHERE code = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts a coupon and fills the generated id and timestamps.
// A duplicate code reports coupon.ErrCodeExists.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, insertCouponSQL,
		c.Code, c.Recursive, c.ValidFrom, c.ValidUntil, c.MinOrderValue, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// FindByCode looks up a coupon by its normalized code. Returns
// coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCouponByCode(ctx, r.pool, code)
}

// UpsertBatch inserts or refreshes coupons in one round trip per batch,
// keyed by code. Used by the bulk ingest tool.
func (r *CouponRepository) UpsertBatch(ctx context.Context, coupons []coupon.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(upsertCouponSQL,
			c.Code, c.Recursive, c.ValidFrom, c.ValidUntil, c.MinOrderValue, c.Description,
		)
	}

	res := r.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range coupons {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upserting coupons: %w", err)
		}
	}
	return nil
}

func findCouponByCode(ctx context.Context, q querier, code string) (*coupon.Coupon, error) {
	rows, err := q.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Recursive, &c.ValidFrom, &c.ValidUntil,
		&c.MinOrderValue, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}
