package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-admin/internal/domain/token"
)

const (
	insertTokenSQL = `INSERT INTO tokens (user_id, value, type)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	getTokenByValueSQL = `SELECT id, user_id, value, type, is_revoked, created_at, updated_at, deleted_at
		FROM tokens WHERE value = $1 AND deleted_at IS NULL`

	revokeTokenSQL = `UPDATE tokens SET is_revoked = TRUE, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, user_id, value, type, is_revoked, created_at, updated_at, deleted_at`
)

var _ token.Repository = (*TokenRepository)(nil)

// TokenRepository implements token.Repository backed by PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Insert persists a freshly issued token and fills its id and timestamps.
func (r *TokenRepository) Insert(ctx context.Context, t *token.Token) error {
	err := r.pool.QueryRow(ctx, insertTokenSQL, t.UserID, t.Value, string(t.Type)).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// FindByValue looks up a live token by its value. Returns token.ErrNotFound
// when no live row matches.
func (r *TokenRepository) FindByValue(ctx context.Context, value string) (*token.Token, error) {
	rows, err := r.pool.Query(ctx, getTokenByValueSQL, value)
	if err != nil {
		return nil, fmt.Errorf("finding token: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("finding token: %w", err)
	}
	return &t, nil
}

// Revoke marks a live token revoked and returns it. Returns
// token.ErrNotFound when the id does not resolve to a live token.
func (r *TokenRepository) Revoke(ctx context.Context, id int64) (*token.Token, error) {
	rows, err := r.pool.Query(ctx, revokeTokenSQL, id)
	if err != nil {
		return nil, fmt.Errorf("revoking token %d: %w", id, err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("revoking token %d: %w", id, err)
	}
	return &t, nil
}

func scanToken(row pgx.CollectableRow) (token.Token, error) {
	var (
		t   token.Token
		typ string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Value, &typ, &t.IsRevoked, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	t.Type = token.Type(typ)
	return t, err
}
