package token

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a token id or value does not resolve to
	// a live token row.
	ErrNotFound = errors.New("token not found")
	// ErrRevoked is returned when a presented token exists but has been
	// revoked.
	ErrRevoked = errors.New("token revoked")
)

// Type classifies a token.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Token is an opaque bearer credential issued to a user. Revocation flips
// IsRevoked in place; deletion is soft.
type Token struct {
	ID        int64
	UserID    int64
	Value     string
	Type      Type
	IsRevoked bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Active reports whether the token row is live (not soft-deleted).
func (t *Token) Active() bool {
	return t.DeletedAt == nil
}

// Repository defines persistence operations for tokens.
// FindByValue must only return live rows.
type Repository interface {
	Insert(ctx context.Context, t *Token) error
	FindByValue(ctx context.Context, value string) (*Token, error)
	Revoke(ctx context.Context, id int64) (*Token, error)
}
