package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// tokenBytes is the entropy of a generated token value (hex-encoded to
// twice this length).
const tokenBytes = 32

// Service issues, verifies, and revokes bearer tokens.
type Service struct {
	tokens   Repository
	generate func() (string, error)
}

// NewService creates a token Service backed by the given repository.
func NewService(tokens Repository) *Service {
	return &Service{
		tokens:   tokens,
		generate: generateValue,
	}
}

// Issue creates and persists a new token for the given user.
func (s *Service) Issue(ctx context.Context, userID int64, typ Type) (*Token, error) {
	value, err := s.generate()
	if err != nil {
		return nil, errors.Wrap(err, "generate token value")
	}

	t := &Token{
		UserID: userID,
		Value:  value,
		Type:   typ,
	}
	if err := s.tokens.Insert(ctx, t); err != nil {
		return nil, errors.Wrap(err, "insert token")
	}
	return t, nil
}

// Verify resolves a presented token value to a live, unrevoked token.
// The stored value is compared in constant time even though the lookup is
// an indexed equality match, so a mismatched row from the repository can
// never authenticate.
func (s *Service) Verify(ctx context.Context, value string) (*Token, error) {
	if value == "" {
		return nil, ErrNotFound
	}

	t, err := s.tokens.FindByValue(ctx, value)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(t.Value), []byte(value)) != 1 {
		return nil, ErrNotFound
	}
	if t.IsRevoked {
		return nil, ErrRevoked
	}
	return t, nil
}

// Revoke marks the token revoked in place. Returns ErrNotFound when the id
// does not resolve to a live token.
func (s *Service) Revoke(ctx context.Context, id int64) (*Token, error) {
	return s.tokens.Revoke(ctx, id)
}

// generateValue returns a hex-encoded random token value.
func generateValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
