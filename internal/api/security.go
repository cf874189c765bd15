package api

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-admin/internal/domain/token"
)

// requireToken authenticates every request with a bearer token before it
// reaches the route table. The authenticated user id is attached to the
// request-scoped logger.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := bearerToken(r)
		if !ok {
			writeErrorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		t, err := h.tokens.Verify(r.Context(), value)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrRevoked):
				writeErrorResponse(w, http.StatusUnauthorized, "token revoked")
			case errors.Is(err, token.ErrNotFound):
				writeErrorResponse(w, http.StatusUnauthorized, "invalid token")
			default:
				zctx.From(r.Context()).Error("token verification failed", zap.Error(err))
				writeErrorResponse(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		ctx := zctx.With(r.Context(), zap.Int64("user_id", t.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}

	value := strings.TrimSpace(auth[len(prefix):])
	return value, value != ""
}
