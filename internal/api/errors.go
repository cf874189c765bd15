package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/discount"
	"github.com/xenking/storefront-admin/internal/domain/order"
	"github.com/xenking/storefront-admin/internal/domain/product"
	"github.com/xenking/storefront-admin/internal/domain/token"
)

// writeJSON encodes one response body and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// writeError maps a domain error onto the HTTP taxonomy. Unexpected errors
// are logged with their cause and surface as an opaque 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		zctx.From(ctx).Error("request failed", zap.Error(err))
	}
	writeErrorResponse(w, status, message)
}

func mapError(err error) (int, string) {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, discount.ErrNotFound):
		return http.StatusNotFound, "discount not found"
	case errors.Is(err, coupon.ErrNotFound):
		return http.StatusNotFound, "coupon not found"
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, token.ErrNotFound):
		return http.StatusNotFound, "token not found"
	case errors.Is(err, discount.ErrConflict):
		return http.StatusConflict, "discount already applied"
	case errors.Is(err, coupon.ErrCodeExists):
		return http.StatusConflict, "coupon code already exists"
	}
	return http.StatusInternalServerError, "internal error"
}
