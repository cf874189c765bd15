package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-admin/internal/domain/order"
	"github.com/xenking/storefront-admin/internal/domain/token"
)

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var (
		userID int64
		typ    = token.TypeAccess
	)

	d, err := requestDecoder(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "userId":
			v, err := d.Int64()
			userID = v
			return err
		case "type":
			s, err := d.Str()
			typ = token.Type(s)
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(r.Context(), w, asValidation(err))
		return
	}

	if userID <= 0 {
		writeError(r.Context(), w, &order.ValidationError{Field: "userId", Reason: "user id is required"})
		return
	}
	if typ != token.TypeAccess && typ != token.TypeRefresh {
		writeError(r.Context(), w, &order.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown token type %q", typ)})
		return
	}

	t, err := h.tokens.Issue(r.Context(), userID, typ)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	h.metrics.tokenIssued(r.Context(), string(typ))

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeToken(e, t) })
}

func (h *Handler) revokeToken(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	t, err := h.tokens.Revoke(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeToken(e, t) })
}

func encodeToken(e *jx.Encoder, t *token.Token) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(t.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(t.UserID) })
		e.Field("value", func(e *jx.Encoder) { e.Str(t.Value) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(t.Type)) })
		e.Field("isRevoked", func(e *jx.Encoder) { e.Bool(t.IsRevoked) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, t.CreatedAt) })
	})
}
