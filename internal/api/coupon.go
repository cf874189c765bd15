package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/order"
)

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCoupon(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if err := h.coupons.Create(r.Context(), c); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	code := coupon.NormalizeCode(r.PathValue("code"))

	c, err := h.coupons.FindByCode(r.Context(), code)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

func decodeCoupon(r *http.Request) (*coupon.Coupon, error) {
	var c coupon.Coupon

	d, err := requestDecoder(r)
	if err != nil {
		return nil, err
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, err := d.Str()
			c.Code = coupon.NormalizeCode(s)
			return err
		case "recursive":
			v, err := d.Bool()
			c.Recursive = v
			return err
		case "validFrom":
			t, err := decodeNullableTime(d, "validFrom")
			c.ValidFrom = t
			return err
		case "validUntil":
			t, err := decodeNullableTime(d, "validUntil")
			c.ValidUntil = t
			return err
		case "minOrderValue":
			v, err := decodeDecimal(d, "minOrderValue")
			c.MinOrderValue = v
			return err
		case "description":
			s, err := d.Str()
			c.Description = s
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, asValidation(err)
	}

	if c.Code == "" {
		return nil, &order.ValidationError{Field: "code", Reason: "coupon code is required"}
	}
	if c.MinOrderValue.IsNegative() {
		return nil, &order.ValidationError{Field: "minOrderValue", Reason: "minimum order value must not be negative"}
	}
	return &c, nil
}

func decodeNullableTime(d *jx.Decoder, field string) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, &order.ValidationError{Field: field, Reason: fmt.Sprintf("invalid timestamp %q", s)}
	}
	return &t, nil
}

// decodeDecimal accepts a decimal either as a JSON string or a bare number.
func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	default:
		return decimal.Zero, &order.ValidationError{Field: field, Reason: "expected a decimal value"}
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &order.ValidationError{Field: field, Reason: fmt.Sprintf("invalid decimal %q", raw)}
	}
	return v, nil
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("recursive", func(e *jx.Encoder) { e.Bool(c.Recursive) })
		e.Field("validFrom", func(e *jx.Encoder) {
			if c.ValidFrom == nil {
				e.Null()
				return
			}
			encodeTime(e, *c.ValidFrom)
		})
		e.Field("validUntil", func(e *jx.Encoder) {
			if c.ValidUntil == nil {
				e.Null()
				return
			}
			encodeTime(e, *c.ValidUntil)
		})
		e.Field("minOrderValue", func(e *jx.Encoder) { e.Str(c.MinOrderValue.String()) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, c.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, c.UpdatedAt) })
	})
}
