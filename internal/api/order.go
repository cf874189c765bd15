package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/storefront-admin/internal/domain/discount"
	"github.com/xenking/storefront-admin/internal/domain/order"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := queryFilter(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	page, err := h.orders.ListOrders(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrderPage(e, page) })
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateOrder(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	h.metrics.orderCreated(r.Context())

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	req, err := decodeUpdateOrder(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	o, err := h.orders.UpdateOrder(r.Context(), id, req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	o, err := h.orders.DeleteOrder(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	code, err := decodeCouponCode(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := h.orders.ApplyDiscount(r.Context(), id, code)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	h.metrics.discountApplied(r.Context(), res.Applied)

	// Policy rejections share the 200 path; success tells them apart.
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, res.Order) })
			e.Field("info", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("message", func(e *jx.Encoder) { e.Str(res.Message) })
					e.Field("success", func(e *jx.Encoder) { e.Bool(res.Applied) })
				})
			})
		})
	})
}

func (h *Handler) removeDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	d, err := h.orders.RemoveDiscount(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeDiscount(e, d) })
}

// --- Request decoding ---

// pathID parses a positive integer path segment.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &order.ValidationError{Field: name, Reason: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

func queryFilter(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	f := order.Filter{
		Status:    order.Status(q.Get("status")),
		IDPattern: q.Get("id_pattern"),
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, &order.ValidationError{Field: "page", Reason: fmt.Sprintf("invalid page %q", v)}
		}
		f.Page = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, &order.ValidationError{Field: "per_page", Reason: fmt.Sprintf("invalid per_page %q", v)}
		}
		f.PerPage = n
	}
	return f, nil
}

// requestDecoder reads the body and returns a jx decoder over it.
func requestDecoder(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &order.ValidationError{Field: "body", Reason: "unreadable request body"}
	}
	return jx.DecodeBytes(data), nil
}

// asValidation keeps a typed validation error intact and downgrades any
// other decode failure to a generic malformed-body error.
func asValidation(err error) error {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &order.ValidationError{Field: "body", Reason: "malformed json"}
}

func decodeCreateOrder(r *http.Request) (order.CreateOrderRequest, error) {
	var req order.CreateOrderRequest

	d, err := requestDecoder(r)
	if err != nil {
		return req, err
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "userId":
			v, err := d.Int64()
			req.UserID = v
			return err
		case "status":
			s, err := d.Str()
			req.Status = order.Status(s)
			return err
		case "items":
			req.Items = make([]order.ItemSpec, 0, 4)
			return d.Arr(func(d *jx.Decoder) error {
				spec, err := decodeItemSpec(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, spec)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return req, asValidation(err)
	}
	return req, nil
}

func decodeUpdateOrder(r *http.Request) (order.UpdateOrderRequest, error) {
	var req order.UpdateOrderRequest

	d, err := requestDecoder(r)
	if err != nil {
		return req, err
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "userId":
			v, err := d.Int64()
			req.UserID = &v
			return err
		case "status":
			s, err := d.Str()
			st := order.Status(s)
			req.Status = &st
			return err
		case "items":
			// A present empty list means "remove all lines", so the slice
			// must be non-nil even when no element follows.
			req.Items = make([]order.ItemSpec, 0, 4)
			return d.Arr(func(d *jx.Decoder) error {
				spec, err := decodeItemSpec(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, spec)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return req, asValidation(err)
	}
	return req, nil
}

func decodeItemSpec(d *jx.Decoder) (order.ItemSpec, error) {
	var spec order.ItemSpec
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			s, err := d.Str()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return &order.ValidationError{Field: "items.productId", Reason: fmt.Sprintf("invalid product id %q", s)}
			}
			spec.ProductID = id
			return nil
		case "quantity":
			v, err := d.Int()
			spec.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return spec, err
}

func decodeCouponCode(r *http.Request) (string, error) {
	var code string

	d, err := requestDecoder(r)
	if err != nil {
		return "", err
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "couponCode":
			s, err := d.Str()
			code = s
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return "", asValidation(err)
	}
	return code, nil
}

// --- Response encoding ---

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(o.UserID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(o.Subtotal().String()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Items {
					encodeOrderItem(e, &o.Items[i])
				}
			})
		})
		e.Field("discounts", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Discounts {
					encodeDiscount(e, &o.Discounts[i])
				}
			})
		})
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
		if o.DeletedAt != nil {
			e.Field("deletedAt", func(e *jx.Encoder) { encodeTime(e, *o.DeletedAt) })
		}
	})
}

func encodeOrderItem(e *jx.Encoder, it *order.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID.String()) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Str(it.UnitPrice.String()) })
	})
}

func encodeDiscount(e *jx.Encoder, d *discount.Discount) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(d.ID) })
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(d.OrderID) })
		e.Field("couponId", func(e *jx.Encoder) { e.Int64(d.CouponID) })
		e.Field("couponCode", func(e *jx.Encoder) { e.Str(d.CouponCode) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, d.CreatedAt) })
		if d.DeletedAt != nil {
			e.Field("deletedAt", func(e *jx.Encoder) { encodeTime(e, *d.DeletedAt) })
		}
	})
}

func encodeOrderPage(e *jx.Encoder, p *order.Page) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orders", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Orders {
					encodeOrder(e, &p.Orders[i])
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Int(p.Total) })
		e.Field("page", func(e *jx.Encoder) { e.Int(p.Page) })
		e.Field("perPage", func(e *jx.Encoder) { e.Int(p.PerPage) })
	})
}
