package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/storefront-admin/internal/domain/order"
	"github.com/xenking/storefront-admin/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeProduct(e, &products[i])
			}
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(r.Context(), w, &order.ValidationError{Field: "id", Reason: fmt.Sprintf("invalid product id %q", raw)})
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID.String()) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { e.Str(p.Price.String()) })
		e.Field("image", func(e *jx.Encoder) { encodeImage(e, &p.Image) })
		e.Field("gallery", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Gallery {
					encodeImage(e, &p.Gallery[i])
				}
			})
		})
		e.Field("categories", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range p.Categories {
					encodeCategory(e, c)
				}
			})
		})
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, p.UpdatedAt) })
	})
}

func encodeImage(e *jx.Encoder, img *product.Image) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("thumbnail", func(e *jx.Encoder) { e.Str(img.Thumbnail) })
		e.Field("mobile", func(e *jx.Encoder) { e.Str(img.Mobile) })
		e.Field("tablet", func(e *jx.Encoder) { e.Str(img.Tablet) })
		e.Field("desktop", func(e *jx.Encoder) { e.Str(img.Desktop) })
	})
}

func encodeCategory(e *jx.Encoder, c product.Category) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
	})
}
