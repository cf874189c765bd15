// Package api exposes the admin HTTP surface: order workflow, catalog
// reads, coupon administration, and token lifecycle. Handlers are plain
// net/http with JSON encoded through go-faster/jx.
package api

import (
	"context"
	"net/http"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/discount"
	"github.com/xenking/storefront-admin/internal/domain/order"
	"github.com/xenking/storefront-admin/internal/domain/product"
	"github.com/xenking/storefront-admin/internal/domain/token"
	"github.com/xenking/storefront-admin/pkg/httpmiddleware"
)

// OrderWorkflow is the order service surface the handlers delegate to.
type OrderWorkflow interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	UpdateOrder(ctx context.Context, id int64, req order.UpdateOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, f order.Filter) (*order.Page, error)
	DeleteOrder(ctx context.Context, id int64) (*order.Order, error)
	ApplyDiscount(ctx context.Context, orderID int64, code string) (*order.ApplyDiscountResult, error)
	RemoveDiscount(ctx context.Context, id int64) (*discount.Discount, error)
}

// CouponStore is the coupon administration surface.
type CouponStore interface {
	Create(ctx context.Context, c *coupon.Coupon) error
	FindByCode(ctx context.Context, code string) (*coupon.Coupon, error)
}

// TokenService issues, verifies, and revokes bearer tokens.
type TokenService interface {
	Issue(ctx context.Context, userID int64, typ token.Type) (*token.Token, error)
	Verify(ctx context.Context, value string) (*token.Token, error)
	Revoke(ctx context.Context, id int64) (*token.Token, error)
}

// Handler routes admin API requests to the injected domain services.
type Handler struct {
	orders   OrderWorkflow
	products product.Repository
	coupons  CouponStore
	tokens   TokenService
	metrics  *Metrics
}

// NewHandler constructs a Handler with the required domain dependencies.
// metrics may be nil, in which case no domain counters are recorded.
func NewHandler(orders OrderWorkflow, products product.Repository, coupons CouponStore, tokens TokenService, metrics *Metrics) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		coupons:  coupons,
		tokens:   tokens,
		metrics:  metrics,
	}
}

// Routes returns the API route table. Every route requires a bearer token.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)
	mux.HandleFunc("POST /api/orders/{id}/discounts", h.applyDiscount)
	mux.HandleFunc("DELETE /api/discounts/{id}", h.removeDiscount)

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("POST /api/coupons", h.createCoupon)
	mux.HandleFunc("GET /api/coupons/{code}", h.getCoupon)

	mux.HandleFunc("POST /api/tokens", h.issueToken)
	mux.HandleFunc("DELETE /api/tokens/{id}", h.revokeToken)

	mux.HandleFunc("/", h.notFound)

	// Route labeling sits below authentication so matched patterns reach the
	// span even though the mux serves a context-wrapped request copy.
	return h.requireToken(httpmiddleware.RouteSpans()(mux))
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeErrorResponse(w, http.StatusNotFound, "not found")
}
