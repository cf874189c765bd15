package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-admin/internal/domain/coupon"
	"github.com/xenking/storefront-admin/internal/domain/discount"
	"github.com/xenking/storefront-admin/internal/domain/order"
	"github.com/xenking/storefront-admin/internal/domain/product"
	"github.com/xenking/storefront-admin/internal/domain/token"
)

// --- Mock implementations ---

type mockOrders struct {
	order    *order.Order
	page     *order.Page
	applyRes *order.ApplyDiscountResult
	removed  *discount.Discount
	err      error

	lastCreate   order.CreateOrderRequest
	lastUpdateID int64
	lastUpdate   order.UpdateOrderRequest
	lastFilter   order.Filter
	lastOrderID  int64
	lastCode     string
}

func (m *mockOrders) CreateOrder(_ context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	m.lastCreate = req
	return m.order, m.err
}

func (m *mockOrders) UpdateOrder(_ context.Context, id int64, req order.UpdateOrderRequest) (*order.Order, error) {
	m.lastUpdateID = id
	m.lastUpdate = req
	return m.order, m.err
}

func (m *mockOrders) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	m.lastOrderID = id
	return m.order, m.err
}

func (m *mockOrders) ListOrders(_ context.Context, f order.Filter) (*order.Page, error) {
	m.lastFilter = f
	return m.page, m.err
}

func (m *mockOrders) DeleteOrder(_ context.Context, id int64) (*order.Order, error) {
	m.lastOrderID = id
	return m.order, m.err
}

func (m *mockOrders) ApplyDiscount(_ context.Context, orderID int64, code string) (*order.ApplyDiscountResult, error) {
	m.lastOrderID = orderID
	m.lastCode = code
	return m.applyRes, m.err
}

func (m *mockOrders) RemoveDiscount(_ context.Context, id int64) (*discount.Discount, error) {
	m.lastOrderID = id
	return m.removed, m.err
}

type mockProducts struct {
	products []product.Product
	byID     map[uuid.UUID]*product.Product
	err      error
}

func (m *mockProducts) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.err
}

func (m *mockProducts) GetByID(_ context.Context, id uuid.UUID) (*product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockCoupons struct {
	byCode  map[string]*coupon.Coupon
	created *coupon.Coupon
	err     error
}

func (m *mockCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	if m.err != nil {
		return m.err
	}
	c.ID = 1
	m.created = c
	return nil
}

func (m *mockCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

type mockTokens struct {
	valid   map[string]*token.Token
	issued  *token.Token
	revoked *token.Token
	err     error
}

func (m *mockTokens) Issue(_ context.Context, _ int64, _ token.Type) (*token.Token, error) {
	return m.issued, m.err
}

func (m *mockTokens) Verify(_ context.Context, value string) (*token.Token, error) {
	t, ok := m.valid[value]
	if !ok {
		return nil, token.ErrNotFound
	}
	if t.IsRevoked {
		return nil, token.ErrRevoked
	}
	return t, nil
}

func (m *mockTokens) Revoke(_ context.Context, _ int64) (*token.Token, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.revoked == nil {
		return nil, token.ErrNotFound
	}
	return m.revoked, nil
}

// --- Helpers ---

const testToken = "valid-test-token"

var productA = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type handlerMocks struct {
	orders   *mockOrders
	products *mockProducts
	coupons  *mockCoupons
	tokens   *mockTokens
}

func newTestHandler(t *testing.T) (http.Handler, *handlerMocks) {
	t.Helper()

	m := &handlerMocks{
		orders:   &mockOrders{},
		products: &mockProducts{byID: make(map[uuid.UUID]*product.Product)},
		coupons:  &mockCoupons{byCode: make(map[string]*coupon.Coupon)},
		tokens: &mockTokens{valid: map[string]*token.Token{
			testToken: {ID: 1, UserID: 9, Value: testToken, Type: token.TypeAccess},
		}},
	}
	return NewHandler(m.orders, m.products, m.coupons, m.tokens, nil).Routes(), m
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testToken)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "body: %s", rec.Body.String())
}

func fixtureOrder() *order.Order {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:     7,
		UserID: 5,
		Status: order.StatusPending,
		Items: []order.Item{
			{ID: 1, OrderID: 7, ProductID: productA, Quantity: 2, UnitPrice: d("10.00")},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- Tests ---

func TestAuth(t *testing.T) {
	h, m := newTestHandler(t)
	m.orders.page = &order.Page{Page: 1, PerPage: 20}

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, "missing bearer token", body.Message)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		m.tokens.valid["stale"] = &token.Token{ID: 2, UserID: 9, Value: "stale", IsRevoked: true}

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, "token revoked", body.Message)
	})

	t.Run("valid token", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/orders", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateOrderHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.order = fixtureOrder()

		rec := doRequest(t, h, http.MethodPost, "/api/orders",
			`{"userId": 5, "items": [{"productId": "11111111-1111-1111-1111-111111111111", "quantity": 2}]}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		assert.EqualValues(t, 5, m.orders.lastCreate.UserID)
		require.Len(t, m.orders.lastCreate.Items, 1)
		assert.Equal(t, productA, m.orders.lastCreate.Items[0].ProductID)
		assert.Equal(t, 2, m.orders.lastCreate.Items[0].Quantity)

		var got struct {
			ID       int64  `json:"id"`
			UserID   int64  `json:"userId"`
			Status   string `json:"status"`
			Subtotal string `json:"subtotal"`
			Items    []struct {
				ProductID string `json:"productId"`
				Quantity  int    `json:"quantity"`
				UnitPrice string `json:"unitPrice"`
			} `json:"items"`
		}
		decodeBody(t, rec, &got)
		assert.EqualValues(t, 7, got.ID)
		assert.Equal(t, "pending", got.Status)
		assert.Equal(t, "20", got.Subtotal)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "10", got.Items[0].UnitPrice)
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.err = &order.ValidationError{Field: "userId", Reason: "user id is required"}

		rec := doRequest(t, h, http.MethodPost, "/api/orders", `{"items": []}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, 400, body.Code)
		assert.Equal(t, "userId: user id is required", body.Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/orders", `{"userId": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad product id", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/orders",
			`{"userId": 5, "items": [{"productId": "not-a-uuid", "quantity": 1}]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Contains(t, body.Message, "invalid product id")
	})
}

func TestGetOrderHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.order = fixtureOrder()

		rec := doRequest(t, h, http.MethodGet, "/api/orders/7", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 7, m.orders.lastOrderID)
	})

	t.Run("not found", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.err = order.ErrNotFound

		rec := doRequest(t, h, http.MethodGet, "/api/orders/404", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, "order not found", body.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodGet, "/api/orders/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateOrderHandler(t *testing.T) {
	t.Run("status only leaves items nil", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.order = fixtureOrder()

		rec := doRequest(t, h, http.MethodPatch, "/api/orders/7", `{"status": "paid"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 7, m.orders.lastUpdateID)
		require.NotNil(t, m.orders.lastUpdate.Status)
		assert.Equal(t, order.StatusPaid, *m.orders.lastUpdate.Status)
		assert.Nil(t, m.orders.lastUpdate.UserID)
		assert.Nil(t, m.orders.lastUpdate.Items, "omitted items stay untouched")
	})

	t.Run("empty items list decodes non-nil", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.order = fixtureOrder()

		rec := doRequest(t, h, http.MethodPatch, "/api/orders/7", `{"items": []}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, m.orders.lastUpdate.Items, "empty list must reach the service")
		assert.Empty(t, m.orders.lastUpdate.Items)
	})
}

func TestListOrdersHandler(t *testing.T) {
	t.Run("filter parsed from query", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.page = &order.Page{Orders: []order.Order{*fixtureOrder()}, Total: 1, Page: 2, PerPage: 5}

		rec := doRequest(t, h, http.MethodGet, "/api/orders?status=paid&id_pattern=%254%25&page=2&per_page=5", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, order.StatusPaid, m.orders.lastFilter.Status)
		assert.Equal(t, "%4%", m.orders.lastFilter.IDPattern)
		assert.Equal(t, 2, m.orders.lastFilter.Page)
		assert.Equal(t, 5, m.orders.lastFilter.PerPage)

		var got struct {
			Total   int `json:"total"`
			Page    int `json:"page"`
			PerPage int `json:"perPage"`
		}
		decodeBody(t, rec, &got)
		assert.Equal(t, 1, got.Total)
		assert.Equal(t, 2, got.Page)
	})

	t.Run("invalid page", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodGet, "/api/orders?page=zero", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteOrderHandler(t *testing.T) {
	h, m := newTestHandler(t)
	deleted := fixtureOrder()
	now := deleted.UpdatedAt
	deleted.DeletedAt = &now
	m.orders.order = deleted

	rec := doRequest(t, h, http.MethodDelete, "/api/orders/7", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		DeletedAt string `json:"deletedAt"`
	}
	decodeBody(t, rec, &got)
	assert.NotEmpty(t, got.DeletedAt)
}

func TestApplyDiscountHandler(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.applyRes = &order.ApplyDiscountResult{
			Order:   fixtureOrder(),
			Applied: true,
			Message: "discount applied",
		}

		rec := doRequest(t, h, http.MethodPost, "/api/orders/7/discounts", `{"couponCode": "SAVE10"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "SAVE10", m.orders.lastCode)

		var got struct {
			Info struct {
				Message string `json:"message"`
				Success bool   `json:"success"`
			} `json:"info"`
		}
		decodeBody(t, rec, &got)
		assert.True(t, got.Info.Success)
		assert.Equal(t, "discount applied", got.Info.Message)
	})

	t.Run("rejected is still 200", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.applyRes = &order.ApplyDiscountResult{
			Order:   fixtureOrder(),
			Message: "order already has an active discount",
		}

		rec := doRequest(t, h, http.MethodPost, "/api/orders/7/discounts", `{"couponCode": "EXTRA5"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Info struct {
				Message string `json:"message"`
				Success bool   `json:"success"`
			} `json:"info"`
		}
		decodeBody(t, rec, &got)
		assert.False(t, got.Info.Success)
		assert.Equal(t, "order already has an active discount", got.Info.Message)
	})

	t.Run("unknown coupon", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.err = coupon.ErrNotFound

		rec := doRequest(t, h, http.MethodPost, "/api/orders/7/discounts", `{"couponCode": "NOPE"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lost race maps to conflict", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.err = discount.ErrConflict

		rec := doRequest(t, h, http.MethodPost, "/api/orders/7/discounts", `{"couponCode": "SAVE10"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRemoveDiscountHandler(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		h, m := newTestHandler(t)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		m.orders.removed = &discount.Discount{
			ID: 3, OrderID: 7, CouponID: 1, CouponCode: "SAVE10",
			CreatedAt: now, DeletedAt: &now,
		}

		rec := doRequest(t, h, http.MethodDelete, "/api/discounts/3", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			CouponCode string `json:"couponCode"`
			DeletedAt  string `json:"deletedAt"`
		}
		decodeBody(t, rec, &got)
		assert.Equal(t, "SAVE10", got.CouponCode)
		assert.NotEmpty(t, got.DeletedAt)
	})

	t.Run("already removed", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.orders.err = discount.ErrNotFound

		rec := doRequest(t, h, http.MethodDelete, "/api/discounts/3", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, "discount not found", body.Message)
	})
}

func TestProductHandlers(t *testing.T) {
	fixture := product.Product{
		ID:    productA,
		Name:  "Widget",
		Price: d("10.00"),
		Image: product.Image{Thumbnail: "thumb.jpg", Mobile: "mobile.jpg", Tablet: "tablet.jpg", Desktop: "desktop.jpg"},
		Categories: []product.Category{
			{ID: 1, Name: "tools"},
		},
	}

	t.Run("list", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.products.products = []product.Product{fixture}

		rec := doRequest(t, h, http.MethodGet, "/api/products", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Price string `json:"price"`
		}
		decodeBody(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, productA.String(), got[0].ID)
		assert.Equal(t, "Widget", got[0].Name)
		assert.Equal(t, "10", got[0].Price)
	})

	t.Run("get", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.products.byID[productA] = &fixture

		rec := doRequest(t, h, http.MethodGet, "/api/products/"+productA.String(), "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Image struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"image"`
			Categories []struct {
				Name string `json:"name"`
			} `json:"categories"`
		}
		decodeBody(t, rec, &got)
		assert.Equal(t, "thumb.jpg", got.Image.Thumbnail)
		require.Len(t, got.Categories, 1)
		assert.Equal(t, "tools", got.Categories[0].Name)
	})

	t.Run("invalid id", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodGet, "/api/products/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodGet, "/api/products/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCouponHandlers(t *testing.T) {
	t.Run("create normalizes the code", func(t *testing.T) {
		h, m := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/coupons",
			`{"code": " save10 ", "recursive": true, "minOrderValue": "25.00", "description": "10% off"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NotNil(t, m.coupons.created)
		assert.Equal(t, "SAVE10", m.coupons.created.Code)
		assert.True(t, m.coupons.created.Recursive)
		assert.True(t, m.coupons.created.MinOrderValue.Equal(d("25.00")))
	})

	t.Run("numeric minOrderValue accepted", func(t *testing.T) {
		h, m := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/coupons", `{"code": "X", "minOrderValue": 12.5}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.True(t, m.coupons.created.MinOrderValue.Equal(d("12.5")))
	})

	t.Run("blank code", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/coupons", `{"code": "   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate code", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.coupons.err = coupon.ErrCodeExists

		rec := doRequest(t, h, http.MethodPost, "/api/coupons", `{"code": "SAVE10"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, "coupon code already exists", body.Message)
	})

	t.Run("get normalizes the path code", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.coupons.byCode["SAVE10"] = &coupon.Coupon{ID: 1, Code: "SAVE10"}

		rec := doRequest(t, h, http.MethodGet, "/api/coupons/save10", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTokenHandlers(t *testing.T) {
	t.Run("issue", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.tokens.issued = &token.Token{ID: 4, UserID: 5, Value: "fresh", Type: token.TypeAccess}

		rec := doRequest(t, h, http.MethodPost, "/api/tokens", `{"userId": 5}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got struct {
			Value string `json:"value"`
			Type  string `json:"type"`
		}
		decodeBody(t, rec, &got)
		assert.Equal(t, "fresh", got.Value)
		assert.Equal(t, "access", got.Type)
	})

	t.Run("missing user id", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/tokens", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := doRequest(t, h, http.MethodPost, "/api/tokens", `{"userId": 5, "type": "session"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("revoke", func(t *testing.T) {
		h, m := newTestHandler(t)
		m.tokens.revoked = &token.Token{ID: 4, UserID: 5, Value: "fresh", IsRevoked: true}

		rec := doRequest(t, h, http.MethodDelete, "/api/tokens/4", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			IsRevoked bool `json:"isRevoked"`
		}
		decodeBody(t, rec, &got)
		assert.True(t, got.IsRevoked)
	})
}

func TestUnknownRoute(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/api/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, 404, body.Code)
}
