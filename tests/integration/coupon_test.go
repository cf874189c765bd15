//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCreateCoupon(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/coupons", map[string]any{
		"code":          "summer15",
		"minOrderValue": "15.00",
		"description":   "Summer promotion",
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusCreated)

	c := decodeJSON[couponResponse](t, resp)
	if c.ID <= 0 {
		t.Errorf("id: got %d, want > 0", c.ID)
	}
	// Codes are stored uppercase regardless of input casing.
	if c.Code != "SUMMER15" {
		t.Errorf("code: got %q, want %q", c.Code, "SUMMER15")
	}
	if c.MinOrderValue != "15" {
		t.Errorf("min order value: got %q, want %q", c.MinOrderValue, "15")
	}
	if c.Recursive {
		t.Error("recursive should default to false")
	}
}

func TestCreateCoupon_Duplicate(t *testing.T) {
	body := map[string]any{"code": "DUPLICATE1"}

	resp := do(t, http.MethodPost, "/api/coupons", body)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/api/coupons", body)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusConflict)

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Message != "coupon code already exists" {
		t.Errorf("message: got %q, want %q", errResp.Message, "coupon code already exists")
	}
}

func TestCreateCoupon_MissingCode(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/coupons", map[string]any{"description": "no code"})
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusBadRequest)
}

func TestGetCoupon_Seeded(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/coupons/BIGCART25", nil)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)

	c := decodeJSON[couponResponse](t, resp)
	if c.Code != "BIGCART25" {
		t.Errorf("code: got %q, want %q", c.Code, "BIGCART25")
	}
	if c.MinOrderValue != "25" {
		t.Errorf("min order value: got %q, want %q", c.MinOrderValue, "25")
	}
}

func TestGetCoupon_NormalizesPath(t *testing.T) {
	// Lookup is case-insensitive because the path segment is normalized.
	resp := do(t, http.MethodGet, "/api/coupons/welcome10", nil)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)

	c := decodeJSON[couponResponse](t, resp)
	if c.Code != "WELCOME10" {
		t.Errorf("code: got %q, want %q", c.Code, "WELCOME10")
	}
}

func TestGetCoupon_NotFound(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/coupons/NOSUCHCODE", nil)
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusNotFound)
}

// A coupon created over the API is immediately usable on orders.
func TestCreateCoupon_ThenApply(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/coupons", map[string]any{
		"code":        "FRESHCODE",
		"recursive":   true,
		"description": "Created during the test run",
	})
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	order := createOrder(t, 42, orderItemInput{ProductID: waffleID, Quantity: 1})
	res := applyCoupon(t, order.ID, "FRESHCODE")

	if !res.Info.Success {
		t.Fatalf("expected success, got: %q", res.Info.Message)
	}
	if res.Order.Discounts[0].CouponCode != "FRESHCODE" {
		t.Errorf("coupon code: got %q, want %q", res.Order.Discounts[0].CouponCode, "FRESHCODE")
	}
}
