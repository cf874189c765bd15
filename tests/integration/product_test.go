//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products", nil)
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 9 {
		t.Fatalf("expected 9 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products", nil)
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)

	var waffle *productResponse
	for i := range products {
		if products[i].ID == waffleID {
			waffle = &products[i]
			break
		}
	}

	if waffle == nil {
		t.Fatalf("product %s not found", waffleID)
	}
	if waffle.Name != "Waffle with Berries" {
		t.Errorf("name: got %q, want %q", waffle.Name, "Waffle with Berries")
	}
	if waffle.Price != "6.5" {
		t.Errorf("price: got %q, want %q", waffle.Price, "6.5")
	}
	if len(waffle.Categories) != 1 || waffle.Categories[0].Name != "Waffle" {
		t.Errorf("categories: got %+v, want one named %q", waffle.Categories, "Waffle")
	}
	if waffle.Image.Thumbnail == "" {
		t.Error("image.thumbnail is empty")
	}
	if waffle.Image.Mobile == "" {
		t.Error("image.mobile is empty")
	}
	if waffle.Image.Tablet == "" {
		t.Error("image.tablet is empty")
	}
	if waffle.Image.Desktop == "" {
		t.Error("image.desktop is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products/"+waffleID, nil)
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusOK)

	product := decodeJSON[productResponse](t, resp)
	if product.ID != waffleID {
		t.Errorf("id: got %q, want %q", product.ID, waffleID)
	}
	if product.Name != "Waffle with Berries" {
		t.Errorf("name: got %q, want %q", product.Name, "Waffle with Berries")
	}
}

func TestGetProduct_InvalidID(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products/not-a-uuid", nil)
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusBadRequest)
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products/00000000-0000-0000-0000-00000000dead", nil)
	defer resp.Body.Close()

	wantStatus(t, resp, http.StatusNotFound)

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}
