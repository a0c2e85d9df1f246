package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartItemResp struct {
	Quantity int `json:"quantity"`
	Product  struct {
		ID           string   `json:"id"`
		Name         string   `json:"name"`
		Slug         string   `json:"slug"`
		Price        float64  `json:"price"`
		ComparePrice *float64 `json:"comparePrice"`
		Images       []string `json:"images"`
	} `json:"product"`
}

func getCartItems(t *testing.T, env *testEnv, token string) []cartItemResp {
	t.Helper()

	rec := env.request(t, http.MethodGet, "/api/cart", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Items []cartItemResp `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Items
}

func TestCartRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/cart", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": "x", "quantity": 1}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/cart", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddToCartMergesQuantities(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "miko")
	p := env.createProduct(t, "Sakura Figure", "sakura-figure", 120, ptr(90))

	body := map[string]any{"productId": p.ID.String(), "quantity": 2}
	rec := env.request(t, http.MethodPost, "/api/cart", body, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data cartItemResp `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Quantity)
	assert.Equal(t, p.ID.String(), resp.Data.Product.ID)
	assert.Equal(t, "sakura-figure", resp.Data.Product.Slug)
	require.NotNil(t, resp.Data.Product.ComparePrice)
	assert.Equal(t, 90.0, *resp.Data.Product.ComparePrice)

	// Second add for the same product sums quantities instead of creating
	// a second line.
	rec = env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": p.ID.String(), "quantity": 3}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	items := getCartItems(t, env, token)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddToCartValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "miko")

	rec := env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": "not-a-uuid", "quantity": 1}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	p := env.createProduct(t, "Poster", "poster", 30, nil)
	rec = env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": p.ID.String(), "quantity": 0}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown product.
	rec = env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": "00000000-0000-0000-0000-000000000001", "quantity": 1}, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchCartQuantity(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "miko")
	p := env.createProduct(t, "Poster", "poster", 30, nil)

	rec := env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": p.ID.String(), "quantity": 1}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodPatch, "/api/cart/"+p.ID.String(), map[string]any{"quantity": 7}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	items := getCartItems(t, env, token)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)

	// Patching a line the user does not have is a 404.
	rec = env.request(t, http.MethodPatch, "/api/cart/00000000-0000-0000-0000-000000000001", map[string]any{"quantity": 1}, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCartItemAndClear(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "miko")
	p1 := env.createProduct(t, "Figure", "figure", 100, nil)
	p2 := env.createProduct(t, "Poster", "poster", 30, nil)

	for _, p := range []string{p1.ID.String(), p2.ID.String()} {
		rec := env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": p, "quantity": 1}, token)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.request(t, http.MethodDelete, "/api/cart/"+p1.ID.String(), nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, getCartItems(t, env, token), 1)

	// Deleting again is a 404.
	rec = env.request(t, http.MethodDelete, "/api/cart/"+p1.ID.String(), nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/cart", nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, getCartItems(t, env, token))
}

func TestCartsAreScopedToUser(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.registerAndLogin(t, "alice")
	tokenB := env.registerAndLogin(t, "bob")
	p := env.createProduct(t, "Figure", "figure", 100, nil)

	rec := env.request(t, http.MethodPost, "/api/cart", map[string]any{"productId": p.ID.String(), "quantity": 2}, tokenA)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Len(t, getCartItems(t, env, tokenA), 1)
	assert.Empty(t, getCartItems(t, env, tokenB))
}
