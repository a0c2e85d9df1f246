package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProductPublic(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct(t, "Megumin Figure", "megumin-figure", 200, ptr(160))

	rec := env.request(t, http.MethodGet, "/api/products/"+p.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			ID           string   `json:"id"`
			Name         string   `json:"name"`
			Slug         string   `json:"slug"`
			Price        float64  `json:"price"`
			ComparePrice *float64 `json:"comparePrice"`
			Images       []string `json:"images"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, p.ID.String(), resp.Data.ID)
	assert.Equal(t, "megumin-figure", resp.Data.Slug)
	require.NotNil(t, resp.Data.ComparePrice)
	assert.Equal(t, 160.0, *resp.Data.ComparePrice)
	assert.Equal(t, []string{"megumin-figure.jpg"}, resp.Data.Images)

	rec = env.request(t, http.MethodGet, "/api/products/00000000-0000-0000-0000-000000000001", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProductBySlug(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct(t, "Rem Figure", "rem-figure", 150, nil)

	rec := env.request(t, http.MethodGet, "/api/products/slug/rem-figure", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			ID   string `json:"id"`
			Slug string `json:"slug"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, p.ID.String(), resp.Data.ID)
	assert.Equal(t, "rem-figure", resp.Data.Slug)

	rec = env.request(t, http.MethodGet, "/api/products/slug/no-such-slug", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProductsPagination(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "A", "a", 10, nil)
	env.createProduct(t, "B", "b", 20, nil)
	env.createProduct(t, "C", "c", 30, nil)

	rec := env.request(t, http.MethodGet, "/api/products?page=1&size=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
			Total int64             `json:"total"`
			Page  int               `json:"page"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Items, 2)
	assert.EqualValues(t, 3, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Page)
}

func TestProductWritesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "miko")

	body := map[string]any{"name": "New", "slug": "new", "price": 10}

	rec := env.request(t, http.MethodPost, "/api/products", body, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A regular user is not an admin.
	rec = env.request(t, http.MethodPost, "/api/products", body, token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCanManageProducts(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "boss")
	require.NoError(t, env.DB.Table("users").
		Where("username = ?", "boss").Update("role", "admin").Error)
	// Re-login so the access token carries the admin role.
	rec := env.request(t, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "boss", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var loginResp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
			IsAdmin     bool   `json:"isAdmin"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.True(t, loginResp.Data.IsAdmin)
	token = loginResp.Data.AccessToken

	rec = env.request(t, http.MethodPost, "/api/products",
		map[string]any{"name": "New Figure", "slug": "new-figure", "price": 99.5}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	rec = env.request(t, http.MethodPatch, "/api/products/"+created.Data.ID,
		map[string]any{"price": 120.0}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/products/"+created.Data.ID, nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/products/"+created.Data.ID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
