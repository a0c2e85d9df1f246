package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mokosho/shop/internal/models"
	"github.com/mokosho/shop/internal/repo"
	"github.com/mokosho/shop/internal/service"
	"github.com/stretchr/testify/require"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	E    *echo.Echo
	DB   *gorm.DB
	Repo *repo.GormRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))

	gormRepo := &repo.GormRepo{DB: db}
	secret := []byte("test-jwt-secret")

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: &service.AuthService{
			Repo:          gormRepo,
			JWTSecret:     secret,
			RefreshSecret: []byte("test-refresh-secret"),
		}},
		CartHandler:     &CartHTTP{Svc: &service.CartService{Repo: gormRepo}},
		WishlistHandler: &WishlistHTTP{Svc: &service.WishlistService{Repo: gormRepo}},
		ProductHandler:  &ProductHTTP{Svc: &service.CatalogService{Repo: gormRepo}},
		JWTSecret:       secret,
	})

	return &testEnv{E: e, DB: db, Repo: gormRepo}
}

func (env *testEnv) request(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func (env *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "secret123"}
	rec := env.request(t, http.MethodPost, "/api/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)
	return resp.Data.AccessToken
}

func (env *testEnv) createProduct(t *testing.T, name, slug string, price float64, comparePrice *float64) models.Product {
	t.Helper()

	p := models.Product{
		Name:         name,
		Slug:         slug,
		Price:        price,
		ComparePrice: comparePrice,
		Images:       []string{slug + ".jpg"},
		Count:        10,
	}
	require.NoError(t, env.DB.Create(&p).Error)
	return p
}

func ptr(v float64) *float64 { return &v }
