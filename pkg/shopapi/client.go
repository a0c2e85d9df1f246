// Package shopapi is the HTTP client for the storefront REST API. It speaks
// the /api/cart, /api/wishlist and /api/auth contracts and surfaces every 401
// as ErrUnauthorized so callers can treat the session as stale instead of
// failing hard.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrUnauthorized is returned for any 401 response. The sync layer keys its
// "local truth wins" behaviour off this sentinel.
var ErrUnauthorized = fmt.Errorf("unauthorized")

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SetToken installs the bearer token used for authenticated calls. An empty
// token switches the client back to anonymous mode.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) GetCart(ctx context.Context) ([]CartItemDTO, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &env); err != nil {
		return nil, err
	}
	for i := range env.Data.Items {
		if err := env.Data.Items[i].Product.Validate(); err != nil {
			return nil, fmt.Errorf("cart item %d: %w", i, err)
		}
	}
	return env.Data.Items, nil
}

func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (*CartItemDTO, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	var env cartItemEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/cart", body, &env); err != nil {
		return nil, err
	}
	if err := env.Data.Product.Validate(); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	body := map[string]any{"quantity": quantity}
	return c.do(ctx, http.MethodPatch, "/api/cart/"+productID, body, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/"+productID, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cart", nil, nil)
}

func (c *Client) GetWishlist(ctx context.Context) ([]WishlistItemDTO, error) {
	var env wishlistEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/wishlist", nil, &env); err != nil {
		return nil, err
	}
	for i := range env.Data {
		if err := env.Data[i].Product.Validate(); err != nil {
			return nil, fmt.Errorf("wishlist item %d: %w", i, err)
		}
	}
	return env.Data, nil
}

func (c *Client) AddWishlistItem(ctx context.Context, productID string) (*WishlistItemDTO, error) {
	body := map[string]any{"productId": productID}
	var env wishlistItemEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/wishlist", body, &env); err != nil {
		return nil, err
	}
	if err := env.Data.Product.Validate(); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) RemoveWishlistItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/wishlist/"+productID, nil, nil)
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

// Login authenticates, installs the returned token on the client and returns
// it for the caller to persist.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var env loginEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &env); err != nil {
		return "", err
	}
	c.SetToken(env.Data.AccessToken)
	return env.Data.AccessToken, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.SetToken("")
	return err
}
