package cartsync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mokosho/shop/pkg/localstore"
	"github.com/mokosho/shop/pkg/shopapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// fakeCartRemote is an in-memory stand-in for the shop API. Failure modes
// are scripted per method; failAll overrides everything.
type fakeCartRemote struct {
	mu       sync.Mutex
	items    map[string]int
	products map[string]shopapi.ProductDTO

	failAll   error
	addErr    error
	updateErr error
	removeErr error
	getErr    error
	clearErr  error

	// dropUpserts makes AddCartItem succeed without recording anything,
	// simulating a replication race where the follow-up fetch sees nothing.
	dropUpserts bool

	// getGate, when set, blocks GetCart until closed.
	getGate chan struct{}
}

func newFakeCartRemote() *fakeCartRemote {
	return &fakeCartRemote{
		items:    make(map[string]int),
		products: make(map[string]shopapi.ProductDTO),
	}
}

func (f *fakeCartRemote) product(id string) shopapi.ProductDTO {
	if p, ok := f.products[id]; ok {
		return p
	}
	return shopapi.ProductDTO{ID: id, Name: "product " + id, Slug: id, Price: 10}
}

func (f *fakeCartRemote) GetCart(ctx context.Context) ([]shopapi.CartItemDTO, error) {
	if f.getGate != nil {
		<-f.getGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]shopapi.CartItemDTO, 0, len(f.items))
	for id, qty := range f.items {
		out = append(out, shopapi.CartItemDTO{Quantity: qty, Product: f.product(id)})
	}
	return out, nil
}

func (f *fakeCartRemote) AddCartItem(ctx context.Context, productID string, quantity int) (*shopapi.CartItemDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.dropUpserts {
		return &shopapi.CartItemDTO{Quantity: quantity, Product: f.product(productID)}, nil
	}
	f.items[productID] += quantity
	return &shopapi.CartItemDTO{Quantity: f.items[productID], Product: f.product(productID)}, nil
}

func (f *fakeCartRemote) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.items[productID] = quantity
	return nil
}

func (f *fakeCartRemote) RemoveCartItem(ctx context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.items, productID)
	return nil
}

func (f *fakeCartRemote) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if f.clearErr != nil {
		return f.clearErr
	}
	f.items = make(map[string]int)
	return nil
}

// brokenStore simulates unavailable local storage: reads are empty, writes
// are dropped.
type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, bool) { return nil, false }
func (brokenStore) Set(string, []byte)        {}
func (brokenStore) Delete(string)             {}

func TestCartAddMergesSameID(t *testing.T) {
	t.Parallel()

	cart := NewCart(localstore.NewMemory(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Name: "Nendo", Price: 100}, 2))
	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Name: "Nendo", Price: 100}, 3))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, cart.TotalItems())
}

func TestCartAddRequiresID(t *testing.T) {
	t.Parallel()

	cart := NewCart(localstore.NewMemory(), nil, nil, nil)
	require.Error(t, cart.Add(context.Background(), Line{}, 1))
	assert.Empty(t, cart.Items())
}

func TestCartQuantityFloor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		quantity int
	}{
		{name: "zero", quantity: 0},
		{name: "negative", quantity: -5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cart := NewCart(localstore.NewMemory(), nil, nil, nil)
			ctx := context.Background()
			require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 10}, 3))

			cart.UpdateQuantity(ctx, "p1", tt.quantity)
			assert.Empty(t, cart.Items())
		})
	}
}

func TestCartTotals(t *testing.T) {
	t.Parallel()

	cart := NewCart(localstore.NewMemory(), nil, nil, nil)
	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 100, DiscountPrice: ptr(80)}, 2))
	require.NoError(t, cart.Add(ctx, Line{ID: "p2", Price: 50}, 1))

	assert.Equal(t, 210.0, cart.TotalPrice())
	assert.Equal(t, 3, cart.TotalItems())
}

func TestCartLocalRoundTrip(t *testing.T) {
	t.Parallel()

	store := localstore.NewMemory()
	ctx := context.Background()

	first := NewCart(store, nil, nil, nil)
	require.NoError(t, first.Add(ctx, Line{ID: "p1", Name: "Figure", Slug: "figure", Image: "a.jpg", Price: 100, DiscountPrice: ptr(80)}, 2))
	require.NoError(t, first.Add(ctx, Line{ID: "p2", Name: "Keychain", Price: 15}, 1))

	second := NewCart(store, nil, nil, nil)
	assert.ElementsMatch(t, first.Items(), second.Items())
}

func TestCartRemoveRollbackOnServerError(t *testing.T) {
	t.Parallel()

	remote := newFakeCartRemote()
	remote.removeErr = errors.New("boom")

	cart := NewCart(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	cart.SetIdentity(ctx, "user-1")
	cart.Wait()

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 10}, 4))
	cart.Wait()

	cart.Remove(ctx, "p1")
	cart.Wait()

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestCartRemoveKeptOn401(t *testing.T) {
	t.Parallel()

	remote := newFakeCartRemote()
	cart := NewCart(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	cart.SetIdentity(ctx, "user-1")
	cart.Wait()

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 10}, 1))
	cart.Wait()

	remote.removeErr = shopapi.ErrUnauthorized
	cart.Remove(ctx, "p1")
	cart.Wait()

	// Session went stale: the optimistic removal stands, no rollback.
	assert.Empty(t, cart.Items())
}

func TestCartUpdateQuantityRollback(t *testing.T) {
	t.Parallel()

	remote := newFakeCartRemote()
	cart := NewCart(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	cart.SetIdentity(ctx, "user-1")
	cart.Wait()

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 10}, 2))
	cart.Wait()

	remote.updateErr = errors.New("boom")
	cart.UpdateQuantity(ctx, "p1", 7)
	cart.Wait()

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCartAddServerWinsOnPriceAndQuantity(t *testing.T) {
	t.Parallel()

	remote := newFakeCartRemote()
	remote.products["p1"] = shopapi.ProductDTO{
		ID: "p1", Name: "Figure", Slug: "figure",
		Price: 120, ComparePrice: ptr(90), Images: []string{"f.jpg"},
	}
	// The server already had two of these.
	remote.items["p1"] = 2

	cart := NewCart(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	cart.SetIdentity(ctx, "user-1")
	cart.Wait()
	cart.Clear(ctx)
	cart.Wait()
	remote.items["p1"] = 2

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 999}, 1))
	cart.Wait()

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 120.0, items[0].Price)
	require.NotNil(t, items[0].DiscountPrice)
	assert.Equal(t, 90.0, *items[0].DiscountPrice)
}

func TestCartAddFailureReloadsRemote(t *testing.T) {
	t.Parallel()

	remote := newFakeCartRemote()
	remote.items["p9"] = 1
	remote.addErr = errors.New("boom")

	cart := NewCart(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	cart.user = "user-1" // authenticated without triggering the login sync

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 10}, 1))
	cart.Wait()

	// The failed add was reconciled against the authoritative remote cart.
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p9", items[0].ID)
}

func TestCartStorageUnavailable(t *testing.T) {
	t.Parallel()

	cart := NewCart(brokenStore{}, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 100, DiscountPrice: ptr(80)}, 2))
	require.NoError(t, cart.Add(ctx, Line{ID: "p2", Price: 50}, 1))
	cart.Remove(ctx, "p2")

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 160.0, cart.TotalPrice())
	assert.Equal(t, 2, cart.TotalItems())
}

func TestCartClearIgnoresRemoteFailure(t *testing.T) {
	t.Parallel()

	remote := newFakeCartRemote()
	cart := NewCart(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	cart.SetIdentity(ctx, "user-1")
	cart.Wait()

	require.NoError(t, cart.Add(ctx, Line{ID: "p1", Price: 10}, 1))
	cart.Wait()

	remote.clearErr = errors.New("boom")
	cart.Clear(ctx)
	cart.Wait()

	assert.Empty(t, cart.Items())
}
