package cartsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mokosho/shop/pkg/localstore"
	"github.com/mokosho/shop/pkg/shopapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWishlistRemote struct {
	mu       sync.Mutex
	items    map[string]time.Time
	products map[string]shopapi.ProductDTO

	failAll   error
	addErr    error
	removeErr error
}

func newFakeWishlistRemote() *fakeWishlistRemote {
	return &fakeWishlistRemote{
		items:    make(map[string]time.Time),
		products: make(map[string]shopapi.ProductDTO),
	}
}

func (f *fakeWishlistRemote) product(id string) shopapi.ProductDTO {
	if p, ok := f.products[id]; ok {
		return p
	}
	return shopapi.ProductDTO{ID: id, Name: "product " + id, Slug: id, Price: 10}
}

func (f *fakeWishlistRemote) GetWishlist(ctx context.Context) ([]shopapi.WishlistItemDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := make([]shopapi.WishlistItemDTO, 0, len(f.items))
	for id, added := range f.items {
		added := added
		out = append(out, shopapi.WishlistItemDTO{Product: f.product(id), AddedAt: &added})
	}
	return out, nil
}

func (f *fakeWishlistRemote) AddWishlistItem(ctx context.Context, productID string) (*shopapi.WishlistItemDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	if f.addErr != nil {
		return nil, f.addErr
	}
	added, ok := f.items[productID]
	if !ok {
		added = time.Now().UTC()
		f.items[productID] = added
	}
	return &shopapi.WishlistItemDTO{Product: f.product(productID), AddedAt: &added}, nil
}

func (f *fakeWishlistRemote) RemoveWishlistItem(ctx context.Context, productID string) error {
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

func TestWishlistAddIsIdempotent(t *testing.T) {
	t.Parallel()

	w := NewWishlist(localstore.NewMemory(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, w.Add(ctx, Line{ID: "p1", Name: "Figure", Price: 100}))
	require.NoError(t, w.Add(ctx, Line{ID: "p1", Name: "Figure", Price: 100}))

	require.Equal(t, 1, w.Len())
	assert.True(t, w.Contains("p1"))
	assert.False(t, w.Contains("p2"))
}

func TestWishlistTotalsCountEachLineOnce(t *testing.T) {
	t.Parallel()

	w := NewWishlist(localstore.NewMemory(), nil, nil, nil)
	ctx := context.Background()
	require.NoError(t, w.Add(ctx, Line{ID: "p1", Price: 100, DiscountPrice: ptr(80)}))
	require.NoError(t, w.Add(ctx, Line{ID: "p2", Price: 50}))

	assert.Equal(t, 130.0, w.TotalPrice())
}

func TestWishlistLocalRoundTrip(t *testing.T) {
	t.Parallel()

	store := localstore.NewMemory()
	ctx := context.Background()

	first := NewWishlist(store, nil, nil, nil)
	require.NoError(t, first.Add(ctx, Line{ID: "p1", Name: "Figure", Price: 100}))
	require.NoError(t, first.Add(ctx, Line{ID: "p2", Name: "Poster", Price: 30}))

	second := NewWishlist(store, nil, nil, nil)
	assert.ElementsMatch(t, first.Items(), second.Items())
	assert.True(t, second.Contains("p1"))
}

func TestWishlistRemoveRollbackOnServerError(t *testing.T) {
	t.Parallel()

	remote := newFakeWishlistRemote()
	w := NewWishlist(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	w.SetIdentity(ctx, "user-1")
	w.Wait()

	require.NoError(t, w.Add(ctx, Line{ID: "p1", Price: 10}))
	w.Wait()

	remote.removeErr = errors.New("boom")
	w.Remove(ctx, "p1")
	w.Wait()

	assert.True(t, w.Contains("p1"))
}

func TestWishlistSyncAdoptsServerAddedAt(t *testing.T) {
	t.Parallel()

	store := localstore.NewMemory()
	remote := newFakeWishlistRemote()

	w := NewWishlist(store, remote, nil, nil)
	ctx := context.Background()
	require.NoError(t, w.Add(ctx, Line{ID: "p1", Price: 10}))

	w.SetIdentity(ctx, "user-1")
	w.Wait()

	items := w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	require.NotNil(t, items[0].AddedAt)

	_, ok := store.Get(localstore.KeyWishlist)
	assert.False(t, ok)
}

func TestWishlistSync401KeepsLocal(t *testing.T) {
	t.Parallel()

	remote := newFakeWishlistRemote()
	w := NewWishlist(localstore.NewMemory(), remote, nil, nil)
	ctx := context.Background()
	require.NoError(t, w.Add(ctx, Line{ID: "p1", Price: 10}))

	remote.failAll = shopapi.ErrUnauthorized
	w.SetIdentity(ctx, "user-1")
	w.Wait()

	assert.True(t, w.Contains("p1"))
}

func TestWishlistStorageUnavailable(t *testing.T) {
	t.Parallel()

	w := NewWishlist(brokenStore{}, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, w.Add(ctx, Line{ID: "p1", Price: 10}))
	require.NoError(t, w.Add(ctx, Line{ID: "p2", Price: 20}))
	w.Remove(ctx, "p1")

	assert.False(t, w.Contains("p1"))
	assert.True(t, w.Contains("p2"))
	assert.Equal(t, 20.0, w.TotalPrice())
}
