package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/mokosho/shop/pkg/localstore"
	"github.com/mokosho/shop/pkg/shopapi"
)

// Cart is the reconciler for the shopping cart. The in-memory collection is
// the single source of truth for the UI; every mutation is flushed to the
// local store before the matching remote call is even started, so no network
// outcome can lose a local change.
type Cart struct {
	store  localstore.Store
	remote CartRemote
	bus    Bus
	log    *slog.Logger

	mu    sync.Mutex
	lines []Line
	user  string
	// gen invalidates in-flight remote continuations when the identity
	// changes underneath them.
	gen uint64
	wg  sync.WaitGroup
}

func NewCart(store localstore.Store, remote CartRemote, bus Bus, l *slog.Logger) *Cart {
	if l == nil {
		l = slog.Default()
	}
	c := &Cart{store: store, remote: remote, bus: bus, log: l}
	c.lines = c.loadLocal()
	return c
}

// Wait drains all in-flight remote writes. Used on shutdown and in tests.
func (c *Cart) Wait() { c.wg.Wait() }

// Items returns a copy of the visible collection.
func (c *Cart) Items() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItems is the sum of quantities over all lines.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice sums the effective unit price times quantity over all lines.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, l := range c.lines {
		total += l.EffectiveUnitPrice() * float64(l.Quantity)
	}
	return total
}

// Add inserts the line or, when the id is already present, sums quantities.
// The local result is visible before the remote upsert resolves. On success
// the server-returned price and quantity overwrite the local line; on a 401
// the optimistic result stands; on any other failure the full remote cart is
// re-fetched and replaces local state.
func (c *Cart) Add(ctx context.Context, line Line, quantity int) error {
	if line.ID == "" {
		return errors.New("cartsync: line id required")
	}
	if quantity <= 0 {
		quantity = 1
	}

	c.mu.Lock()
	if idx := c.find(line.ID); idx >= 0 {
		c.lines[idx].Quantity += quantity
	} else {
		line.Quantity = quantity
		c.lines = append(c.lines, line)
	}
	c.persistLocked()
	gen := c.gen
	authed := c.authedLocked()
	c.mu.Unlock()
	c.publish()

	if !authed {
		return nil
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.remote.AddCartItem(ctx, line.ID, quantity)
		switch {
		case errors.Is(err, shopapi.ErrUnauthorized):
			// Stale session, local truth stands.
		case err != nil:
			c.log.Warn("cart_add_remote_failed", "product", line.ID, "error", err)
			c.reloadFromRemote(ctx, gen)
		default:
			c.applyCanonical(gen, resp)
		}
	}()
	return nil
}

// Remove deletes the line immediately and issues the remote delete in the
// background. A non-401 failure restores the removed line.
func (c *Cart) Remove(ctx context.Context, id string) {
	c.mu.Lock()
	idx := c.find(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	removed := c.lines[idx]
	c.lines = append(c.lines[:idx:idx], c.lines[idx+1:]...)
	c.persistLocked()
	gen := c.gen
	authed := c.authedLocked()
	c.mu.Unlock()
	c.publish()

	if !authed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.remote.RemoveCartItem(ctx, id)
		if err == nil || errors.Is(err, shopapi.ErrUnauthorized) {
			return
		}
		c.log.Warn("cart_remove_remote_failed", "product", id, "error", err)
		c.restoreLine(gen, idx, removed)
	}()
}

// UpdateQuantity sets the line's quantity; anything at or below zero removes
// the line instead, keeping the quantity>=1 invariant.
func (c *Cart) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity <= 0 {
		c.Remove(ctx, id)
		return
	}

	c.mu.Lock()
	idx := c.find(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	oldQuantity := c.lines[idx].Quantity
	c.lines[idx].Quantity = quantity
	c.persistLocked()
	gen := c.gen
	authed := c.authedLocked()
	c.mu.Unlock()
	c.publish()

	if !authed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.remote.UpdateCartItem(ctx, id, quantity)
		if err == nil || errors.Is(err, shopapi.ErrUnauthorized) {
			return
		}
		c.log.Warn("cart_update_remote_failed", "product", id, "error", err)
		c.restoreQuantity(gen, id, oldQuantity)
	}()
}

// Clear empties the collection unconditionally; the remote clear is
// fire-and-forget.
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	c.lines = nil
	c.persistLocked()
	authed := c.authedLocked()
	c.mu.Unlock()
	c.publish()

	if !authed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.remote.ClearCart(ctx); err != nil && !errors.Is(err, shopapi.ErrUnauthorized) {
			c.log.Warn("cart_clear_remote_failed", "error", err)
		}
	}()
}

// SetIdentity reacts to a login/logout transition. Logout reloads strictly
// from the local store. Login replays the local lines to the server, then
// adopts the authoritative remote cart unless doing so would erase local
// items (401 anywhere, or an empty remote after a non-empty local).
func (c *Cart) SetIdentity(ctx context.Context, userID string) {
	c.mu.Lock()
	if c.user == userID {
		c.mu.Unlock()
		return
	}
	c.user = userID
	c.gen++
	gen := c.gen

	if userID == "" {
		c.lines = c.loadLocal()
		c.mu.Unlock()
		c.publish()
		return
	}

	local := make([]Line, len(c.lines))
	copy(local, c.lines)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runSync(ctx, gen, local)
	}()
}

func (c *Cart) runSync(ctx context.Context, gen uint64, local []Line) {
	for _, ln := range local {
		_, err := c.remote.AddCartItem(ctx, ln.ID, ln.Quantity)
		if errors.Is(err, shopapi.ErrUnauthorized) {
			// Session invalid: stop, the local collection stays visible.
			return
		}
		if err != nil {
			c.log.Warn("cart_sync_upsert_failed", "product", ln.ID, "error", err)
		}
	}

	items, err := c.remote.GetCart(ctx)
	if err != nil {
		if !errors.Is(err, shopapi.ErrUnauthorized) {
			c.log.Warn("cart_sync_fetch_failed", "error", err)
		}
		return
	}
	if len(items) == 0 && len(local) > 0 {
		// A sync race must not erase local items.
		return
	}

	merged := make([]Line, 0, len(items))
	for _, it := range items {
		l := lineFromProduct(it.Product)
		l.Quantity = it.Quantity
		merged = append(merged, l)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.lines = merged
	if len(merged) > 0 {
		// The server copy superseded the local one.
		c.store.Delete(localstore.KeyCart)
	}
	c.mu.Unlock()
	c.publish()
}

func (c *Cart) reloadFromRemote(ctx context.Context, gen uint64) {
	items, err := c.remote.GetCart(ctx)
	if err != nil {
		if !errors.Is(err, shopapi.ErrUnauthorized) {
			c.log.Warn("cart_reload_failed", "error", err)
		}
		return
	}
	merged := make([]Line, 0, len(items))
	for _, it := range items {
		l := lineFromProduct(it.Product)
		l.Quantity = it.Quantity
		merged = append(merged, l)
	}
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.lines = merged
	c.persistLocked()
	c.mu.Unlock()
	c.publish()
}

func (c *Cart) applyCanonical(gen uint64, item *shopapi.CartItemDTO) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	idx := c.find(item.Product.ID)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	l := lineFromProduct(item.Product)
	l.Quantity = item.Quantity
	c.lines[idx] = l
	c.persistLocked()
	c.mu.Unlock()
	c.publish()
}

func (c *Cart) restoreLine(gen uint64, idx int, line Line) {
	c.mu.Lock()
	if gen != c.gen || c.find(line.ID) >= 0 {
		c.mu.Unlock()
		return
	}
	if idx > len(c.lines) {
		idx = len(c.lines)
	}
	c.lines = append(c.lines[:idx], append([]Line{line}, c.lines[idx:]...)...)
	c.persistLocked()
	c.mu.Unlock()
	c.publish()
}

func (c *Cart) restoreQuantity(gen uint64, id string, quantity int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if idx := c.find(id); idx >= 0 {
		c.lines[idx].Quantity = quantity
		c.persistLocked()
	}
	c.mu.Unlock()
	c.publish()
}

func (c *Cart) find(id string) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) authedLocked() bool {
	return c.user != "" && c.remote != nil
}

func (c *Cart) persistLocked() {
	data, err := json.Marshal(c.lines)
	if err != nil {
		c.log.Warn("cart_persist_marshal_failed", "error", err)
		return
	}
	c.store.Set(localstore.KeyCart, data)
}

func (c *Cart) loadLocal() []Line {
	data, ok := c.store.Get(localstore.KeyCart)
	if !ok {
		return nil
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		c.log.Warn("cart_local_corrupt", "error", err)
		return nil
	}
	return lines
}

func (c *Cart) publish() {
	if c.bus != nil {
		c.bus.Publish(TopicCartChanged)
	}
}
