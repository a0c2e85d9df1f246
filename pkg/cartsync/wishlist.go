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

// Wishlist is the reconciler for the wishlist. Same tiers and precedence
// rules as Cart, but lines carry no quantity: adding an existing id is a
// no-op and every line counts once.
type Wishlist struct {
	store  localstore.Store
	remote WishlistRemote
	bus    Bus
	log    *slog.Logger

	mu    sync.Mutex
	lines []Line
	index map[string]int
	user  string
	gen   uint64
	wg    sync.WaitGroup
}

func NewWishlist(store localstore.Store, remote WishlistRemote, bus Bus, l *slog.Logger) *Wishlist {
	if l == nil {
		l = slog.Default()
	}
	w := &Wishlist{store: store, remote: remote, bus: bus, log: l}
	w.setLinesLocked(w.loadLocal())
	return w
}

func (w *Wishlist) Wait() { w.wg.Wait() }

func (w *Wishlist) Items() []Line {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Line, len(w.lines))
	copy(out, w.lines)
	return out
}

// Contains reports membership by product id.
func (w *Wishlist) Contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.index[id]
	return ok
}

func (w *Wishlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lines)
}

// TotalPrice sums the effective unit price over all lines.
func (w *Wishlist) TotalPrice() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0.0
	for _, l := range w.lines {
		total += l.EffectiveUnitPrice()
	}
	return total
}

// Add inserts the line unless the id is already present. On remote success
// the server line (including its assigned addedAt) overwrites the local one;
// a 401 keeps the optimistic result; any other failure re-fetches the remote
// wishlist and replaces local state.
func (w *Wishlist) Add(ctx context.Context, line Line) error {
	if line.ID == "" {
		return errors.New("cartsync: line id required")
	}

	w.mu.Lock()
	if _, ok := w.index[line.ID]; ok {
		w.mu.Unlock()
		return nil
	}
	line.Quantity = 0
	w.index[line.ID] = len(w.lines)
	w.lines = append(w.lines, line)
	w.persistLocked()
	gen := w.gen
	authed := w.authedLocked()
	w.mu.Unlock()
	w.publish()

	if !authed {
		return nil
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		resp, err := w.remote.AddWishlistItem(ctx, line.ID)
		switch {
		case errors.Is(err, shopapi.ErrUnauthorized):
		case err != nil:
			w.log.Warn("wishlist_add_remote_failed", "product", line.ID, "error", err)
			w.reloadFromRemote(ctx, gen)
		default:
			w.applyCanonical(gen, resp)
		}
	}()
	return nil
}

// Remove deletes the line immediately; a non-401 remote failure restores it.
func (w *Wishlist) Remove(ctx context.Context, id string) {
	w.mu.Lock()
	idx, ok := w.index[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	removed := w.lines[idx]
	w.setLinesLocked(append(w.lines[:idx:idx], w.lines[idx+1:]...))
	w.persistLocked()
	gen := w.gen
	authed := w.authedLocked()
	w.mu.Unlock()
	w.publish()

	if !authed {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		err := w.remote.RemoveWishlistItem(ctx, id)
		if err == nil || errors.Is(err, shopapi.ErrUnauthorized) {
			return
		}
		w.log.Warn("wishlist_remove_remote_failed", "product", id, "error", err)
		w.restoreLine(gen, idx, removed)
	}()
}

// Clear empties the collection; remote deletes are fired per line since the
// API has no bulk wishlist clear.
func (w *Wishlist) Clear(ctx context.Context) {
	w.mu.Lock()
	cleared := w.lines
	w.setLinesLocked(nil)
	w.persistLocked()
	authed := w.authedLocked()
	w.mu.Unlock()
	w.publish()

	if !authed {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for _, ln := range cleared {
			err := w.remote.RemoveWishlistItem(ctx, ln.ID)
			if err == nil {
				continue
			}
			if errors.Is(err, shopapi.ErrUnauthorized) {
				return
			}
			w.log.Warn("wishlist_clear_remote_failed", "product", ln.ID, "error", err)
		}
	}()
}

// SetIdentity mirrors Cart.SetIdentity for the wishlist collection.
func (w *Wishlist) SetIdentity(ctx context.Context, userID string) {
	w.mu.Lock()
	if w.user == userID {
		w.mu.Unlock()
		return
	}
	w.user = userID
	w.gen++
	gen := w.gen

	if userID == "" {
		w.setLinesLocked(w.loadLocal())
		w.mu.Unlock()
		w.publish()
		return
	}

	local := make([]Line, len(w.lines))
	copy(local, w.lines)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runSync(ctx, gen, local)
	}()
}

func (w *Wishlist) runSync(ctx context.Context, gen uint64, local []Line) {
	for _, ln := range local {
		_, err := w.remote.AddWishlistItem(ctx, ln.ID)
		if errors.Is(err, shopapi.ErrUnauthorized) {
			return
		}
		if err != nil {
			w.log.Warn("wishlist_sync_upsert_failed", "product", ln.ID, "error", err)
		}
	}

	items, err := w.remote.GetWishlist(ctx)
	if err != nil {
		if !errors.Is(err, shopapi.ErrUnauthorized) {
			w.log.Warn("wishlist_sync_fetch_failed", "error", err)
		}
		return
	}
	if len(items) == 0 && len(local) > 0 {
		return
	}

	merged := make([]Line, 0, len(items))
	for _, it := range items {
		l := lineFromProduct(it.Product)
		l.AddedAt = it.AddedAt
		merged = append(merged, l)
	}

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.setLinesLocked(merged)
	if len(merged) > 0 {
		w.store.Delete(localstore.KeyWishlist)
	}
	w.mu.Unlock()
	w.publish()
}

func (w *Wishlist) reloadFromRemote(ctx context.Context, gen uint64) {
	items, err := w.remote.GetWishlist(ctx)
	if err != nil {
		if !errors.Is(err, shopapi.ErrUnauthorized) {
			w.log.Warn("wishlist_reload_failed", "error", err)
		}
		return
	}
	merged := make([]Line, 0, len(items))
	for _, it := range items {
		l := lineFromProduct(it.Product)
		l.AddedAt = it.AddedAt
		merged = append(merged, l)
	}
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.setLinesLocked(merged)
	w.persistLocked()
	w.mu.Unlock()
	w.publish()
}

func (w *Wishlist) applyCanonical(gen uint64, item *shopapi.WishlistItemDTO) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	idx, ok := w.index[item.Product.ID]
	if !ok {
		w.mu.Unlock()
		return
	}
	l := lineFromProduct(item.Product)
	l.AddedAt = item.AddedAt
	w.lines[idx] = l
	w.persistLocked()
	w.mu.Unlock()
	w.publish()
}

func (w *Wishlist) restoreLine(gen uint64, idx int, line Line) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	if _, ok := w.index[line.ID]; ok {
		w.mu.Unlock()
		return
	}
	if idx > len(w.lines) {
		idx = len(w.lines)
	}
	w.setLinesLocked(append(w.lines[:idx:idx], append([]Line{line}, w.lines[idx:]...)...))
	w.persistLocked()
	w.mu.Unlock()
	w.publish()
}

// setLinesLocked replaces the slice and rebuilds the membership index.
func (w *Wishlist) setLinesLocked(lines []Line) {
	w.lines = lines
	w.index = make(map[string]int, len(lines))
	for i, l := range lines {
		w.index[l.ID] = i
	}
}

func (w *Wishlist) authedLocked() bool {
	return w.user != "" && w.remote != nil
}

func (w *Wishlist) persistLocked() {
	data, err := json.Marshal(w.lines)
	if err != nil {
		w.log.Warn("wishlist_persist_marshal_failed", "error", err)
		return
	}
	w.store.Set(localstore.KeyWishlist, data)
}

func (w *Wishlist) loadLocal() []Line {
	data, ok := w.store.Get(localstore.KeyWishlist)
	if !ok {
		return nil
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		w.log.Warn("wishlist_local_corrupt", "error", err)
		return nil
	}
	return lines
}

func (w *Wishlist) publish() {
	if w.bus != nil {
		w.bus.Publish(TopicWishlistChanged)
	}
}
