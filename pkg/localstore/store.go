// Package localstore provides the durable device-scoped storage tier that
// backs the cart/wishlist reconciler. Every implementation swallows its own
// failures: a broken store degrades to empty reads and no-op writes so the
// in-memory tier keeps working for the rest of the session.
package localstore

// Keys under which the reconciler persists its collections.
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
)

type Store interface {
	// Get returns the stored payload and whether the key was present.
	// A failing backend reports (nil, false).
	Get(key string) ([]byte, bool)
	// Set persists the payload. Failures are dropped silently.
	Set(key string, data []byte)
	// Delete removes the key. Failures are dropped silently.
	Delete(key string)
}
