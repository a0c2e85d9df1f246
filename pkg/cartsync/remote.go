package cartsync

import (
	"context"

	"github.com/mokosho/shop/pkg/shopapi"
)

// CartRemote is the slice of the storefront API the cart reconciler needs.
// *shopapi.Client satisfies it; tests substitute fakes.
type CartRemote interface {
	GetCart(ctx context.Context) ([]shopapi.CartItemDTO, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (*shopapi.CartItemDTO, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, productID string) error
	ClearCart(ctx context.Context) error
}

// WishlistRemote is the wishlist counterpart of CartRemote.
type WishlistRemote interface {
	GetWishlist(ctx context.Context) ([]shopapi.WishlistItemDTO, error)
	AddWishlistItem(ctx context.Context, productID string) (*shopapi.WishlistItemDTO, error)
	RemoveWishlistItem(ctx context.Context, productID string) error
}

// Bus is the change-notification surface. asaskevich/EventBus satisfies it.
type Bus interface {
	Publish(topic string, args ...interface{})
}

// Topics published on the bus after every visible state change.
const (
	TopicCartChanged     = "cart:changed"
	TopicWishlistChanged = "wishlist:changed"
)
