// Package cartsync keeps a client-side cart or wishlist consistent across
// three tiers: the in-memory collection the UI reads, a durable local store,
// and the authenticated remote API. Mutations apply locally first and are
// pushed to the server in the background; login/logout merges the two copies
// under a fixed precedence policy that never throws the user's items away.
package cartsync

import (
	"time"

	"github.com/mokosho/shop/pkg/shopapi"
)

// Line is one cart or wishlist entry. Display fields are denormalized copies
// of the catalog data at the time the product was added.
type Line struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Image         string     `json:"image"`
	Slug          string     `json:"slug"`
	Price         float64    `json:"price"`
	DiscountPrice *float64   `json:"discountPrice,omitempty"`
	Quantity      int        `json:"quantity,omitempty"`
	AddedAt       *time.Time `json:"addedAt,omitempty"`
}

// EffectiveUnitPrice is the discount price when set, the base price otherwise.
func (l Line) EffectiveUnitPrice() float64 {
	if l.DiscountPrice != nil {
		return *l.DiscountPrice
	}
	return l.Price
}

// lineFromProduct maps a server product onto the local line shape. The
// compare price becomes the discount price only when it actually undercuts
// the base price.
func lineFromProduct(p shopapi.ProductDTO) Line {
	l := Line{
		ID:    p.ID,
		Name:  p.Name,
		Image: p.Image(),
		Slug:  p.Slug,
		Price: p.Price,
	}
	if p.ComparePrice != nil && *p.ComparePrice < p.Price {
		cp := *p.ComparePrice
		l.DiscountPrice = &cp
	}
	return l
}
