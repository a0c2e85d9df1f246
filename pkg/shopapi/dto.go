package shopapi

import (
	"errors"
	"time"
)

// ProductDTO is the wire shape of a catalog product as the API returns it.
// It is validated at the boundary and never used as an internal type.
type ProductDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Price        float64  `json:"price"`
	ComparePrice *float64 `json:"comparePrice,omitempty"`
	Images       []string `json:"images"`
}

func (p *ProductDTO) Validate() error {
	if p.ID == "" {
		return errors.New("product id missing")
	}
	return nil
}

// Image returns the primary product image, if any.
func (p *ProductDTO) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type CartItemDTO struct {
	Quantity int        `json:"quantity"`
	Product  ProductDTO `json:"product"`
}

type WishlistItemDTO struct {
	Product ProductDTO `json:"product"`
	AddedAt *time.Time `json:"addedAt,omitempty"`
}

type cartEnvelope struct {
	Data struct {
		Items []CartItemDTO `json:"items"`
	} `json:"data"`
}

type cartItemEnvelope struct {
	Data CartItemDTO `json:"data"`
}

type wishlistEnvelope struct {
	Data []WishlistItemDTO `json:"data"`
}

type wishlistItemEnvelope struct {
	Data WishlistItemDTO `json:"data"`
}

type loginEnvelope struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}
