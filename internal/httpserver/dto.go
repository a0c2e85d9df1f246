package httpserver

import (
	"time"

	"github.com/mokosho/shop/internal/models"
)

// Wire shapes of the storefront API. Field names are camelCase because the
// original web clients consume them as-is.

type productDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Price        float64  `json:"price"`
	ComparePrice *float64 `json:"comparePrice,omitempty"`
	Images       []string `json:"images"`
}

func toProductDTO(p models.Product) productDTO {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productDTO{
		ID:           p.ID.String(),
		Name:         p.Name,
		Slug:         p.Slug,
		Price:        p.Price,
		ComparePrice: p.ComparePrice,
		Images:       images,
	}
}

type cartItemDTO struct {
	Quantity int        `json:"quantity"`
	Product  productDTO `json:"product"`
}

type wishlistItemDTO struct {
	Product productDTO `json:"product"`
	AddedAt *time.Time `json:"addedAt,omitempty"`
}

type dataResponse struct {
	Data any `json:"data"`
}

type cartResponse struct {
	Items []cartItemDTO `json:"items"`
}

type addCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type patchCartRequest struct {
	Quantity int `json:"quantity"`
}

type addWishlistRequest struct {
	ProductID string `json:"productId"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	IsAdmin     bool   `json:"isAdmin"`
}
