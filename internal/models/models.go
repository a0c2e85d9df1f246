package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"primaryKey"       json:"id"`
	Username     string    `gorm:"unique;not null"  json:"username"`
	PasswordHash string    `gorm:"not null"         json:"-"`
	Role         string    `gorm:"not null"         json:"role"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"       json:"id"`
	Token     string    `gorm:"unique;not null"  json:"token"`
	UserID    uuid.UUID `gorm:"index;not null"   json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"         json:"expires_at"`
	Revoked   bool      `gorm:"default:false"    json:"revoked"`
}

type Product struct {
	ID           uuid.UUID `gorm:"primaryKey"            json:"id"`
	Name         string    `gorm:"not null"              json:"name"`
	Slug         string    `gorm:"uniqueIndex;not null"  json:"slug"`
	Description  string    `json:"description"`
	Price        float64   `gorm:"not null"              json:"price"`
	ComparePrice *float64  `json:"compare_price,omitempty"`
	Images       []string  `gorm:"serializer:json"       json:"images"`
	Count        uint      `json:"count"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type CartItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                             json:"id"`
	UserID    uuid.UUID `gorm:"uniqueIndex:idx_user_product;not null"  json:"user_id"`
	ProductID uuid.UUID `gorm:"uniqueIndex:idx_user_product;not null"  json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"             json:"quantity"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}

type WishlistItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                              json:"id"`
	UserID    uuid.UUID `gorm:"uniqueIndex:idx_user_wishlist;not null"  json:"user_id"`
	ProductID uuid.UUID `gorm:"uniqueIndex:idx_user_wishlist;not null"  json:"product_id"`
	AddedAt   time.Time `gorm:"not null"                                json:"added_at"`
}

func (w *WishlistItem) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.AddedAt.IsZero() {
		w.AddedAt = time.Now().UTC()
	}
	return nil
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}
