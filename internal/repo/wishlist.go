package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/mokosho/shop/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) GetWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("added_at").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddToWishlist is idempotent: an existing user/product row is returned
// untouched.
func (r *GormRepo) AddToWishlist(ctx context.Context, item *models.WishlistItem) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
		FirstOrCreate(item).Error
}

func (r *GormRepo) DeleteFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
