package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mokosho/shop/internal/events"
	"github.com/mokosho/shop/internal/models"
	"github.com/mokosho/shop/internal/repo"
	"gorm.io/gorm"
)

type WishlistService struct {
	Repo   *repo.GormRepo
	Events *events.Producer
}

func (s *WishlistService) GetWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, map[uuid.UUID]models.Product, error) {
	items, err := s.Repo.GetWishlist(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return items, nil, nil
	}

	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return items, products, nil
}

// AddToWishlist is idempotent per user and product.
func (s *WishlistService) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, *models.Product, error) {
	if productID == uuid.Nil {
		return nil, nil, fmt.Errorf("product id must be not nil: %w", ErrValidation)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return nil, nil, err
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.Repo.AddToWishlist(ctx, item); err != nil {
		return nil, nil, err
	}

	s.Events.Publish(ctx, userID.String(), map[string]any{
		"type":      "wishlist_item_added",
		"userID":    userID,
		"productID": productID,
	})
	return item, product, nil
}

func (s *WishlistService) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return fmt.Errorf("product id must be not nil: %w", ErrValidation)
	}

	if err := s.Repo.DeleteFromWishlist(ctx, userID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("wishlist item not found: %w", ErrNotFound)
		}
		return err
	}

	s.Events.Publish(ctx, userID.String(), map[string]any{
		"type":      "wishlist_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return nil
}
