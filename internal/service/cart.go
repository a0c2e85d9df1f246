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

type CartService struct {
	Repo   *repo.GormRepo
	Events *events.Producer
}

// GetCart returns the user's lines together with their products so the
// handler can build the denormalized wire shape.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, map[uuid.UUID]models.Product, error) {
	items, err := s.Repo.GetCart(ctx, userID)
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

func (s *CartService) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartItem, *models.Product, error) {
	if productID == uuid.Nil {
		return nil, nil, fmt.Errorf("product id must be not nil: %w", ErrValidation)
	}
	if quantity == 0 {
		return nil, nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return nil, nil, err
	}

	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := s.Repo.AddToCart(ctx, item); err != nil {
		return nil, nil, err
	}

	s.Events.Publish(ctx, userID.String(), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})
	return item, product, nil
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartItem, *models.Product, error) {
	if productID == uuid.Nil {
		return nil, nil, fmt.Errorf("product id must be not nil: %w", ErrValidation)
	}
	if quantity == 0 {
		return nil, nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	item, err := s.Repo.SetCartQuantity(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("cart item not found: %w", ErrNotFound)
		}
		return nil, nil, err
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	s.Events.Publish(ctx, userID.String(), map[string]any{
		"type":      "cart_quantity_set",
		"userID":    userID,
		"productID": productID,
		"quantity":  quantity,
	})
	return item, product, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return fmt.Errorf("product id must be not nil: %w", ErrValidation)
	}

	if err := s.Repo.DeleteFromCart(ctx, userID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cart item not found: %w", ErrNotFound)
		}
		return err
	}

	s.Events.Publish(ctx, userID.String(), map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.Repo.DeleteAllFromCart(ctx, userID); err != nil {
		return err
	}
	s.Events.Publish(ctx, userID.String(), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return nil
}
