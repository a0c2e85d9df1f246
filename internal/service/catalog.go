package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mokosho/shop/internal/models"
	"github.com/mokosho/shop/internal/repo"
	"github.com/mokosho/shop/internal/search"
	"gorm.io/gorm"
)

type CatalogService struct {
	Repo  *repo.GormRepo
	Index *search.Index
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product not found: %w", ErrNotFound)
	}
	return p, err
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.GetProductBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product not found: %w", ErrNotFound)
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.Name == "" || p.Slug == "" {
		return fmt.Errorf("name and slug required: %w", ErrValidation)
	}
	if p.Price <= 0 {
		return fmt.Errorf("price must be positive: %w", ErrValidation)
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return err
	}
	s.Index.IndexProduct(ctx, p)
	return nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("product id required: %w", ErrValidation)
	}
	if err := s.Repo.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.Index.IndexProduct(ctx, p)
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("product id required: %w", ErrValidation)
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.Index.DeleteProduct(ctx, id.String())
	return nil
}

func (s *CatalogService) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if query == "" {
		return 0, nil, fmt.Errorf("query required: %w", ErrValidation)
	}
	return s.Index.Search(ctx, query, from, size)
}
