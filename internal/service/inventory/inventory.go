// Package inventory owns the stock_quantity/in_stock pair on each product
// and the read-side policies that depend on it.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/repo"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = repo.ErrInsufficientStock
)

type Service struct {
	Repo *repo.GormRepo
}

func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{Repo: s.Repo.WithTx(tx)}
}

// Decrement takes qty units off a product's stock. The check and the write
// happen in one conditional statement, so concurrent decrements cannot drive
// the counter negative; ErrInsufficientStock when the guard fails.
func (s *Service) Decrement(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be > 0, got %d", qty)
	}
	return s.Repo.DecrementStock(ctx, productID, qty)
}

// Increment restores qty units, recomputing in_stock from the resulting
// quantity.
func (s *Service) Increment(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increment quantity must be > 0, got %d", qty)
	}
	return s.Repo.IncrementStock(ctx, productID, qty)
}

// IsAvailable reports whether requestedQty units of a product can be sold.
func (s *Service) IsAvailable(ctx context.Context, productID uint, requestedQty int) (bool, error) {
	product, err := s.Repo.ProductByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return false, err
	}
	return product.Available(requestedQty), nil
}

// LowStock lists stock-managed products at or under their low-stock
// threshold, scarcest first.
func (s *Service) LowStock(ctx context.Context) ([]models.Product, error) {
	return s.Repo.LowStockProducts(ctx)
}
