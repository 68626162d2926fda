// Package cart accumulates, prices and summarizes line items for exactly
// one owner identity.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/owner"
	"github.com/storefront-go/storefront/internal/repo"
)

var (
	ErrValidation         = errors.New("validation")
	ErrNotFound           = errors.New("not found")
	ErrProductUnavailable = errors.New("product unavailable")
)

// Pricing policy. Tax is a flat 10% of the subtotal; shipping is a flat $10
// unless the subtotal is strictly over $50.
var (
	taxRate          = decimal.RequireFromString("0.10")
	freeShippingOver = decimal.NewFromInt(50)
	flatShippingFee  = decimal.NewFromInt(10)
)

type Service struct {
	Repo *repo.GormRepo
}

func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{Repo: s.Repo.WithTx(tx)}
}

// AddItem puts qty units of a product/option combination into the owner's
// cart. An existing line for the same slot is incremented instead of
// duplicated; a new line captures the product's current effective price.
func (s *Service) AddItem(ctx context.Context, own owner.Owner, productID uint, qty int, options models.OptionSet) (*models.CartLine, error) {
	if own.IsZero() {
		return nil, fmt.Errorf("%w: owner required", ErrValidation)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	product, err := s.Repo.ProductByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%s is not active: %w", product.Name, ErrProductUnavailable)
	}
	if product.ManageStock && product.StockQuantity <= 0 {
		return nil, fmt.Errorf("%s is out of stock: %w", product.Name, ErrProductUnavailable)
	}

	var line *models.CartLine
	err = s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		existing, err := r.FindCartLine(ctx, own, productID, options.Fingerprint())
		if err != nil {
			return err
		}
		if existing != nil {
			if err := r.AddCartLineQuantity(ctx, existing.ID, qty); err != nil {
				return err
			}
			existing.Quantity += qty
			line = existing
			return nil
		}

		line = &models.CartLine{
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: product.EffectivePrice(),
			Options:   options,
		}
		if id, ok := own.UserID(); ok {
			line.UserID = &id
		} else if sid, ok := own.SessionID(); ok {
			line.SessionID = &sid
		}
		return r.CreateCartLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateQuantity sets a line's quantity exactly. A quantity of zero or less
// removes the line; the returned line is nil in that case.
func (s *Service) UpdateQuantity(ctx context.Context, own owner.Owner, lineID uint, qty int) (*models.CartLine, error) {
	line, err := s.Repo.CartLineByID(ctx, own, lineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart line %d: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if qty <= 0 {
		if _, err := s.Repo.DeleteCartLine(ctx, own, lineID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.Repo.SetCartLineQuantity(ctx, lineID, qty); err != nil {
		return nil, err
	}
	line.Quantity = qty
	return line, nil
}

// Remove deletes a line unconditionally. Removing a line that is already
// gone is a no-op.
func (s *Service) Remove(ctx context.Context, own owner.Owner, lineID uint) error {
	_, err := s.Repo.DeleteCartLine(ctx, own, lineID)
	return err
}

func (s *Service) Clear(ctx context.Context, own owner.Owner) error {
	return s.Repo.ClearCart(ctx, own)
}

// TransferOwnership merges a guest cart into a user's cart at login. Lines
// matching an existing (product, options) slot sum quantities; the rest are
// re-owned. A second call finds no remaining session lines, so repeated
// logins cannot double-count.
func (s *Service) TransferOwnership(ctx context.Context, sessionID string, userID uint) error {
	if sessionID == "" {
		return nil
	}
	return s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		guestLines, err := r.CartLines(ctx, owner.Session(sessionID))
		if err != nil {
			return err
		}
		for _, gl := range guestLines {
			existing, err := r.FindCartLine(ctx, owner.User(userID), gl.ProductID, gl.OptionsKey)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := r.AddCartLineQuantity(ctx, existing.ID, gl.Quantity); err != nil {
					return err
				}
				if _, err := r.DeleteCartLine(ctx, owner.Session(sessionID), gl.ID); err != nil {
					return err
				}
				continue
			}
			if err := r.ReassignCartLine(ctx, gl.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}
