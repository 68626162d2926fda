package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/owner"
)

// Summary is the priced view of a cart. Amounts keep full precision; callers
// round to two digits only when rendering.
type Summary struct {
	Items     []models.CartLine
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

func (s *Service) Summary(ctx context.Context, own owner.Owner) (*Summary, error) {
	lines, err := s.Repo.CartLines(ctx, own)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Items:    lines,
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, l := range lines {
		sum.ItemCount += l.Quantity
		sum.Subtotal = sum.Subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if sum.ItemCount == 0 {
		return sum, nil
	}

	sum.Tax = sum.Subtotal.Mul(taxRate).Round(2)
	if !sum.Subtotal.GreaterThan(freeShippingOver) {
		sum.Shipping = flatShippingFee
	}
	sum.Total = sum.Subtotal.Add(sum.Tax).Add(sum.Shipping)
	return sum, nil
}

// Check walks the cart and reports human-readable problems without touching
// anything: inactive products, products out of stock, and quantities
// exceeding available stock on stock-managed products. An empty cart has no
// problems; emptiness is a separate condition checked only at checkout.
func (s *Service) Check(ctx context.Context, own owner.Owner) ([]string, error) {
	lines, err := s.Repo.CartLines(ctx, own)
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, l := range lines {
		product, err := s.Repo.ProductByID(ctx, l.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			problems = append(problems, fmt.Sprintf("product %d is no longer available", l.ProductID))
			continue
		}
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			problems = append(problems, fmt.Sprintf("%s is no longer available", product.Name))
			continue
		}
		if !product.ManageStock {
			continue
		}
		if product.StockQuantity <= 0 {
			problems = append(problems, fmt.Sprintf("%s is out of stock", product.Name))
		} else if l.Quantity > product.StockQuantity {
			problems = append(problems, fmt.Sprintf("only %d of %s left in stock", product.StockQuantity, product.Name))
		}
	}
	return problems, nil
}

// Reprice heals lines whose captured unit price drifted from the product's
// current effective price. Lines whose product is gone are left for Check to
// report.
func (s *Service) Reprice(ctx context.Context, own owner.Owner) error {
	lines, err := s.Repo.CartLines(ctx, own)
	if err != nil {
		return err
	}
	for _, l := range lines {
		product, err := s.Repo.ProductByID(ctx, l.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if eff := product.EffectivePrice(); !l.UnitPrice.Equal(eff) {
			if err := s.Repo.SetCartLinePrice(ctx, l.ID, eff); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate is a side-effecting read: it reprices drifted lines and then
// reports remaining problems. Callers that want the pure read use Check.
func (s *Service) Validate(ctx context.Context, own owner.Owner) ([]string, error) {
	if err := s.Reprice(ctx, own); err != nil {
		return nil, err
	}
	return s.Check(ctx, own)
}
