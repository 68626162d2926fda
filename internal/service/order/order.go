// Package order owns the cart-to-order transition and the order status
// lifecycle.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/metrics"
	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/owner"
	"github.com/storefront-go/storefront/internal/repo"
	"github.com/storefront-go/storefront/internal/service/cart"
	"github.com/storefront-go/storefront/internal/service/inventory"
)

var (
	ErrEmptyCart         = errors.New("empty cart")
	ErrCartInvalid       = errors.New("cart invalid")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
)

// CartInvalidError carries the validation problems that blocked a checkout.
type CartInvalidError struct {
	Problems []string
}

func (e *CartInvalidError) Error() string {
	return "cart invalid: " + strings.Join(e.Problems, "; ")
}

func (e *CartInvalidError) Unwrap() error {
	return ErrCartInvalid
}

type Service struct {
	Repo *repo.GormRepo
}

// CreateFromCart materializes a user's cart into an immutable order inside
// one transaction: validation, order + line snapshots, stock decrements and
// the cart clear all commit or roll back together. No observer sees a
// partially materialized order.
func (s *Service) CreateFromCart(ctx context.Context, userID uint, billing, shipping models.Address, paymentMethod string) (*models.Order, error) {
	own := owner.User(userID)

	var created *models.Order
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		carts := &cart.Service{Repo: r}
		inv := &inventory.Service{Repo: r}

		lines, err := r.CartLines(ctx, own)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		problems, err := carts.Validate(ctx, own)
		if err != nil {
			return err
		}
		if len(problems) > 0 {
			return &CartInvalidError{Problems: problems}
		}

		sum, err := carts.Summary(ctx, own)
		if err != nil {
			return err
		}

		number, err := s.newOrderNumber(ctx, r)
		if err != nil {
			return err
		}

		ord := &models.Order{
			Number:          number,
			UserID:          userID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   paymentMethod,
			Subtotal:        sum.Subtotal,
			Tax:             sum.Tax,
			Shipping:        sum.Shipping,
			Discount:        decimal.Zero,
			Total:           sum.Total,
			BillingAddress:  billing,
			ShippingAddress: shipping,
		}
		if err := r.CreateOrder(ctx, ord); err != nil {
			return err
		}

		for _, l := range sum.Items {
			product, err := r.ProductByID(ctx, l.ProductID)
			if err != nil {
				return err
			}

			line := models.OrderLine{
				OrderID:      ord.ID,
				ProductID:    &product.ID,
				ProductName:  product.Name,
				ProductSKU:   product.SKU,
				ProductImage: product.Image,
				Quantity:     l.Quantity,
				UnitPrice:    l.UnitPrice,
				LineTotal:    l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
				Options:      l.Options,
			}
			if err := r.CreateOrderLine(ctx, &line); err != nil {
				return err
			}
			ord.Lines = append(ord.Lines, line)

			if err := r.IncrementSales(ctx, product.ID, l.Quantity); err != nil {
				return err
			}
			if product.ManageStock {
				if err := inv.Decrement(ctx, product.ID, l.Quantity); err != nil {
					if errors.Is(err, inventory.ErrInsufficientStock) {
						metrics.StockConflicts.Inc()
						return &CartInvalidError{Problems: []string{
							fmt.Sprintf("not enough stock for %s", product.Name),
						}}
					}
					return err
				}
			}
		}

		if err := carts.Clear(ctx, own); err != nil {
			return err
		}
		created = ord
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	return created, nil
}

// MarkAsPaid records a successful payment and moves the order forward to
// processing. Calling it on an already-paid order is a no-op.
func (s *Service) MarkAsPaid(ctx context.Context, orderID uint, paymentID string) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		ord, err := s.load(ctx, r, orderID)
		if err != nil {
			return err
		}
		if ord.PaymentStatus == models.PaymentStatusPaid {
			out = ord
			return nil
		}
		if ord.Status != models.OrderStatusPending && ord.Status != models.OrderStatusProcessing {
			return fmt.Errorf("%w: cannot pay a %s order", ErrInvalidTransition, ord.Status)
		}
		ord.Status = models.OrderStatusProcessing
		ord.PaymentStatus = models.PaymentStatusPaid
		ord.PaymentID = paymentID
		if err := r.SaveOrder(ctx, ord); err != nil {
			return err
		}
		out = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAsShipped advances a processing order to shipped and stamps the time.
// Shipping an unpaid (still pending) order is refused: processing must be
// reached through MarkAsPaid first.
func (s *Service) MarkAsShipped(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.advance(ctx, orderID, models.OrderStatusProcessing, models.OrderStatusShipped)
}

// MarkAsDelivered advances a shipped order to delivered, its terminal state.
func (s *Service) MarkAsDelivered(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.advance(ctx, orderID, models.OrderStatusShipped, models.OrderStatusDelivered)
}

func (s *Service) advance(ctx context.Context, orderID uint, from, to models.OrderStatus) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		ord, err := s.load(ctx, r, orderID)
		if err != nil {
			return err
		}
		if ord.Status != from {
			return fmt.Errorf("%w: %s order cannot become %s", ErrInvalidTransition, ord.Status, to)
		}
		now := time.Now().UTC()
		ord.Status = to
		switch to {
		case models.OrderStatusShipped:
			ord.ShippedAt = &now
		case models.OrderStatusDelivered:
			ord.DeliveredAt = &now
		}
		if err := r.SaveOrder(ctx, ord); err != nil {
			return err
		}
		out = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel ends a pending or processing order and restores stock for every
// line whose product still exists and manages stock. in_stock is recomputed
// from the restored quantity, not forced true.
func (s *Service) Cancel(ctx context.Context, orderID uint) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		ord, err := s.load(ctx, r, orderID)
		if err != nil {
			return err
		}
		if !ord.CanCancel() {
			return fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, ord.Status)
		}

		inv := &inventory.Service{Repo: r}
		for _, line := range ord.Lines {
			if line.ProductID == nil {
				continue
			}
			product, err := r.ProductByID(ctx, *line.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !product.ManageStock {
				continue
			}
			if err := inv.Increment(ctx, product.ID, line.Quantity); err != nil {
				return err
			}
		}

		ord.Status = models.OrderStatusCancelled
		if err := r.SaveOrder(ctx, ord); err != nil {
			return err
		}
		out = ord
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	return out, nil
}

// Get returns one of the user's orders.
func (s *Service) Get(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	ord, err := s.load(ctx, s.Repo, orderID)
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return ord, nil
}

func (s *Service) List(ctx context.Context, userID uint, offset, limit int) ([]models.Order, int64, error) {
	return s.Repo.OrdersByUser(ctx, userID, offset, limit)
}

func (s *Service) load(ctx context.Context, r *repo.GormRepo, orderID uint) (*models.Order, error) {
	ord, err := r.OrderByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return ord, nil
}
