package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/storefront-go/storefront/internal/repo"
)

const (
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberSuffix   = 8
	numberAttempts = 5
)

func generateOrderNumber(year int) (string, error) {
	buf := make([]byte, numberSuffix)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", year, buf), nil
}

// newOrderNumber generates a human-readable order number, retrying on
// collision. The unique index on orders.number is the backstop.
func (s *Service) newOrderNumber(ctx context.Context, r *repo.GormRepo) (string, error) {
	year := time.Now().UTC().Year()
	for i := 0; i < numberAttempts; i++ {
		number, err := generateOrderNumber(year)
		if err != nil {
			return "", err
		}
		exists, err := r.OrderNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("order number collision after %d attempts", numberAttempts)
}
