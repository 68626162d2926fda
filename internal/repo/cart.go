package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/owner"
)

func scopeOwner(q *gorm.DB, own owner.Owner) *gorm.DB {
	if id, ok := own.UserID(); ok {
		return q.Where("user_id = ?", id)
	}
	sid, _ := own.SessionID()
	return q.Where("session_id = ?", sid)
}

func (r *GormRepo) CartLines(ctx context.Context, own owner.Owner) ([]models.CartLine, error) {
	var lines []models.CartLine
	q := scopeOwner(r.DB.WithContext(ctx), own)
	if err := q.Order("id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *GormRepo) CartLineByID(ctx context.Context, own owner.Owner, lineID uint) (*models.CartLine, error) {
	var line models.CartLine
	q := scopeOwner(r.DB.WithContext(ctx), own)
	if err := q.Where("id = ?", lineID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// FindCartLine looks up the single line occupying the (owner, product,
// options) slot. A missing line is not an error: (nil, nil).
func (r *GormRepo) FindCartLine(ctx context.Context, own owner.Owner, productID uint, optionsKey string) (*models.CartLine, error) {
	var line models.CartLine
	q := scopeOwner(r.DB.WithContext(ctx), own)
	err := q.Where("product_id = ? AND options_key = ?", productID, optionsKey).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *GormRepo) CreateCartLine(ctx context.Context, line *models.CartLine) error {
	return r.DB.WithContext(ctx).Create(line).Error
}

func (r *GormRepo) AddCartLineQuantity(ctx context.Context, lineID uint, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", gorm.Expr("quantity + ?", qty)).Error
}

func (r *GormRepo) SetCartLineQuantity(ctx context.Context, lineID uint, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", qty).Error
}

func (r *GormRepo) SetCartLinePrice(ctx context.Context, lineID uint, price decimal.Decimal) error {
	return r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("unit_price", price).Error
}

// DeleteCartLine removes an owner's line. Deleting a line that is already
// gone reports deleted=false without an error.
func (r *GormRepo) DeleteCartLine(ctx context.Context, own owner.Owner, lineID uint) (bool, error) {
	q := scopeOwner(r.DB.WithContext(ctx), own)
	res := q.Where("id = ?", lineID).Delete(&models.CartLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, own owner.Owner) error {
	q := scopeOwner(r.DB.WithContext(ctx), own)
	return q.Delete(&models.CartLine{}).Error
}

// ReassignCartLine moves a guest line onto a user account.
func (r *GormRepo) ReassignCartLine(ctx context.Context, lineID uint, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{"user_id": userID, "session_id": nil}).Error
}
