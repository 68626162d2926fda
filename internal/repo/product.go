package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/models"
)

func (r *GormRepo) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) Products(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.DB.WithContext(ctx).Create(product).Error
}

func (r *GormRepo) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.DB.WithContext(ctx).Save(product).Error
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.Product{}, id).Error
}

// DecrementStock applies the availability check and the decrement as one
// conditional read-modify-write: the guard `stock_quantity >= qty` means two
// racing checkouts of the last unit cannot both pass, and stock can never go
// negative. in_stock is recomputed from the resulting quantity in the same
// statement.
func (r *GormRepo) DecrementStock(ctx context.Context, productID uint, qty int) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"in_stock":       gorm.Expr("stock_quantity - ? > 0", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// IncrementStock restores qty units and recomputes in_stock from the
// resulting quantity rather than forcing it true: other orders may have
// driven the counter down in the meantime.
func (r *GormRepo) IncrementStock(ctx context.Context, productID uint, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"in_stock":       gorm.Expr("stock_quantity + ? > 0", qty),
		}).Error
}

func (r *GormRepo) IncrementSales(ctx context.Context, productID uint, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("sales_count", gorm.Expr("sales_count + ?", qty)).Error
}

func (r *GormRepo) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).
		Where("manage_stock = ? AND stock_quantity <= low_stock_threshold", true).
		Order("stock_quantity ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
