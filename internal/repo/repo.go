package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned by the conditional stock decrement when
// the guard `stock_quantity >= qty` matches no row.
var ErrInsufficientStock = errors.New("insufficient stock")

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// WithTx rebinds the repo to a transaction handle.
func (r *GormRepo) WithTx(tx *gorm.DB) *GormRepo {
	return &GormRepo{DB: tx}
}

// Transaction runs fn against a tx-bound copy of the repo. Any error rolls
// the whole unit back.
func (r *GormRepo) Transaction(ctx context.Context, fn func(r *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}
