package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOptionSetFingerprint(t *testing.T) {
	a := OptionSet{"color": "red", "size": "m"}
	b := OptionSet{"size": "m", "color": "red"}

	assert.Equal(t, "color=red;size=m", a.Fingerprint())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "fingerprint must not depend on key order")

	assert.Equal(t, "", OptionSet{}.Fingerprint())
	assert.Equal(t, "", OptionSet(nil).Fingerprint())

	c := OptionSet{"color": "blue", "size": "m"}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestEffectivePrice(t *testing.T) {
	list := decimal.NewFromInt(40)

	p := Product{Price: list}
	assert.True(t, p.EffectivePrice().Equal(list))

	p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(30))
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(30)))

	// a "sale" price above list is ignored
	p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(45))
	assert.True(t, p.EffectivePrice().Equal(list))

	p.SalePrice = decimal.NullDecimal{}
	assert.True(t, p.EffectivePrice().Equal(list))
}

func TestProductAvailable(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		qty     int
		want    bool
	}{
		{"inactive", Product{IsActive: false}, 1, false},
		{"unmanaged active", Product{IsActive: true}, 1000, true},
		{"managed enough", Product{IsActive: true, ManageStock: true, StockQuantity: 5}, 5, true},
		{"managed short", Product{IsActive: true, ManageStock: true, StockQuantity: 5}, 6, false},
		{"managed empty", Product{IsActive: true, ManageStock: true, StockQuantity: 0}, 1, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.product.Available(tt.qty))
		})
	}
}

func TestOrderCanCancel(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusPending}).CanCancel())
	assert.True(t, (&Order{Status: OrderStatusProcessing}).CanCancel())
	assert.False(t, (&Order{Status: OrderStatusShipped}).CanCancel())
	assert.False(t, (&Order{Status: OrderStatusDelivered}).CanCancel())
	assert.False(t, (&Order{Status: OrderStatusCancelled}).CanCancel())
}
