package order

import (
	"context"
	"regexp"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/owner"
	"github.com/storefront-go/storefront/internal/repo"
	"github.com/storefront-go/storefront/internal/service/cart"
)

var orderNumberRe = regexp.MustCompile(`^ORD-\d{4}-[A-Z0-9]{8}$`)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderLine{},
	))
	return db
}

func newTestServices(t *testing.T) (*Service, *cart.Service, *gorm.DB) {
	t.Helper()
	db := initTestDB(t)
	r := repo.New(db)
	return &Service{Repo: r}, &cart.Service{Repo: r}, db
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	return p
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testAddress() models.Address {
	return models.Address{
		Name:       "Ada Lovelace",
		Line1:      "1 Analytical St",
		City:       "London",
		PostalCode: "N1 9GU",
		Country:    "GB",
	}
}

func stockOf(t *testing.T, db *gorm.DB, productID uint) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p
}

func TestCreateFromCart_EmptyCart(t *testing.T) {
	orders, _, db := newTestServices(t)

	_, err := orders.CreateFromCart(context.Background(), 1, testAddress(), testAddress(), "card")
	require.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreateFromCart_Success(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	p := seedProduct(t, db, models.Product{
		Name: "Mug", SKU: "MUG-1", Image: "mug.jpg", Price: price("30"),
		IsActive: true, ManageStock: true, StockQuantity: 5, InStock: true,
	})
	_, err := carts.AddItem(ctx, owner.User(1), p.ID, 2, models.OptionSet{"color": "blue"})
	require.NoError(t, err)

	ord, err := orders.CreateFromCart(ctx, 1, testAddress(), testAddress(), "card")
	require.NoError(t, err)

	assert.Regexp(t, orderNumberRe, ord.Number)
	assert.Equal(t, models.OrderStatusPending, ord.Status)
	assert.Equal(t, models.PaymentStatusPending, ord.PaymentStatus)
	assert.Equal(t, "60.00", ord.Subtotal.StringFixed(2))
	assert.Equal(t, "6.00", ord.Tax.StringFixed(2))
	assert.Equal(t, "0.00", ord.Shipping.StringFixed(2))
	assert.Equal(t, "66.00", ord.Total.StringFixed(2))
	assert.Equal(t, "London", ord.ShippingAddress.City)

	require.Len(t, ord.Lines, 1)
	line := ord.Lines[0]
	assert.Equal(t, "Mug", line.ProductName)
	assert.Equal(t, "MUG-1", line.ProductSKU)
	assert.Equal(t, "mug.jpg", line.ProductImage)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "60.00", line.LineTotal.StringFixed(2))
	assert.Equal(t, "blue", line.Options["color"])

	after := stockOf(t, db, p.ID)
	assert.Equal(t, 3, after.StockQuantity)
	assert.True(t, after.InStock)
	assert.EqualValues(t, 2, after.SalesCount)

	sum, err := carts.Summary(ctx, owner.User(1))
	require.NoError(t, err)
	assert.Zero(t, sum.ItemCount, "cart should be cleared after checkout")
}

func TestCreateFromCart_SnapshotSurvivesProductEdit(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	p := seedProduct(t, db, models.Product{Name: "Mug", SKU: "MUG-1", Price: price("10"), IsActive: true})
	_, err := carts.AddItem(ctx, owner.User(1), p.ID, 1, nil)
	require.NoError(t, err)

	ord, err := orders.CreateFromCart(ctx, 1, testAddress(), testAddress(), "card")
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).
		Updates(map[string]any{"name": "Renamed", "price": price("99")}).Error)

	reloaded, err := orders.Get(ctx, 1, ord.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, "Mug", reloaded.Lines[0].ProductName)
	assert.Equal(t, "10.00", reloaded.Lines[0].UnitPrice.StringFixed(2))
}

func TestCreateFromCart_InsufficientStock(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	p := seedProduct(t, db, models.Product{
		Name: "Scarce", SKU: "SC-1", Price: price("10"),
		IsActive: true, ManageStock: true, StockQuantity: 5, InStock: true,
	})
	_, err := carts.AddItem(ctx, owner.User(1), p.ID, 3, nil)
	require.NoError(t, err)

	// stock shrinks between add-to-cart and checkout
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock_quantity", 2).Error)

	_, err = orders.CreateFromCart(ctx, 1, testAddress(), testAddress(), "card")
	require.ErrorIs(t, err, ErrCartInvalid)

	var invalid *CartInvalidError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Problems, 1)

	// everything rolled back: no order, stock untouched, cart intact
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, 2, stockOf(t, db, p.ID).StockQuantity)

	sum, err := carts.Summary(ctx, owner.User(1))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.ItemCount)
}

func TestCreateFromCart_LastUnitGoesToOneBuyer(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	p := seedProduct(t, db, models.Product{
		Name: "Last", SKU: "LAST-1", Price: price("10"),
		IsActive: true, ManageStock: true, StockQuantity: 1, InStock: true,
	})
	_, err := carts.AddItem(ctx, owner.User(1), p.ID, 1, nil)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, owner.User(2), p.ID, 1, nil)
	require.NoError(t, err)

	_, err = orders.CreateFromCart(ctx, 1, testAddress(), testAddress(), "card")
	require.NoError(t, err)

	_, err = orders.CreateFromCart(ctx, 2, testAddress(), testAddress(), "card")
	require.ErrorIs(t, err, ErrCartInvalid)

	after := stockOf(t, db, p.ID)
	assert.Equal(t, 0, after.StockQuantity)
	assert.False(t, after.InStock)
	assert.GreaterOrEqual(t, after.StockQuantity, 0, "stock must never go negative")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func checkoutOne(t *testing.T, orders *Service, carts *cart.Service, db *gorm.DB, stock int) (*models.Order, models.Product) {
	t.Helper()
	ctx := context.Background()

	p := seedProduct(t, db, models.Product{
		Name: "Widget", SKU: "W-1", Price: price("10"),
		IsActive: true, ManageStock: true, StockQuantity: stock, InStock: stock > 0,
	})
	_, err := carts.AddItem(ctx, owner.User(1), p.ID, 2, nil)
	require.NoError(t, err)

	ord, err := orders.CreateFromCart(ctx, 1, testAddress(), testAddress(), "card")
	require.NoError(t, err)
	return ord, p
}

func TestMarkAsPaid_Idempotent(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	ord, _ := checkoutOne(t, orders, carts, db, 5)

	paid, err := orders.MarkAsPaid(ctx, ord.ID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, paid.Status)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, "pay_123", paid.PaymentID)

	again, err := orders.MarkAsPaid(ctx, ord.ID, "pay_456")
	require.NoError(t, err)
	assert.Equal(t, "pay_123", again.PaymentID, "second payment confirmation must not overwrite the first")
	assert.Equal(t, models.OrderStatusProcessing, again.Status)
}

func TestStatusTransitions(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	ord, _ := checkoutOne(t, orders, carts, db, 5)

	// cannot ship before payment moved it to processing
	_, err := orders.MarkAsShipped(ctx, ord.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// cannot deliver before shipping
	_, err = orders.MarkAsDelivered(ctx, ord.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = orders.MarkAsPaid(ctx, ord.ID, "pay_1")
	require.NoError(t, err)

	shipped, err := orders.MarkAsShipped(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	delivered, err := orders.MarkAsDelivered(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// terminal: nothing moves a delivered order
	_, err = orders.MarkAsShipped(ctx, ord.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_RestoresStock(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	ord, p := checkoutOne(t, orders, carts, db, 2)
	require.Equal(t, 0, stockOf(t, db, p.ID).StockQuantity)
	require.False(t, stockOf(t, db, p.ID).InStock)

	cancelled, err := orders.Cancel(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	after := stockOf(t, db, p.ID)
	assert.Equal(t, 2, after.StockQuantity)
	assert.True(t, after.InStock)
}

func TestCancel_RecomputesInStockFromQuantity(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	ord, p := checkoutOne(t, orders, carts, db, 5)

	// oversold by a path outside the ledger; restocking 2 still leaves
	// nothing sellable, so in_stock must stay false
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).
		Updates(map[string]any{"stock_quantity": -2, "in_stock": false}).Error)

	_, err := orders.Cancel(ctx, ord.ID)
	require.NoError(t, err)

	after := stockOf(t, db, p.ID)
	assert.Equal(t, 0, after.StockQuantity)
	assert.False(t, after.InStock)
}

func TestCancel_RefusedAfterShipping(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	ord, p := checkoutOne(t, orders, carts, db, 5)
	_, err := orders.MarkAsPaid(ctx, ord.ID, "pay_1")
	require.NoError(t, err)
	_, err = orders.MarkAsShipped(ctx, ord.ID)
	require.NoError(t, err)

	_, err = orders.Cancel(ctx, ord.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 3, stockOf(t, db, p.ID).StockQuantity, "refused cancel must not restock")
}

func TestGet_EnforcesOwnership(t *testing.T) {
	orders, carts, db := newTestServices(t)
	ctx := context.Background()

	ord, _ := checkoutOne(t, orders, carts, db, 5)

	_, err := orders.Get(ctx, 2, ord.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = orders.Get(ctx, 1, 9999)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := orders.Get(ctx, 1, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, ord.Number, got.Number)
}

func TestGenerateOrderNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		n, err := generateOrderNumber(2026)
		require.NoError(t, err)
		assert.Regexp(t, orderNumberRe, n)
		seen[n] = struct{}{}
	}
	assert.Greater(t, len(seen), 95, "collisions should be vanishingly rare")
}
