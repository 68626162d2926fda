package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type Product struct {
	ID                uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string              `gorm:"not null"                 json:"name"`
	SKU               string              `gorm:"uniqueIndex;not null"     json:"sku"`
	Description       string              `json:"description"`
	Image             string              `json:"image"`
	Price             decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	SalePrice         decimal.NullDecimal `gorm:"type:decimal(12,2)"          json:"sale_price"`
	IsActive          bool                `gorm:"default:true"             json:"is_active"`
	ManageStock       bool                `gorm:"default:false"            json:"manage_stock"`
	StockQuantity     int                 `gorm:"default:0"                json:"stock_quantity"`
	InStock           bool                `gorm:"default:true"             json:"in_stock"`
	LowStockThreshold int                 `gorm:"default:5"                json:"low_stock_threshold"`
	SalesCount        uint                `gorm:"default:0"                json:"sales_count"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// EffectivePrice is the sale price when one is set below the list price,
// otherwise the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid && p.SalePrice.Decimal.LessThan(p.Price) {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// Available reports whether qty units can be sold. Products that do not
// manage stock are always considered available while active.
func (p *Product) Available(qty int) bool {
	if !p.IsActive {
		return false
	}
	if !p.ManageStock {
		return true
	}
	return p.StockQuantity >= qty
}

// OptionSet is the opaque option mapping on a cart or order line, e.g.
// size/color. Two lines occupy the same (owner, product, options) slot
// exactly when their fingerprints match.
type OptionSet map[string]string

func (o OptionSet) Fingerprint() string {
	if len(o) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+o[k])
	}
	return strings.Join(parts, ";")
}

// CartLine is one product/option combination held by exactly one owner:
// either an authenticated user or an anonymous guest session.
type CartLine struct {
	ID         uint            `gorm:"primaryKey"                json:"id"`
	UserID     *uint           `gorm:"index"                     json:"user_id,omitempty"`
	SessionID  *string         `gorm:"index"                     json:"session_id,omitempty"`
	ProductID  uint            `gorm:"not null"                  json:"product_id"`
	Quantity   int             `gorm:"not null;check:quantity>0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Options    OptionSet       `gorm:"serializer:json"           json:"options,omitempty"`
	OptionsKey string          `gorm:"index"                     json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (l *CartLine) BeforeSave(tx *gorm.DB) error {
	l.OptionsKey = l.Options.Fingerprint()
	return nil
}

func (CartLine) TableName() string {
	return "cart_lines"
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Address is snapshotted onto orders at creation time. Later edits to a
// user's address book must not alter historical orders.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Order is the immutable record of a completed purchase intent. The monetary
// breakdown is computed once at creation and never recomputed; the invariant
// total = subtotal + tax + shipping - discount holds for every stored row.
type Order struct {
	ID              uint            `gorm:"primaryKey"           json:"id"`
	Number          string          `gorm:"uniqueIndex;not null" json:"number"`
	UserID          uint            `gorm:"index;not null"       json:"user_id"`
	Status          OrderStatus     `gorm:"not null;default:pending" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"not null;default:pending" json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentID       string          `json:"payment_id,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Shipping        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping"`
	Discount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	BillingAddress  Address         `gorm:"embedded;embeddedPrefix:billing_"  json:"billing_address"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []OrderLine     `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

// CanCancel reports whether cancellation is still legal. Shipped, delivered
// and already-cancelled orders are past the point of no return.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// OrderLine snapshots one purchased item. Product name, SKU and image are
// denormalized so historical orders render correctly even after the product
// is edited or deleted; ProductID goes nil when the product is removed.
type OrderLine struct {
	ID           uint            `gorm:"primaryKey"     json:"id"`
	OrderID      uint            `gorm:"index;not null" json:"order_id"`
	ProductID    *uint           `json:"product_id,omitempty"`
	ProductName  string          `gorm:"not null" json:"product_name"`
	ProductSKU   string          `json:"product_sku"`
	ProductImage string          `json:"product_image"`
	Quantity     int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	Options      OptionSet       `gorm:"serializer:json" json:"options,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (OrderLine) TableName() string {
	return "order_lines"
}
