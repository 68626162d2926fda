package transport

import (
	"github.com/shopspring/decimal"

	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/service/cart"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

type AddItemRequest struct {
	ProductID uint              `json:"product_id" validate:"required"`
	Quantity  int               `json:"quantity"   validate:"required,gt=0"`
	Options   models.OptionSet  `json:"options"`
}

type UpdateQuantityRequest struct {
	// Zero removes the line.
	Quantity int `json:"quantity" validate:"gte=0"`
}

type AddressPayload struct {
	Name       string `json:"name"        validate:"required"`
	Line1      string `json:"line1"       validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city"        validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country"     validate:"required"`
	Phone      string `json:"phone"`
}

func (p AddressPayload) Address() models.Address {
	return models.Address{
		Name:       p.Name,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Phone:      p.Phone,
	}
}

type CheckoutRequest struct {
	BillingAddress  AddressPayload `json:"billing_address"  validate:"required"`
	ShippingAddress AddressPayload `json:"shipping_address" validate:"required"`
	PaymentMethod   string         `json:"payment_method"   validate:"required"`
}

type MarkPaidRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

type ProductRequest struct {
	Name              string              `json:"name" validate:"required"`
	SKU               string              `json:"sku"  validate:"required"`
	Description       string              `json:"description"`
	Image             string              `json:"image"`
	Price             decimal.Decimal     `json:"price"`
	SalePrice         decimal.NullDecimal `json:"sale_price"`
	IsActive          *bool               `json:"is_active"`
	ManageStock       bool                `json:"manage_stock"`
	StockQuantity     int                 `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
}

// SummaryResponse renders a cart summary with all amounts rounded to two
// digits; this is the only place display rounding happens.
type SummaryResponse struct {
	Items     []models.CartLine `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  string            `json:"subtotal"`
	Tax       string            `json:"tax"`
	Shipping  string            `json:"shipping"`
	Total     string            `json:"total"`
}

func NewSummaryResponse(s *cart.Summary) SummaryResponse {
	return SummaryResponse{
		Items:     s.Items,
		ItemCount: s.ItemCount,
		Subtotal:  s.Subtotal.StringFixed(2),
		Tax:       s.Tax.StringFixed(2),
		Shipping:  s.Shipping.StringFixed(2),
		Total:     s.Total.StringFixed(2),
	}
}

type ProblemsResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}
