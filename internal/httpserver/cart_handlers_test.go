package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authmw "github.com/storefront-go/storefront/internal/middleware/auth"
	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/owner"
	"github.com/storefront-go/storefront/internal/repo"
	"github.com/storefront-go/storefront/internal/service/cart"
	"github.com/storefront-go/storefront/internal/validation"
)

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

func newCartEnv(t *testing.T) (*CartHTTP, *echo.Echo, *gorm.DB) {
	t.Helper()
	db := initTestDB(t)
	e := echo.New()
	e.Validator = validation.New()
	return &CartHTTP{Svc: &cart.Service{Repo: repo.New(db)}}, e, db
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	return p
}

func newRequest(e *echo.Echo, method, target, body string, own owner.Owner) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if !own.IsZero() {
		c.Set(authmw.OwnerContextKey, own)
	}
	return c, rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr.Code
}

func TestCartAddItemHandler(t *testing.T) {
	h, e, db := newCartEnv(t)
	p := seedProduct(t, db, models.Product{Name: "Mug", SKU: "MUG-1", Price: decimal.NewFromInt(12), IsActive: true})

	body := `{"product_id": ` + strconv.Itoa(int(p.ID)) + `, "quantity": 2, "options": {"color": "red"}}`
	c, rec := newRequest(e, http.MethodPost, "/api/v1/cart/items", body, owner.User(1))

	require.NoError(t, h.AddItem(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var line models.CartLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "red", line.Options["color"])
}

func TestCartAddItemHandler_Errors(t *testing.T) {
	h, e, db := newCartEnv(t)
	inactive := seedProduct(t, db, models.Product{Name: "Old", SKU: "OLD-1", Price: decimal.NewFromInt(5), IsActive: false})

	t.Run("unknown product", func(t *testing.T) {
		c, _ := newRequest(e, http.MethodPost, "/api/v1/cart/items", `{"product_id": 9999, "quantity": 1}`, owner.User(1))
		err := h.AddItem(c)
		assert.Equal(t, http.StatusNotFound, httpStatus(t, err))
	})

	t.Run("unavailable product", func(t *testing.T) {
		body := `{"product_id": ` + strconv.Itoa(int(inactive.ID)) + `, "quantity": 1}`
		c, _ := newRequest(e, http.MethodPost, "/api/v1/cart/items", body, owner.User(1))
		err := h.AddItem(c)
		assert.Equal(t, http.StatusConflict, httpStatus(t, err))
	})

	t.Run("zero quantity rejected by validation", func(t *testing.T) {
		c, _ := newRequest(e, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 0}`, owner.User(1))
		err := h.AddItem(c)
		assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
	})

	t.Run("no owner", func(t *testing.T) {
		c, _ := newRequest(e, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 1}`, owner.Owner{})
		err := h.AddItem(c)
		assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
	})
}

func TestCartSummaryHandler(t *testing.T) {
	h, e, db := newCartEnv(t)
	p := seedProduct(t, db, models.Product{Name: "Mug", SKU: "MUG-1", Price: decimal.NewFromInt(30), IsActive: true})

	body := `{"product_id": ` + strconv.Itoa(int(p.ID)) + `, "quantity": 2}`
	c, _ := newRequest(e, http.MethodPost, "/api/v1/cart/items", body, owner.User(1))
	require.NoError(t, h.AddItem(c))

	c, rec := newRequest(e, http.MethodGet, "/api/v1/cart", "", owner.User(1))
	require.NoError(t, h.Summary(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["item_count"])
	assert.Equal(t, "60.00", resp["subtotal"])
	assert.Equal(t, "6.00", resp["tax"])
	assert.Equal(t, "0.00", resp["shipping"])
	assert.Equal(t, "66.00", resp["total"])
}

func TestCartUpdateQuantityHandler_ZeroRemoves(t *testing.T) {
	h, e, db := newCartEnv(t)
	p := seedProduct(t, db, models.Product{Name: "Mug", SKU: "MUG-1", Price: decimal.NewFromInt(10), IsActive: true})

	c, rec := newRequest(e, http.MethodPost, "/api/v1/cart/items", `{"product_id": `+strconv.Itoa(int(p.ID))+`, "quantity": 1}`, owner.User(1))
	require.NoError(t, h.AddItem(c))

	var line models.CartLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))

	c, rec = newRequest(e, http.MethodPatch, "/", `{"quantity": 0}`, owner.User(1))
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(line.ID)))
	require.NoError(t, h.UpdateQuantity(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCartValidateHandler(t *testing.T) {
	h, e, db := newCartEnv(t)
	p := seedProduct(t, db, models.Product{Name: "Mug", SKU: "MUG-1", Price: decimal.NewFromInt(10), IsActive: true})

	c, _ := newRequest(e, http.MethodPost, "/api/v1/cart/items", `{"product_id": `+strconv.Itoa(int(p.ID))+`, "quantity": 1}`, owner.User(1))
	require.NoError(t, h.AddItem(c))

	c, rec := newRequest(e, http.MethodPost, "/api/v1/cart/validate", "", owner.User(1))
	require.NoError(t, h.Validate(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["valid"])

	// deactivate the product and the same endpoint reports the problem
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)

	c, rec = newRequest(e, http.MethodPost, "/api/v1/cart/validate", "", owner.User(1))
	require.NoError(t, h.Validate(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["valid"])
}

func TestResolveOwnerMiddleware(t *testing.T) {
	e := echo.New()
	mw := &authmw.Middleware{JWTSecret: []byte("secret")}
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("guest gets a session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, mw.ResolveOwner(next)(c))

		own, ok := authmw.CurrentOwner(c)
		require.True(t, ok)
		assert.False(t, own.IsUser())
		assert.Contains(t, rec.Header().Get("Set-Cookie"), authmw.SessionCookie)
	})

	t.Run("existing cookie is reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: authmw.SessionCookie, Value: "sid-1"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, mw.ResolveOwner(next)(c))

		own, _ := authmw.CurrentOwner(c)
		sid, ok := own.SessionID()
		require.True(t, ok)
		assert.Equal(t, "sid-1", sid)
		assert.Empty(t, rec.Header().Get("Set-Cookie"))
	})

	t.Run("malformed bearer token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := mw.ResolveOwner(next)(c)
		assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
	})
}
