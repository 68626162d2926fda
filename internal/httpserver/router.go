package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "github.com/storefront-go/storefront/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	ProductHandler *ProductHTTP
	SearchHandler  *SearchHTTP
	AuthMW         *authmw.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)

	v1.GET("/products", d.ProductHandler.List)
	v1.GET("/products/:id", d.ProductHandler.Get)
	v1.GET("/search", d.SearchHandler.Search)

	carts := v1.Group("/cart", d.AuthMW.ResolveOwner)
	carts.GET("", d.CartHandler.Summary)
	carts.POST("", d.CartHandler.AddItem)
	carts.POST("/validate", d.CartHandler.Validate)
	carts.PATCH("/:id", d.CartHandler.UpdateQuantity)
	carts.DELETE("/:id", d.CartHandler.Remove)
	carts.DELETE("", d.CartHandler.Clear)

	orders := v1.Group("/orders", d.AuthMW.ResolveOwner, d.AuthMW.RequireUser)
	orders.POST("", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/:id", d.OrderHandler.Get)
	orders.POST("/:id/cancel", d.OrderHandler.Cancel)

	admin := v1.Group("/admin", d.AuthMW.ResolveOwner, d.AuthMW.RequireAdmin)
	admin.POST("/products", d.ProductHandler.Create)
	admin.PATCH("/products/:id", d.ProductHandler.Update)
	admin.DELETE("/products/:id", d.ProductHandler.Delete)
	admin.GET("/products/low-stock", d.ProductHandler.LowStock)
	admin.POST("/orders/:id/paid", d.OrderHandler.MarkAsPaid)
	admin.POST("/orders/:id/ship", d.OrderHandler.MarkAsShipped)
	admin.POST("/orders/:id/deliver", d.OrderHandler.MarkAsDelivered)
}
