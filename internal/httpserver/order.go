package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/storefront-go/storefront/internal/events"
	"github.com/storefront-go/storefront/internal/logging"
	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/service/order"
	"github.com/storefront-go/storefront/internal/transport"
	"github.com/storefront-go/storefront/internal/util"
)

type OrderHTTP struct {
	Svc      *order.Service
	Producer *events.Producer
}

func (h *OrderHTTP) publish(c echo.Context, eventType string, ord *models.Order) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	event := map[string]any{
		"type":    eventType,
		"number":  ord.Number,
		"user_id": ord.UserID,
		"status":  ord.Status,
		"total":   ord.Total,
	}
	if err := h.Producer.Publish(ctx, events.TopicOrders, ord.Number, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_error", "error", err)
	}
}

func currentUserID(c echo.Context) (uint, error) {
	own, err := currentOwner(c)
	if err != nil {
		return 0, err
	}
	userID, ok := own.UserID()
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	return userID, nil
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ord, err := h.Svc.CreateFromCart(ctx, userID, req.BillingAddress.Address(), req.ShippingAddress.Address(), req.PaymentMethod)
	if err != nil {
		var invalid *order.CartInvalidError
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			l.Warn("checkout_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		case errors.As(err, &invalid):
			l.Warn("checkout_error", "status", 422, "problems", invalid.Problems)
			return c.JSON(http.StatusUnprocessableEntity, transport.ProblemsResponse{
				Valid:    false,
				Problems: invalid.Problems,
			})
		default:
			l.Error("checkout_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	h.publish(c, "order_created", ord)
	l.Info("order_created", "number", ord.Number, "user_id", userID)
	return c.JSON(http.StatusCreated, ord)
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, total, err := h.Svc.List(ctx, userID, offset, limit)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	orderID, err := paramID(c)
	if err != nil {
		return err
	}

	ord, err := h.Svc.Get(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("get_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	orderID, err := paramID(c)
	if err != nil {
		return err
	}

	// ownership check before the transition
	if _, err := h.Svc.Get(ctx, userID, orderID); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("cancel_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	ord, err := h.Svc.Cancel(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			l.Warn("cancel_order_error", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		l.Error("cancel_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, "order_cancelled", ord)
	l.Info("order_cancelled", "number", ord.Number)
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) MarkAsPaid(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.mark_paid")

	orderID, err := paramID(c)
	if err != nil {
		return err
	}

	var req transport.MarkPaidRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ord, err := h.transition(c, l, func() (*models.Order, error) {
		return h.Svc.MarkAsPaid(ctx, orderID, req.PaymentID)
	})
	if err != nil {
		return err
	}

	h.publish(c, "order_status_changed", ord)
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) MarkAsShipped(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.mark_shipped")

	orderID, err := paramID(c)
	if err != nil {
		return err
	}

	ord, err := h.transition(c, l, func() (*models.Order, error) {
		return h.Svc.MarkAsShipped(ctx, orderID)
	})
	if err != nil {
		return err
	}

	h.publish(c, "order_status_changed", ord)
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) MarkAsDelivered(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.mark_delivered")

	orderID, err := paramID(c)
	if err != nil {
		return err
	}

	ord, err := h.transition(c, l, func() (*models.Order, error) {
		return h.Svc.MarkAsDelivered(ctx, orderID)
	})
	if err != nil {
		return err
	}

	h.publish(c, "order_status_changed", ord)
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHTTP) transition(c echo.Context, l *slog.Logger, fn func() (*models.Order, error)) (*models.Order, error) {
	ord, err := fn()
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			l.Warn("order_transition_error", "status", 409, "error", err)
			return nil, echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			l.Error("order_transition_error", "status", 500, "error", err)
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}
	return ord, nil
}
