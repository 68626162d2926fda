package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storefront-go/storefront/internal/logging"
	authmw "github.com/storefront-go/storefront/internal/middleware/auth"
	"github.com/storefront-go/storefront/internal/owner"
	"github.com/storefront-go/storefront/internal/service/cart"
	"github.com/storefront-go/storefront/internal/transport"
)

type CartHTTP struct {
	Svc *cart.Service
}

func currentOwner(c echo.Context) (owner.Owner, error) {
	own, ok := authmw.CurrentOwner(c)
	if !ok {
		return owner.Owner{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return own, nil
}

func paramID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (h *CartHTTP) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.summary")

	own, err := currentOwner(c)
	if err != nil {
		return err
	}

	sum, err := h.Svc.Summary(ctx, own)
	if err != nil {
		l.Error("cart_summary_error", "owner", own.String(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, transport.NewSummaryResponse(sum))
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	own, err := currentOwner(c)
	if err != nil {
		return err
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	line, err := h.Svc.AddItem(ctx, own, req.ProductID, req.Quantity, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrNotFound):
			l.Warn("add_item_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		case errors.Is(err, cart.ErrProductUnavailable):
			l.Warn("add_item_error", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, cart.ErrValidation):
			l.Warn("add_item_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("add_item_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("item_added", "owner", own.String(), "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusCreated, line)
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	own, err := currentOwner(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_quantity_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	line, err := h.Svc.UpdateQuantity(ctx, own, lineID, req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			l.Warn("update_quantity_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "cart line not found")
		}
		l.Error("update_quantity_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if line == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	own, err := currentOwner(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Remove(ctx, own, lineID); err != nil {
		l.Error("remove_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	own, err := currentOwner(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Clear(ctx, own); err != nil {
		l.Error("clear_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("cart_cleared", "owner", own.String())
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Validate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.validate")

	own, err := currentOwner(c)
	if err != nil {
		return err
	}

	problems, err := h.Svc.Validate(ctx, own)
	if err != nil {
		l.Error("validate_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, transport.ProblemsResponse{
		Valid:    len(problems) == 0,
		Problems: problems,
	})
}
