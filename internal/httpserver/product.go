package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/events"
	"github.com/storefront-go/storefront/internal/logging"
	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/repo"
	"github.com/storefront-go/storefront/internal/service/inventory"
	"github.com/storefront-go/storefront/internal/service/search"
	"github.com/storefront-go/storefront/internal/transport"
	"github.com/storefront-go/storefront/internal/util"
)

type ProductHTTP struct {
	Repo      *repo.GormRepo
	Inventory *inventory.Service
	Producer  *events.Producer
	ES        *elasticsearch.Client
	Index     string
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHTTP) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["product_id"].(string)
	if err := h.Producer.Publish(ctx, events.TopicProducts, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_error", "error", err)
	}
}

func (h *ProductHTTP) syncIndex(c echo.Context, product *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.Index, product); err != nil {
		logging.FromContext(c.Request().Context()).Error("es_index_error", "product_id", product.ID, "error", err)
	}
}

func (h *ProductHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return err
	}

	product, err := h.Repo.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Repo.Products(ctx, offset, limit)
	if err != nil {
		l.Error("list_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product := models.Product{
		Name:              req.Name,
		SKU:               req.SKU,
		Description:       req.Description,
		Image:             req.Image,
		Price:             req.Price,
		SalePrice:         req.SalePrice,
		IsActive:          true,
		ManageStock:       req.ManageStock,
		StockQuantity:     req.StockQuantity,
		InStock:           !req.ManageStock || req.StockQuantity > 0,
		LowStockThreshold: req.LowStockThreshold,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.Repo.CreateProduct(ctx, &product); err != nil {
		l.Error("create_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":       "product_created",
		"product_id": strconv.FormatUint(uint64(product.ID), 10),
		"name":       product.Name,
	})
	h.syncIndex(c, &product)

	l.Info("product_created", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := paramID(c)
	if err != nil {
		return err
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := h.Repo.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	product.Name = req.Name
	product.SKU = req.SKU
	product.Description = req.Description
	product.Image = req.Image
	product.Price = req.Price
	product.SalePrice = req.SalePrice
	product.ManageStock = req.ManageStock
	product.StockQuantity = req.StockQuantity
	product.InStock = !req.ManageStock || req.StockQuantity > 0
	product.LowStockThreshold = req.LowStockThreshold
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.Repo.SaveProduct(ctx, product); err != nil {
		l.Error("update_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":       "product_updated",
		"product_id": strconv.FormatUint(uint64(product.ID), 10),
		"name":       product.Name,
	})
	h.syncIndex(c, product)

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.Repo.DeleteProduct(ctx, id); err != nil {
		l.Error("delete_product_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":       "product_deleted",
		"product_id": strconv.FormatUint(uint64(id), 10),
	})
	if h.ES != nil {
		ctxDel, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := search.DeleteProduct(ctxDel, h.ES, h.Index, id); err != nil {
			l.Error("es_delete_error", "product_id", id, "error", err)
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHTTP) LowStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.low_stock")

	items, err := h.Inventory.LowStock(ctx)
	if err != nil {
		l.Error("low_stock_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, items)
}
