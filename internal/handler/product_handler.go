package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"daanseva/internal/models"
	"daanseva/internal/pkg/utils"
	"daanseva/internal/repository"
)

// ProductHandler serves the merchandise browse and admin CRUD endpoints.
type ProductHandler struct {
	products *repository.ProductRepository
	logger   *zap.Logger
}

func NewProductHandler(products *repository.ProductRepository, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// List returns active products.
// GET /api/products
func (h *ProductHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("all") == ""
	products, err := h.products.FindAll(c.Request().Context(), activeOnly)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list products")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"products": products})
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Stock       *int64 `json:"stock"`
	Active      *bool  `json:"active"`
}

// Create creates a product.
// POST /api/products (admin)
func (h *ProductHandler) Create(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil || req.Name == "" || req.Price <= 0 {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "name and positive price are required")
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	var stock int64
	if req.Stock != nil {
		stock = *req.Stock
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	product := &models.Product{
		ID:          utils.GenerateUUID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    currency,
		Stock:       stock,
		Active:      active,
	}
	if err := h.products.Create(c.Request().Context(), product); err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create product")
	}

	return c.JSON(http.StatusCreated, product)
}

// Update updates product fields.
// PUT /api/products/:id (admin)
func (h *ProductHandler) Update(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Price > 0 {
		updates["price"] = req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "nothing to update")
	}

	if err := h.products.Update(c.Request().Context(), c.Param("id"), updates); err != nil {
		h.logger.Error("failed to update product", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update product")
	}

	product, err := h.products.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "NOT_FOUND", "product not found")
		}
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load product")
	}
	return c.JSON(http.StatusOK, product)
}
