package handler

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mfurukawa/dellwatch/internal/repository"
	"github.com/mfurukawa/dellwatch/internal/utils"
)

// ProductHandler handles product browsing endpoints over cached crawl data.
type ProductHandler struct {
	products *repository.ProductRepository
	history  *repository.PriceHistoryRepository
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products *repository.ProductRepository, history *repository.PriceHistoryRepository) *ProductHandler {
	return &ProductHandler{products: products, history: history}
}

// GetProducts returns all cached products plus the distinct name list used
// by the product picker. Names that vary only in whitespace come back as
// separate entries, exactly as stored.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.products.GetAll()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get products")
		return
	}
	names, err := h.products.GetNames()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get product names")
		return
	}

	utils.Success(c, 200, "Products retrieved successfully", gin.H{
		"products": products,
		"names":    names,
	})
}

// GetModels returns the model identifiers observed for one display name.
func (h *ProductHandler) GetModels(c *gin.Context) {
	name := c.Param("name")

	ms, err := h.products.GetModelsByName(name)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get models")
		return
	}

	utils.Success(c, 200, "Models retrieved successfully", gin.H{
		"models": ms,
	})
}

// GetPriceTrend returns the full price series and detail URL for one
// (name, model) pair.
func (h *ProductHandler) GetPriceTrend(c *gin.Context) {
	name := c.Param("name")
	model := c.Param("model")

	orderCode, err := h.products.ResolveOrderCode(name, model)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "NOT_FOUND", "No order code found for product")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to resolve order code")
		return
	}

	trend, err := h.history.GetTrend(orderCode)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get price trend")
		return
	}

	product, err := h.products.GetByOrderCode(orderCode)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get product")
		return
	}

	utils.Success(c, 200, "Price trend retrieved successfully", gin.H{
		"orderCode": orderCode,
		"prices":    trend,
		"url":       product.URL,
	})
}
