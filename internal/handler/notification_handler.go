package handler

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mfurukawa/dellwatch/internal/repository"
	"github.com/mfurukawa/dellwatch/internal/utils"
)

// NotificationHandler manages per-product notification preferences.
type NotificationHandler struct {
	products *repository.ProductRepository
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(products *repository.ProductRepository) *NotificationHandler {
	return &NotificationHandler{products: products}
}

// GetSettings returns the order_code → enabled map for every product.
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	settings, err := h.products.GetNotificationSettings()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get notification settings")
		return
	}

	toggles := make(map[string]bool, len(settings))
	for _, s := range settings {
		toggles[s.OrderCode] = s.Enabled
	}

	utils.Success(c, 200, "Notification settings retrieved successfully", gin.H{
		"toggleValues": toggles,
	})
}

type updateSettingRequest struct {
	OrderCode string `json:"orderCode" binding:"required"`
	Enabled   *bool  `json:"enabled" binding:"required"`
}

// UpdateSetting toggles the notification preference for one product.
func (h *NotificationHandler) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "BAD_REQUEST", "orderCode and enabled are required")
		return
	}

	if err := h.products.SetNotificationEnabled(req.OrderCode, *req.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "NOT_FOUND", "Product not found: "+req.OrderCode)
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update notification setting")
		return
	}

	utils.Success(c, 200, "Notification setting updated", gin.H{
		"orderCode": req.OrderCode,
		"enabled":   *req.Enabled,
	})
}
