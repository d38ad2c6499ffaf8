package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

type InventoryHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewInventoryHandler(db *postgres.Store, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{db: db, logger: logger}
}

type itemCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Quantity int    `json:"quantity"`
	MinStock int    `json:"min_stock"`
}

func (h *InventoryHandler) ListItems(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	query := h.db.DB().WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("low_stock") == "true" {
		query = query.Where("quantity < min_stock")
	}

	var items []model.InventoryItem
	if err := query.Order("name").Find(&items).Error; err != nil {
		h.logger.Error("failed to list inventory items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list inventory items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req itemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.Quantity < 0 || req.MinStock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity and min_stock must be non-negative"})
		return
	}

	unit := req.Unit
	if unit == "" {
		unit = "un"
	}
	item := &model.InventoryItem{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     req.Name,
		Category: req.Category,
		Unit:     unit,
		Quantity: req.Quantity,
		MinStock: req.MinStock,
	}
	if err := h.db.DB().WithContext(c.Request.Context()).Create(item).Error; err != nil {
		h.logger.Error("failed to create inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create inventory item"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	result := h.db.DB().WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", itemID, tenantID).
		Delete(&model.InventoryItem{})
	if result.Error != nil {
		h.logger.Error("failed to delete inventory item", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete inventory item"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type stockRequest struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

// RecordTransaction posts a stock movement and adjusts the item quantity
// in the same transaction. Outgoing movements are refused when they would
// drive the quantity negative; the conditional update is the guard, so
// concurrent checkouts cannot both drain the last unit.
func (h *InventoryHandler) RecordTransaction(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and a positive quantity are required"})
		return
	}
	txType := model.StockTransactionType(req.Type)
	if txType != model.StockIn && txType != model.StockOut {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be in or out"})
		return
	}

	var insufficient bool
	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&model.InventoryItem{}).
			Where("id = ? AND tenant_id = ?", itemID, tenantID)
		if txType == model.StockOut {
			update = update.Where("quantity >= ?", req.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", req.Quantity))
		} else {
			update = update.UpdateColumn("quantity", gorm.Expr("quantity + ?", req.Quantity))
		}
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.InventoryItem{}).
				Where("id = ? AND tenant_id = ?", itemID, tenantID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			insufficient = true
			return gorm.ErrInvalidData
		}

		return tx.Create(&model.StockTransaction{
			ID:       uuid.New(),
			TenantID: tenantID,
			ItemID:   itemID,
			Type:     txType,
			Quantity: req.Quantity,
			Note:     req.Note,
		}).Error
	})
	if err != nil {
		switch {
		case insufficient:
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
		case err == gorm.ErrRecordNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		default:
			h.logger.Error("failed to record stock transaction", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record stock transaction"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	limit := parseLimit(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))

	var transactions []model.StockTransaction
	err = h.db.DB().WithContext(c.Request.Context()).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&transactions).Error
	if err != nil {
		h.logger.Error("failed to list stock transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stock transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
