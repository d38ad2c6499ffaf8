package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

type PlanHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewPlanHandler(db *postgres.Store, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{db: db, logger: logger}
}

type planRequest struct {
	Name          string `json:"name" binding:"required"`
	DownloadSpeed int    `json:"download_speed" binding:"required"`
	UploadSpeed   int    `json:"upload_speed" binding:"required"`
	DataLimitGB   *int   `json:"data_limit_gb"`
	PriceCents    int64  `json:"price_cents" binding:"required"`
}

func (h *PlanHandler) List(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	query := h.db.DB().WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID)
	if c.Query("active") == "true" {
		query = query.Where("active = true")
	}

	var plans []model.Plan
	if err := query.Order("price_cents").Find(&plans).Error; err != nil {
		h.logger.Error("failed to list plans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *PlanHandler) Create(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.DownloadSpeed <= 0 || req.UploadSpeed <= 0 || req.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "speeds must be positive and price non-negative"})
		return
	}

	plan := &model.Plan{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Name:          req.Name,
		DownloadSpeed: req.DownloadSpeed,
		UploadSpeed:   req.UploadSpeed,
		DataLimitGB:   req.DataLimitGB,
		PriceCents:    req.PriceCents,
		Active:        true,
	}
	if err := h.db.DB().WithContext(c.Request.Context()).Create(plan).Error; err != nil {
		h.logger.Error("failed to create plan", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create plan"})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) Update(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	var req struct {
		Name          *string `json:"name"`
		DownloadSpeed *int    `json:"download_speed"`
		UploadSpeed   *int    `json:"upload_speed"`
		DataLimitGB   *int    `json:"data_limit_gb"`
		PriceCents    *int64  `json:"price_cents"`
		Active        *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.DownloadSpeed != nil {
		updates["download_speed"] = *req.DownloadSpeed
	}
	if req.UploadSpeed != nil {
		updates["upload_speed"] = *req.UploadSpeed
	}
	if req.DataLimitGB != nil {
		updates["data_limit_gb"] = *req.DataLimitGB
	}
	if req.PriceCents != nil {
		updates["price_cents"] = *req.PriceCents
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	result := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.Plan{}).
		Where("id = ? AND tenant_id = ?", planID, tenantID).
		Updates(updates)
	if result.Error != nil {
		h.logger.Error("failed to update plan", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update plan"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Delete soft-deletes a plan; customers keep their plan_id reference so
// billing history stays intact.
func (h *PlanHandler) Delete(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	result := h.db.DB().WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", planID, tenantID).
		Delete(&model.Plan{})
	if result.Error != nil {
		h.logger.Error("failed to delete plan", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete plan"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
