package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/auth"
	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/quota"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

// TenantHandler is the admin-only surface for the tenant's own record and
// its operator accounts.
type TenantHandler struct {
	db     *postgres.Store
	quotas *quota.Manager
	logger *zap.Logger
}

func NewTenantHandler(db *postgres.Store, quotas *quota.Manager, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{db: db, quotas: quotas, logger: logger}
}

func (h *TenantHandler) Quota(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	usage, err := h.quotas.Usage(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load quota usage", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load quota usage"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *TenantHandler) Current(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var tenant model.Tenant
	err := h.db.DB().WithContext(c.Request.Context()).
		First(&tenant, "id = ?", tenantID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		} else {
			h.logger.Error("failed to load tenant", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tenant"})
		}
		return
	}

	var customerCount int64
	if err := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.Customer{}).
		Where("tenant_id = ?", tenantID).
		Count(&customerCount).Error; err != nil {
		h.logger.Error("failed to count customers", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":         tenant,
		"customer_count": customerCount,
	})
}

func (h *TenantHandler) Update(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req struct {
		Name         *string `json:"name"`
		LegalName    *string `json:"legal_name"`
		ContactEmail *string `json:"contact_email"`
		ContactPhone *string `json:"contact_phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.LegalName != nil {
		updates["legal_name"] = *req.LegalName
	}
	if req.ContactEmail != nil {
		updates["contact_email"] = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		updates["contact_phone"] = *req.ContactPhone
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	err := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.Tenant{}).
		Where("id = ?", tenantID).
		Updates(updates).Error
	if err != nil {
		h.logger.Error("failed to update tenant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tenant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *TenantHandler) ListUsers(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var users []model.User
	err := h.db.DB().WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Order("email").
		Find(&users).Error
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type userCreateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func (h *TenantHandler) CreateUser(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req userCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	role := model.UserRole(req.Role)
	if role == "" {
		role = model.RoleOperator
	}
	if role != model.RoleAdmin && role != model.RoleOperator {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or operator"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := &model.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := h.db.DB().WithContext(c.Request.Context()).Create(user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *TenantHandler) DeactivateUser(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	result := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.User{}).
		Where("id = ? AND tenant_id = ?", userID, tenantID).
		Update("active", false)
	if result.Error != nil {
		h.logger.Error("failed to deactivate user", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
