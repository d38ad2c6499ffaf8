package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/network"
	"github.com/fibertrack/fibertrack/pkg/quota"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

type CustomerHandler struct {
	db     *postgres.Store
	svc    *network.Service
	quotas *quota.Manager
	logger *zap.Logger
}

func NewCustomerHandler(db *postgres.Store, svc *network.Service, quotas *quota.Manager, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{db: db, svc: svc, quotas: quotas, logger: logger}
}

type customerCreateRequest struct {
	Type                string        `json:"type"`
	Name                string        `json:"name" binding:"required"`
	TradeName           string        `json:"trade_name"`
	Document            string        `json:"document" binding:"required"`
	StateRegistration   string        `json:"state_registration"`
	Email               string        `json:"email"`
	Phone               string        `json:"phone"`
	ResponsibleName     string        `json:"responsible_name"`
	ResponsibleDocument string        `json:"responsible_document"`
	PlanID              *uuid.UUID    `json:"plan_id"`
	Address             model.Address `json:"address"`
}

func (h *CustomerHandler) List(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	limit := parseLimit(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))

	query := h.db.DB().WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := c.Query("q"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR document ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Model(&model.Customer{}).Count(&total).Error; err != nil {
		h.logger.Error("failed to count customers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list customers"})
		return
	}

	var customers []model.Customer
	err := query.Preload("Plan").
		Order("name").
		Limit(limit).Offset(offset).
		Find(&customers).Error
	if err != nil {
		h.logger.Error("failed to list customers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *CustomerHandler) Create(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req customerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	customerType := model.CustomerType(req.Type)
	if customerType == "" {
		customerType = model.CustomerIndividual
	}
	if customerType != model.CustomerIndividual && customerType != model.CustomerBusiness {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be individual or business"})
		return
	}

	ctx := c.Request.Context()
	if err := h.quotas.AdmitCustomer(ctx, tenantID); err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			c.JSON(http.StatusForbidden, gin.H{"error": "customer limit reached for the current plan"})
			return
		}
		h.logger.Error("failed to check customer quota", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create customer"})
		return
	}

	if req.PlanID != nil {
		var count int64
		err := h.db.DB().WithContext(ctx).Model(&model.Plan{}).
			Where("id = ? AND tenant_id = ?", *req.PlanID, tenantID).
			Count(&count).Error
		if err != nil {
			h.logger.Error("failed to check plan", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create customer"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "plan not found"})
			return
		}
	}

	customer := &model.Customer{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Type:                customerType,
		Name:                req.Name,
		TradeName:           req.TradeName,
		Document:            req.Document,
		StateRegistration:   req.StateRegistration,
		Email:               req.Email,
		Phone:               req.Phone,
		ResponsibleName:     req.ResponsibleName,
		ResponsibleDocument: req.ResponsibleDocument,
		Status:              model.CustomerActive,
		PlanID:              req.PlanID,
		Address:             req.Address,
	}

	if err := h.db.DB().WithContext(ctx).Create(customer).Error; err != nil {
		h.logger.Error("failed to create customer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create customer"})
		return
	}

	c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandler) get(c *gin.Context, tenantID uuid.UUID) (*model.Customer, bool) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return nil, false
	}

	var customer model.Customer
	err = h.db.DB().WithContext(c.Request.Context()).
		Preload("Plan").
		First(&customer, "id = ? AND tenant_id = ?", customerID, tenantID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		} else {
			h.logger.Error("failed to load customer", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		}
		return nil, false
	}
	return &customer, true
}

func (h *CustomerHandler) Get(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	customer, ok := h.get(c, tenantID)
	if !ok {
		return
	}

	assignment, err := h.svc.CurrentAssignment(c.Request.Context(), tenantID, customer.ID)
	if err != nil {
		// Rendering the customer as unassigned on a failed lookup would
		// misrepresent occupancy; fail the request instead.
		h.logger.Error("failed to load cabinet assignment",
			zap.String("customer_id", customer.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		return
	}

	response := gin.H{"customer": customer}
	if assignment != nil {
		response["cabinet_id"] = assignment.CabinetID.String()
		response["port_number"] = assignment.PortNumber
	}
	c.JSON(http.StatusOK, response)
}

type customerUpdateRequest struct {
	Name                *string        `json:"name"`
	TradeName           *string        `json:"trade_name"`
	Email               *string        `json:"email"`
	Phone               *string        `json:"phone"`
	ResponsibleName     *string        `json:"responsible_name"`
	ResponsibleDocument *string        `json:"responsible_document"`
	Status              *string        `json:"status"`
	PlanID              *uuid.UUID     `json:"plan_id"`
	Address             *model.Address `json:"address"`
}

func (h *CustomerHandler) Update(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	customer, ok := h.get(c, tenantID)
	if !ok {
		return
	}

	var req customerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.TradeName != nil {
		updates["trade_name"] = *req.TradeName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.ResponsibleName != nil {
		updates["responsible_name"] = *req.ResponsibleName
	}
	if req.ResponsibleDocument != nil {
		updates["responsible_document"] = *req.ResponsibleDocument
	}
	if req.Status != nil {
		status := model.CustomerStatus(*req.Status)
		switch status {
		case model.CustomerActive, model.CustomerBlocked, model.CustomerCancelled:
			updates["status"] = status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}
	if req.PlanID != nil {
		updates["plan_id"] = *req.PlanID
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	err := h.db.DB().WithContext(c.Request.Context()).
		Model(customer).Updates(updates).Error
	if err != nil {
		h.logger.Error("failed to update customer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update customer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Delete soft-deletes the customer and gives back their cabinet port, if
// they held one.
func (h *CustomerHandler) Delete(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	customer, ok := h.get(c, tenantID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.svc.ReleaseCustomer(ctx, tenantID, customer.ID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	if err := h.db.DB().WithContext(ctx).Delete(customer).Error; err != nil {
		h.logger.Error("failed to delete customer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete customer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
