package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

type BillingHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewBillingHandler(db *postgres.Store, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{db: db, logger: logger}
}

type invoiceCreateRequest struct {
	CustomerID  uuid.UUID `json:"customer_id" binding:"required"`
	AmountCents int64     `json:"amount_cents" binding:"required"`
	DueDate     time.Time `json:"due_date" binding:"required"`
}

func (h *BillingHandler) ListInvoices(c *gin.Context) {
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
	if customer := c.Query("customer_id"); customer != "" {
		customerID, err := uuid.Parse(customer)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
			return
		}
		query = query.Where("customer_id = ?", customerID)
	}

	var total int64
	if err := query.Model(&model.Invoice{}).Count(&total).Error; err != nil {
		h.logger.Error("failed to count invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invoices"})
		return
	}

	var invoices []model.Invoice
	err := query.Preload("Customer").
		Order("due_date DESC").
		Limit(limit).Offset(offset).
		Find(&invoices).Error
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invoices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *BillingHandler) CreateInvoice(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req invoiceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.AmountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		return
	}
	ctx := c.Request.Context()

	var count int64
	err := h.db.DB().WithContext(ctx).Model(&model.Customer{}).
		Where("id = ? AND tenant_id = ?", req.CustomerID, tenantID).
		Count(&count).Error
	if err != nil {
		h.logger.Error("failed to check customer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer not found"})
		return
	}

	invoice := &model.Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CustomerID:  req.CustomerID,
		AmountCents: req.AmountCents,
		DueDate:     req.DueDate,
		Status:      model.InvoicePending,
	}
	if err := h.db.DB().WithContext(ctx).Create(invoice).Error; err != nil {
		h.logger.Error("failed to create invoice", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// PayInvoice marks a pending or overdue invoice as paid. Paying twice is a
// conflict, not an idempotent success, so double postings surface.
func (h *BillingHandler) PayInvoice(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	now := time.Now().UTC()
	result := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status IN ?",
			invoiceID, tenantID, []model.InvoiceStatus{model.InvoicePending, model.InvoiceOverdue}).
		Updates(map[string]interface{}{"status": model.InvoicePaid, "paid_at": now})
	if result.Error != nil {
		h.logger.Error("failed to pay invoice", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to pay invoice"})
		return
	}
	if result.RowsAffected == 0 {
		var invoice model.Invoice
		err := h.db.DB().WithContext(c.Request.Context()).
			First(&invoice, "id = ? AND tenant_id = ?", invoiceID, tenantID).Error
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "invoice is not payable", "status": invoice.Status})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "paid", "paid_at": now.Format(timeRFC3339Nano)})
}

func (h *BillingHandler) CancelInvoice(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	result := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status IN ?",
			invoiceID, tenantID, []model.InvoiceStatus{model.InvoicePending, model.InvoiceOverdue}).
		Update("status", model.InvoiceCancelled)
	if result.Error != nil {
		h.logger.Error("failed to cancel invoice", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel invoice"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "invoice is not cancellable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// MarkOverdue flips pending invoices past their due date to overdue.
// Exposed as an admin action instead of a background job.
func (h *BillingHandler) MarkOverdue(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	result := h.db.DB().WithContext(c.Request.Context()).
		Model(&model.Invoice{}).
		Where("tenant_id = ? AND status = ? AND due_date < ?",
			tenantID, model.InvoicePending, time.Now().UTC()).
		Update("status", model.InvoiceOverdue)
	if result.Error != nil {
		h.logger.Error("failed to mark overdue invoices", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark overdue invoices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": result.RowsAffected})
}
