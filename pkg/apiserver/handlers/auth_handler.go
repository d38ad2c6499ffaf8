package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fibertrack/fibertrack/pkg/auth"
	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

type AuthHandler struct {
	db     *postgres.Store
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthHandler(db *postgres.Store, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	var user model.User
	err := h.db.DB().WithContext(c.Request.Context()).
		First(&user, "email = ? AND active = true", req.Email).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			h.logger.Error("failed to load user", zap.Error(err))
		}
		// One generic answer for unknown user and bad password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.logger.Warn("failed login attempt",
			zap.String("email", req.Email),
			zap.String("tenant_id", user.TenantID.String()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(&user)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokens.TTL()).UTC().Format(timeRFC3339Nano),
		TenantID:  user.TenantID.String(),
		UserID:    user.ID.String(),
		Role:      string(user.Role),
	})
}
