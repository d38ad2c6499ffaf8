package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/apiserver/middleware"
	"github.com/fibertrack/fibertrack/pkg/geo"
	"github.com/fibertrack/fibertrack/pkg/network"
)

const timeRFC3339Nano = time.RFC3339Nano

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(timeRFC3339Nano)
	return &formatted
}

// mustTenant aborts with 401 when no tenant was resolved by the auth
// middleware. Handlers behind the auth group always find one; this guards
// against routing mistakes.
func mustTenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing tenant context"})
		return uuid.Nil, false
	}
	return tenantID, true
}

// respondDomainError maps the network core's error taxonomy onto HTTP
// statuses. Anything unrecognized is a 500 and gets logged.
func respondDomainError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, network.ErrTenantMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "cabinet belongs to a different tenant"})
	case errors.Is(err, network.ErrCabinetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cabinet not found"})
	case errors.Is(err, network.ErrNoEligibleCabinet):
		c.JSON(http.StatusNotFound, gin.H{"error": "no cabinet with free ports", "found": false})
	case errors.Is(err, network.ErrCapacityBelowUsage):
		c.JSON(http.StatusConflict, gin.H{"error": "new capacity is below current usage"})
	case errors.Is(err, network.ErrInvalidPort):
		c.JSON(http.StatusConflict, gin.H{"error": "port is not reserved"})
	case errors.Is(err, network.ErrCabinetOccupied):
		c.JSON(http.StatusConflict, gin.H{"error": "cabinet has reserved ports"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
