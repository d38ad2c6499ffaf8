package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/geocode"
)

// GeocodeHandler fronts the external ViaCEP and Nominatim lookups used by
// the customer registration screens.
type GeocodeHandler struct {
	client *geocode.Client
	logger *zap.Logger
}

func NewGeocodeHandler(client *geocode.Client, logger *zap.Logger) *GeocodeHandler {
	return &GeocodeHandler{client: client, logger: logger}
}

func (h *GeocodeHandler) LookupCEP(c *gin.Context) {
	if _, ok := mustTenant(c); !ok {
		return
	}

	address, err := h.client.LookupCEP(c.Request.Context(), c.Param("cep"))
	if err != nil {
		switch {
		case errors.Is(err, geocode.ErrInvalidCEP):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, geocode.ErrCEPNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "cep not found"})
		default:
			h.logger.Error("cep lookup failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "address lookup unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cep":          address.CEP,
		"street":       address.Street,
		"complement":   address.Complement,
		"neighborhood": address.Neighborhood,
		"city":         address.City,
		"state":        address.State,
	})
}

func (h *GeocodeHandler) Geocode(c *gin.Context) {
	if _, ok := mustTenant(c); !ok {
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}

	coord, err := h.client.Geocode(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no result for query"})
			return
		}
		h.logger.Error("geocoding failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"latitude":  coord.Latitude,
		"longitude": coord.Longitude,
	})
}
