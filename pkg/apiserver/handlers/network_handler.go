package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/geo"
	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/network"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
)

// NetworkHandler serves the FTTH topology surface: cabinet and group CRUD,
// the port grid, nearest-cabinet search, and customer assignment.
type NetworkHandler struct {
	svc    *network.Service
	repo   *postgres.NetworkRepository
	logger *zap.Logger
}

func NewNetworkHandler(svc *network.Service, repo *postgres.NetworkRepository, logger *zap.Logger) *NetworkHandler {
	return &NetworkHandler{svc: svc, repo: repo, logger: logger}
}

type cabinetCreateRequest struct {
	Name       string     `json:"name" binding:"required"`
	Address    string     `json:"address"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	TotalPorts int        `json:"total_ports" binding:"required"`
	GroupID    *uuid.UUID `json:"group_id"`
}

type cabinetUpdateRequest struct {
	Name      *string    `json:"name"`
	Address   *string    `json:"address"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	GroupID   *uuid.UUID `json:"group_id"`
}

type groupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
}

type cabinetResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	TotalPorts int            `json:"total_ports"`
	UsedPorts  int            `json:"used_ports"`
	FreePorts  int            `json:"free_ports"`
	Group      *groupResponse `json:"group,omitempty"`
}

func mapCabinet(cabinet *model.Cabinet) cabinetResponse {
	response := cabinetResponse{
		ID:         cabinet.ID.String(),
		Name:       cabinet.Name,
		Address:    cabinet.Address,
		Latitude:   cabinet.Latitude,
		Longitude:  cabinet.Longitude,
		TotalPorts: cabinet.TotalPorts,
		UsedPorts:  cabinet.UsedPorts,
		FreePorts:  cabinet.FreePorts(),
	}
	if cabinet.Group != nil {
		response.Group = &groupResponse{
			ID:          cabinet.Group.ID.String(),
			Name:        cabinet.Group.Name,
			Description: cabinet.Group.Description,
			Color:       cabinet.Group.Color,
		}
	}
	return response
}

func (h *NetworkHandler) ListCabinets(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	cabinets, err := h.repo.ListCabinets(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list cabinets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cabinets"})
		return
	}

	response := make([]cabinetResponse, 0, len(cabinets))
	for i := range cabinets {
		response = append(response, mapCabinet(&cabinets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"cabinets": response, "total": len(response)})
}

func (h *NetworkHandler) CreateCabinet(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req cabinetCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	coord := geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coord.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TotalPorts <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_ports must be positive"})
		return
	}

	cabinet := &model.Cabinet{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       req.Name,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		TotalPorts: req.TotalPorts,
		GroupID:    req.GroupID,
	}

	if err := h.repo.CreateCabinet(c.Request.Context(), cabinet); err != nil {
		h.logger.Error("failed to create cabinet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create cabinet"})
		return
	}

	c.JSON(http.StatusCreated, mapCabinet(cabinet))
}

func (h *NetworkHandler) GetCabinet(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	cabinetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cabinet id"})
		return
	}

	cabinet, err := h.repo.GetCabinet(c.Request.Context(), tenantID, cabinetID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, mapCabinet(cabinet))
}

func (h *NetworkHandler) UpdateCabinet(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	cabinetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cabinet id"})
		return
	}

	var req cabinetUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
			return
		}
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Latitude != nil || req.Longitude != nil {
		if req.Latitude == nil || req.Longitude == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be updated together"})
			return
		}
		coord := geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if err := coord.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updates["latitude"] = *req.Latitude
		updates["longitude"] = *req.Longitude
	}
	if req.GroupID != nil {
		updates["group_id"] = *req.GroupID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.repo.UpdateCabinet(c.Request.Context(), tenantID, cabinetID, updates); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *NetworkHandler) DeleteCabinet(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	cabinetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cabinet id"})
		return
	}

	if err := h.repo.DeleteCabinet(c.Request.Context(), tenantID, cabinetID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type resizeRequest struct {
	TotalPorts int `json:"total_ports" binding:"required"`
}

func (h *NetworkHandler) ResizeCabinet(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	cabinetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cabinet id"})
		return
	}

	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalPorts <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_ports must be positive"})
		return
	}

	if err := h.svc.ResizeCabinet(c.Request.Context(), tenantID, cabinetID, req.TotalPorts); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resized", "total_ports": req.TotalPorts})
}

func (h *NetworkHandler) PortStatuses(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	cabinetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cabinet id"})
		return
	}

	statuses, err := h.svc.PortStatuses(c.Request.Context(), tenantID, cabinetID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ports": statuses})
}

func parseCoordinateQuery(c *gin.Context) (geo.Coordinate, bool) {
	var query struct {
		Latitude  *float64 `form:"lat" binding:"required"`
		Longitude *float64 `form:"lng" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Latitude: *query.Latitude, Longitude: *query.Longitude}, true
}

// NearestAvailable is the read-only "find nearest CTO" lookup used by the
// customer screens. It never reserves a port.
func (h *NetworkHandler) NearestAvailable(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	coord, ok := parseCoordinateQuery(c)
	if !ok {
		return
	}

	candidate, err := h.svc.FindNearestAvailable(c.Request.Context(), tenantID, coord)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":           true,
		"cabinet":         mapCabinet(&candidate.Cabinet),
		"distance_meters": candidate.Distance,
	})
}

type assignRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (h *NetworkHandler) AssignCustomer(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	coord := geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	assignment, err := h.svc.AssignCustomer(c.Request.Context(), tenantID, customerID, coord)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cabinet":         mapCabinet(&assignment.Cabinet),
		"port_number":     assignment.PortNumber,
		"distance_meters": assignment.Distance,
	})
}

func (h *NetworkHandler) ReleaseCustomer(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	if err := h.svc.ReleaseCustomer(c.Request.Context(), tenantID, customerID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// ---- cabinet groups ----

type groupCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color" binding:"required"`
}

func (h *NetworkHandler) ListGroups(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	groups, err := h.repo.ListGroups(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list cabinet groups", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cabinet groups"})
		return
	}

	response := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		response = append(response, groupResponse{
			ID:          group.ID.String(),
			Name:        group.Name,
			Description: group.Description,
			Color:       group.Color,
		})
	}
	c.JSON(http.StatusOK, gin.H{"groups": response})
}

func (h *NetworkHandler) CreateGroup(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req groupCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	group := &model.CabinetGroup{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}
	if err := h.repo.CreateGroup(c.Request.Context(), group); err != nil {
		h.logger.Error("failed to create cabinet group", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create cabinet group"})
		return
	}
	c.JSON(http.StatusCreated, groupResponse{
		ID:          group.ID.String(),
		Name:        group.Name,
		Description: group.Description,
		Color:       group.Color,
	})
}

func (h *NetworkHandler) UpdateGroup(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Color       *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.repo.UpdateGroup(c.Request.Context(), tenantID, groupID, updates); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *NetworkHandler) DeleteGroup(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	if err := h.repo.DeleteGroup(c.Request.Context(), tenantID, groupID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---- map location ----

type mapLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Zoom      int      `json:"zoom"`
}

func (h *NetworkHandler) LastMapLocation(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	location, err := h.repo.LastMapLocation(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load map location", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load map location"})
		return
	}
	if location == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no saved location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"latitude":  location.Latitude,
		"longitude": location.Longitude,
		"zoom":      location.Zoom,
	})
}

func (h *NetworkHandler) SaveMapLocation(c *gin.Context) {
	tenantID, ok := mustTenant(c)
	if !ok {
		return
	}

	var req mapLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	coord := geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := coord.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zoom := req.Zoom
	if zoom <= 0 {
		zoom = 13
	}

	location := &model.MapLocation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Zoom:      zoom,
	}
	if err := h.repo.SaveMapLocation(c.Request.Context(), location); err != nil {
		h.logger.Error("failed to save map location", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save map location"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
