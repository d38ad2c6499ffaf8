package apiserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/auth"
	"github.com/fibertrack/fibertrack/pkg/config"
	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/network"
)

const testSecret = "server-test-secret"

func newTestServer(t *testing.T, store *network.MemoryStore) *Server {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
	}
	svc := network.NewService(store, nil, zap.NewNop())
	return NewServer(nil, nil, svc, nil, cfg, zap.NewNop())
}

func mintToken(t *testing.T, tenantID uuid.UUID) string {
	t.Helper()
	tokens := auth.NewTokenManager([]byte(testSecret), time.Hour)
	token, err := tokens.Generate(&model.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    "ops@example.com",
		Role:     model.RoleOperator,
	})
	require.NoError(t, err)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, network.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNearestCabinetRequiresAuth(t *testing.T) {
	server := newTestServer(t, network.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nearest-cabinet?lat=1&lng=1", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNearestCabinetEndpoint(t *testing.T) {
	tenantID := uuid.New()
	store := network.NewMemoryStore()
	store.AddCabinet(model.Cabinet{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       "CTO-01",
		Latitude:   -23.5505,
		Longitude:  -46.6333,
		TotalPorts: 8,
	})
	server := newTestServer(t, store)
	token := mintToken(t, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nearest-cabinet?lat=-23.5510&lng=-46.6330", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Found   bool `json:"found"`
		Cabinet struct {
			Name      string `json:"name"`
			FreePorts int    `json:"free_ports"`
		} `json:"cabinet"`
		DistanceMeters float64 `json:"distance_meters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Found)
	assert.Equal(t, "CTO-01", body.Cabinet.Name)
	assert.Equal(t, 8, body.Cabinet.FreePorts)
	assert.Greater(t, body.DistanceMeters, 0.0)
	assert.Less(t, body.DistanceMeters, 200.0)
}

func TestNearestCabinetNoneAvailable(t *testing.T) {
	tenantID := uuid.New()
	server := newTestServer(t, network.NewMemoryStore())
	token := mintToken(t, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nearest-cabinet?lat=0&lng=0", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["found"])
}

func TestNearestCabinetRejectsMissingParams(t *testing.T) {
	tenantID := uuid.New()
	server := newTestServer(t, network.NewMemoryStore())
	token := mintToken(t, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nearest-cabinet?lat=1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignAndReleaseOverHTTP(t *testing.T) {
	tenantID := uuid.New()
	cabinetID := uuid.New()
	store := network.NewMemoryStore()
	store.AddCabinet(model.Cabinet{
		ID:         cabinetID,
		TenantID:   tenantID,
		Name:       "CTO-02",
		Latitude:   10,
		Longitude:  10,
		TotalPorts: 4,
	})
	server := newTestServer(t, store)
	token := mintToken(t, tenantID)
	customerID := uuid.New()

	assignBody := `{"latitude": 10.001, "longitude": 10.001}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/customers/%s/cabinet", customerID),
		strings.NewReader(assignBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var assigned struct {
		PortNumber int `json:"port_number"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assigned))
	assert.Equal(t, 1, assigned.PortNumber)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/api/v1/customers/%s/cabinet", customerID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.UsedPortsTotal(tenantID))
}

func TestPortGridEndpoint(t *testing.T) {
	tenantID := uuid.New()
	cabinetID := uuid.New()
	store := network.NewMemoryStore()
	store.AddCabinet(model.Cabinet{
		ID:         cabinetID,
		TenantID:   tenantID,
		Name:       "CTO-03",
		Latitude:   20,
		Longitude:  20,
		TotalPorts: 3,
	})
	server := newTestServer(t, store)
	token := mintToken(t, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/cabinets/%s/ports", cabinetID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Ports []struct {
			PortNumber int    `json:"port_number"`
			Status     string `json:"status"`
		} `json:"ports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Ports, 3)
	for i, port := range body.Ports {
		assert.Equal(t, i+1, port.PortNumber)
		assert.Equal(t, "free", port.Status)
	}
}

func TestCrossTenantCabinetRejected(t *testing.T) {
	ownerTenant := uuid.New()
	cabinetID := uuid.New()
	store := network.NewMemoryStore()
	store.AddCabinet(model.Cabinet{
		ID:         cabinetID,
		TenantID:   ownerTenant,
		Latitude:   1,
		Longitude:  1,
		TotalPorts: 4,
	})
	server := newTestServer(t, store)
	otherToken := mintToken(t, uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/cabinets/%s/ports", cabinetID), nil)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRejectsGarbageToken(t *testing.T) {
	server := newTestServer(t, network.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nearest-cabinet?lat=1&lng=1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
