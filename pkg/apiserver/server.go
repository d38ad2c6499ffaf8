package apiserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/apiserver/handlers"
	"github.com/fibertrack/fibertrack/pkg/apiserver/middleware"
	"github.com/fibertrack/fibertrack/pkg/auth"
	"github.com/fibertrack/fibertrack/pkg/config"
	"github.com/fibertrack/fibertrack/pkg/geocode"
	"github.com/fibertrack/fibertrack/pkg/model"
	"github.com/fibertrack/fibertrack/pkg/network"
	"github.com/fibertrack/fibertrack/pkg/quota"
	"github.com/fibertrack/fibertrack/pkg/store/postgres"
	redisclient "github.com/fibertrack/fibertrack/pkg/store/redis"
)

type Server struct {
	router   *gin.Engine
	db       *postgres.Store
	redis    *redisclient.Client
	netSvc   *network.Service
	geocoder *geocode.Client
	cfg      *config.Config
	logger   *zap.Logger
}

// NewServer wires the HTTP surface. db and geocoder may be nil in tests;
// routes that need them are simply not registered.
func NewServer(db *postgres.Store, redis *redisclient.Client, netSvc *network.Service, geocoder *geocode.Client, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		db:       db,
		redis:    redis,
		netSvc:   netSvc,
		geocoder: geocoder,
		cfg:      cfg,
		logger:   logger,
	}
	s.setupRouter()

	if db != nil {
		go s.startOverdueSweep()
	}

	return s
}

// startOverdueSweep flips pending invoices past their due date to overdue
// once an hour, for every tenant.
func (s *Server) startOverdueSweep() {
	ticker := time.NewTicker(1 * time.Hour)

	for range ticker.C {
		result := s.db.DB().
			Model(&model.Invoice{}).
			Where("status = ? AND due_date < ?", model.InvoicePending, time.Now().UTC()).
			Update("status", model.InvoiceOverdue)
		if result.Error != nil {
			s.logger.Error("overdue sweep failed", zap.Error(result.Error))
			continue
		}
		if result.RowsAffected > 0 {
			s.logger.Info("marked invoices overdue", zap.Int64("count", result.RowsAffected))
		}
	}
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		if s.redis != nil && !s.redis.Healthy(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tokens := auth.NewTokenManager([]byte(s.cfg.Auth.JWTSecret), s.cfg.Auth.TokenTTL)

	var repo *postgres.NetworkRepository
	if s.db != nil {
		repo = postgres.NewNetworkRepository(s.db.DB())
		authHandler := handlers.NewAuthHandler(s.db, tokens, s.logger)
		r.POST("/api/v1/auth/login", authHandler.Login)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(tokens))
	{
		networkHandler := handlers.NewNetworkHandler(s.netSvc, repo, s.logger)
		api.GET("/nearest-cabinet", networkHandler.NearestAvailable)
		api.GET("/cabinets/:id/ports", networkHandler.PortStatuses)
		api.PUT("/cabinets/:id/capacity", networkHandler.ResizeCabinet)
		api.POST("/customers/:id/cabinet", networkHandler.AssignCustomer)
		api.DELETE("/customers/:id/cabinet", networkHandler.ReleaseCustomer)

		if repo != nil {
			api.GET("/cabinets", networkHandler.ListCabinets)
			api.POST("/cabinets", networkHandler.CreateCabinet)
			api.GET("/cabinets/:id", networkHandler.GetCabinet)
			api.PUT("/cabinets/:id", networkHandler.UpdateCabinet)
			api.DELETE("/cabinets/:id", networkHandler.DeleteCabinet)

			api.GET("/cabinet-groups", networkHandler.ListGroups)
			api.POST("/cabinet-groups", networkHandler.CreateGroup)
			api.PUT("/cabinet-groups/:id", networkHandler.UpdateGroup)
			api.DELETE("/cabinet-groups/:id", networkHandler.DeleteGroup)

			api.GET("/map/location", networkHandler.LastMapLocation)
			api.PUT("/map/location", networkHandler.SaveMapLocation)

			quotas := quota.NewManager(s.db.DB())
			customerHandler := handlers.NewCustomerHandler(s.db, s.netSvc, quotas, s.logger)
			api.GET("/customers", customerHandler.List)
			api.POST("/customers", customerHandler.Create)
			api.GET("/customers/:id", customerHandler.Get)
			api.PUT("/customers/:id", customerHandler.Update)
			api.DELETE("/customers/:id", customerHandler.Delete)

			planHandler := handlers.NewPlanHandler(s.db, s.logger)
			api.GET("/plans", planHandler.List)
			api.POST("/plans", planHandler.Create)
			api.PUT("/plans/:id", planHandler.Update)
			api.DELETE("/plans/:id", planHandler.Delete)

			billingHandler := handlers.NewBillingHandler(s.db, s.logger)
			api.GET("/invoices", billingHandler.ListInvoices)
			api.POST("/invoices", billingHandler.CreateInvoice)
			api.POST("/invoices/:id/pay", billingHandler.PayInvoice)
			api.POST("/invoices/:id/cancel", billingHandler.CancelInvoice)

			inventoryHandler := handlers.NewInventoryHandler(s.db, s.logger)
			api.GET("/inventory/items", inventoryHandler.ListItems)
			api.POST("/inventory/items", inventoryHandler.CreateItem)
			api.DELETE("/inventory/items/:id", inventoryHandler.DeleteItem)
			api.GET("/inventory/items/:id/transactions", inventoryHandler.ListTransactions)
			api.POST("/inventory/items/:id/transactions", inventoryHandler.RecordTransaction)

			tenantHandler := handlers.NewTenantHandler(s.db, quotas, s.logger)
			api.GET("/tenant", tenantHandler.Current)
			api.GET("/tenant/quota", tenantHandler.Quota)

			admin := api.Group("")
			admin.Use(middleware.RequireAdmin())
			admin.PUT("/tenant", tenantHandler.Update)
			admin.GET("/users", tenantHandler.ListUsers)
			admin.POST("/users", tenantHandler.CreateUser)
			admin.DELETE("/users/:id", tenantHandler.DeactivateUser)
			admin.POST("/billing/mark-overdue", billingHandler.MarkOverdue)
		}

		if s.geocoder != nil {
			geocodeHandler := handlers.NewGeocodeHandler(s.geocoder, s.logger)
			api.GET("/geocode/cep/:cep", geocodeHandler.LookupCEP)
			api.GET("/geocode/search", geocodeHandler.Geocode)
		}
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
