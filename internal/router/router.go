package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrofin/internal/auth"
	"agrofin/internal/domain"
	"agrofin/internal/handler"
	"agrofin/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	PDF      *handler.PDFHandler
	Account  *handler.AccountHandler
	Supplier *handler.SupplierHandler
	Health   *handler.HealthHandler
	// Metrics serves /metrics. Nil disables the endpoint.
	Metrics http.Handler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	tokens auth.TokenService,
	h Handlers,
	allowedOrigins []string,
	log *zap.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := r.Group("/api/v1")

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	// Invoice processing
	pdf := protected.Group("/pdf")
	pdf.POST("/upload", h.PDF.Upload)
	pdf.GET("/health", h.PDF.Health)

	// Payable accounts
	accounts := protected.Group("/accounts")
	accounts.POST("", h.Account.Create)
	accounts.GET("", h.Account.List)
	accounts.GET("/export", h.Account.Export)
	accounts.GET("/:id", h.Account.Get)
	protected.GET("/extraction-logs", h.Account.ListLogs)

	// Suppliers
	suppliers := protected.Group("/suppliers")
	suppliers.POST("", h.Supplier.Create)
	suppliers.GET("", h.Supplier.List)
	suppliers.GET("/search", h.Supplier.Search)
	suppliers.GET("/tax-id/*cnpj", h.Supplier.GetByTaxID)
	suppliers.GET("/:id", h.Supplier.Get)
	suppliers.PUT("/:id", h.Supplier.Update)
	suppliers.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin), h.Supplier.Delete)
	suppliers.PATCH("/:id/reactivate", middleware.RequireRole(domain.RoleAdmin), h.Supplier.Reactivate)

	return r
}
