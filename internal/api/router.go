package api

import (
	"travel_tax/internal/config"
	"travel_tax/internal/domain"
	"travel_tax/internal/metrics"
	"travel_tax/internal/middleware"
	"travel_tax/internal/receipts"
	"travel_tax/internal/store"
	"travel_tax/internal/utils"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the router wires into handlers
type Deps struct {
	Config   *config.Config
	Store    *store.Store
	Cache    *utils.Cache // nil disables caching
	Metrics  *metrics.Metrics
	Receipts receipts.Presigner      // nil disables receipt uploads
	Limiter  *middleware.RateLimiter // login limiter; built from config when nil
}

// NewRouter builds the gin engine with every route under cfg.APIPrefix
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), d.Metrics.Middleware())

	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.GET("/healthz", HealthHandler(d.Store))

	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.LoginRatePerMin, cfg.LoginBurst)
	}
	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret, d.Store)
	admin := middleware.AdminOnlyMiddleware()

	v := r.Group(cfg.APIPrefix)

	// Auth routes, mounted under both names
	for _, prefix := range []string{"/auth", "/authentication"} {
		g := v.Group(prefix)
		g.POST("/register", RegisterHandler(d.Store, cfg, d.Metrics))
		g.POST("/login", limiter.Middleware(), LoginHandler(d.Store, cfg, d.Metrics))
	}

	users := v.Group("/users", auth)
	users.GET("", ListUsersHandler(d.Store))
	users.POST("", CreateUserHandler(d.Store, cfg, d.Metrics))
	users.GET("/:id", GetUserHandler(d.Store))
	users.PATCH("/:id", UpdateUserHandler(d.Store))
	users.DELETE("/:id", DeleteUserHandler(d.Store, d.Cache))

	provinces := v.Group("/provinces", auth)
	provinces.GET("", ListProvincesHandler(d.Store, d.Cache))
	provinces.GET("/:id", GetProvinceHandler(d.Store))
	provinces.POST("", admin, CreateProvincesHandler(d.Store, d.Cache))
	provinces.PUT("/:id", admin, ReplaceProvinceHandler(d.Store, d.Cache))
	provinces.PATCH("/:id", admin, UpdateProvinceHandler(d.Store, d.Cache))
	provinces.DELETE("/:id", admin, DeleteProvinceHandler(d.Store, d.Cache))

	selections := v.Group("/profile/selections", auth)
	selections.GET("", ListSelectionsHandler(d.Store))
	selections.POST("", CreateSelectionHandler(d.Store, d.Cache, d.Metrics))
	selections.DELETE("/:id", DeleteSelectionHandler(d.Store, d.Cache))

	registrations := v.Group("/registrations", auth)
	registrations.GET("", ListRegistrationsHandler(d.Store))
	registrations.POST("", CreateRegistrationHandler(d.Store, d.Metrics))
	registrations.POST("/receipts", ReceiptUploadHandler(d.Receipts))
	registrations.GET("/:id", GetRegistrationHandler(d.Store))
	registrations.PUT("/:id", UpdateRegistrationHandler(d.Store))
	registrations.PATCH("/:id", UpdateRegistrationHandler(d.Store))
	registrations.DELETE("/:id", DeleteRegistrationHandler(d.Store))

	secondary := domain.CategorySecondary
	taxes := v.Group("/tax-reductions")
	taxes.GET("", TaxReductionsHandler(d.Store, d.Cache, nil))
	taxes.GET("/secondary", TaxReductionsHandler(d.Store, d.Cache, &secondary))
	taxes.GET("/:category", TaxReductionsHandler(d.Store, d.Cache, nil))

	return r
}
