package app

import (
	"net/http"
	"time"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/auth/credentials"
	"prescripto-auth/internal/auth/handler"
	"prescripto-auth/internal/auth/resolver"
	"prescripto-auth/internal/catalog"
	"prescripto-auth/internal/config"
	"prescripto-auth/internal/middleware"
	"prescripto-auth/internal/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the request-facing dependencies of the router.
type Services struct {
	Credentials handler.CredentialService
	Resolver    resolver.Resolver
	Doctors     catalog.Store
}

func servicesFrom(infra *Infra) Services {
	return Services{
		Credentials: credentials.NewService(infra.DB, credentials.DefaultHasher()),
		Resolver:    resolver.NewDBResolver(infra.DB),
		Doctors:     catalog.NewDBStore(infra.DB),
	}
}

// NewRouter builds the HTTP surface. The signing secret is looked up
// through config.JWTSecret on every request and every issuance.
func NewRouter(cfg config.Config, svc Services) *gin.Engine {

	// ----------------------------
	// Dependencies
	// ----------------------------

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	issuer := token.NewIssuer(config.JWTSecret, cfg.TokenTTL)
	authMiddleware := middleware.NewAuthMiddleware(config.JWTSecret, middleware.NewMetrics(registry))

	authHandler := handler.NewHandler(svc.Credentials, issuer, svc.Resolver)
	doctorHandler := catalog.NewHandler(svc.Doctors)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", auth.TokenHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// ----------------------------
	// Public Routes
	// ----------------------------

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API Working")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	doctorHandler.RegisterRoutes(router)

	// ----------------------------
	// Protected Routes
	// ----------------------------

	protected := router.Group("/")
	protected.Use(middleware.GinRequireAuth(authMiddleware))

	authHandler.RegisterRoutes(router, protected)

	return router
}
