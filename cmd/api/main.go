package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "saasbackend/api/swagger" // swagger docs
	"saasbackend/internal/config"
	"saasbackend/internal/database"
	"saasbackend/internal/handler"
	"saasbackend/internal/logger"
	"saasbackend/internal/middleware"
	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"
	"saasbackend/internal/service"
	"saasbackend/internal/token"
	"saasbackend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Multi-tenant Access Control API
// @version         1.0
// @description     Token authentication and tenant-scoped role based access control.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	boot := logger.New("info", false)
	cfg, err := config.Load(boot)
	if err != nil {
		boot.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.IsRelease())
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DB.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("connected to PostgreSQL")

	codec, err := token.NewCodec([]byte(cfg.JWT.Secret), cfg.JWT.Algorithm, time.Duration(cfg.JWT.AccessTTLMinutes)*time.Minute)
	if err != nil {
		log.WithError(err).Fatal("token codec setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Repository -> Service -> Handler
	adminRepo := repository.NewAdminRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	matrixRepo := repository.NewAccessMatrixRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	engine := rbac.NewEngine(matrixRepo)
	resolver := rbac.NewResolver(userRepo)
	guard := middleware.NewGuard(codec, resolver, engine, log, middleware.NewMetrics(registry))

	matrixService := service.NewAccessMatrixService(matrixRepo, auditRepo, txManager, engine, wsHub, log)
	authService := service.NewAuthService(adminRepo, tenantRepo, userRepo, codec, engine, log)
	tenantService := service.NewTenantService(tenantRepo, userRepo, auditRepo, txManager, matrixService)
	auditService := service.NewAuditService(auditRepo)

	bootstrap(ctx, cfg, authService, matrixService, log)

	authHandler := handler.NewAuthHandler(authService, guard, log)
	accessControlHandler := handler.NewAccessControlHandler(matrixService, guard, log)
	tenantHandler := handler.NewTenantHandler(tenantService, guard, log)
	auditHandler := handler.NewAuditHandler(auditService, guard, log)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, guard, c)
	})

	authHandler.RegisterRoutes(router.Group(""))
	accessControlHandler.RegisterRoutes(router.Group(""))
	tenantHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
	log.Info("server stopped")
}

// bootstrap creates the default platform admin and the global default access
// matrix. Failures are logged; the server still starts.
func bootstrap(ctx context.Context, cfg config.Config, auth service.AuthService, matrix service.AccessMatrixService, log logrus.FieldLogger) {
	if _, err := auth.EnsureDefaultAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		log.WithError(err).Error("default admin bootstrap failed")
	}

	res, err := matrix.InitializeDefaults(ctx, nil, nil)
	if err != nil {
		log.WithError(err).Error("global access matrix initialization failed")
		return
	}
	log.WithField("created", len(res.Created)).WithField("updated", len(res.Updated)).Info("global access matrix initialized")
}
