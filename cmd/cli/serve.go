package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/handler"
	"github.com/scimkit/scimserver/internal/middleware"
	"github.com/scimkit/scimserver/internal/repository"
	"github.com/scimkit/scimserver/internal/service"
	"github.com/scimkit/scimserver/internal/tenant"
	"github.com/scimkit/scimserver/internal/utils"
	"github.com/scimkit/scimserver/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the SCIM HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cfg, db)
	},
}

func runServer(cfg *config.Config, db *repository.Database) error {
	log := logger.New("scimserver", logger.LogLevel(cfg.Server.LogLevel), cfg.Server.Env == "production")
	logger.SetDefault(log)

	doc, err := config.LoadDocument(cfg.Server.TenantConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load tenant document: %w", err)
	}
	router := tenant.NewRouter(doc)
	log.Info("Tenant document loaded", map[string]interface{}{
		"tenants": len(doc.Tenants),
		"path":    cfg.Server.TenantConfigPath,
	})

	store := repository.NewSCIMStore(db)
	checker := service.NewPasswordChecker(true)
	scimService := service.NewSCIMService(store, checker, router.CompatibilityDefaults())
	scimService.SetArgonParams(utils.ArgonParams{
		MemoryKiB:   cfg.Security.ArgonMemoryKiB,
		Iterations:  cfg.Security.ArgonIterations,
		Parallelism: cfg.Security.ArgonParallelism,
		SaltLength:  16,
		KeyLength:   32,
	})

	scimHandler := handler.NewSCIMHandler(scimService, log)
	healthHandler := handler.NewHealthHandler(db)
	tenantMiddleware := middleware.NewTenantMiddleware(router)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.SetupCORS(&cfg.CORS))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.MetricsErrorMiddleware())
	if cfg.Server.RequestTimeout > 0 {
		r.Use(func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Server.RequestTimeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Readiness)
	r.GET("/live", healthHandler.Liveness)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Every other path is tenant-scoped SCIM traffic; the tenant's path
	// prefix is only known from the document at runtime, so it can't be
	// laid out as static gin routes.
	r.NoRoute(tenantMiddleware.Resolve(), middleware.ContentType(), handler.Dispatch(scimHandler))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Info("HTTP server starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server exited successfully")
	return nil
}
