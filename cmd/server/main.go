package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abdoElHodaky/tradSys/internal/auth"
	"github.com/abdoElHodaky/tradSys/internal/broadcast"
	"github.com/abdoElHodaky/tradSys/internal/cache"
	"github.com/abdoElHodaky/tradSys/internal/common"
	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/db"
	"github.com/abdoElHodaky/tradSys/internal/db/repositories"
	"github.com/abdoElHodaky/tradSys/internal/matchingservice"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/orders"
	"github.com/abdoElHodaky/tradSys/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() (*appconfig.Config, error) { return appconfig.LoadConfig("") },
			appconfig.InitLogger,
			func(cfg *appconfig.Config) *auth.JWTService { return auth.NewJWTService(cfg.Auth.JWTSecret) },
		),
		db.Module,
		repositories.Module,
		cache.Module,
		metrics.Module,
		matching.Module,
		orders.Module,
		broadcast.Module,
		matchingservice.Module,
		ws.Module,
		fx.Invoke(registerAdminServer),
	)

	app.Run()
}

// registerAdminServer wires the gin-based admin HTTP surface (health
// checks and a correlation-ID-tagged demo endpoint; the trading protocol
// itself lives on the websocket listener in internal/ws) and attaches it
// to the fx lifecycle.
func registerAdminServer(lifecycle fx.Lifecycle, cfg *appconfig.Config, pool *db.ConnectionPool, logger *zap.Logger) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	correlation := common.NewCorrelationMiddleware(logger)
	router.Use(correlation.Handler())

	health := common.NewHealthHandler("tradSys", "1.0", logger)
	health.SetReadinessCheck(pool.Ping)
	health.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	utils := common.NewHandlerUtils(logger)
	router.GET("/admin/whoami", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"correlation_id": common.GetCorrelationID(c)})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("admin http listener starting", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("admin http listener stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
