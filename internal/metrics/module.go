package metrics

import (
	"context"
	"fmt"
	"net/http"

	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the registry, the collector set, and the /metrics listener.
var Module = fx.Options(
	fx.Provide(func() *prometheus.Registry { return prometheus.NewRegistry() }),
	fx.Provide(func(registry *prometheus.Registry) *Collectors { return NewCollectors(registry) }),
	fx.Invoke(registerHandler),
)

func registerHandler(lifecycle fx.Lifecycle, registry *prometheus.Registry, cfg *appconfig.Config, logger *zap.Logger) {
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	addr := fmt.Sprintf(":%d", port)

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("metrics listener starting", zap.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics listener stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
