package broadcast

import (
	"context"

	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the broadcaster into the fx application lifecycle, starting
// its NATS subscription on boot and closing the pub/sub pair on shutdown.
var Module = fx.Options(
	fx.Provide(func(cfg *appconfig.Config, logger *zap.Logger) (*Broadcaster, error) {
		return NewBroadcaster(cfg.Broadcast.NatsURL, logger)
	}),
	fx.Invoke(func(lifecycle fx.Lifecycle, b *Broadcaster) {
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return b.Start(ctx) },
			OnStop:  func(ctx context.Context) error { return b.Stop() },
		})
	}),
)
