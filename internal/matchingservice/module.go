package matchingservice

import (
	"context"

	"go.uber.org/fx"
)

// Module wires the periodic matching service driver into the fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(func(lifecycle fx.Lifecycle, s *Service) {
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				s.Start(context.Background())
				return nil
			},
			OnStop: func(ctx context.Context) error {
				s.Stop()
				return nil
			},
		})
	}),
)
