package cache

import "go.uber.org/fx"

// Module provides the process-wide Cache singleton.
var Module = fx.Options(
	fx.Provide(New),
)
