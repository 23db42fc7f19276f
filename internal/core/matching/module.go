package matching

import "go.uber.org/fx"

// Module provides the process-wide BookManager singleton.
var Module = fx.Options(
	fx.Provide(NewBookManager),
)
