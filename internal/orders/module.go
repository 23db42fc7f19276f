package orders

import "go.uber.org/fx"

// Module provides the order admission service and the SQL-side durable
// matcher reference implementation.
var Module = fx.Options(
	fx.Provide(NewOrderService, NewDurableMatcher),
)
