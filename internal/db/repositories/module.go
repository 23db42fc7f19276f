package repositories

import (
	"go.uber.org/fx"
)

// Module provides the repository layer for the fx application.
var Module = fx.Options(
	fx.Provide(
		NewOrderRepository,
		NewTradeRepository,
		NewEscrowRepository,
		NewBookingRepository,
		NewWalletRepository,
	),
)
