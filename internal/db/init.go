package db

import (
	"github.com/abdoElHodaky/tradSys/internal/db/queries"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitializeDatabase runs migrations and refreshes planner statistics and
// indexes afterward.
func InitializeDatabase(db *gorm.DB, logger *zap.Logger) error {
	if err := MigrateSchema(db, logger); err != nil {
		logger.Error("failed to migrate database schema", zap.Error(err))
		return err
	}

	optimizer := queries.NewOptimizer(db, logger)

	for _, table := range []string{"orders", "trades", "escrows", "bookings", "wallet"} {
		if err := optimizer.OptimizeTable(table); err != nil {
			logger.Warn("failed to optimize table", zap.String("table", table), zap.Error(err))
		}
	}

	createCommonIndexes(db, optimizer, logger)

	logger.Info("database initialized")
	return nil
}

// createCommonIndexes creates indexes for the query patterns the repository
// layer relies on (order admission, matching candidate lookup, trade audit).
func createCommonIndexes(db *gorm.DB, optimizer *queries.Optimizer, logger *zap.Logger) {
	orderIndexes := []struct {
		name    string
		columns []string
		unique  bool
	}{
		{"idx_orders_symbol_status", []string{"symbol", "status"}, false},
		{"idx_orders_user_id", []string{"user_id"}, false},
		{"idx_orders_created_at", []string{"created_at"}, false},
	}
	for _, idx := range orderIndexes {
		if err := optimizer.CreateIndex("orders", idx.name, idx.columns, idx.unique); err != nil {
			logger.Warn("failed to create index", zap.String("index", idx.name), zap.Error(err))
		}
	}

	tradeIndexes := []struct {
		name    string
		columns []string
		unique  bool
	}{
		{"idx_trades_bid_id", []string{"bid_id"}, false},
		{"idx_trades_ask_id", []string{"ask_id"}, false},
		{"idx_trades_symbol_timestamp", []string{"symbol", "timestamp"}, false},
	}
	for _, idx := range tradeIndexes {
		if err := optimizer.CreateIndex("trades", idx.name, idx.columns, idx.unique); err != nil {
			logger.Warn("failed to create index", zap.String("index", idx.name), zap.Error(err))
		}
	}

	if err := optimizer.CreateIndex("escrows", "idx_escrows_order_id", []string{"order_id"}, false); err != nil {
		logger.Warn("failed to create index", zap.String("index", "idx_escrows_order_id"), zap.Error(err))
	}
	if err := optimizer.CreateIndex("bookings", "idx_bookings_order_id", []string{"order_id"}, false); err != nil {
		logger.Warn("failed to create index", zap.String("index", "idx_bookings_order_id"), zap.Error(err))
	}
	if err := optimizer.CreateIndex("wallet", "idx_wallet_user_crypto", []string{"user_id", "crypto_id"}, true); err != nil {
		logger.Warn("failed to create index", zap.String("index", "idx_wallet_user_crypto"), zap.Error(err))
	}
}
