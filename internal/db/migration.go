package db

import (
	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateSchema auto-migrates the durable rows this core owns: orders,
// trades, escrows, bookings, and the read-only wallet view (spec.md §3).
func MigrateSchema(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("running database migrations")

	schemas := []interface{}{
		&models.Order{},
		&models.Trade{},
		&models.Escrow{},
		&models.Booking{},
		&models.Wallet{},
	}

	if err := db.AutoMigrate(schemas...); err != nil {
		logger.Error("database migration failed", zap.Error(err))
		return err
	}

	logger.Info("database migration completed successfully")
	return nil
}
