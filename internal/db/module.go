package db

import (
	"context"
	"fmt"
	"time"

	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Module provides the gorm connection used by the repositories and the raw
// sqlx-backed ConnectionPool behind BatchOperations' trade batch inserts and
// the admin readiness probe.
var Module = fx.Options(
	fx.Provide(NewDatabase),
	fx.Provide(NewSQLXConnection),
	fx.Provide(func(sqlxDB *sqlx.DB, logger *zap.Logger) *ConnectionPool {
		return NewConnectionPool(sqlxDB, logger, ConnectionPoolOptions{})
	}),
	fx.Provide(func(pool *ConnectionPool, logger *zap.Logger) *BatchOperations {
		return NewBatchOperations(pool, logger, BatchOperationsOptions{})
	}),
	fx.Provide(func(logger *zap.Logger) *QueryCache {
		return NewQueryCache(logger, QueryCacheOptions{DefaultTTL: 5 * time.Second})
	}),
)

// NewSQLXConnection opens the same Postgres connection through sqlx/pgx so
// BatchOperations can issue raw parameterized inserts alongside gorm's
// ORM-level access.
func NewSQLXConnection(lifecycle fx.Lifecycle, cfg *appconfig.Config) (*sqlx.DB, error) {
	connStr := cfg.Database.URL
	if connStr == "" {
		connStr = dsn(cfg)
	}

	sqlxDB, err := sqlx.Connect("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlx connection: %w", err)
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return sqlxDB.Close()
		},
	})

	return sqlxDB, nil
}

// dsn builds a libpq connection string from the individual Database fields,
// used only when Database.URL (DATABASE_URL) was not supplied.
func dsn(cfg *appconfig.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
}

// Connect opens the Postgres connection the rest of this core persists
// through (spec.md §6.3).
func Connect(cfg *appconfig.Config, logger *zap.Logger) (*gorm.DB, error) {
	connStr := cfg.Database.URL
	if connStr == "" {
		connStr = dsn(cfg)
	}

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewDatabase creates a new database connection for the fx application.
func NewDatabase(lifecycle fx.Lifecycle, cfg *appconfig.Config, logger *zap.Logger) (*gorm.DB, error) {
	gdb, err := Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := InitializeDatabase(gdb, logger); err != nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("database connection established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("closing database connection")
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return gdb, nil
}
