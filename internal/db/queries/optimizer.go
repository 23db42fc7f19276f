package queries

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Optimizer provides query diagnostics against the Postgres store
// (spec.md §6.3 persistence target). Adapted from the teacher's
// SQLite-oriented optimizer: EXPLAIN replaces EXPLAIN QUERY PLAN, and the
// SQLite PRAGMA tuning in EnableQueryOptimizations has no Postgres
// equivalent worth wiring here, so it is dropped.
type Optimizer struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOptimizer creates a new query optimizer
func NewOptimizer(db *gorm.DB, logger *zap.Logger) *Optimizer {
	return &Optimizer{
		db:     db,
		logger: logger,
	}
}

// AnalyzeQuery returns the Postgres planner's output for query.
func (o *Optimizer) AnalyzeQuery(query string, args ...interface{}) (string, error) {
	rows, err := o.db.Raw(fmt.Sprintf("EXPLAIN %s", query), args...).Rows()
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var planBuilder strings.Builder
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", err
		}
		planBuilder.WriteString(line)
		planBuilder.WriteString("\n")
	}

	return planBuilder.String(), nil
}

// OptimizeTable updates planner statistics for table.
func (o *Optimizer) OptimizeTable(table string) error {
	result := o.db.Exec(fmt.Sprintf("ANALYZE %s", table))
	if result.Error != nil {
		o.logger.Error("failed to optimize table",
			zap.String("table", table),
			zap.Error(result.Error))
		return result.Error
	}

	o.logger.Info("table optimized", zap.String("table", table))
	return nil
}

// CreateIndex creates an index if it doesn't exist.
func (o *Optimizer) CreateIndex(table, indexName string, columns []string, unique bool) error {
	uniqueStr := ""
	if unique {
		uniqueStr = "UNIQUE"
	}

	query := fmt.Sprintf("CREATE %s INDEX IF NOT EXISTS %s ON %s (%s)",
		uniqueStr, indexName, table, strings.Join(columns, ", "))

	result := o.db.Exec(query)
	if result.Error != nil {
		o.logger.Error("failed to create index",
			zap.String("table", table),
			zap.String("index", indexName),
			zap.Error(result.Error))
		return result.Error
	}

	o.logger.Info("index created or already exists",
		zap.String("table", table),
		zap.String("index", indexName))
	return nil
}

// GetSlowQueries is a placeholder: this core relies on connection_pool.go's
// in-process latency counters rather than a persisted query log.
func (o *Optimizer) GetSlowQueries(threshold time.Duration) ([]map[string]interface{}, error) {
	var results []map[string]interface{}
	return results, nil
}
