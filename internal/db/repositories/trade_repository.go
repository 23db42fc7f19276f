package repositories

import (
	"context"

	"github.com/abdoElHodaky/tradSys/internal/db"
	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradeRepository durably records executed matches (spec.md §4.4). Trades
// are append-only: no update or delete is exposed.
type TradeRepository struct {
	db       *gorm.DB
	logger   *zap.Logger
	batchOps *db.BatchOperations
}

func NewTradeRepository(gormDB *gorm.DB, logger *zap.Logger, batchOps *db.BatchOperations) *TradeRepository {
	return &TradeRepository{db: gormDB, logger: logger, batchOps: batchOps}
}

// BulkInsertRaw persists trades through the raw sqlx/pgx connection pool
// instead of gorm, splitting the batch into concurrent sub-batches (spec.md
// §4.7's persistence chunking, at the raw-SQL layer rather than gorm's).
// Used by the periodic matching service, whose own per-tick chunking (§4.7)
// already bounds how many trades reach a single call here.
func (r *TradeRepository) BulkInsertRaw(ctx context.Context, trades []*models.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	// id is DB-generated (autoincrement), unlike the UUID order/escrow/booking
	// ids, so it is never included in the insert column list here.
	columns := []string{"bid_id", "ask_id", "symbol", "price", "quantity", "timestamp"}
	values := make([][]interface{}, 0, len(trades))
	for _, t := range trades {
		values = append(values, []interface{}{
			t.BidID, t.AskID, t.Symbol, t.Price, t.Quantity, t.Timestamp,
		})
	}

	if err := r.batchOps.BatchInsert(ctx, "trades", columns, values); err != nil {
		r.logger.Error("failed to bulk insert trades via raw batch path", zap.Error(err), zap.Int("count", len(trades)))
		return 0, err
	}
	return len(trades), nil
}

// BulkInsert persists trades in a single statement. An empty slice is a
// no-op that returns 0 without touching the database (spec.md §10
// round-trip property: bulk_insert([]) returns 0).
func (r *TradeRepository) BulkInsert(ctx context.Context, trades []*models.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	if result := r.db.WithContext(ctx).Create(&trades); result.Error != nil {
		r.logger.Error("failed to bulk insert trades", zap.Error(result.Error), zap.Int("count", len(trades)))
		return 0, result.Error
	}
	return len(trades), nil
}

// BulkInsertBatched splits trades into sub-batches of at most chunkSize and
// persists each as its own atomic insert, so one pathological batch cannot
// hold a single giant transaction open (spec.md §4.7 matching service
// persistence chunking). A failure on one sub-batch does not roll back
// sub-batches already committed; the caller logs and continues (spec.md
// §4.7 "log-not-fail" persistence policy).
func (r *TradeRepository) BulkInsertBatched(ctx context.Context, trades []*models.Trade, chunkSize int) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = len(trades)
	}

	inserted := 0
	var firstErr error
	for start := 0; start < len(trades); start += chunkSize {
		end := start + chunkSize
		if end > len(trades) {
			end = len(trades)
		}
		chunk := trades[start:end]
		n, err := r.BulkInsert(ctx, chunk)
		inserted += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return inserted, firstErr
}

// FindByOrderID returns all trades where orderID appears as either
// counterparty, ordered oldest first.
func (r *TradeRepository) FindByOrderID(ctx context.Context, orderID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.WithContext(ctx).
		Where("bid_id = ? OR ask_id = ?", orderID, orderID).
		Order("timestamp ASC").
		Find(&trades).Error
	if err != nil {
		r.logger.Error("failed to find trades", zap.Error(err), zap.String("order_id", orderID))
		return nil, err
	}
	return trades, nil
}
