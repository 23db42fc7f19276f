package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/abdoElHodaky/tradSys/internal/db"
	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/abdoElHodaky/tradSys/internal/db/queries"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// findByIDCacheTTL bounds how stale a cached FindByID lookup can be; short
// enough that it never meaningfully outlives a fill-state update landing in
// between (spec.md §4.2's update_filled_amount_and_status can race a cached
// read, but never by more than this window).
const findByIDCacheTTL = 2 * time.Second

// OrderRepository persists orders and exposes the candidate lookup the
// durable matcher and matching service use to find a resting counterpart
// (spec.md §4.2).
type OrderRepository struct {
	db         *gorm.DB
	logger     *zap.Logger
	optimizer  *queries.Optimizer
	queryCache *db.QueryCache
}

func NewOrderRepository(gormDB *gorm.DB, logger *zap.Logger, queryCache *db.QueryCache) *OrderRepository {
	return &OrderRepository{
		db:         gormDB,
		logger:     logger,
		optimizer:  queries.NewOptimizer(gormDB, logger),
		queryCache: queryCache,
	}
}

// SaveOrder inserts a new order (spec.md §4.2 save_order).
func (r *OrderRepository) SaveOrder(ctx context.Context, order *models.Order) error {
	if result := r.db.WithContext(ctx).Create(order); result.Error != nil {
		r.logger.Error("failed to save order", zap.Error(result.Error), zap.String("order_id", order.ID))
		return result.Error
	}
	return nil
}

// FindByID retrieves an order by id, returning (nil, nil) if absent. A
// short-lived cache sits in front of the row lookup; it is never the source
// of truth for matching (that's the in-memory book), only a read-path
// optimization for the places this gets called repeatedly for the same id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	cacheKey := db.GetCacheKey("order_by_id", orderID)

	var cached models.Order
	if r.queryCache != nil && r.queryCache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to find order", zap.Error(err), zap.String("order_id", orderID))
		return nil, err
	}

	if r.queryCache != nil {
		if err := r.queryCache.Set(ctx, cacheKey, order, findByIDCacheTTL); err != nil {
			r.logger.Warn("failed to cache order lookup", zap.Error(err), zap.String("order_id", orderID))
		}
	}

	return &order, nil
}

// UpdateFilledAmountAndStatus sets filled_amount/status to the given
// absolute values, guarded by a filled_amount <= ? predicate so a stale or
// out-of-order call can never move a row's fill backward; it is safe to
// call with the same filledAmount/status repeatedly (spec.md §4.2
// update_filled_amount_and_status, monotonicity requirement, §10
// idempotence property).
func (r *OrderRepository) UpdateFilledAmountAndStatus(ctx context.Context, orderID string, filledAmount interface{}, status models.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND filled_amount <= ?", orderID, filledAmount).
		Updates(map[string]interface{}{
			"filled_amount": filledAmount,
			"status":        status,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		r.logger.Error("failed to update order fill state", zap.Error(result.Error), zap.String("order_id", orderID))
		return result.Error
	}
	return nil
}

// SetStatus transitions an order to status without touching filled_amount —
// used for the admission path's CANCELED rollback (spec.md §4.5 step 6).
func (r *OrderRepository) SetStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	if result.Error != nil {
		r.logger.Error("failed to set order status", zap.Error(result.Error), zap.String("order_id", orderID))
		return result.Error
	}
	return nil
}

// FindMatchingOrders returns resting counterparty candidates for symbol on
// the opposite side of side, ordered by price-time priority. The price
// predicate is range-based — price <= ? for a resting ask matched against
// an incoming bid, price >= ? for the reverse — not an exact-equality
// lookup, since limit orders cross at any acceptable price (spec.md §4.6
// corrected predicate; DESIGN.md Open Question decision).
func (r *OrderRepository) FindMatchingOrders(ctx context.Context, symbol string, side models.OrderSide, limitPrice interface{}) ([]*models.Order, error) {
	var orders []*models.Order

	restingSide := models.OrderSideSell
	cmp := "price <= ?"
	if side == models.OrderSideSell {
		restingSide = models.OrderSideBuy
		cmp = "price >= ?"
	}

	builder := queries.NewBuilder(r.db, r.logger).
		Table("orders").
		UseIndex("idx_orders_symbol_status").
		Where("symbol = ?", symbol).
		Where("side = ?", restingSide).
		Where("status IN (?, ?)", models.OrderStatusOpen, models.OrderStatusPartiallyFilled).
		Where(cmp, limitPrice).
		OrderBy("price ASC, created_at ASC")

	if restingSide == models.OrderSideBuy {
		builder = builder.OrderBy("price DESC, created_at ASC")
	}

	if err := builder.Execute(&orders); err != nil {
		r.logger.Error("failed to find matching orders", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	return orders, nil
}

// FindActiveOrdersBySymbol lists all resting orders for symbol in creation
// order, used by DurableMatcher.ReconcileAll's startup recovery pass.
func (r *OrderRepository) FindActiveOrdersBySymbol(ctx context.Context, symbol string) ([]*models.Order, error) {
	var orders []*models.Order
	builder := queries.NewBuilder(r.db, r.logger).
		Table("orders").
		UseIndex("idx_orders_symbol_status").
		Where("symbol = ?", symbol).
		Where("status IN (?, ?)", models.OrderStatusOpen, models.OrderStatusPartiallyFilled).
		OrderBy("created_at ASC")

	if err := builder.Execute(&orders); err != nil {
		r.logger.Error("failed to find active orders", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	return orders, nil
}

// DistinctActiveSymbols lists every symbol with at least one resting order,
// used to scope the durable matcher's startup reconciliation pass (spec.md
// §4.6) across the whole book rather than one hardcoded symbol.
func (r *OrderRepository) DistinctActiveSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("status IN (?, ?)", models.OrderStatusOpen, models.OrderStatusPartiallyFilled).
		Distinct("symbol").
		Pluck("symbol", &symbols).Error
	if err != nil {
		r.logger.Error("failed to list distinct active symbols", zap.Error(err))
		return nil, err
	}
	return symbols, nil
}

// FindOrdersByTimeRange supports audit/reporting queries outside the hot
// matching path; logs the planner output at debug level.
func (r *OrderRepository) FindOrdersByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*models.Order, error) {
	var orders []*models.Order
	builder := queries.NewBuilder(r.db, r.logger).
		Table("orders").
		Where("symbol = ?", symbol).
		Where("created_at BETWEEN ? AND ?", start, end).
		OrderBy("created_at ASC")

	query, args := builder.Build()
	if plan, err := r.optimizer.AnalyzeQuery(query, args...); err == nil {
		r.logger.Debug("query execution plan", zap.String("plan", plan))
	}

	if err := builder.Execute(&orders); err != nil {
		r.logger.Error("failed to find orders by time range", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	return orders, nil
}
