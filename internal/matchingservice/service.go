// Package matchingservice runs the periodic driver that crosses every
// symbol's in-memory book and durably persists the resulting trades
// (spec.md §4.7).
package matchingservice

import (
	"context"
	"time"

	"github.com/abdoElHodaky/tradSys/internal/broadcast"
	"github.com/abdoElHodaky/tradSys/internal/cache"
	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/abdoElHodaky/tradSys/internal/db/repositories"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/orders"
	"github.com/panjf2000/ants/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Service ticks on a fixed interval, acquires exclusive access to each
// symbol's book, crosses it, and persists trades in bounded chunks through
// a worker pool guarded by a circuit breaker (spec.md §4.7; DESIGN.md
// "Matching Service" component).
type Service struct {
	books         *matching.BookManager
	tradeRepo     *repositories.TradeRepository
	broadcaster   *broadcast.Broadcaster
	cache         *cache.Cache
	durableMatcher *orders.DurableMatcher
	pool          *ants.Pool
	breaker       *gobreaker.CircuitBreaker
	metrics       *metrics.Collectors
	logger        *zap.Logger

	tickInterval time.Duration
	chunkSize    int

	done   chan struct{}
	ticker *time.Ticker
}

func NewService(
	cfg *appconfig.Config,
	books *matching.BookManager,
	tradeRepo *repositories.TradeRepository,
	broadcaster *broadcast.Broadcaster,
	sessionCache *cache.Cache,
	durableMatcher *orders.DurableMatcher,
	collectors *metrics.Collectors,
	logger *zap.Logger,
) (*Service, error) {
	tickInterval := cfg.Matcher.TickInterval
	if tickInterval <= 0 {
		tickInterval = 100 * time.Millisecond
	}
	chunkSize := cfg.Matcher.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}

	pool, err := ants.NewPool(8, ants.WithExpiryDuration(10*time.Minute), ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "matching-service-trade-persistence",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Service{
		books:          books,
		tradeRepo:      tradeRepo,
		broadcaster:    broadcaster,
		cache:          sessionCache,
		durableMatcher: durableMatcher,
		pool:           pool,
		breaker:        breaker,
		metrics:        collectors,
		logger:         logger,
		tickInterval:   tickInterval,
		chunkSize:      chunkSize,
		done:           make(chan struct{}),
	}, nil
}

// Start runs a one-time SQL-side reconciliation pass (recovering from any
// crash that left the book crossed at rest), then launches the control
// loop in its own goroutine.
func (s *Service) Start(ctx context.Context) {
	if err := s.durableMatcher.ReconcileAll(ctx); err != nil {
		s.logger.Error("startup reconciliation pass failed", zap.Error(err))
	}
	s.ticker = time.NewTicker(s.tickInterval)
	go s.run(ctx)
}

// Stop halts the control loop and releases the worker pool.
func (s *Service) Stop() {
	close(s.done)
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.pool.Release()
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.tick(ctx)
		}
	}
}

// tick crosses every known symbol's book and persists the trades produced.
// Matching itself (lock, cross, unlock) is in-memory and cannot fail; only
// the subsequent persistence can, and a persistence failure is logged, not
// retried in place (spec.md §4.7 "log-not-fail", the documented
// at-most-once trade durability gap).
func (s *Service) tick(ctx context.Context) {
	s.metrics.MatchingTicks.Inc()
	for _, symbol := range s.books.Symbols() {
		book := s.books.Book(symbol)
		trades := s.matchSymbol(book)
		if len(trades) == 0 {
			continue
		}
		s.cache.InvalidateSnapshot(symbol)
		s.persistChunked(ctx, trades)
	}
}

// matchSymbol repeatedly crosses the book's best bid/ask while they overlap.
// AddOrder already performs incremental matching on admission, so under the
// book's own invariant (never crossed at rest) this is a no-op; it only
// does work to recover a book left crossed by an anomaly between ticks
// (e.g. a cancellation racing an admission). The crossed order is pulled
// out of the heap before being re-admitted — re-admitting it in place would
// push a second copy onto the heap alongside the one already resting there.
func (s *Service) matchSymbol(book *matching.OrderBook) []*matching.Trade {
	var trades []*matching.Trade
	for {
		bid, ask := book.BestBid(), book.BestAsk()
		if bid == nil || ask == nil || bid.Price.LessThan(ask.Price) {
			break
		}
		if err := book.CancelOrder(bid.ID); err != nil {
			break
		}
		t, err := book.AddOrder(bid)
		if err != nil {
			break
		}
		trades = append(trades, t...)
		if len(t) == 0 {
			break
		}
	}
	return trades
}

func (s *Service) persistChunked(ctx context.Context, trades []*matching.Trade) {
	rows := make([]*models.Trade, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, &models.Trade{
			BidID:     t.BidID,
			AskID:     t.AskID,
			Symbol:    t.Symbol,
			Price:     t.Price,
			Quantity:  t.Quantity,
			Timestamp: t.Timestamp,
		})
	}

	for start := 0; start < len(rows); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		done := make(chan struct{})
		err := s.pool.Submit(func() {
			defer close(done)
			_, breakerErr := s.breaker.Execute(func() (interface{}, error) {
				return s.tradeRepo.BulkInsertRaw(ctx, chunk)
			})
			if breakerErr != nil {
				s.logger.Error("trade chunk persistence failed", zap.Error(breakerErr), zap.Int("chunk_size", len(chunk)))
				return
			}
			s.metrics.TradesPersisted.Add(float64(len(chunk)))
			for _, t := range chunk {
				_ = s.broadcaster.Publish(broadcast.TradeEvent{
					BidID:     t.BidID,
					AskID:     t.AskID,
					Symbol:    t.Symbol,
					Price:     t.Price.String(),
					Quantity:  t.Quantity.String(),
					Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
				})
			}
		})
		if err != nil {
			s.logger.Error("failed to submit trade persistence task", zap.Error(err))
			continue
		}
		<-done
	}
}
