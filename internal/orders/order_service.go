// Package orders implements the admission path a new order takes before it
// becomes visible to the matching core (spec.md §4.5).
package orders

import (
	"context"
	"time"

	"github.com/abdoElHodaky/tradSys/internal/cache"
	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/abdoElHodaky/tradSys/internal/db/repositories"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/validation"
	trsyserrors "github.com/abdoElHodaky/tradSys/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderRequest is the inbound admission request (spec.md §4.5, §6.1
// create_order frame). Price and Quantity arrive as strings so the wire
// layer never loses decimal precision to float64.
type OrderRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Side     string `json:"side" validate:"required,oneof=BUY SELL"`
	Price    string `json:"price" validate:"required"`
	Quantity string `json:"quantity" validate:"required"`
}

// OrderService is the admission path: validate, assert balance for SELL
// orders, persist, open escrow for SELL orders, then hand the order to the
// in-memory matching core (spec.md §4.5 steps 1-5).
type OrderService struct {
	books       *matching.BookManager
	orderRepo   *repositories.OrderRepository
	tradeRepo   *repositories.TradeRepository
	escrowRepo  *repositories.EscrowRepository
	bookingRepo *repositories.BookingRepository
	walletRepo  *repositories.WalletRepository
	cache       *cache.Cache
	validate    *validation.Validator
	metrics     *metrics.Collectors
	logger      *zap.Logger
}

func NewOrderService(
	books *matching.BookManager,
	orderRepo *repositories.OrderRepository,
	tradeRepo *repositories.TradeRepository,
	escrowRepo *repositories.EscrowRepository,
	bookingRepo *repositories.BookingRepository,
	walletRepo *repositories.WalletRepository,
	sessionCache *cache.Cache,
	collectors *metrics.Collectors,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		books:       books,
		orderRepo:   orderRepo,
		tradeRepo:   tradeRepo,
		escrowRepo:  escrowRepo,
		bookingRepo: bookingRepo,
		walletRepo:  walletRepo,
		cache:       sessionCache,
		validate:    validation.NewValidator(),
		metrics:     collectors,
		logger:      logger,
	}
}

// CreateOrder runs the full admission path for req and returns the
// persisted order. On success, trades produced by an immediate crossing
// (spec.md §4.1 rule: matching happens synchronously on admission for the
// in-memory book; the periodic service in §4.7 re-drives it for the SQL
// reference path) are returned alongside it.
func (s *OrderService) CreateOrder(ctx context.Context, req *OrderRequest) (*models.Order, []*matching.Trade, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, nil, trsyserrors.Wrap(err, trsyserrors.ErrValidation, "invalid order request")
	}

	side := models.OrderSide(req.Side)

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.Sign() <= 0 {
		return nil, nil, trsyserrors.New(trsyserrors.ErrInvalidPrice, "price must be a positive decimal")
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil || quantity.Sign() <= 0 {
		return nil, nil, trsyserrors.New(trsyserrors.ErrInvalidQuantity, "quantity must be a positive decimal")
	}

	// Step 2: a SELL order must be covered by the seller's wallet balance
	// in the traded asset (spec.md §4.5 step 2).
	if side == models.OrderSideSell {
		ok, err := s.walletRepo.HasSufficientBalance(ctx, req.UserID, req.Symbol, quantity)
		if err != nil {
			return nil, nil, trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "wallet balance check failed")
		}
		if !ok {
			return nil, nil, trsyserrors.New(trsyserrors.ErrInsufficientBalance, "insufficient balance to cover sell order")
		}
	}

	order := &models.Order{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Symbol:       req.Symbol,
		Side:         side,
		Type:         models.OrderTypeLimit,
		Price:        price,
		Quantity:     quantity,
		FilledAmount: decimal.Zero,
		Status:       models.OrderStatusOpen,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// Step 3: persist before the order becomes visible to matching, so a
	// crash between persistence and matching never loses the record.
	if err := s.orderRepo.SaveOrder(ctx, order); err != nil {
		return nil, nil, trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to persist order")
	}

	// Step 4: open escrow for the seller's obligation.
	if side == models.OrderSideSell {
		if _, err := s.escrowRepo.CreateEscrow(ctx, order.ID, quantity); err != nil {
			s.logger.Error("failed to open escrow, rolling back order",
				zap.String("order_id", order.ID), zap.Error(err))
			_ = s.orderRepo.SetStatus(ctx, order.ID, models.OrderStatusCanceled)
			return nil, nil, trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to open escrow")
		}
	}

	// Step 5: hand the order to the in-memory matching core.
	matchOrder := &matching.Order{
		ID:                order.ID,
		UserID:            order.UserID,
		Side:              matching.OrderSide(order.Side),
		OrderType:         matching.OrderTypeLimit,
		Symbol:            order.Symbol,
		Price:             order.Price,
		Quantity:          order.Quantity,
		RemainingQuantity: order.Quantity,
	}

	trades, err := s.books.Book(order.Symbol).AddOrder(matchOrder)
	if err != nil {
		// Step 6: the order was already persisted and (if SELL) escrowed;
		// a rejection at the matching core itself cancels it out again
		// rather than leaving a phantom OPEN row (spec.md §4.5 step 6).
		s.logger.Error("matching core rejected order, canceling",
			zap.String("order_id", order.ID), zap.Error(err))
		_ = s.orderRepo.SetStatus(ctx, order.ID, models.OrderStatusCanceled)
		return nil, nil, trsyserrors.Wrap(err, trsyserrors.ErrValidation, "order rejected by matching core")
	}

	s.cache.InvalidateSnapshot(order.Symbol)

	if err := s.applyTrades(ctx, order, matchOrder, trades); err != nil {
		s.logger.Error("failed to apply trade results", zap.String("order_id", order.ID), zap.Error(err))
		return order, trades, err
	}

	s.metrics.OrdersAdmitted.Inc()
	return order, trades, nil
}

// applyTrades persists produced trades, bookings, and the resulting fill
// state for both the incoming order and its resting counterparts, and
// moves any seller's escrow that actually executed past OPEN. The
// resting counterpart on each trade never goes through CreateOrder's own
// persistence path — it was admitted on some earlier call — so its fill
// state and escrow have to be settled here, the same bookkeeping
// durable_matcher.Match does for its own candidates (spec.md §3.2, §3.6,
// §8.5).
func (s *OrderService) applyTrades(ctx context.Context, order *models.Order, matchOrder *matching.Order, trades []*matching.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	persisted := make([]*models.Trade, 0, len(trades))
	filled := decimal.Zero
	counterpartyFills := make(map[string]decimal.Decimal)
	sellerOrderIDs := make(map[string]struct{})

	for _, t := range trades {
		persisted = append(persisted, &models.Trade{
			BidID:     t.BidID,
			AskID:     t.AskID,
			Symbol:    t.Symbol,
			Price:     t.Price,
			Quantity:  t.Quantity,
			Timestamp: t.Timestamp,
		})
		filled = filled.Add(t.Quantity)

		counterpartyID := t.AskID
		sellerOrderID := counterpartyID
		if order.Side == models.OrderSideSell {
			counterpartyID = t.BidID
			sellerOrderID = order.ID
		}
		counterpartyUserID := ""
		counterpart, err := s.orderRepo.FindByID(ctx, counterpartyID)
		if err != nil {
			return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to load counterparty order")
		}
		if counterpart != nil {
			counterpartyUserID = counterpart.UserID
		}
		buyerID, sellerID := order.UserID, counterpartyUserID
		if order.Side == models.OrderSideSell {
			buyerID, sellerID = counterpartyUserID, order.UserID
		}
		if _, err := s.bookingRepo.SaveCoinBooking(ctx, order.ID, buyerID, sellerID); err != nil {
			return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to save booking")
		}

		counterpartyFills[counterpartyID] = counterpartyFills[counterpartyID].Add(t.Quantity)
		sellerOrderIDs[sellerOrderID] = struct{}{}
	}

	if _, err := s.tradeRepo.BulkInsert(ctx, persisted); err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to persist trades")
	}

	newFilled := order.FilledAmount.Add(filled)
	status := statusFor(order.Quantity, newFilled)
	order.FilledAmount = newFilled
	order.Status = status

	if err := s.orderRepo.UpdateFilledAmountAndStatus(ctx, order.ID, newFilled, status); err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to update order fill state")
	}

	for counterpartyID, delta := range counterpartyFills {
		if err := s.settleCounterparty(ctx, counterpartyID, delta); err != nil {
			return err
		}
	}
	for sellerOrderID := range sellerOrderIDs {
		if err := s.markEscrowPending(ctx, sellerOrderID); err != nil {
			return err
		}
	}

	return nil
}

// settleCounterparty applies delta's cumulative fill to a resting order
// consumed by this admission's crossing (spec.md §4.2
// update_filled_amount_and_status, applied to the maker side).
func (s *OrderService) settleCounterparty(ctx context.Context, orderID string, delta decimal.Decimal) error {
	counterpart, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to load counterparty order")
	}
	if counterpart == nil {
		return nil
	}
	newFilled := counterpart.FilledAmount.Add(delta)
	status := statusFor(counterpart.Quantity, newFilled)
	if err := s.orderRepo.UpdateFilledAmountAndStatus(ctx, counterpart.ID, newFilled, status); err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to update counterparty fill state")
	}
	return nil
}

// markEscrowPending transitions the seller's escrow past OPEN once its
// order has actually executed against a trade (spec.md §3.6: every
// executed trade must have a sell escrow at PENDING or later).
func (s *OrderService) markEscrowPending(ctx context.Context, sellerOrderID string) error {
	escrow, err := s.escrowRepo.FindByOrderID(ctx, sellerOrderID)
	if err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to load seller escrow")
	}
	if escrow == nil {
		return nil
	}
	if err := s.escrowRepo.UpdateEscrowStatus(ctx, escrow.ID, models.EscrowStatusPending); err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to transition escrow to pending")
	}
	return nil
}

// CancelOrder removes orderID from its symbol's book and marks it canceled.
func (s *OrderService) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := s.books.Book(symbol).CancelOrder(orderID); err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrNotFound, "order not resting in book")
	}
	if err := s.orderRepo.SetStatus(ctx, orderID, models.OrderStatusCanceled); err != nil {
		return trsyserrors.Wrap(err, trsyserrors.ErrPersistence, "failed to persist cancellation")
	}
	return nil
}
