package orders

import (
	"context"

	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/abdoElHodaky/tradSys/internal/db/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DurableMatcher is the SQL-side counterpart of the in-memory book's
// matching (spec.md §4.6). It operates on the persisted order rows through
// the order repository rather than the in-memory OrderBook, and is kept as
// the reference semantics the periodic matching service re-derives
// against; the in-memory book remains authoritative for what a session
// actually sees (DESIGN.md "Dual matcher convergence").
type DurableMatcher struct {
	orderRepo   *repositories.OrderRepository
	escrowRepo  *repositories.EscrowRepository
	bookingRepo *repositories.BookingRepository
	logger      *zap.Logger
}

func NewDurableMatcher(
	orderRepo *repositories.OrderRepository,
	escrowRepo *repositories.EscrowRepository,
	bookingRepo *repositories.BookingRepository,
	logger *zap.Logger,
) *DurableMatcher {
	return &DurableMatcher{
		orderRepo:   orderRepo,
		escrowRepo:  escrowRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// Match runs the admission-time durable matching pass for newOrder against
// resting counterparts in creation-time order (spec.md §4.6 steps 1-6). The
// candidate set comes from OrderRepository.FindMatchingOrders, the same
// corrected range-predicate query §4.2 requires for the durable-matching
// path — this is its only caller.
func (m *DurableMatcher) Match(ctx context.Context, newOrder *models.Order) error {
	candidates, err := m.orderRepo.FindMatchingOrders(ctx, newOrder.Symbol, newOrder.Side, newOrder.Price)
	if err != nil {
		return err
	}

	newRemaining := newOrder.Quantity.Sub(newOrder.FilledAmount)

	for _, cand := range candidates {
		if newRemaining.Sign() <= 0 {
			break
		}
		// Step 2: self-match prevention.
		if cand.UserID == newOrder.UserID {
			continue
		}

		candRemaining := cand.Quantity.Sub(cand.FilledAmount)
		matched := newRemaining
		if candRemaining.LessThan(matched) {
			matched = candRemaining
		}
		if matched.Sign() <= 0 {
			continue
		}

		newFilled := newOrder.FilledAmount.Add(matched)
		candFilled := cand.FilledAmount.Add(matched)
		newStatus := statusFor(newOrder.Quantity, newFilled)
		candStatus := statusFor(cand.Quantity, candFilled)

		if err := m.orderRepo.UpdateFilledAmountAndStatus(ctx, newOrder.ID, newFilled, newStatus); err != nil {
			return err
		}
		if err := m.orderRepo.UpdateFilledAmountAndStatus(ctx, cand.ID, candFilled, candStatus); err != nil {
			return err
		}

		buyerID, sellerID := newOrder.UserID, cand.UserID
		sellerOrderID := cand.ID
		if newOrder.Side == models.OrderSideSell {
			buyerID, sellerID = cand.UserID, newOrder.UserID
			sellerOrderID = newOrder.ID
		}
		if _, err := m.bookingRepo.SaveCoinBooking(ctx, newOrder.ID, buyerID, sellerID); err != nil {
			return err
		}
		if escrow, err := m.escrowRepo.FindByOrderID(ctx, sellerOrderID); err == nil && escrow != nil {
			if err := m.escrowRepo.UpdateEscrowStatus(ctx, escrow.ID, models.EscrowStatusPending); err != nil {
				return err
			}
		}

		newOrder.FilledAmount = newFilled
		newRemaining = newOrder.Quantity.Sub(newFilled)

		if newStatus == models.OrderStatusFilled {
			break
		}
	}

	return nil
}

// ReconcileAll re-runs Match against every resting order across every
// active symbol. It is the periodic matching service's recovery path: a
// crash between the in-memory book's admission-time crossing and the
// trade/fill-state persistence in applyTrades can leave orders resting
// that should already have crossed, and this walks every open order in
// creation order to restore the "book never crossed at rest" invariant
// from the SQL side (spec.md §4.6, §4.7 recovery path; DESIGN.md "Dual
// matcher convergence").
func (m *DurableMatcher) ReconcileAll(ctx context.Context) error {
	symbols, err := m.orderRepo.DistinctActiveSymbols(ctx)
	if err != nil {
		return err
	}

	for _, symbol := range symbols {
		resting, err := m.orderRepo.FindActiveOrdersBySymbol(ctx, symbol)
		if err != nil {
			return err
		}
		for _, o := range resting {
			if err := m.Match(ctx, o); err != nil {
				m.logger.Error("reconciliation pass failed for order",
					zap.String("order_id", o.ID), zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}
	return nil
}

func statusFor(total, filled decimal.Decimal) models.OrderStatus {
	if filled.GreaterThanOrEqual(total) {
		return models.OrderStatusFilled
	}
	if filled.Sign() > 0 {
		return models.OrderStatusPartiallyFilled
	}
	return models.OrderStatusOpen
}
