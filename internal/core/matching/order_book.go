package matching

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderHeap is a price-time priority queue of resting orders for one side of
// one symbol's book. Bids are a max-heap on price, asks a min-heap; both
// break ties on ascending Timestamp (arrival order).
type OrderHeap struct {
	orders    []*Order
	isMaxHeap bool
}

func newOrderHeap(isMaxHeap bool) *OrderHeap {
	h := &OrderHeap{orders: make([]*Order, 0), isMaxHeap: isMaxHeap}
	heap.Init(h)
	return h
}

func (h *OrderHeap) Len() int { return len(h.orders) }

func (h *OrderHeap) Less(i, j int) bool {
	a, b := h.orders[i], h.orders[j]
	if !a.Price.Equal(b.Price) {
		if h.isMaxHeap {
			return a.Price.GreaterThan(b.Price)
		}
		return a.Price.LessThan(b.Price)
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.sequence < b.sequence
}

func (h *OrderHeap) Swap(i, j int) { h.orders[i], h.orders[j] = h.orders[j], h.orders[i] }

func (h *OrderHeap) Push(x interface{}) { h.orders = append(h.orders, x.(*Order)) }

func (h *OrderHeap) Pop() interface{} {
	old := h.orders
	n := len(old)
	if n == 0 {
		return nil
	}
	order := old[n-1]
	old[n-1] = nil
	h.orders = old[:n-1]
	return order
}

func (h *OrderHeap) peek() *Order {
	if len(h.orders) == 0 {
		return nil
	}
	return h.orders[0]
}

// remove deletes the order with the given id, wherever it sits in the heap,
// and re-heapifies. Used by cancel (§4.1: "maintain an id→position index";
// here the index is a linear scan, acceptable for the book's expected depth).
func (h *OrderHeap) remove(orderID string) bool {
	for i, o := range h.orders {
		if o.ID == orderID {
			h.orders = append(h.orders[:i], h.orders[i+1:]...)
			heap.Init(h)
			return true
		}
	}
	return false
}

// OrderBook maintains, for one symbol, two FIFO-ordered collections of
// resting orders and produces crossings on demand (§4.1).
type OrderBook struct {
	Symbol string

	mu     sync.Mutex
	bids   *OrderHeap
	asks   *OrderHeap
	orders map[string]*Order
	seq    int64

	logger      *zap.Logger
	totalTrades int64
}

// NewOrderBook creates an empty book for a symbol.
func NewOrderBook(symbol string, logger *zap.Logger) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newOrderHeap(true),
		asks:   newOrderHeap(false),
		orders: make(map[string]*Order),
		logger: logger,
	}
}

// AddOrder inserts order at the tail of its price level and attempts to
// cross it immediately against the opposite side, returning any trades
// produced. Matches §4.1's add_order + the in-memory matching discipline
// chosen as authoritative (DESIGN.md "Dual matcher paths").
func (ob *OrderBook) AddOrder(order *Order) ([]*Trade, error) {
	if order == nil {
		return nil, ErrInvalidOrder
	}
	if order.Quantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}
	if order.OrderType == OrderTypeLimit && order.Price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if order.Timestamp == 0 {
		order.Timestamp = time.Now().UnixNano()
	}
	order.sequence = atomic.AddInt64(&ob.seq, 1)
	if order.RemainingQuantity.IsZero() {
		order.RemainingQuantity = order.Quantity
	}
	order.Status = OrderStatusOpen

	ob.orders[order.ID] = order

	var trades []*Trade
	if order.Side == OrderSideBuy {
		trades = ob.matchIncoming(order, ob.asks, func(best *Order) bool {
			return best.Price.LessThanOrEqual(order.Price)
		})
	} else {
		trades = ob.matchIncoming(order, ob.bids, func(best *Order) bool {
			return best.Price.GreaterThanOrEqual(order.Price)
		})
	}

	if order.RemainingQuantity.Sign() > 0 {
		if order.Side == OrderSideBuy {
			heap.Push(ob.bids, order)
		} else {
			heap.Push(ob.asks, order)
		}
	} else {
		delete(ob.orders, order.ID)
	}

	ob.totalTrades += int64(len(trades))
	if ob.logger != nil {
		ob.logger.Debug("order admitted to book",
			zap.String("order_id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Int("trades", len(trades)))
	}

	return trades, nil
}

// matchIncoming walks restingSide's heap while it crosses the incoming
// order, applying price-time priority and self-match prevention (§4.1 rules
// 1, 2 and 4). restingSide is the opposite side to order's.
func (ob *OrderBook) matchIncoming(order *Order, restingSide *OrderHeap, crosses func(best *Order) bool) []*Trade {
	trades := make([]*Trade, 0)
	skipped := make([]*Order, 0)

	for order.RemainingQuantity.Sign() > 0 && restingSide.Len() > 0 {
		best := restingSide.peek()
		if best == nil || !crosses(best) {
			break
		}

		if best.UserID != "" && order.UserID != "" && best.UserID == order.UserID {
			// Self-match prevention (§4.1 rule 4, DESIGN.md "Self-match policy"):
			// skip the resting same-user order and keep scanning the older side.
			skipped = append(skipped, heap.Pop(restingSide).(*Order))
			continue
		}

		resting := heap.Pop(restingSide).(*Order)

		qty := order.RemainingQuantity
		if resting.RemainingQuantity.LessThan(qty) {
			qty = resting.RemainingQuantity
		}
		if qty.Sign() <= 0 {
			// Never emit a zero-quantity trade (§4.1 rule 5).
			heap.Push(restingSide, resting)
			break
		}

		var bidID, askID string
		if order.Side == OrderSideBuy {
			bidID, askID = order.ID, resting.ID
		} else {
			bidID, askID = resting.ID, order.ID
		}

		trades = append(trades, &Trade{
			BidID:     bidID,
			AskID:     askID,
			Symbol:    order.Symbol,
			Price:     resting.Price, // maker price (§4.1 rule 3)
			Quantity:  qty,
			Timestamp: time.Now().UTC(),
		})

		order.RemainingQuantity = order.RemainingQuantity.Sub(qty)
		resting.RemainingQuantity = resting.RemainingQuantity.Sub(qty)
		order.Status = statusFor(order.Quantity, order.RemainingQuantity)
		resting.Status = statusFor(resting.Quantity, resting.RemainingQuantity)

		if resting.RemainingQuantity.Sign() > 0 {
			heap.Push(restingSide, resting)
		} else {
			delete(ob.orders, resting.ID)
		}
	}

	for _, o := range skipped {
		heap.Push(restingSide, o)
	}

	return trades
}

func statusFor(original, remaining decimal.Decimal) OrderStatus {
	if remaining.Sign() == 0 {
		return OrderStatusFilled
	}
	return OrderStatusPartiallyFilled
}

// CancelOrder removes a resting order from the book.
func (ob *OrderBook) CancelOrder(orderID string) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}

	var removed bool
	if order.Side == OrderSideBuy {
		removed = ob.bids.remove(orderID)
	} else {
		removed = ob.asks.remove(orderID)
	}
	if !removed {
		return ErrOrderNotFound
	}

	order.Status = OrderStatusCanceled
	delete(ob.orders, orderID)
	return nil
}

// BestBid returns the best resting bid, or nil if the side is empty.
func (ob *OrderBook) BestBid() *Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.bids.peek()
}

// BestAsk returns the best resting ask, or nil if the side is empty.
func (ob *OrderBook) BestAsk() *Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.asks.peek()
}

// IsCrossed reports whether the book is currently crossed — it never should
// be once AddOrder returns (§3 invariant 5, §8 invariant 1).
func (ob *OrderBook) IsCrossed() bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	bid, ask := ob.bids.peek(), ob.asks.peek()
	if bid == nil || ask == nil {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}

// Depth returns an aggregated snapshot of up to levels price points per side.
func (ob *OrderBook) Depth(levels int) ([]PriceLevel, []PriceLevel) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return aggregate(ob.bids, levels), aggregate(ob.asks, levels)
}

func aggregate(h *OrderHeap, levels int) []PriceLevel {
	byPrice := make(map[string]*PriceLevel)
	order := make([]string, 0)
	for _, o := range h.orders {
		key := o.Price.String()
		if lvl, ok := byPrice[key]; ok {
			lvl.Quantity = lvl.Quantity.Add(o.RemainingQuantity)
			lvl.Orders++
		} else {
			byPrice[key] = &PriceLevel{Price: o.Price, Quantity: o.RemainingQuantity, Orders: 1}
			order = append(order, key)
		}
	}
	result := make([]PriceLevel, 0, len(order))
	for _, k := range order {
		result = append(result, *byPrice[k])
	}
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			less := result[i].Price.LessThan(result[j].Price)
			if (h.isMaxHeap && less) || (!h.isMaxHeap && !less) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	if levels > 0 && len(result) > levels {
		result = result[:levels]
	}
	return result
}

// Snapshot returns the book's current top-of-book view, used for the
// session handler's initial_state frame (§4.9).
func (ob *OrderBook) Snapshot() *OrderBookSnapshot {
	bids, asks := ob.Depth(10)
	return &OrderBookSnapshot{
		Symbol:    ob.Symbol,
		Timestamp: time.Now().UTC(),
		Bids:      bids,
		Asks:      asks,
	}
}
