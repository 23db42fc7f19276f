package matching

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the side of an order or trade participant.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the kind of order. This core implements LIMIT only; MARKET
// and STOPLOSS are reserved per spec §1 (Non-goals: stop-loss triggering logic).
type OrderType string

const (
	OrderTypeLimit    OrderType = "LIMIT"
	OrderTypeMarket   OrderType = "MARKET"
	OrderTypeStopLoss OrderType = "STOPLOSS"
)

// OrderStatus mirrors the PersistedOrder status domain (§3).
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusDisputed        OrderStatus = "DISPUTED"
)

// Order is the in-memory form held by the book (§3 "Order").
type Order struct {
	ID                string
	UserID             string
	Side              OrderSide
	OrderType         OrderType
	Symbol            string
	Price             decimal.Decimal
	Quantity          decimal.Decimal
	RemainingQuantity decimal.Decimal
	Status            OrderStatus
	Timestamp         int64 // nanosecond arrival time, assigns FIFO priority
	sequence          int64 // monotonic tie-breaker when Timestamp collides
}

// Trade is an executed match (§3 "Trade").
type Trade struct {
	BidID     string
	AskID     string
	Symbol    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// PriceLevel is an aggregated view of resting quantity at a price, for snapshots.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

// OrderBookSnapshot is a point-in-time view sent as the session handler's
// initial_state frame (§6.1).
type OrderBookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Timestamp time.Time    `json:"timestamp"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
}

var (
	ErrInvalidOrder    = errors.New("matching: invalid order")
	ErrInvalidQuantity = errors.New("matching: quantity must be positive")
	ErrInvalidPrice    = errors.New("matching: price must be positive for LIMIT orders")
	ErrOrderNotFound   = errors.New("matching: order not found")
)
