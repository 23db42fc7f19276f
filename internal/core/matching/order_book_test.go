package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newOrder(id, userID string, side OrderSide, price, qty string) *Order {
	return &Order{
		ID:        id,
		UserID:    userID,
		Side:      side,
		OrderType: OrderTypeLimit,
		Symbol:    "BTC/USD",
		Price:     d(price),
		Quantity:  d(qty),
	}
}

func TestScenarioA_SimpleCross(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, err := ob.AddOrder(newOrder("A", "1", OrderSideSell, "100", "2"))
	require.NoError(t, err)

	trades, err := ob.AddOrder(newOrder("B", "2", OrderSideBuy, "100", "2"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, "B", trades[0].BidID)
	require.Equal(t, "A", trades[0].AskID)
	require.True(t, trades[0].Price.Equal(d("100")))
	require.True(t, trades[0].Quantity.Equal(d("2")))
	require.False(t, ob.IsCrossed())
}

func TestScenarioB_PartialFill(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, err := ob.AddOrder(newOrder("A", "1", OrderSideSell, "50", "5"))
	require.NoError(t, err)

	trades, err := ob.AddOrder(newOrder("B", "2", OrderSideBuy, "50", "3"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.True(t, trades[0].Quantity.Equal(d("3")))

	resting, ok := ob.orders["A"]
	require.True(t, ok)
	require.Equal(t, OrderStatusPartiallyFilled, resting.Status)
	require.True(t, resting.RemainingQuantity.Equal(d("2")))
}

func TestScenarioC_NoCross(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, err := ob.AddOrder(newOrder("A", "1", OrderSideSell, "101", "1"))
	require.NoError(t, err)

	trades, err := ob.AddOrder(newOrder("B", "2", OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	require.Empty(t, trades)
	require.NotNil(t, ob.BestBid())
	require.NotNil(t, ob.BestAsk())
}

func TestScenarioD_SelfMatchPrevention(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, err := ob.AddOrder(newOrder("A", "1", OrderSideSell, "10", "1"))
	require.NoError(t, err)

	trades, err := ob.AddOrder(newOrder("B", "1", OrderSideBuy, "10", "1"))
	require.NoError(t, err)
	require.Empty(t, trades)
	require.NotNil(t, ob.BestBid())
	require.NotNil(t, ob.BestAsk())
}

func TestScenarioE_PriceTimePriority(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	a := newOrder("A", "1", OrderSideSell, "10", "1")
	a.Timestamp = 1
	_, err := ob.AddOrder(a)
	require.NoError(t, err)

	b := newOrder("B", "2", OrderSideSell, "10", "1")
	b.Timestamp = 2
	_, err = ob.AddOrder(b)
	require.NoError(t, err)

	trades, err := ob.AddOrder(newOrder("C", "3", OrderSideBuy, "10", "1"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, "A", trades[0].AskID)
}

func TestInvariant_BookNeverCrossedAtRest(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, _ = ob.AddOrder(newOrder("A", "1", OrderSideSell, "100", "1"))
	_, _ = ob.AddOrder(newOrder("B", "2", OrderSideBuy, "99", "1"))
	require.False(t, ob.IsCrossed())
}

func TestBoundary_FullyFillsBothSides(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, _ = ob.AddOrder(newOrder("A", "1", OrderSideSell, "100", "3"))
	trades, err := ob.AddOrder(newOrder("B", "2", OrderSideBuy, "100", "3"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Nil(t, ob.BestBid())
	require.Nil(t, ob.BestAsk())
}

func TestBoundary_BuyAtExactAskPriceMatches(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, _ = ob.AddOrder(newOrder("A", "1", OrderSideSell, "100", "1"))
	trades, err := ob.AddOrder(newOrder("B", "2", OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
}

func TestRoundTrip_AddThenCancel(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())

	_, err := ob.AddOrder(newOrder("A", "1", OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	require.NotNil(t, ob.BestBid())

	require.NoError(t, ob.CancelOrder("A"))
	require.Nil(t, ob.BestBid())
}

func TestZeroQuantityTradesNeverEmitted(t *testing.T) {
	ob := NewOrderBook("BTC/USD", zap.NewNop())
	_, _ = ob.AddOrder(newOrder("A", "1", OrderSideSell, "100", "1"))
	trades, err := ob.AddOrder(newOrder("B", "2", OrderSideBuy, "100", "1"))
	require.NoError(t, err)
	for _, tr := range trades {
		require.True(t, tr.Quantity.Sign() > 0)
	}
}
