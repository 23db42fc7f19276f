package matchingservice

import (
	"testing"

	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrder(id, userID string, side matching.OrderSide, price string) *matching.Order {
	p := decimal.RequireFromString(price)
	qty := decimal.RequireFromString("1")
	return &matching.Order{
		ID:                id,
		UserID:            userID,
		Side:              side,
		OrderType:         matching.OrderTypeLimit,
		Symbol:            "BTC/USD",
		Price:             p,
		Quantity:          qty,
		RemainingQuantity: qty,
	}
}

func TestMatchSymbolIsNoopOnUncrossedBook(t *testing.T) {
	s := &Service{}
	book := matching.NewOrderBook("BTC/USD", zap.NewNop())

	_, err := book.AddOrder(newOrder("bid-1", "buyer", matching.OrderSideBuy, "100"))
	require.NoError(t, err)
	_, err = book.AddOrder(newOrder("ask-1", "seller", matching.OrderSideSell, "101"))
	require.NoError(t, err)

	trades := s.matchSymbol(book)
	require.Empty(t, trades)
	require.NotNil(t, book.BestBid())
	require.NotNil(t, book.BestAsk())
}

// A same-user bid/ask pair that crosses on price is left resting by
// AddOrder's self-match prevention (§4.1 rule 4). matchSymbol's cancel-then-
// readmit recovery pass must not force a trade across that boundary either;
// it has to terminate leaving both sides still resting.
func TestMatchSymbolNeverCrossesSameUserOrders(t *testing.T) {
	s := &Service{}
	book := matching.NewOrderBook("BTC/USD", zap.NewNop())

	_, err := book.AddOrder(newOrder("bid-1", "trader-x", matching.OrderSideBuy, "100"))
	require.NoError(t, err)
	_, err = book.AddOrder(newOrder("ask-1", "trader-x", matching.OrderSideSell, "99"))
	require.NoError(t, err)

	trades := s.matchSymbol(book)
	require.Empty(t, trades)
	require.NotNil(t, book.BestBid())
	require.NotNil(t, book.BestAsk())
}

func TestMatchSymbolFindsNothingAfterAdmissionCrossesDistinctUsers(t *testing.T) {
	s := &Service{}
	book := matching.NewOrderBook("BTC/USD", zap.NewNop())

	_, err := book.AddOrder(newOrder("bid-1", "buyer", matching.OrderSideBuy, "100"))
	require.NoError(t, err)

	trades, err := book.AddOrder(newOrder("ask-1", "seller", matching.OrderSideSell, "99"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.True(t, trades[0].Price.Equal(decimal.RequireFromString("100")))

	require.Empty(t, s.matchSymbol(book))
	require.Nil(t, book.BestBid())
	require.Nil(t, book.BestAsk())
}
