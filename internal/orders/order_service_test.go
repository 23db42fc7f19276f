package orders

import (
	"context"
	"testing"

	"github.com/abdoElHodaky/tradSys/internal/db/models"
	"github.com/abdoElHodaky/tradSys/internal/validation"
	trsyserrors "github.com/abdoElHodaky/tradSys/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newValidationOnlyService builds an OrderService with every repository and
// cache dependency left nil. That's only safe to exercise the early-exit
// validation and decimal-parsing checks in CreateOrder, which return before
// any of those dependencies are touched.
func newValidationOnlyService() *OrderService {
	return &OrderService{
		validate: validation.NewValidator(),
		logger:   zap.NewNop(),
	}
}

func TestCreateOrderRejectsMalformedSymbol(t *testing.T) {
	s := newValidationOnlyService()

	_, _, err := s.CreateOrder(context.Background(), &OrderRequest{
		UserID:   "user-1",
		Symbol:   "BTCUSD",
		Side:     "BUY",
		Price:    "100",
		Quantity: "1",
	})

	require.Error(t, err)
	require.Equal(t, trsyserrors.ErrValidation, trsyserrors.GetErrorCode(err))
}

func TestCreateOrderRejectsUnknownSide(t *testing.T) {
	s := newValidationOnlyService()

	_, _, err := s.CreateOrder(context.Background(), &OrderRequest{
		UserID:   "user-1",
		Symbol:   "BTC/USD",
		Side:     "HOLD",
		Price:    "100",
		Quantity: "1",
	})

	require.Error(t, err)
	require.Equal(t, trsyserrors.ErrValidation, trsyserrors.GetErrorCode(err))
}

func TestCreateOrderRejectsNonPositivePrice(t *testing.T) {
	s := newValidationOnlyService()

	_, _, err := s.CreateOrder(context.Background(), &OrderRequest{
		UserID:   "user-1",
		Symbol:   "BTC/USD",
		Side:     "BUY",
		Price:    "-1",
		Quantity: "1",
	})

	require.Error(t, err)
	require.Equal(t, trsyserrors.ErrInvalidPrice, trsyserrors.GetErrorCode(err))
}

func TestCreateOrderRejectsUnparsablePrice(t *testing.T) {
	s := newValidationOnlyService()

	_, _, err := s.CreateOrder(context.Background(), &OrderRequest{
		UserID:   "user-1",
		Symbol:   "BTC/USD",
		Side:     "BUY",
		Price:    "not-a-number",
		Quantity: "1",
	})

	require.Error(t, err)
	require.Equal(t, trsyserrors.ErrInvalidPrice, trsyserrors.GetErrorCode(err))
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	s := newValidationOnlyService()

	_, _, err := s.CreateOrder(context.Background(), &OrderRequest{
		UserID:   "user-1",
		Symbol:   "BTC/USD",
		Side:     "SELL",
		Price:    "100",
		Quantity: "0",
	})

	require.Error(t, err)
	require.Equal(t, trsyserrors.ErrInvalidQuantity, trsyserrors.GetErrorCode(err))
}

func TestStatusForTransitions(t *testing.T) {
	total := decimal.RequireFromString("10")

	require.Equal(t, models.OrderStatusOpen, statusFor(total, decimal.Zero))
	require.Equal(t, models.OrderStatusPartiallyFilled, statusFor(total, decimal.RequireFromString("4")))
	require.Equal(t, models.OrderStatusFilled, statusFor(total, decimal.RequireFromString("10")))
	require.Equal(t, models.OrderStatusFilled, statusFor(total, decimal.RequireFromString("11")))
}
