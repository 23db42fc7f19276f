package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type orderPayload struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Side     string `json:"side" validate:"required,oneof=BUY SELL"`
	Password string `json:"password,omitempty" validate:"omitempty,password"`
}

func TestValidateAcceptsWellFormedSymbol(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&orderPayload{Symbol: "BTC/USD", Side: "BUY"})
	require.NoError(t, err)
}

func TestValidateRejectsMalformedSymbol(t *testing.T) {
	v := NewValidator()

	cases := []string{"BTCUSD", "btc/usd", "B/USD", "BTC/US/D"}
	for _, symbol := range cases {
		err := v.Validate(&orderPayload{Symbol: symbol, Side: "BUY"})
		require.Error(t, err, "expected %q to fail symbol validation", symbol)
	}
}

func TestValidateRejectsUnknownSide(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&orderPayload{Symbol: "BTC/USD", Side: "HOLD"})
	require.Error(t, err)
}

func TestValidatePasswordTag(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.Validate(&orderPayload{Symbol: "BTC/USD", Side: "BUY", Password: "Str0ng!Pass"}))
	require.Error(t, v.Validate(&orderPayload{Symbol: "BTC/USD", Side: "BUY", Password: "weakpass"}))
}

func TestValidateVarUsesRegisteredTag(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.ValidateVar("ETH/USD", "symbol"))
	require.Error(t, v.ValidateVar("ETHUSD", "symbol"))
}
