package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrPersistence, "failed to persist order")

	require.Equal(t, ErrPersistence, wrapped.Code)
	require.Equal(t, cause, wrapped.Unwrap())
	require.ErrorContains(t, wrapped, "connection refused")
}

func TestWrapNilReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrPersistence, "should not happen"))
}

func TestIsMatchesWrappedCode(t *testing.T) {
	err := New(ErrInsufficientBalance, "not enough balance")
	require.True(t, Is(err, ErrInsufficientBalance))
	require.False(t, Is(err, ErrValidation))
}

func TestGetErrorCodeOnPlainError(t *testing.T) {
	require.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}

func TestHTTPStatusMapping(t *testing.T) {
	require.Equal(t, 400, HTTPStatus(ErrValidation))
	require.Equal(t, 400, HTTPStatus(ErrInsufficientBalance))
	require.Equal(t, 401, HTTPStatus(ErrAuth))
	require.Equal(t, 404, HTTPStatus(ErrNotFound))
	require.Equal(t, 409, HTTPStatus(ErrConflict))
	require.Equal(t, 500, HTTPStatus(ErrPersistence))
}

func TestDefaultSeverityAssignment(t *testing.T) {
	require.Equal(t, SeverityCritical, getSeverityForCode(ErrPersistence))
	require.Equal(t, SeverityLow, getSeverityForCode(ErrValidation))
	require.Equal(t, SeverityMedium, getSeverityForCode(ErrInsufficientBalance))
}

func TestErrorGroupAggregatesOnlyNonNil(t *testing.T) {
	group := NewErrorGroup()
	require.False(t, group.HasErrors())

	group.Add(nil)
	require.False(t, group.HasErrors())

	group.Add(errors.New("first"))
	group.Add(errors.New("second"))
	require.True(t, group.HasErrors())
	require.Len(t, group.Errors(), 2)
	require.ErrorContains(t, group.First(), "first")
}

func TestDefaultErrorHandlerRetryDecision(t *testing.T) {
	h := NewDefaultErrorHandler()

	require.True(t, h.ShouldRetry(New(ErrTimeout, "timed out")))
	require.False(t, h.ShouldRetry(New(ErrValidation, "bad input")))
}

func TestDefaultErrorHandlerBackoffCapsAtMaxDelay(t *testing.T) {
	h := NewDefaultErrorHandler()

	require.Equal(t, h.BaseDelay, h.GetRetryDelay(nil, 0))
	require.LessOrEqual(t, h.GetRetryDelay(nil, 100), h.MaxDelay)
}
