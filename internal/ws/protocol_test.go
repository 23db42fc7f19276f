package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConnectedEventShape(t *testing.T) {
	ev := newConnectedEvent("client-1")
	require.Equal(t, "connected", ev.Type)
	require.Equal(t, "client-1", ev.ClientID)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"connected","client_id":"client-1","message":"connection established"}`, string(raw))
}

func TestNewSuccessEventShape(t *testing.T) {
	ev := newSuccessEvent("order accepted")
	require.Equal(t, "success", ev.Status)
	require.Equal(t, "order accepted", ev.Message)
}

func TestNewErrorEventOmitsEmptyDetails(t *testing.T) {
	ev := newErrorEvent(codeBadRequest, "bad request", "")

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"error","error":"bad request","code":400}`, string(raw))
}

func TestNewErrorEventIncludesDetailsWhenSet(t *testing.T) {
	ev := newErrorEvent(codeConflict, "conflict", "order already canceled")

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"error","error":"conflict","code":409,"details":"order already canceled"}`, string(raw))
}

func TestNewDisconnectedEventShape(t *testing.T) {
	ev := newDisconnectedEvent("client-1", "idle timeout")
	require.Equal(t, "disconnected", ev.Type)
	require.Equal(t, "client-1", ev.ClientID)
	require.Equal(t, "idle timeout", ev.Message)
}

func TestInboundFrameDecodesTypeDiscriminator(t *testing.T) {
	raw := []byte(`{"type":"create_order","user_id":"u1"}`)

	var frame inboundFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, frameCreateOrder, frame.Type)
}
