package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
)

func newTestCache() *Cache {
	cfg := &appconfig.Config{}
	cfg.Cache.ClaimsTTL = 50 * time.Millisecond
	cfg.Cache.SnapshotTTL = 50 * time.Millisecond
	cfg.Cache.CleanupInterval = time.Minute
	return New(cfg)
}

func TestClaimsRoundTrip(t *testing.T) {
	c := newTestCache()

	_, ok := c.GetClaims("token-a")
	require.False(t, ok)

	c.PutClaims("token-a", "user-1")
	principalID, ok := c.GetClaims("token-a")
	require.True(t, ok)
	require.Equal(t, "user-1", principalID)
}

func TestClaimsExpire(t *testing.T) {
	c := newTestCache()
	c.PutClaims("token-a", "user-1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.GetClaims("token-a")
	require.False(t, ok)
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newTestCache()

	_, ok := c.GetSnapshot("BTC/USD")
	require.False(t, ok)

	c.PutSnapshot("BTC/USD", "snapshot-payload")
	snap, ok := c.GetSnapshot("BTC/USD")
	require.True(t, ok)
	require.Equal(t, "snapshot-payload", snap)
}

func TestInvalidateSnapshot(t *testing.T) {
	c := newTestCache()
	c.PutSnapshot("BTC/USD", "snapshot-payload")

	c.InvalidateSnapshot("BTC/USD")

	_, ok := c.GetSnapshot("BTC/USD")
	require.False(t, ok)
}

func TestInvalidateSnapshotIsNoopWhenAbsent(t *testing.T) {
	c := newTestCache()
	c.InvalidateSnapshot("does-not-exist")
}
