package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryCacheSetGetRoundTrip(t *testing.T) {
	qc := NewQueryCache(zap.NewNop(), QueryCacheOptions{DefaultTTL: time.Minute, CleanupTime: time.Minute})

	type row struct {
		ID    string
		Price string
	}

	require.NoError(t, qc.Set(context.Background(), "k1", row{ID: "o1", Price: "100"}, 0))

	var got row
	require.True(t, qc.Get(context.Background(), "k1", &got))
	require.Equal(t, "o1", got.ID)
	require.Equal(t, "100", got.Price)
}

func TestQueryCacheMissWhenAbsent(t *testing.T) {
	qc := NewQueryCache(zap.NewNop(), QueryCacheOptions{DefaultTTL: time.Minute})

	var got struct{ X string }
	require.False(t, qc.Get(context.Background(), "missing", &got))
}

func TestQueryCacheRespectsTTL(t *testing.T) {
	qc := NewQueryCache(zap.NewNop(), QueryCacheOptions{DefaultTTL: time.Minute})

	require.NoError(t, qc.Set(context.Background(), "k1", "value", 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	var got string
	require.False(t, qc.Get(context.Background(), "k1", &got))
}

func TestQueryCacheDeleteAndFlush(t *testing.T) {
	qc := NewQueryCache(zap.NewNop(), QueryCacheOptions{DefaultTTL: time.Minute})

	require.NoError(t, qc.Set(context.Background(), "k1", "v1", 0))
	require.NoError(t, qc.Set(context.Background(), "k2", "v2", 0))

	qc.Delete(context.Background(), "k1")
	var got string
	require.False(t, qc.Get(context.Background(), "k1", &got))
	require.True(t, qc.Get(context.Background(), "k2", &got))

	qc.Flush()
	require.False(t, qc.Get(context.Background(), "k2", &got))
}

func TestQueryCacheGetReturnsFalseWhenContextCanceled(t *testing.T) {
	qc := NewQueryCache(zap.NewNop(), QueryCacheOptions{DefaultTTL: time.Minute})
	require.NoError(t, qc.Set(context.Background(), "k1", "v1", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got string
	require.False(t, qc.Get(ctx, "k1", &got))
}

func TestGetCacheKeyIsStableForSameArgs(t *testing.T) {
	k1 := GetCacheKey("select * from orders where id = ?", "order-1")
	k2 := GetCacheKey("select * from orders where id = ?", "order-1")
	k3 := GetCacheKey("select * from orders where id = ?", "order-2")

	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}

func TestWithCacheStoresResultOnMiss(t *testing.T) {
	qc := NewQueryCache(zap.NewNop(), QueryCacheOptions{DefaultTTL: time.Minute})

	calls := 0
	var dest string
	fetch := func() error {
		calls++
		dest = "computed"
		return nil
	}

	require.NoError(t, qc.WithCache(context.Background(), "k1", &dest, 0, fetch))
	require.Equal(t, 1, calls)

	dest = ""
	require.NoError(t, qc.WithCache(context.Background(), "k1", &dest, 0, fetch))
	require.Equal(t, 1, calls, "second call should be served from cache without invoking fetch again")
	require.Equal(t, "computed", dest)
}
