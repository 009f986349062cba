package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
)

func newTestCache(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := Connect(context.Background(), mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestSetAndGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := Key("abc", models.ChartHints{Symbol: "eur/usd", Timeframe: "1H"})

	want := prediction.DefaultResult()
	want.TrendPrediction = models.TrendUp

	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, found, err := c.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("Get() = found %v, error %v", found, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cached result mismatch (-want +got):\n%s", diff)
	}

	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, found, err := c.Get(context.Background(), Key("missing", models.ChartHints{}))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("expected a miss")
	}
}

func TestGetDropsCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	key := Key("corrupt", models.ChartHints{})
	mr.Set(key, "{not json")

	_, found, err := c.Get(context.Background(), key)
	if err != nil || found {
		t.Fatalf("Get() = found %v, error %v; want a clean miss", found, err)
	}
	if mr.Exists(key) {
		t.Error("corrupt entry should be deleted")
	}
}

func TestKeyNormalisesHints(t *testing.T) {
	a := Key("ref", models.ChartHints{Symbol: "btc/usd", Timeframe: "4H"})
	b := Key("ref", models.ChartHints{Symbol: "BTC/USD", Timeframe: "4h"})
	if a != b {
		t.Errorf("Key() = %q and %q, want equal", a, b)
	}
}
