package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestCache(t *testing.T, clock *fixedClock) *Cache {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	return New(kv, WithClock(clock.Now))
}

func sampleRecs(userID string, typ core.RecommendationType, products ...string) []core.Recommendation {
	recs := make([]core.Recommendation, 0, len(products))
	for i, p := range products {
		recs = append(recs, core.Recommendation{
			UserID:     userID,
			ProductID:  p,
			Type:       typ,
			Confidence: 1.0 - float64(i)*0.1,
		})
	}
	return recs
}

func TestCachePutGet(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clock)
	ctx := context.Background()

	recs := sampleRecs("u1", core.RecHybrid, "p1", "p2", "p3")
	if err := c.Put(ctx, "u1", core.RecHybrid, recs); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, hit, err := c.Get(ctx, "u1", core.RecHybrid)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if len(got) != 3 || got[0].ProductID != "p1" {
		t.Errorf("got %v, want 3 recs starting with p1", got)
	}
	if got[0].ExpiresAt == nil {
		t.Error("expected expiry to be stamped on cached recommendations")
	}
}

func TestCacheMissForUnknownUser(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	c := newTestCache(t, clock)

	_, hit, err := c.Get(context.Background(), "nobody", core.RecHybrid)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("expected miss for unknown user")
	}
}

func TestCacheLazyExpiry(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clock)
	ctx := context.Background()

	if err := c.Put(ctx, "u1", core.RecTrending, sampleRecs("u1", core.RecTrending, "p1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// TTL（默认 24h）内命中
	clock.now = clock.now.Add(23 * time.Hour)
	if _, hit, _ := c.Get(ctx, "u1", core.RecTrending); !hit {
		t.Fatal("expected hit before expiry")
	}

	// 过期后按未命中处理
	clock.now = clock.now.Add(2 * time.Hour)
	if _, hit, _ := c.Get(ctx, "u1", core.RecTrending); hit {
		t.Error("expected miss after expiry")
	}
}

func TestCachePutOverwrites(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clock)
	ctx := context.Background()

	if err := c.Put(ctx, "u1", core.RecHybrid, sampleRecs("u1", core.RecHybrid, "p1", "p2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put(ctx, "u1", core.RecHybrid, sampleRecs("u1", core.RecHybrid, "p9")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, hit, err := c.Get(ctx, "u1", core.RecHybrid)
	if err != nil || !hit {
		t.Fatalf("Get() hit = %v, err = %v", hit, err)
	}
	if len(got) != 1 || got[0].ProductID != "p9" {
		t.Errorf("got %v, want the overwritten set [p9]", got)
	}
}

func TestCacheInvalidateClearsAllTypes(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clock)
	ctx := context.Background()

	for _, typ := range []core.RecommendationType{core.RecHybrid, core.RecTrending, core.RecUserBasedCF} {
		if err := c.Put(ctx, "u1", typ, sampleRecs("u1", typ, "p1")); err != nil {
			t.Fatalf("Put(%s) error = %v", typ, err)
		}
	}
	// 其他用户的缓存不受影响
	if err := c.Put(ctx, "u2", core.RecHybrid, sampleRecs("u2", core.RecHybrid, "p5")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := c.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	for _, typ := range core.RecommendationTypes {
		if _, hit, _ := c.Get(ctx, "u1", typ); hit {
			t.Errorf("expected miss for u1 %s after invalidation", typ)
		}
	}
	if _, hit, _ := c.Get(ctx, "u2", core.RecHybrid); !hit {
		t.Error("invalidation leaked to another user")
	}
}

func TestCacheTypesIsolated(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clock)
	ctx := context.Background()

	if err := c.Put(ctx, "u1", core.RecHybrid, sampleRecs("u1", core.RecHybrid, "p1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, hit, _ := c.Get(ctx, "u1", core.RecTrending); hit {
		t.Error("expected miss for a type that was never cached")
	}
}

func TestCacheSweep(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	c := newTestCache(t, clock)
	ctx := context.Background()

	if err := c.Put(ctx, "u1", core.RecHybrid, sampleRecs("u1", core.RecHybrid, "p1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// u2 的条目晚 2 小时写入，清扫时还没过期
	clock.now = clock.now.Add(2 * time.Hour)
	if err := c.Put(ctx, "u2", core.RecTrending, sampleRecs("u2", core.RecTrending, "p2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	clock.now = clock.now.Add(23 * time.Hour)
	removed, err := c.Sweep(ctx, []string{"u1", "u2", "no-such-user"})
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, hit, _ := c.Get(ctx, "u1", core.RecHybrid); hit {
		t.Error("expired entry should be swept")
	}
	if _, hit, _ := c.Get(ctx, "u2", core.RecTrending); !hit {
		t.Error("live entry must survive the sweep")
	}
}
