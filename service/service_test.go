package service

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/ledger"
	"github.com/rushteam/shoprec/recommend"
	"github.com/rushteam/shoprec/similarity"
	"github.com/rushteam/shoprec/store"
)

// newTestService 装配一套基于 MemoryStore 的完整子系统。
func newTestService(t *testing.T) (*Service, *ledger.Ledger, *similarity.Engine) {
	t.Helper()

	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })

	recCache := cache.New(kv)
	interactions := ledger.New(kv,
		ledger.WithOnInvalidate(func(ctx context.Context, userID string) {
			_ = recCache.Invalidate(ctx, userID)
		}),
	)
	edges := similarity.NewStoreEdgeAdapter(kv)
	engine := &similarity.Engine{Interactions: interactions, Edges: edges}
	generator := &recommend.Generator{Ledger: interactions, Neighbors: edges, CoViews: interactions}

	return New(interactions, generator, recCache), interactions, engine
}

func record(t *testing.T, s *Service, user, product, typ string) {
	t.Helper()
	if _, err := s.RecordInteraction(context.Background(), user, product, typ, nil, ""); err != nil {
		t.Fatalf("RecordInteraction(%s, %s, %s) error = %v", user, product, typ, err)
	}
}

func TestRecordInteractionReturnsEventID(t *testing.T) {
	s, _, _ := newTestService(t)

	id, err := s.RecordInteraction(context.Background(), "u1", "p1", "view", nil, "sess-1")
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if id == "" {
		t.Error("expected a generated event id")
	}
}

func TestRecordInteractionRejectsBadRating(t *testing.T) {
	s, _, _ := newTestService(t)

	bad := 9.0
	_, err := s.RecordInteraction(context.Background(), "u1", "p1", "rating", &bad, "")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGetRecommendationsRequiresUser(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.GetRecommendations(context.Background(), "", core.RecHybrid, 10)
	if err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestGetRecommendationsColdStartServesTrending(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	// 全站有交互，但目标用户没有
	record(t, s, "someone", "p1", "purchase")
	record(t, s, "someone-else", "p2", "view")

	recs, err := s.GetRecommendations(ctx, "newcomer", core.RecUserBasedCF, 10)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("expected trending fallback, got empty result")
	}
	for _, rec := range recs {
		if rec.Type != core.RecTrending {
			t.Errorf("rec type = %s, want trending degrade", rec.Type)
		}
	}
	if recs[0].ProductID != "p1" {
		t.Errorf("top rec = %s, want p1 (purchase outweighs view)", recs[0].ProductID)
	}
}

func TestGetRecommendationsCacheFirst(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	record(t, s, "other", "p1", "purchase")

	first, err := s.GetRecommendations(ctx, "u1", core.RecTrending, 10)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d recs, want 1", len(first))
	}

	// 新交互改变趋势，但 u1 的缓存还在：结果不变
	record(t, s, "other", "p2", "purchase")
	record(t, s, "other2", "p2", "purchase")

	cached, err := s.GetRecommendations(ctx, "u1", core.RecTrending, 10)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(cached) != 1 || cached[0].ProductID != "p1" {
		t.Errorf("expected stale cached result [p1], got %v", cached)
	}
}

func TestPurchaseInvalidatesCache(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	record(t, s, "other", "p1", "purchase")

	if _, err := s.GetRecommendations(ctx, "u1", core.RecTrending, 10); err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}

	// 趋势变化 + u1 购买触发失效
	record(t, s, "other", "p2", "purchase")
	record(t, s, "other2", "p2", "purchase")
	record(t, s, "u1", "p9", "purchase")

	fresh, err := s.GetRecommendations(ctx, "u1", core.RecTrending, 10)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}

	found := false
	for _, rec := range fresh {
		if rec.ProductID == "p2" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected regenerated result to include p2, got %v", fresh)
	}
}

func TestGetRecommendationsPersonalized(t *testing.T) {
	s, _, engine := newTestService(t)
	ctx := context.Background()

	// u1 与 u2 有两个共同商品，u2 还买了 p3
	record(t, s, "u1", "p1", "purchase")
	record(t, s, "u1", "p2", "view")
	record(t, s, "u2", "p1", "purchase")
	record(t, s, "u2", "p2", "view")
	record(t, s, "u2", "p3", "purchase")

	if _, err := engine.ComputeUserSimilarities(ctx, core.SimCosine); err != nil {
		t.Fatalf("ComputeUserSimilarities() error = %v", err)
	}

	recs, err := s.GetRecommendations(ctx, "u1", core.RecUserBasedCF, 10)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ProductID != "p3" {
		t.Fatalf("got %v, want exactly [p3]", recs)
	}
	if recs[0].Type != core.RecUserBasedCF {
		t.Errorf("rec type = %s, want user_based_cf (no degrade)", recs[0].Type)
	}
}

func TestGetSimilarProducts(t *testing.T) {
	s, _, engine := newTestService(t)
	ctx := context.Background()

	// p1 与 p2 被同两个用户高权重交互
	record(t, s, "u1", "p1", "purchase")
	record(t, s, "u1", "p2", "purchase")
	record(t, s, "u2", "p1", "purchase")
	record(t, s, "u2", "p2", "purchase")
	record(t, s, "u3", "p3", "view")

	if _, err := engine.ComputeProductSimilarities(ctx, core.SimCosine); err != nil {
		t.Fatalf("ComputeProductSimilarities() error = %v", err)
	}

	recs, err := s.GetSimilarProducts(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("GetSimilarProducts() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ProductID != "p2" {
		t.Fatalf("got %v, want [p2]", recs)
	}
	if recs[0].Type != core.RecSimilarItems {
		t.Errorf("rec type = %s, want similar_items", recs[0].Type)
	}
}

func TestGetRecommendationsLimitClipsCachedSet(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	for i, p := range []string{"p1", "p2", "p3", "p4", "p5"} {
		user := "u" + string(rune('a'+i))
		record(t, s, user, p, "purchase")
	}

	recs, err := s.GetRecommendations(ctx, "viewer", core.RecTrending, 2)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d recs, want clipped 2", len(recs))
	}

	// 更大的 limit 命中同一份缓存的全量集
	recs, err = s.GetRecommendations(ctx, "viewer", core.RecTrending, 5)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(recs) != 5 {
		t.Errorf("got %d recs, want 5 from the cached full set", len(recs))
	}
}

func TestInvalidateUser(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	record(t, s, "other", "p1", "purchase")
	if _, err := s.GetRecommendations(ctx, "u1", core.RecTrending, 10); err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}

	if err := s.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateUser() error = %v", err)
	}

	// 失效后重新生成，反映新趋势
	record(t, s, "other", "p2", "purchase")
	record(t, s, "other2", "p2", "purchase")
	recs, err := s.GetRecommendations(ctx, "u1", core.RecTrending, 10)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if recs[0].ProductID != "p2" {
		t.Errorf("top rec = %s, want p2 after invalidation", recs[0].ProductID)
	}
}

func TestGetAlsoViewed(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	// u1/u2 都交互过 p1 和 p2，只有 u1 交互过 p3
	record(t, s, "u1", "p1", "view")
	record(t, s, "u1", "p2", "view")
	record(t, s, "u1", "p3", "view")
	record(t, s, "u2", "p1", "view")
	record(t, s, "u2", "p2", "view")

	recs, err := s.GetAlsoViewed(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("GetAlsoViewed() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("recs = %d, want 2", len(recs))
	}
	if recs[0].ProductID != "p2" {
		t.Errorf("top = %s, want p2 (viewed by both users)", recs[0].ProductID)
	}

	if _, err := s.GetAlsoViewed(ctx, "", 10); err == nil {
		t.Error("expected error for empty product id")
	}
}
