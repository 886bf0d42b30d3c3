package recall

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/core"
)

// fakeCoViews 固定数据的共现浏览统计源。
type fakeCoViews struct {
	products map[string]map[string]float64
	users    map[string]map[string]float64
}

func (f *fakeCoViews) ProductVector(_ context.Context, productID string) (map[string]float64, error) {
	return f.products[productID], nil
}

func (f *fakeCoViews) UserVector(_ context.Context, userID string) (map[string]float64, error) {
	return f.users[userID], nil
}

func (f *fakeCoViews) Popularity(_ context.Context, productID string) float64 {
	var total float64
	for _, score := range f.products[productID] {
		total += score
	}
	return total
}

func TestAlsoViewedRecall(t *testing.T) {
	// p1 的交互用户是 u1/u2；两人都看过 p2，只有 u1 看过 p3
	src := &AlsoViewed{Interactions: &fakeCoViews{
		products: map[string]map[string]float64{
			"p1": {"u1": 10, "u2": 1},
		},
		users: map[string]map[string]float64{
			"u1": {"p1": 10, "p2": 1, "p3": 3},
			"u2": {"p1": 1, "p2": 5},
			"u3": {"p9": 1},
		},
	}}

	items, err := src.Recall(context.Background(), &core.RecommendContext{ProductID: "p1"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	scores := make(map[string]float64, len(items))
	for _, it := range items {
		scores[it.ID] = it.Score
		if _, ok := scores["p1"]; ok {
			t.Fatal("anchor product must not recommend itself")
		}
	}
	// 共现人数计数，不按交互强度加权
	if scores["p2"] != 2 {
		t.Errorf("score(p2) = %v, want 2", scores["p2"])
	}
	if scores["p3"] != 1 {
		t.Errorf("score(p3) = %v, want 1", scores["p3"])
	}
}

func TestAlsoViewedEmptyAnchor(t *testing.T) {
	src := &AlsoViewed{Interactions: &fakeCoViews{}}

	items, err := src.Recall(context.Background(), &core.RecommendContext{ProductID: "ghost"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0 for unknown product", len(items))
	}
}
