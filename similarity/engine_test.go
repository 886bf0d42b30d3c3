package similarity

import (
	"context"
	"sync"
	"testing"

	"github.com/rushteam/shoprec/core"
)

// fakeInteractions 固定向量的交互快照。
type fakeInteractions struct {
	users    map[string]map[string]float64
	products map[string]map[string]float64
}

func (f *fakeInteractions) AllUsers(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeInteractions) AllProducts(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.products))
	for id := range f.products {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeInteractions) UserVector(_ context.Context, id string) (map[string]float64, error) {
	return f.users[id], nil
}

func (f *fakeInteractions) ProductVector(_ context.Context, id string) (map[string]float64, error) {
	return f.products[id], nil
}

// edgeCollector 收集写出的边（并发安全）。
type edgeCollector struct {
	mu           sync.Mutex
	userEdges    []*core.UserSimilarityEdge
	productEdges []*core.ProductSimilarityEdge
}

func (c *edgeCollector) PutUserEdge(_ context.Context, edge *core.UserSimilarityEdge) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userEdges = append(c.userEdges, edge)
	return nil
}

func (c *edgeCollector) PutProductEdge(_ context.Context, edge *core.ProductSimilarityEdge) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.productEdges = append(c.productEdges, edge)
	return nil
}

type fakeAttrs struct {
	tokens map[string][]string
}

func (f *fakeAttrs) AllProducts(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.tokens))
	for id := range f.tokens {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeAttrs) ProductTokens(_ context.Context, id string) ([]string, error) {
	return f.tokens[id], nil
}

func TestComputeUserSimilarities(t *testing.T) {
	interactions := &fakeInteractions{
		users: map[string]map[string]float64{
			// u1 与 u2 口味几乎一致
			"u1": {"p1": 10, "p2": 5, "p3": 1},
			"u2": {"p1": 9, "p2": 5, "p3": 2},
			// u3 与其他人没有任何共同商品
			"u3": {"p9": 3},
			// u4 没有向量，不参与
			"u4": {},
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{Interactions: interactions, Edges: edges}

	report, err := engine.ComputeUserSimilarities(context.Background(), core.SimCosine)
	if err != nil {
		t.Fatalf("ComputeUserSimilarities() error = %v", err)
	}

	if report.Entities != 3 {
		t.Errorf("Entities = %d, want 3 (empty vector excluded)", report.Entities)
	}
	if report.Pairs != 3 {
		t.Errorf("Pairs = %d, want 3", report.Pairs)
	}
	// u1-u3 与 u2-u3 无共同商品：无定义，跳过
	if report.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", report.Skipped)
	}
	if len(edges.userEdges) != 1 {
		t.Fatalf("written edges = %d, want 1", len(edges.userEdges))
	}

	edge := edges.userEdges[0]
	if edge.UserID1 != "u1" || edge.UserID2 != "u2" {
		t.Errorf("edge pair = (%s, %s), want (u1, u2)", edge.UserID1, edge.UserID2)
	}
	if edge.Score < 0.99 {
		t.Errorf("near-identical tastes scored %v, want > 0.99", edge.Score)
	}
	if edge.Method != core.SimCosine {
		t.Errorf("edge method = %s, want cosine", edge.Method)
	}
}

func TestComputeUserSimilaritiesMinShared(t *testing.T) {
	interactions := &fakeInteractions{
		users: map[string]map[string]float64{
			// 只有一个共同商品，低于 MinSharedItems=2
			"u1": {"p1": 10, "p2": 5},
			"u2": {"p1": 9, "p3": 2},
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{Interactions: interactions, Edges: edges}

	report, err := engine.ComputeUserSimilarities(context.Background(), core.SimCosine)
	if err != nil {
		t.Fatalf("ComputeUserSimilarities() error = %v", err)
	}
	if report.Written != 0 || len(edges.userEdges) != 0 {
		t.Errorf("expected no edges below shared-items threshold, got %d", len(edges.userEdges))
	}
}

func TestComputeUserSimilaritiesMinSimilarity(t *testing.T) {
	interactions := &fakeInteractions{
		users: map[string]map[string]float64{
			// 共同商品足够，但余弦值被大量不重叠的维度稀释
			"u1": {"p1": 1, "p2": 1, "p3": 100, "p4": 100},
			"u2": {"p1": 1, "p2": 1, "p5": 100, "p6": 100},
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{Interactions: interactions, Edges: edges, MinSimilarity: 0.5}

	report, err := engine.ComputeUserSimilarities(context.Background(), core.SimCosine)
	if err != nil {
		t.Fatalf("ComputeUserSimilarities() error = %v", err)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (below min similarity)", report.Skipped)
	}
	if len(edges.userEdges) != 0 {
		t.Errorf("expected no edges, got %d", len(edges.userEdges))
	}
}

func TestComputeProductSimilarities(t *testing.T) {
	interactions := &fakeInteractions{
		products: map[string]map[string]float64{
			"p1": {"u1": 10, "u2": 3},
			"p2": {"u1": 8, "u2": 4},
			"p3": {"u9": 1},
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{Interactions: interactions, Edges: edges}

	report, err := engine.ComputeProductSimilarities(context.Background(), core.SimCosine)
	if err != nil {
		t.Fatalf("ComputeProductSimilarities() error = %v", err)
	}
	if report.Written != 1 {
		t.Errorf("Written = %d, want 1", report.Written)
	}
	edge := edges.productEdges[0]
	if edge.ProductID1 != "p1" || edge.ProductID2 != "p2" {
		t.Errorf("edge pair = (%s, %s), want (p1, p2)", edge.ProductID1, edge.ProductID2)
	}
}

func TestComputeContentSimilarities(t *testing.T) {
	attrs := &fakeAttrs{
		tokens: map[string][]string{
			"p1": {"category:shirt", "brand:acme", "color:blue"},
			"p2": {"category:shirt", "brand:acme", "color:red"},
			"p3": {"category:shoes", "brand:zoom"},
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{
		Interactions: &fakeInteractions{},
		Edges:        edges,
		Attrs:        attrs,
	}

	report, err := engine.ComputeProductSimilarities(context.Background(), core.SimContent)
	if err != nil {
		t.Fatalf("ComputeProductSimilarities(content) error = %v", err)
	}
	if report.Method != core.SimContent {
		t.Errorf("Method = %s, want content", report.Method)
	}
	// 只有 p1-p2 有共同属性
	if len(edges.productEdges) != 1 {
		t.Fatalf("written edges = %d, want 1", len(edges.productEdges))
	}
	edge := edges.productEdges[0]
	if edge.ProductID1 != "p1" || edge.ProductID2 != "p2" {
		t.Errorf("edge pair = (%s, %s), want (p1, p2)", edge.ProductID1, edge.ProductID2)
	}
}

func TestComputeContentSimilaritiesWithoutAttrs(t *testing.T) {
	engine := &Engine{
		Interactions: &fakeInteractions{},
		Edges:        &edgeCollector{},
	}
	_, err := engine.ComputeProductSimilarities(context.Background(), core.SimContent)
	if !core.IsNotSupported(err) {
		t.Errorf("expected NOT_SUPPORTED error, got %v", err)
	}
}

func TestComputeCoOccurrenceSimilarities(t *testing.T) {
	interactions := &fakeInteractions{
		products: map[string]map[string]float64{
			"p1": {"u1": 10, "u2": 1, "u3": 3},
			"p2": {"u1": 2, "u2": 5},
			"p3": {"u9": 1},
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{Interactions: interactions, Edges: edges}

	report, err := engine.ComputeCoOccurrenceSimilarities(context.Background())
	if err != nil {
		t.Fatalf("ComputeCoOccurrenceSimilarities() error = %v", err)
	}

	if report.Method != core.SimJaccard {
		t.Errorf("Method = %s, want jaccard", report.Method)
	}
	if report.Pairs != 3 || report.Skipped != 2 {
		t.Errorf("Pairs = %d, Skipped = %d, want 3/2", report.Pairs, report.Skipped)
	}
	// 只有 p1-p2 有 2 个共同用户：score = 2/10
	if len(edges.productEdges) != 1 {
		t.Fatalf("written edges = %d, want 1", len(edges.productEdges))
	}
	edge := edges.productEdges[0]
	if edge.ProductID1 != "p1" || edge.ProductID2 != "p2" {
		t.Errorf("edge pair = (%s, %s), want (p1, p2)", edge.ProductID1, edge.ProductID2)
	}
	if edge.Score != 0.2 {
		t.Errorf("Score = %v, want 0.2", edge.Score)
	}
}

func TestComputeCoOccurrenceScoreCap(t *testing.T) {
	// 12 个共同用户：score 封顶在 1.0
	shared := make(map[string]float64)
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10", "u11", "u12"} {
		shared[u] = 1
	}
	interactions := &fakeInteractions{
		products: map[string]map[string]float64{
			"p1": shared,
			"p2": shared,
		},
	}
	edges := &edgeCollector{}
	engine := &Engine{Interactions: interactions, Edges: edges}

	if _, err := engine.ComputeCoOccurrenceSimilarities(context.Background()); err != nil {
		t.Fatalf("ComputeCoOccurrenceSimilarities() error = %v", err)
	}
	if len(edges.productEdges) != 1 {
		t.Fatalf("written edges = %d, want 1", len(edges.productEdges))
	}
	if got := edges.productEdges[0].Score; got != 1.0 {
		t.Errorf("Score = %v, want capped 1.0", got)
	}
}
