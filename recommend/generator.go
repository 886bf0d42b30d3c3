// Package recommend 实现推荐生成器（RecommendationGenerator）：
// 组合相似度边与交互流水，为目标用户产出排序、去重、带类型标签的推荐。
//
// 生成器只计算、不缓存：缓存未命中时由 service 层同步调用生成并回填，
// 让昂贵路径与服务路径解耦。
package recommend

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

// Generator 按推荐类型装配 召回 → 过滤 → 排序 的 Pipeline 并执行。
type Generator struct {
	Ledger    recall.LedgerReader
	Neighbors recall.NeighborStore

	// CoViews 共现浏览统计源（"看了又看"），可为空
	CoViews recall.CoViewSource

	// UserMethod / ItemMethod 各场景使用的相似度度量，默认 cosine
	UserMethod core.SimilarityMethod
	ItemMethod core.SimilarityMethod

	// SimilarFallback similar_items 交互边缺失时的兜底方法（如 content）
	SimilarFallback core.SimilarityMethod

	// RuleExpr 业务规则过滤表达式（CEL），为空不启用
	RuleExpr string

	// HybridUserWeight hybrid 混合中 user-CF 的权重，item-CF 为 1-w
	HybridUserWeight float64

	// Config 提供默认值
	Config core.TuningConfig

	now func() time.Time
}

func (g *Generator) config() core.TuningConfig {
	if g.Config != nil {
		return g.Config
	}
	return &core.DefaultTuningConfig{}
}

func (g *Generator) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

// recallCtx 给单个召回源加超时，存储抖动不拖垮整个生成路径。
func (g *Generator) recallCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.config().Timeout())
}

// Generate 为用户产出一组推荐。
// 返回集合的 Type 是实际使用的策略：个性化产不出候选时降级为 trending，
// 类型字段随之变为 trending（可观测，不静默替换）。
func (g *Generator) Generate(
	ctx context.Context,
	userID string,
	typ core.RecommendationType,
	limit int,
) ([]core.Recommendation, core.RecommendationType, error) {
	if limit <= 0 {
		limit = g.config().RecommendLimit()
	}
	rctx := &core.RecommendContext{UserID: userID}

	var (
		items []*core.Item
		err   error
	)

	switch typ {
	case core.RecUserBasedCF:
		items, err = g.runPersonalized(ctx, rctx, &recall.UserCF{
			Ledger:    g.Ledger,
			Neighbors: g.Neighbors,
			Method:    g.userMethod(),
			Config:    g.Config,
		}, limit)
	case core.RecItemBasedCF:
		items, err = g.runPersonalized(ctx, rctx, &recall.ItemCF{
			Ledger:    g.Ledger,
			Neighbors: g.Neighbors,
			Method:    g.itemMethod(),
			Config:    g.Config,
		}, limit)
	case core.RecHybrid:
		items, err = g.runHybrid(ctx, rctx, limit)
	case core.RecTrending:
		items, err = g.runTrending(ctx, rctx, limit)
	default:
		items, err = g.runHybrid(ctx, rctx, limit)
		typ = core.RecHybrid
	}
	if err != nil {
		return nil, typ, err
	}

	// 冷启动/数据不足：降级到 trending，类型标签如实透出
	actual := typ
	if len(items) == 0 && typ != core.RecTrending {
		items, err = g.runTrending(ctx, rctx, limit)
		if err != nil {
			return nil, typ, err
		}
		actual = core.RecTrending
	}

	return g.toRecommendations(userID, actual, items), actual, nil
}

// GenerateSimilar 返回某商品的近邻商品（similar_items）。
// 不做个性化、不过滤已见，直接透传相似度边。
func (g *Generator) GenerateSimilar(
	ctx context.Context,
	productID string,
	limit int,
) ([]core.Recommendation, error) {
	if limit <= 0 {
		limit = g.config().RecommendLimit()
	}
	rctx := &core.RecommendContext{ProductID: productID}

	src := &recall.SimilarItems{
		Neighbors: g.Neighbors,
		Ledger:    g.Ledger,
		Method:    g.itemMethod(),
		Fallback:  g.SimilarFallback,
		Limit:     limit,
		Config:    g.Config,
	}
	recallCtx, cancel := g.recallCtx(ctx)
	items, err := src.Recall(recallCtx, rctx)
	cancel()
	if err != nil {
		return nil, err
	}

	rank := &rerank.RankNode{N: limit}
	items, err = rank.Process(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	return g.toRecommendations("", core.RecSimilarItems, items), nil
}

// GenerateAlsoViewed 返回与某商品被共同交互最多的商品（"看了又看"）。
// 基于交互流水实时统计，不依赖预计算边。
func (g *Generator) GenerateAlsoViewed(
	ctx context.Context,
	productID string,
	limit int,
) ([]core.Recommendation, error) {
	if g.CoViews == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = g.config().RecommendLimit()
	}
	rctx := &core.RecommendContext{ProductID: productID}

	src := &recall.AlsoViewed{Interactions: g.CoViews}
	recallCtx, cancel := g.recallCtx(ctx)
	items, err := src.Recall(recallCtx, rctx)
	cancel()
	if err != nil {
		return nil, err
	}

	rank := &rerank.RankNode{N: limit}
	items, err = rank.Process(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	recs := g.toRecommendations("", core.RecSimilarItems, items)
	for i := range recs {
		recs[i].Reason = "Customers who viewed this product also viewed"
	}
	return recs, nil
}

// runPersonalized 执行 CF 类路径：召回 → 已见过滤 + 规则过滤 → 确定性排序截断。
func (g *Generator) runPersonalized(
	ctx context.Context,
	rctx *core.RecommendContext,
	src recall.Source,
	limit int,
) ([]*core.Item, error) {
	recallCtx, cancel := g.recallCtx(ctx)
	items, err := src.Recall(recallCtx, rctx)
	cancel()
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&filter.FilterNode{Filters: g.cfFilters()},
			&rerank.RankNode{N: limit},
		},
	}
	return p.Run(ctx, rctx, items)
}

// runTrending 执行趋势路径：不过滤已见（冷启动用户本就没有历史）。
func (g *Generator) runTrending(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	src := &recall.Trending{Ledger: g.Ledger, Config: g.Config}
	recallCtx, cancel := g.recallCtx(ctx)
	items, err := src.Recall(recallCtx, rctx)
	cancel()
	if err != nil {
		return nil, err
	}
	nodes := []pipeline.Node{&rerank.RankNode{N: limit}}
	if g.RuleExpr != "" {
		nodes = []pipeline.Node{
			&filter.FilterNode{Filters: []filter.Filter{filter.NewRuleFilter(g.RuleExpr)}},
			&rerank.RankNode{N: limit},
		}
	}
	p := &pipeline.Pipeline{Nodes: nodes}
	return p.Run(ctx, rctx, items)
}

// runHybrid 并发执行 user-CF 与 item-CF，按配置权重线性混合。
// 一侧为空时直接退化为另一侧的结果。
func (g *Generator) runHybrid(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	userSrc := &recall.UserCF{
		Ledger:    g.Ledger,
		Neighbors: g.Neighbors,
		Method:    g.userMethod(),
		Config:    g.Config,
	}
	itemSrc := &recall.ItemCF{
		Ledger:    g.Ledger,
		Neighbors: g.Neighbors,
		Method:    g.itemMethod(),
		Config:    g.Config,
	}

	var userItems, itemItems []*core.Item
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		recallCtx, cancel := g.recallCtx(egCtx)
		defer cancel()
		var err error
		userItems, err = userSrc.Recall(recallCtx, rctx)
		return err
	})
	eg.Go(func() error {
		recallCtx, cancel := g.recallCtx(egCtx)
		defer cancel()
		var err error
		itemItems, err = itemSrc.Recall(recallCtx, rctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	blended := g.blend(userItems, itemItems)

	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&filter.FilterNode{Filters: g.cfFilters()},
			&rerank.RankNode{N: limit},
		},
	}
	return p.Run(ctx, rctx, blended)
}

// blend 把两路候选的分数各自 min-max 归一后线性混合。
func (g *Generator) blend(userItems, itemItems []*core.Item) []*core.Item {
	if len(userItems) == 0 {
		return itemItems
	}
	if len(itemItems) == 0 {
		return userItems
	}

	w := g.HybridUserWeight
	if w <= 0 || w >= 1 {
		w = g.config().HybridUserWeight()
	}

	userNorm := normalizeItems(userItems)
	itemNorm := normalizeItems(itemItems)

	merged := make(map[string]*core.Item, len(userItems)+len(itemItems))
	for _, it := range userItems {
		clone := *it
		clone.Score = w * userNorm[it.ID]
		merged[it.ID] = &clone
	}
	for _, it := range itemItems {
		if exist, ok := merged[it.ID]; ok {
			exist.Score += (1 - w) * itemNorm[it.ID]
			for k, v := range it.Labels {
				exist.PutLabel(k, v)
			}
			continue
		}
		clone := *it
		clone.Score = (1 - w) * itemNorm[it.ID]
		merged[it.ID] = &clone
	}

	out := make([]*core.Item, 0, len(merged))
	for _, it := range merged {
		out = append(out, it)
	}
	return out
}

func (g *Generator) cfFilters() []filter.Filter {
	filters := []filter.Filter{filter.NewSeenFilter(seenStoreOrNil(g.Ledger))}
	if g.RuleExpr != "" {
		filters = append(filters, filter.NewRuleFilter(g.RuleExpr))
	}
	return filters
}

func (g *Generator) userMethod() core.SimilarityMethod {
	if g.UserMethod != "" {
		return g.UserMethod
	}
	return core.SimCosine
}

func (g *Generator) itemMethod() core.SimilarityMethod {
	if g.ItemMethod != "" {
		return g.ItemMethod
	}
	return core.SimCosine
}

// toRecommendations 把候选转换为推荐行：置信度为 min-max 归一后的分数，
// 理由文案按实际策略生成。过期时间由缓存写入时设置，此处保持 nil。
func (g *Generator) toRecommendations(
	userID string,
	typ core.RecommendationType,
	items []*core.Item,
) []core.Recommendation {
	norm := normalizeItems(items)
	generatedAt := g.clock()
	reason := reasonFor(typ)

	out := make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		out = append(out, core.Recommendation{
			UserID:      userID,
			ProductID:   it.ID,
			Type:        typ,
			Confidence:  norm[it.ID],
			GeneratedAt: generatedAt,
			Reason:      reason,
		})
	}
	return out
}

// reasonFor 返回各策略的推荐理由文案。
func reasonFor(typ core.RecommendationType) string {
	switch typ {
	case core.RecUserBasedCF:
		return "Users with similar taste also liked this"
	case core.RecItemBasedCF:
		return "Related to products you interacted with"
	case core.RecHybrid:
		return "Picked for you"
	case core.RecTrending:
		return "Popular right now"
	case core.RecSimilarItems:
		return "Similar to this product"
	}
	return ""
}

// normalizeItems 把一组候选分数 min-max 归一到 [0,1]；
// 全部同分时归一为 0.5。
func normalizeItems(items []*core.Item) map[string]float64 {
	norm := make(map[string]float64, len(items))
	if len(items) == 0 {
		return norm
	}

	min, max := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		if it.Score < min {
			min = it.Score
		}
		if it.Score > max {
			max = it.Score
		}
	}

	if max == min {
		for _, it := range items {
			norm[it.ID] = 0.5
		}
		return norm
	}
	for _, it := range items {
		norm[it.ID] = (it.Score - min) / (max - min)
	}
	return norm
}

// seenStoreOrNil 适配：LedgerReader 同时满足 filter.SeenStore。
func seenStoreOrNil(l recall.LedgerReader) filter.SeenStore {
	if l == nil {
		return nil
	}
	return l
}
