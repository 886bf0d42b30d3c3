package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// SimilarItems 以某个商品为锚点直查其近邻（similar_items）。
// 直接透传预计算的商品相似度边，不做个性化、不过滤已见。
// "详情页相似推荐 / 买了又买"场景。
type SimilarItems struct {
	Neighbors NeighborStore
	Ledger    LedgerReader

	// Method 相似度度量方式，默认 cosine；
	// 冷启动商品没有交互边，可配成 content
	Method core.SimilarityMethod

	// Fallback 主方法查不到边时兜底的方法（如 content），可为空
	Fallback core.SimilarityMethod

	// Limit 返回的近邻数，默认 10
	Limit int

	// Config 提供默认值
	Config core.TuningConfig
}

func (r *SimilarItems) Name() string {
	return "recall.similar_items"
}

func (r *SimilarItems) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Neighbors == nil || rctx == nil || rctx.ProductID == "" {
		return nil, nil
	}

	method := r.Method
	if method == "" {
		method = core.SimCosine
	}
	limit := r.Limit
	if limit <= 0 {
		if r.Config != nil {
			limit = r.Config.RecommendLimit()
		} else {
			limit = 10
		}
	}

	neighbors, err := r.Neighbors.ProductNeighbors(ctx, rctx.ProductID, method, limit)
	if err != nil {
		return nil, err
	}

	// 交互边缺失时退到属性相似度：冷启动商品的唯一信号
	if len(neighbors) == 0 && r.Fallback != "" && r.Fallback != method {
		method = r.Fallback
		neighbors, err = r.Neighbors.ProductNeighbors(ctx, rctx.ProductID, method, limit)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*core.Item, 0, len(neighbors))
	for _, nbr := range neighbors {
		it := core.NewItem(nbr.ID)
		it.Score = nbr.Score
		if r.Ledger != nil {
			it.Popularity = r.Ledger.Popularity(ctx, nbr.ID)
		}
		it.PutLabel("rec_source", utils.Label{Value: "similar_items", Source: "recall"})
		it.PutLabel("rec_method", utils.Label{Value: string(method), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
