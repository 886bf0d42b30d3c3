package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// CoViewSource 提供共现浏览统计所需的读接口，由 ledger.Ledger 实现。
type CoViewSource interface {
	ProductVector(ctx context.Context, productID string) (map[string]float64, error)
	UserVector(ctx context.Context, userID string) (map[string]float64, error)
	Popularity(ctx context.Context, productID string) float64
}

// AlsoViewed "看过该商品的人还看了"：
// 以锚点商品的交互用户为桥，统计这批用户交互过的其它商品并按人数排序。
// 不依赖预计算边，交互写入后立即可见，适合详情页的轻量横排。
type AlsoViewed struct {
	Interactions CoViewSource
}

func (r *AlsoViewed) Name() string {
	return "recall.also_viewed"
}

func (r *AlsoViewed) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Interactions == nil || rctx == nil || rctx.ProductID == "" {
		return nil, nil
	}

	viewers, err := r.Interactions.ProductVector(ctx, rctx.ProductID)
	if err != nil {
		return nil, err
	}
	if len(viewers) == 0 {
		return nil, nil
	}

	// 共现人数计数：每个共同交互用户贡献 1，不按交互强度加权
	counts := make(map[string]int)
	for userID := range viewers {
		vec, err := r.Interactions.UserVector(ctx, userID)
		if err != nil {
			continue // 单个用户读失败只跳过
		}
		for productID := range vec {
			if productID == rctx.ProductID {
				continue
			}
			counts[productID]++
		}
	}

	out := make([]*core.Item, 0, len(counts))
	for productID, count := range counts {
		it := core.NewItem(productID)
		it.Score = float64(count)
		it.Popularity = r.Interactions.Popularity(ctx, productID)
		it.PutLabel("rec_source", utils.Label{Value: "also_viewed", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
