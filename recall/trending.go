package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Trending 是趋势热度候选源：按最近窗口内全站聚合交互权重排序，
// 与目标用户无关。个性化不可用时的冷启动兜底。
type Trending struct {
	Ledger LedgerReader

	// WindowDays 热度统计窗口（天），默认 7
	WindowDays int

	// Limit 候选数上限，默认 100
	Limit int

	// Config 提供默认值
	Config core.TuningConfig
}

func (r *Trending) Name() string {
	return "recall.trending"
}

func (r *Trending) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Ledger == nil {
		return nil, nil
	}

	window := r.WindowDays
	if window <= 0 {
		if r.Config != nil {
			window = r.Config.TrendingWindowDays()
		} else {
			window = 7
		}
	}

	members, err := r.Ledger.TrendingScores(ctx, window)
	if err != nil {
		return nil, err
	}

	limit := r.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(members) > limit {
		members = members[:limit]
	}

	out := make([]*core.Item, 0, len(members))
	for _, m := range members {
		it := core.NewItem(m.Member)
		it.Score = m.Score
		it.Popularity = r.Ledger.Popularity(ctx, m.Member)
		it.PutLabel("rec_source", utils.Label{Value: "trending", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
