package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// RankNode 是确定性排序 + Top-N 截断节点。
//
// 排序规则（完全确定，保证同输入同输出）：
//  1. 分数降序
//  2. 同分按原始交互热度（Popularity）降序
//  3. 仍同按商品 id 升序
type RankNode struct {
	// N 要保留的候选数量（Top N）
	// 如果 N <= 0，则只排序不截断
	N int
}

func (n *RankNode) Name() string {
	return "rerank.rank"
}

func (n *RankNode) Kind() pipeline.Kind {
	return pipeline.KindRank
}

func (n *RankNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Popularity != items[j].Popularity {
			return items[i].Popularity > items[j].Popularity
		}
		return items[i].ID < items[j].ID
	})

	if n.N > 0 && len(items) > n.N {
		items = items[:n.N]
	}
	return items, nil
}
