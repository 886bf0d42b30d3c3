package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// SeenStore 是已交互商品集合的读取接口，由 ledger.Ledger 实现。
type SeenStore interface {
	SeenProducts(ctx context.Context, userID string) (map[string]struct{}, error)
}

// SeenFilter 过滤掉用户已经交互过的商品。
// CF 类推荐（user_based_cf / item_based_cf / hybrid）启用；
// similar_items 与冷启动 trending 不启用此过滤。
type SeenFilter struct {
	Store SeenStore

	// seen 按请求缓存一次集合读取，避免逐候选查询
	seen   map[string]struct{}
	seenOf string
}

func NewSeenFilter(store SeenStore) *SeenFilter {
	return &SeenFilter{Store: store}
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Store == nil {
		return false, nil
	}

	if f.seen == nil || f.seenOf != rctx.UserID {
		seen, err := f.Store.SeenProducts(ctx, rctx.UserID)
		if err != nil {
			return false, err
		}
		f.seen = seen
		f.seenOf = rctx.UserID
	}

	_, ok := f.seen[item.ID]
	return ok, nil
}
