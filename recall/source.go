package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Source 表示一个可复用的候选来源（user-CF / item-CF / trending / 近邻直查）。
// 数据不足时返回空结果而不是错误，由上层执行降级策略。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// LedgerReader 是召回源读取交互数据的接口，由 ledger.Ledger 实现。
type LedgerReader interface {
	// UserVector 返回用户的稀疏偏好向量 productID → 加权得分
	UserVector(ctx context.Context, userID string) (map[string]float64, error)

	// SeenProducts 返回用户交互过的商品集合
	SeenProducts(ctx context.Context, userID string) (map[string]struct{}, error)

	// TrendingScores 返回最近窗口内按聚合交互权重降序的商品
	TrendingScores(ctx context.Context, windowDays int) ([]core.ZMember, error)

	// Popularity 返回商品的原始交互热度
	Popularity(ctx context.Context, productID string) float64
}

// NeighborStore 是召回源读取预计算相似度边的接口，
// 由 similarity.StoreEdgeAdapter 实现。
type NeighborStore interface {
	UserNeighbors(ctx context.Context, userID string, method core.SimilarityMethod, topK int) ([]core.Neighbor, error)
	ProductNeighbors(ctx context.Context, productID string, method core.SimilarityMethod, topK int) ([]core.Neighbor, error)
}
