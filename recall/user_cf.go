package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// UserCF 是基于用户的协同过滤候选源（User-based CF, u2i）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. 取目标用户的 TopK 相似用户（读预计算的相似度边）
//  2. 收集这些用户交互过、目标用户未见过的商品
//  3. 候选分数 = Σ(相似度 × 邻居加权得分) / Σ|使用到的相似度|
//
// 工程特征：
//  - 相似度边离线批量产出（similarity.Engine），在线只做近邻读 + 加权
//  - 目标用户无交互或无邻居时返回空，冷启动降级交给上层
type UserCF struct {
	Ledger    LedgerReader
	Neighbors NeighborStore

	// Method 相似度度量方式，默认 cosine
	Method core.SimilarityMethod

	// TopKNeighbors 考虑的相似用户数
	TopKNeighbors int

	// Config 提供默认值
	Config core.TuningConfig
}

func (r *UserCF) Name() string {
	return "recall.u2i"
}

func (r *UserCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Ledger == nil || r.Neighbors == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	target, err := r.Ledger.UserVector(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if len(target) == 0 {
		return nil, nil
	}

	method := r.Method
	if method == "" {
		method = core.SimCosine
	}
	topK := r.TopKNeighbors
	if topK <= 0 {
		if r.Config != nil {
			topK = r.Config.TopKNeighbors()
		} else {
			topK = 20
		}
	}

	neighbors, err := r.Neighbors.UserNeighbors(ctx, rctx.UserID, method, topK)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	// score[p] = Σ(sim × 邻居得分)，norm[p] = Σ|sim|（只累计贡献过的邻居）
	scores := make(map[string]float64)
	norms := make(map[string]float64)

	for _, nbr := range neighbors {
		if nbr.Score <= 0 {
			continue // 只保留正相似度
		}
		nbrVector, err := r.Ledger.UserVector(ctx, nbr.ID)
		if err != nil {
			continue
		}
		for productID, nbrScore := range nbrVector {
			if _, seen := target[productID]; seen {
				continue // 目标用户已交互，排除
			}
			scores[productID] += nbr.Score * nbrScore
			norms[productID] += nbr.Score
		}
	}

	out := make([]*core.Item, 0, len(scores))
	for productID, score := range scores {
		it := core.NewItem(productID)
		it.Score = score / norms[productID]
		it.Popularity = r.Ledger.Popularity(ctx, productID)
		it.PutLabel("rec_source", utils.Label{Value: "u2i", Source: "recall"})
		it.PutLabel("rec_method", utils.Label{Value: string(method), Source: "recall"})
		out = append(out, it)
	}

	return out, nil
}
