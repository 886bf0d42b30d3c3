package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// ItemCF 是基于商品的协同过滤候选源（Item-based CF, i2i）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 算法流程：
//  1. 取目标用户的偏好向量（正向交互的商品及得分）
//  2. 对每个源商品取 TopK 相似商品（读预计算的相似度边）
//  3. 候选分数累加：Σ(相似度 × 用户对源商品的得分)，排除已交互商品
//
// 工业地位：
//  - 工业级召回的"常青树"，电商主推位常用
//  - "看了这个，还可能看什么"
type ItemCF struct {
	Ledger    LedgerReader
	Neighbors NeighborStore

	// Method 相似度度量方式，默认 cosine
	Method core.SimilarityMethod

	// TopKSimilarItems 每个源商品考虑的相似商品数
	TopKSimilarItems int

	// Config 提供默认值
	Config core.TuningConfig
}

func (r *ItemCF) Name() string {
	return "recall.i2i"
}

func (r *ItemCF) Recall(
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
	topK := r.TopKSimilarItems
	if topK <= 0 {
		if r.Config != nil {
			topK = r.Config.TopKNeighbors()
		} else {
			topK = 20
		}
	}

	scores := make(map[string]float64)

	for sourceID, userScore := range target {
		if userScore <= 0 {
			continue // 只从正向交互出发
		}
		neighbors, err := r.Neighbors.ProductNeighbors(ctx, sourceID, method, topK)
		if err != nil {
			continue // 单个源商品读边失败只跳过
		}
		for _, nbr := range neighbors {
			if nbr.Score <= 0 {
				continue
			}
			if _, seen := target[nbr.ID]; seen {
				continue // 已交互商品不进候选
			}
			scores[nbr.ID] += nbr.Score * userScore
		}
	}

	out := make([]*core.Item, 0, len(scores))
	for productID, score := range scores {
		it := core.NewItem(productID)
		it.Score = score
		it.Popularity = r.Ledger.Popularity(ctx, productID)
		it.PutLabel("rec_source", utils.Label{Value: "i2i", Source: "recall"})
		it.PutLabel("rec_method", utils.Label{Value: string(method), Source: "recall"})
		out = append(out, it)
	}

	return out, nil
}
