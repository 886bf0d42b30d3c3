package similarity

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprec/core"
)

// 相似度边的存储布局（基于 core.KeyValueStore）：
//   - sim:user:{method}:{a}|{b}        边 JSON（a < b，规范化 pair）
//   - sim:user:{method}:nbr:{id}       zset member=对端 id score=相似度
//   - sim:product:{method}:{a}|{b}     同上，按商品 pair
//   - sim:product:{method}:nbr:{id}
//
// 同一 (pair, method) 重复写入即覆盖，新一轮计算取代旧行。

const (
	keyUserEdge    = "sim:user:"
	keyProductEdge = "sim:product:"
)

// StoreEdgeAdapter 把相似度边读写适配到 core.KeyValueStore。
type StoreEdgeAdapter struct {
	kv core.KeyValueStore
}

func NewStoreEdgeAdapter(kv core.KeyValueStore) *StoreEdgeAdapter {
	return &StoreEdgeAdapter{kv: kv}
}

func pairKey(prefix string, method core.SimilarityMethod, a, b string) string {
	a, b = core.CanonicalPair(a, b)
	return prefix + string(method) + ":" + a + "|" + b
}

func nbrKey(prefix string, method core.SimilarityMethod, id string) string {
	return prefix + string(method) + ":nbr:" + id
}

// PutUserEdge 写入一条用户相似度边（覆盖同 pair+method 的旧行），
// 并更新双向近邻 zset。
func (s *StoreEdgeAdapter) PutUserEdge(ctx context.Context, edge *core.UserSimilarityEdge) error {
	a, b := core.CanonicalPair(edge.UserID1, edge.UserID2)
	stored := *edge
	stored.UserID1, stored.UserID2 = a, b

	payload, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, pairKey(keyUserEdge, stored.Method, a, b), payload); err != nil {
		return err
	}
	if err := s.kv.ZAdd(ctx, nbrKey(keyUserEdge, stored.Method, a), stored.Score, b); err != nil {
		return err
	}
	return s.kv.ZAdd(ctx, nbrKey(keyUserEdge, stored.Method, b), stored.Score, a)
}

// PutProductEdge 写入一条商品相似度边，语义同 PutUserEdge。
func (s *StoreEdgeAdapter) PutProductEdge(ctx context.Context, edge *core.ProductSimilarityEdge) error {
	a, b := core.CanonicalPair(edge.ProductID1, edge.ProductID2)
	stored := *edge
	stored.ProductID1, stored.ProductID2 = a, b

	payload, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, pairKey(keyProductEdge, stored.Method, a, b), payload); err != nil {
		return err
	}
	if err := s.kv.ZAdd(ctx, nbrKey(keyProductEdge, stored.Method, a), stored.Score, b); err != nil {
		return err
	}
	return s.kv.ZAdd(ctx, nbrKey(keyProductEdge, stored.Method, b), stored.Score, a)
}

// GetUserEdge 读取一条用户相似度边；(a,b) 与 (b,a) 等价。
// 不存在时返回 core.ErrStoreNotFound。
func (s *StoreEdgeAdapter) GetUserEdge(ctx context.Context, userID1, userID2 string, method core.SimilarityMethod) (*core.UserSimilarityEdge, error) {
	data, err := s.kv.Get(ctx, pairKey(keyUserEdge, method, userID1, userID2))
	if err != nil {
		return nil, err
	}
	var edge core.UserSimilarityEdge
	if err := json.Unmarshal(data, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// GetProductEdge 读取一条商品相似度边；(a,b) 与 (b,a) 等价。
func (s *StoreEdgeAdapter) GetProductEdge(ctx context.Context, productID1, productID2 string, method core.SimilarityMethod) (*core.ProductSimilarityEdge, error) {
	data, err := s.kv.Get(ctx, pairKey(keyProductEdge, method, productID1, productID2))
	if err != nil {
		return nil, err
	}
	var edge core.ProductSimilarityEdge
	if err := json.Unmarshal(data, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// UserNeighbors 返回某用户相似度最高的 topK 个用户（降序）。
func (s *StoreEdgeAdapter) UserNeighbors(ctx context.Context, userID string, method core.SimilarityMethod, topK int) ([]core.Neighbor, error) {
	return s.neighbors(ctx, nbrKey(keyUserEdge, method, userID), topK)
}

// ProductNeighbors 返回某商品相似度最高的 topK 个商品（降序）。
func (s *StoreEdgeAdapter) ProductNeighbors(ctx context.Context, productID string, method core.SimilarityMethod, topK int) ([]core.Neighbor, error) {
	return s.neighbors(ctx, nbrKey(keyProductEdge, method, productID), topK)
}

func (s *StoreEdgeAdapter) neighbors(ctx context.Context, key string, topK int) ([]core.Neighbor, error) {
	if topK <= 0 {
		topK = 20
	}
	members, err := s.kv.ZRangeWithScores(ctx, key, 0, int64(topK)-1)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]core.Neighbor, 0, len(members))
	for _, m := range members {
		out = append(out, core.Neighbor{ID: m.Member, Score: m.Score})
	}
	return out, nil
}
