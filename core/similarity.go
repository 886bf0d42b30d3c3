package core

import "time"

// SimilarityMethod 是相似度度量方式。
//
// 取值域随方法不同：cosine / jaccard / content ∈ [0,1]，pearson ∈ [-1,1]。
type SimilarityMethod string

const (
	SimCosine  SimilarityMethod = "cosine"
	SimPearson SimilarityMethod = "pearson"
	SimJaccard SimilarityMethod = "jaccard"
	// SimContent 基于商品属性集合（类目/品牌/颜色/材质/性别/季节）计算，
	// 不依赖交互数据,因此对零交互的冷启动商品同样有定义。
	SimContent SimilarityMethod = "content"
)

// CanonicalPair 规范化无序 pair：较小的 id 在前。
// similarity(a,b) == similarity(b,a)，每个 (pair, method) 只存一行，
// 规范化保证 (a,b) 与 (b,a) 落到同一个 key，避免重复行。
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// UserSimilarityEdge 是一对用户之间的相似度边。
// 同一 (pair, method) 的新一轮计算覆盖旧行。
type UserSimilarityEdge struct {
	UserID1    string           `json:"user_id1"` // 规范化后较小的 id
	UserID2    string           `json:"user_id2"`
	Score      float64          `json:"score"`
	Method     SimilarityMethod `json:"method"`
	ComputedAt time.Time        `json:"computed_at"`
}

// ProductSimilarityEdge 是一对商品之间的相似度边，结构与用户边一致，
// 但 method 取值为 {cosine, jaccard, content}。
type ProductSimilarityEdge struct {
	ProductID1 string           `json:"product_id1"` // 规范化后较小的 id
	ProductID2 string           `json:"product_id2"`
	Score      float64          `json:"score"`
	Method     SimilarityMethod `json:"method"`
	ComputedAt time.Time        `json:"computed_at"`
}

// Neighbor 是近邻查询的结果：实体 id 及其相似度分数。
type Neighbor struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
