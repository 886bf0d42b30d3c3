package core

import (
	"strings"
	"time"
)

// RecommendationType 是推荐结果的来源类型标签。
//
// 类型是可观测的契约：个性化失败降级到 trending 时，
// 返回集合的类型字段必须是 trending，而不是静默替换。
type RecommendationType string

const (
	RecUserBasedCF  RecommendationType = "user_based_cf"
	RecItemBasedCF  RecommendationType = "item_based_cf"
	RecHybrid       RecommendationType = "hybrid"
	RecTrending     RecommendationType = "trending"
	RecSimilarItems RecommendationType = "similar_items"
)

// RecommendationTypes 列出所有类型，缓存失效时按类型逐 key 清理。
var RecommendationTypes = []RecommendationType{
	RecUserBasedCF,
	RecItemBasedCF,
	RecHybrid,
	RecTrending,
	RecSimilarItems,
}

// ParseRecommendationType 从字符串解析推荐类型；未知值返回 hybrid。
func ParseRecommendationType(s string) RecommendationType {
	switch RecommendationType(strings.ToLower(s)) {
	case RecUserBasedCF, RecItemBasedCF, RecHybrid, RecTrending, RecSimilarItems:
		return RecommendationType(strings.ToLower(s))
	}
	return RecHybrid
}

// Recommendation 是一条推荐：只存 id 与分数，不内嵌商品实体。
// 展示所需的商品详情由协作方在读侧 join，核心层不关心展示。
//
// ExpiresAt 为 nil 表示永不过期（显式语义，不是缺陷）；
// 非 nil 时必须晚于 GeneratedAt。
type Recommendation struct {
	UserID      string             `json:"user_id"`
	ProductID   string             `json:"product_id"`
	Type        RecommendationType `json:"type"`
	Confidence  float64            `json:"confidence"`
	GeneratedAt time.Time          `json:"generated_at"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`

	// Reason 是面向用户的推荐理由文案（"Popular right now" 这类）。
	Reason string `json:"reason,omitempty"`
}

// Expired 判断该条推荐在 now 时刻是否已过期。
func (r *Recommendation) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
