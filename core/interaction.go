package core

import (
	"strings"
	"time"
)

// InteractionType 是用户-商品交互行为类型。
//
// 每种类型携带一个固定的基础权重（枚举 + 权重表，而非子类化）：
// 权重表达行为的"信号强度"，purchase 远强于 view。
type InteractionType string

const (
	InteractionView      InteractionType = "view"
	InteractionWishlist  InteractionType = "wishlist"
	InteractionAddToCart InteractionType = "add_to_cart"
	InteractionRating    InteractionType = "rating"
	InteractionPurchase  InteractionType = "purchase"
)

// interactionWeights 是类型 → 基础权重的关联数据表。
var interactionWeights = map[InteractionType]float64{
	InteractionView:      1.0,
	InteractionWishlist:  2.0,
	InteractionAddToCart: 3.0,
	InteractionRating:    5.0,
	InteractionPurchase:  10.0,
}

// Weight 返回类型的基础权重；未知类型回退到 view 的权重（查表永不失败）。
func (t InteractionType) Weight() float64 {
	if w, ok := interactionWeights[t]; ok {
		return w
	}
	return interactionWeights[InteractionView]
}

// ParseInteractionType 从字符串解析交互类型，大小写不敏感；
// 未知值返回 view（与权重回退保持一致）。
func ParseInteractionType(s string) InteractionType {
	switch InteractionType(strings.ToLower(s)) {
	case InteractionView, InteractionWishlist, InteractionAddToCart,
		InteractionRating, InteractionPurchase:
		return InteractionType(strings.ToLower(s))
	}
	return InteractionView
}

// 评分值的合法区间 [1.0, 5.0]。
const (
	RatingMin = 1.0
	RatingMax = 5.0
)

// InteractionEvent 是一条用户-商品交互事件，落库后不可变（append-only）。
//
// Value 仅对 rating 类型有意义：此时加权得分就是 Value 本身，
// 覆盖类型的基础权重；其余类型 Value 为 nil。
type InteractionEvent struct {
	EventID   string          `json:"event_id"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Type      InteractionType `json:"type"`
	Value     *float64        `json:"value,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
}

// Validate 校验事件的合法性：
//   - UserID / ProductID 必填
//   - rating 类型的 Value 必须存在且落在 [1.0, 5.0]
func (e *InteractionEvent) Validate() error {
	if e.UserID == "" {
		return NewValidationError("interaction: user id is required")
	}
	if e.ProductID == "" {
		return NewValidationError("interaction: product id is required")
	}
	if e.Type == InteractionRating {
		if e.Value == nil {
			return NewValidationError("interaction: rating requires a value")
		}
		if *e.Value < RatingMin || *e.Value > RatingMax {
			return NewValidationError("interaction: rating value out of range [1.0, 5.0]")
		}
	}
	return nil
}

// WeightedScore 返回事件的加权得分：
// rating 返回 Value 本身，其余返回类型的基础权重。
func (e *InteractionEvent) WeightedScore() float64 {
	if e.Type == InteractionRating && e.Value != nil {
		return *e.Value
	}
	return e.Type.Weight()
}
