package core

import "github.com/rushteam/shoprec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/场景信息，贯穿整个链路透传。
type RecommendContext struct {
	UserID string

	// ProductID 仅 similar_items 场景使用：以某个商品为锚点找近邻，
	// 与用户无关，不做个性化。
	ProductID string

	Scene string

	// Labels 是请求级标签，可驱动过滤/重排策略
	Labels map[string]utils.Label

	// Params 请求级上下文参数（device_type、page 等）
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
