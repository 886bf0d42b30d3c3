// Package shoprec 是电商推荐子系统（Shop Recommender）。
//
// 数据流：
//   - ledger: 记录用户-商品交互流水，维护偏好向量与趋势热度
//   - similarity: 后台批量计算用户/商品相似度边（cosine / pearson / jaccard / content）
//   - recommend: 组合相似度边与交互流水生成推荐（CF / hybrid / trending / similar_items）
//   - cache: 按 (user, type) 缓存结果集，购买等高价值交互触发失效
//
// 设计要点：
// - Pipeline-first: 生成逻辑通过 Node 串联（Recall → Filter → Rank）
// - 领域接口在 core，存储实现在 store（memory / redis）
// - 数据不足用空结果表达并降级 trending，不作为错误上抛
package shoprec

import "github.com/rushteam/shoprec/pipeline"

// 轻量 facade：便于用户直接 import "shoprec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
)
