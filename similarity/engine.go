// Package similarity 实现相似度引擎（SimilarityEngine）：
// 在稀疏交互/评分向量上批量计算用户-用户、商品-商品相似度。
//
// 批量计算的工程约定：
//   - 读快照计算，不与在线写入共享锁
//   - pair 之间相互独立，errgroup 并行、并发数可配
//   - 单个 pair 无定义/不达阈值只是跳过并计数，绝不中断整轮任务
package similarity

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
)

// InteractionSource 是引擎读取交互快照的接口，由 ledger.Ledger 实现。
type InteractionSource interface {
	AllUsers(ctx context.Context) ([]string, error)
	AllProducts(ctx context.Context) ([]string, error)
	UserVector(ctx context.Context, userID string) (map[string]float64, error)
	ProductVector(ctx context.Context, productID string) (map[string]float64, error)
}

// EdgeWriter 是引擎写出相似度边的接口，由 StoreEdgeAdapter 实现。
type EdgeWriter interface {
	PutUserEdge(ctx context.Context, edge *core.UserSimilarityEdge) error
	PutProductEdge(ctx context.Context, edge *core.ProductSimilarityEdge) error
}

// AttributeSource 提供商品属性 token 集合（content 相似度用），
// 由 feature 包的 Store/Feast 实现提供。
type AttributeSource interface {
	// ProductTokens 返回商品的属性 token 集合，如 "category:shirt"、"brand:x"
	ProductTokens(ctx context.Context, productID string) ([]string, error)

	// AllProducts 返回商品目录的全量 id（含零交互的冷启动商品）
	AllProducts(ctx context.Context) ([]string, error)
}

// Report 是一轮批量计算的结果汇总。
// 跳过的 pair 以计数呈现，而不是逐对报错。
type Report struct {
	Method   core.SimilarityMethod
	Entities int           // 参与计算的实体数（用户或商品）
	Pairs    int64         // 评估过的 pair 数
	Written  int64         // 实际写出的边数
	Skipped  int64         // 无定义/低于阈值而跳过的 pair 数
	Duration time.Duration
}

// Engine 是相似度引擎。字段为零值时回退到 Config 提供的默认值。
type Engine struct {
	Interactions InteractionSource
	Edges        EdgeWriter
	Attrs        AttributeSource

	// Config 提供 MinSharedItems / MinSimilarity / MaxWorkers 默认值
	Config core.TuningConfig

	// MinSharedItems 共同物品/用户数阈值，低于不计算
	MinSharedItems int

	// MinSimilarity 落库阈值，|score| 低于不写边
	MinSimilarity float64

	// MaxWorkers 并行计算的并发上限
	MaxWorkers int

	now func() time.Time
}

func (e *Engine) config() core.TuningConfig {
	if e.Config != nil {
		return e.Config
	}
	return &core.DefaultTuningConfig{}
}

func (e *Engine) minShared() int {
	if e.MinSharedItems > 0 {
		return e.MinSharedItems
	}
	return e.config().MinSharedItems()
}

func (e *Engine) minSimilarity() float64 {
	if e.MinSimilarity > 0 {
		return e.MinSimilarity
	}
	return e.config().MinSimilarity()
}

func (e *Engine) maxWorkers() int {
	if e.MaxWorkers > 0 {
		return e.MaxWorkers
	}
	return e.config().MaxWorkers()
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// ComputeUserSimilarities 对全量用户做一轮 pairwise 相似度计算并落库。
// method ∈ {cosine, pearson, jaccard}。
func (e *Engine) ComputeUserSimilarities(ctx context.Context, method core.SimilarityMethod) (*Report, error) {
	started := time.Now()

	userIDs, err := e.Interactions.AllUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(userIDs)

	// 读快照：一次性构建全部向量，之后的 pairwise 阶段不再访问存储
	vectors := make(map[string]map[string]float64, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		v, err := e.Interactions.UserVector(ctx, id)
		if err != nil || len(v) == 0 {
			continue
		}
		vectors[id] = v
		ids = append(ids, id)
	}

	report := &Report{Method: method, Entities: len(ids)}
	computedAt := e.clock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.maxWorkers())

	for i := range ids {
		eg.Go(func() error {
			v1 := vectors[ids[i]]
			for j := i + 1; j < len(ids); j++ {
				score, ok := e.pairScore(method, v1, vectors[ids[j]])
				atomic.AddInt64(&report.Pairs, 1)
				if !ok || abs(score) < e.minSimilarity() {
					atomic.AddInt64(&report.Skipped, 1)
					continue
				}
				edge := &core.UserSimilarityEdge{
					UserID1:    ids[i],
					UserID2:    ids[j],
					Score:      score,
					Method:     method,
					ComputedAt: computedAt,
				}
				if err := e.Edges.PutUserEdge(egCtx, edge); err != nil {
					return err
				}
				atomic.AddInt64(&report.Written, 1)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(started)
	return report, nil
}

// ComputeProductSimilarities 对全量商品做一轮 pairwise 相似度计算并落库。
// method ∈ {cosine, jaccard} 时基于交互向量（商品 → 用户），
// method = content 时基于属性 token 集合，冷启动商品也能产出边。
func (e *Engine) ComputeProductSimilarities(ctx context.Context, method core.SimilarityMethod) (*Report, error) {
	if method == core.SimContent {
		return e.computeContentSimilarities(ctx)
	}

	started := time.Now()

	productIDs, err := e.Interactions.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(productIDs)

	vectors := make(map[string]map[string]float64, len(productIDs))
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		v, err := e.Interactions.ProductVector(ctx, id)
		if err != nil || len(v) == 0 {
			continue
		}
		vectors[id] = v
		ids = append(ids, id)
	}

	report := &Report{Method: method, Entities: len(ids)}
	computedAt := e.clock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.maxWorkers())

	for i := range ids {
		eg.Go(func() error {
			v1 := vectors[ids[i]]
			for j := i + 1; j < len(ids); j++ {
				score, ok := e.pairScore(method, v1, vectors[ids[j]])
				atomic.AddInt64(&report.Pairs, 1)
				if !ok || abs(score) < e.minSimilarity() {
					atomic.AddInt64(&report.Skipped, 1)
					continue
				}
				edge := &core.ProductSimilarityEdge{
					ProductID1: ids[i],
					ProductID2: ids[j],
					Score:      score,
					Method:     method,
					ComputedAt: computedAt,
				}
				if err := e.Edges.PutProductEdge(egCtx, edge); err != nil {
					return err
				}
				atomic.AddInt64(&report.Written, 1)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(started)
	return report, nil
}

func (e *Engine) computeContentSimilarities(ctx context.Context) (*Report, error) {
	started := time.Now()

	if e.Attrs == nil {
		return nil, core.NewDomainError(core.ModuleSimEngine, core.ErrorCodeNotSupported,
			"similarity: content method requires an attribute source")
	}

	productIDs, err := e.Attrs.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(productIDs)

	tokens := make(map[string][]string, len(productIDs))
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		t, err := e.Attrs.ProductTokens(ctx, id)
		if err != nil {
			// 单个商品属性缺失只跳过，不中断整轮
			continue
		}
		tokens[id] = t
		ids = append(ids, id)
	}

	report := &Report{Method: core.SimContent, Entities: len(ids)}
	computedAt := e.clock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.maxWorkers())

	for i := range ids {
		eg.Go(func() error {
			for j := i + 1; j < len(ids); j++ {
				score, ok := TokenJaccard(tokens[ids[i]], tokens[ids[j]])
				atomic.AddInt64(&report.Pairs, 1)
				if !ok || score < e.minSimilarity() {
					atomic.AddInt64(&report.Skipped, 1)
					continue
				}
				edge := &core.ProductSimilarityEdge{
					ProductID1: ids[i],
					ProductID2: ids[j],
					Score:      score,
					Method:     core.SimContent,
					ComputedAt: computedAt,
				}
				if err := e.Edges.PutProductEdge(egCtx, edge); err != nil {
					return err
				}
				atomic.AddInt64(&report.Written, 1)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(started)
	return report, nil
}

// ComputeCoOccurrenceSimilarities 基于"被同一批用户交互过"的共现人数产出商品边：
// score = min(1, 共同用户数/10)，写作 jaccard 边。
// 只数人头不算向量，比 pairwise 度量便宜，适合大目录下的粗粒度兜底。
func (e *Engine) ComputeCoOccurrenceSimilarities(ctx context.Context) (*Report, error) {
	started := time.Now()

	productIDs, err := e.Interactions.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(productIDs)

	users := make(map[string]map[string]float64, len(productIDs))
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		v, err := e.Interactions.ProductVector(ctx, id)
		if err != nil || len(v) == 0 {
			continue
		}
		users[id] = v
		ids = append(ids, id)
	}

	report := &Report{Method: core.SimJaccard, Entities: len(ids)}
	computedAt := e.clock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.maxWorkers())

	for i := range ids {
		eg.Go(func() error {
			u1 := users[ids[i]]
			for j := i + 1; j < len(ids); j++ {
				shared := 0
				for userID := range u1 {
					if _, ok := users[ids[j]][userID]; ok {
						shared++
					}
				}
				atomic.AddInt64(&report.Pairs, 1)
				if shared < e.minShared() {
					atomic.AddInt64(&report.Skipped, 1)
					continue
				}
				score := float64(shared) / 10
				if score > 1 {
					score = 1
				}
				if score < e.minSimilarity() {
					atomic.AddInt64(&report.Skipped, 1)
					continue
				}
				edge := &core.ProductSimilarityEdge{
					ProductID1: ids[i],
					ProductID2: ids[j],
					Score:      score,
					Method:     core.SimJaccard,
					ComputedAt: computedAt,
				}
				if err := e.Edges.PutProductEdge(egCtx, edge); err != nil {
					return err
				}
				atomic.AddInt64(&report.Written, 1)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(started)
	return report, nil
}

// pairScore 按方法计算一对向量的相似度；共同维度低于 MinSharedItems 视为无定义。
func (e *Engine) pairScore(method core.SimilarityMethod, v1, v2 map[string]float64) (float64, bool) {
	shared := 0
	for k := range v1 {
		if _, ok := v2[k]; ok {
			shared++
		}
	}
	if shared < e.minShared() {
		return 0, false
	}

	switch method {
	case core.SimPearson:
		return Pearson(v1, v2)
	case core.SimJaccard:
		return Jaccard(v1, v2)
	case core.SimCosine:
		fallthrough
	default:
		return Cosine(v1, v2)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
