// Package cache 实现推荐结果缓存（RecommendationCache）：
// 按 (userID, type) 存储一组带过期时间的推荐，读路径命中即返回，
// 未命中由 service 层同步生成后回填。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/shoprec/core"
)

// 缓存键：rec:{userID}:{type}
const keyPrefix = "rec:"

func cacheKey(userID string, typ core.RecommendationType) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, userID, typ)
}

// entry 是缓存条目的持久化形态。
// ExpiresAt 随条目一起存储，懒清理时据此判断；
// 后端支持 TTL（如 redis）时同时下发，由后端兜底回收。
type entry struct {
	Recommendations []core.Recommendation `json:"recommendations"`
	GeneratedAt     time.Time             `json:"generated_at"`
	ExpiresAt       *time.Time            `json:"expires_at,omitempty"`
}

// Cache 是推荐结果缓存。
//
// 过期采用懒清理：Get 发现条目已过期时删除并按未命中处理，
// 不要求后端具备主动过期能力（MemoryStore 的后台清扫是补充，不是前提）。
type Cache struct {
	store  core.Store
	config core.TuningConfig

	now func() time.Time
}

// Option 配置 Cache 的可选项。
type Option func(*Cache)

// WithClock 注入时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithConfig 注入调参配置（决定各类型的 TTL）。
func WithConfig(cfg core.TuningConfig) Option {
	return func(c *Cache) { c.config = cfg }
}

func New(store core.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		config: &core.DefaultTuningConfig{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get 读取用户某一类型的缓存推荐。
// 返回 (nil, false, nil) 表示未命中（含已过期的条目）。
func (c *Cache) Get(
	ctx context.Context,
	userID string,
	typ core.RecommendationType,
) ([]core.Recommendation, bool, error) {
	key := cacheKey(userID, typ)

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, false, nil
		}
		return nil, false, core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable,
			fmt.Sprintf("cache get %s: %v", key, err))
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// 坏条目按未命中处理并清掉，让写路径重建
		_ = c.store.Delete(ctx, key)
		return nil, false, nil
	}

	if e.ExpiresAt != nil && !c.now().Before(*e.ExpiresAt) {
		_ = c.store.Delete(ctx, key)
		return nil, false, nil
	}

	return e.Recommendations, true, nil
}

// Put 写入（覆盖）用户某一类型的推荐集合，并为每条推荐盖上过期时间。
// TTL 由配置按类型决定；TTL<=0 表示不过期。
func (c *Cache) Put(
	ctx context.Context,
	userID string,
	typ core.RecommendationType,
	recs []core.Recommendation,
) error {
	key := cacheKey(userID, typ)
	now := c.now()
	ttl := c.config.CacheTTL(typ)

	e := entry{
		Recommendations: recs,
		GeneratedAt:     now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		e.ExpiresAt = &expires
		for i := range e.Recommendations {
			e.Recommendations[i].ExpiresAt = &expires
		}
	}

	raw, err := json.Marshal(&e)
	if err != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeInternalError,
			fmt.Sprintf("cache marshal %s: %v", key, err))
	}

	var setErr error
	if ttl > 0 {
		setErr = c.store.Set(ctx, key, raw, int(ttl/time.Second))
	} else {
		setErr = c.store.Set(ctx, key, raw)
	}
	if setErr != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable,
			fmt.Sprintf("cache put %s: %v", key, setErr))
	}
	return nil
}

// Invalidate 删除用户全部类型的缓存推荐。
// 购买等高价值交互发生后由 ledger 的回调触发，让下一次读重新生成。
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	var firstErr error
	for _, typ := range core.RecommendationTypes {
		if err := c.store.Delete(ctx, cacheKey(userID, typ)); err != nil && !core.IsStoreNotFound(err) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable,
			fmt.Sprintf("cache invalidate user %s: %v", userID, firstErr))
	}
	return nil
}

// Sweep 主动删除一批用户的已过期缓存行，返回删除条数。
// 懒清理已保证读路径正确性，Sweep 只为后端不支持 TTL 时回收存储占用，
// 由调度器按需开启。
func (c *Cache) Sweep(ctx context.Context, userIDs []string) (int, error) {
	removed := 0
	var firstErr error

	for _, userID := range userIDs {
		for _, typ := range core.RecommendationTypes {
			key := cacheKey(userID, typ)

			raw, err := c.store.Get(ctx, key)
			if err != nil {
				continue // 不存在或读失败都跳过，下一轮再看
			}

			var e entry
			if err := json.Unmarshal(raw, &e); err != nil {
				// 坏条目顺手清掉
				if err := c.store.Delete(ctx, key); err == nil {
					removed++
				}
				continue
			}
			if e.ExpiresAt == nil || c.now().Before(*e.ExpiresAt) {
				continue
			}
			if err := c.store.Delete(ctx, key); err != nil && !core.IsStoreNotFound(err) {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed++
		}
	}

	if firstErr != nil {
		return removed, core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable,
			fmt.Sprintf("cache sweep: %v", firstErr))
	}
	return removed, nil
}

// InvalidateType 删除用户单一类型的缓存。
func (c *Cache) InvalidateType(
	ctx context.Context,
	userID string,
	typ core.RecommendationType,
) error {
	if err := c.store.Delete(ctx, cacheKey(userID, typ)); err != nil && !core.IsStoreNotFound(err) {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable,
			fmt.Sprintf("cache invalidate %s: %v", cacheKey(userID, typ), err))
	}
	return nil
}
