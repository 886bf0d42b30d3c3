// Package ledger 实现交互流水（InteractionLedger）：
// 用户-商品交互事件的 append-only 记录，是整个推荐链路的数据源头。
//
// 存储布局（基于 core.KeyValueStore）：
//   - ledger:event:{eventID}      事件 JSON 负载
//   - ledger:user:{userID}        zset member=eventID score=时间戳（微秒）
//   - ledger:product:{productID}  zset member=eventID score=时间戳
//   - ledger:seen:{userID}        zset member=productID score=最近交互时间
//   - ledger:users                zset member=userID score=最近活跃时间
//   - ledger:products             zset member=productID score=最近活跃时间
//   - ledger:popularity           zset member=productID score=累计交互次数
//   - ledger:trend:{yyyymmdd}     zset member=productID score=当日累计交互权重
//
// 事件一经写入不再修改或删除；并发写入者互不阻塞，批量计算读快照，
// 不与写入共享锁。
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/shoprec/core"
)

const (
	keyEvent      = "ledger:event:"
	keyUserEvents = "ledger:user:"
	keyProdEvents = "ledger:product:"
	keySeen       = "ledger:seen:"
	keyUsers      = "ledger:users"
	keyProducts   = "ledger:products"
	keyPopularity = "ledger:popularity"
	keyTrend      = "ledger:trend:"

	// scanPage 是事件回放时每批拉取的事件数
	scanPage = 200
)

// Option 配置 Ledger。
type Option func(*Ledger)

// WithInvalidateOn 指定触发缓存失效的交互类型集合。
// 哪些事件触发失效是可配置策略，默认只有 purchase；rating 可选开启。
func WithInvalidateOn(types ...core.InteractionType) Option {
	return func(l *Ledger) {
		l.invalidateOn = make(map[core.InteractionType]bool, len(types))
		for _, t := range types {
			l.invalidateOn[t] = true
		}
	}
}

// WithOnInvalidate 注册缓存失效回调（service 层接到 cache.Invalidate）。
func WithOnInvalidate(fn func(ctx context.Context, userID string)) Option {
	return func(l *Ledger) { l.onInvalidate = fn }
}

// WithClock 注入时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger 是交互流水的读写入口。
type Ledger struct {
	kv core.KeyValueStore

	invalidateOn map[core.InteractionType]bool
	onInvalidate func(ctx context.Context, userID string)
	now          func() time.Time
}

func New(kv core.KeyValueStore, opts ...Option) *Ledger {
	l := &Ledger{
		kv:           kv,
		invalidateOn: map[core.InteractionType]bool{core.InteractionPurchase: true},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record 校验并落库一条交互事件，返回事件 id。
// 校验失败返回 ValidationError（core.IsValidation 可判定），不落库。
// 若事件类型命中失效策略，同步触发该用户的缓存失效回调。
func (l *Ledger) Record(ctx context.Context, event *core.InteractionEvent) (string, error) {
	if event == nil {
		return "", core.NewValidationError("interaction: event is nil")
	}
	if err := event.Validate(); err != nil {
		return "", err
	}

	stored := *event
	if stored.EventID == "" {
		stored.EventID = uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = l.now()
	}

	payload, err := json.Marshal(&stored)
	if err != nil {
		return "", err
	}
	if err := l.kv.Set(ctx, keyEvent+stored.EventID, payload); err != nil {
		return "", err
	}

	ts := float64(stored.Timestamp.UnixMicro())
	if err := l.kv.ZAdd(ctx, keyUserEvents+stored.UserID, ts, stored.EventID); err != nil {
		return "", err
	}
	if err := l.kv.ZAdd(ctx, keyProdEvents+stored.ProductID, ts, stored.EventID); err != nil {
		return "", err
	}
	if err := l.kv.ZAdd(ctx, keySeen+stored.UserID, ts, stored.ProductID); err != nil {
		return "", err
	}
	if err := l.kv.ZAdd(ctx, keyUsers, ts, stored.UserID); err != nil {
		return "", err
	}
	if err := l.kv.ZAdd(ctx, keyProducts, ts, stored.ProductID); err != nil {
		return "", err
	}
	if err := l.kv.ZIncrBy(ctx, keyPopularity, 1, stored.ProductID); err != nil {
		return "", err
	}

	bucket := keyTrend + stored.Timestamp.UTC().Format("20060102")
	if err := l.kv.ZIncrBy(ctx, bucket, stored.WeightedScore(), stored.ProductID); err != nil {
		return "", err
	}

	if l.invalidateOn[stored.Type] && l.onInvalidate != nil {
		l.onInvalidate(ctx, stored.UserID)
	}

	return stored.EventID, nil
}

// InteractionsFor 按时间正序懒回放某用户的全部交互事件。
// 每次调用产出一个新的序列；序列内部按页批量拉取事件负载。
func (l *Ledger) InteractionsFor(ctx context.Context, userID string) iter.Seq2[*core.InteractionEvent, error] {
	return func(yield func(*core.InteractionEvent, error) bool) {
		var start int64
		for {
			ids, err := l.kv.ZRangeAsc(ctx, keyUserEvents+userID, start, start+scanPage-1)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(ids) == 0 {
				return
			}

			keys := make([]string, 0, len(ids))
			for _, id := range ids {
				keys = append(keys, keyEvent+id)
			}
			payloads, err := l.kv.BatchGet(ctx, keys)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, id := range ids {
				data, ok := payloads[keyEvent+id]
				if !ok {
					continue
				}
				var ev core.InteractionEvent
				if err := json.Unmarshal(data, &ev); err != nil {
					yield(nil, fmt.Errorf("ledger: decode event %s: %w", id, err))
					return
				}
				if !yield(&ev, nil) {
					return
				}
			}

			if len(ids) < scanPage {
				return
			}
			start += scanPage
		}
	}
}

// UserVector 构建用户的稀疏偏好向量：productID → 加权得分。
// 对同一商品：有评分则以评分为准（取最近一次），否则各类交互权重求和。
func (l *Ledger) UserVector(ctx context.Context, userID string) (map[string]float64, error) {
	weights := make(map[string]float64)
	ratings := make(map[string]float64)

	for ev, err := range l.InteractionsFor(ctx, userID) {
		if err != nil {
			return nil, err
		}
		if ev.Type == core.InteractionRating {
			ratings[ev.ProductID] = ev.WeightedScore()
			continue
		}
		weights[ev.ProductID] += ev.WeightedScore()
	}

	vector := weights
	for productID, rating := range ratings {
		vector[productID] = rating
	}
	return vector, nil
}

// ProductVector 构建商品的稀疏向量：userID → 该用户对此商品的加权得分。
// 聚合规则与 UserVector 一致（评分优先，其余求和）。
func (l *Ledger) ProductVector(ctx context.Context, productID string) (map[string]float64, error) {
	weights := make(map[string]float64)
	ratings := make(map[string]float64)

	var start int64
	for {
		ids, err := l.kv.ZRangeAsc(ctx, keyProdEvents+productID, start, start+scanPage-1)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}

		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, keyEvent+id)
		}
		payloads, err := l.kv.BatchGet(ctx, keys)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			data, ok := payloads[keyEvent+id]
			if !ok {
				continue
			}
			var ev core.InteractionEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return nil, fmt.Errorf("ledger: decode event %s: %w", id, err)
			}
			if ev.Type == core.InteractionRating {
				ratings[ev.UserID] = ev.WeightedScore()
			} else {
				weights[ev.UserID] += ev.WeightedScore()
			}
		}

		if len(ids) < scanPage {
			break
		}
		start += scanPage
	}

	vector := weights
	for userID, rating := range ratings {
		vector[userID] = rating
	}
	return vector, nil
}

// SeenProducts 返回用户交互过的商品 id 集合（CF 类推荐排除已见）。
func (l *Ledger) SeenProducts(ctx context.Context, userID string) (map[string]struct{}, error) {
	ids, err := l.kv.ZRange(ctx, keySeen+userID, 0, -1)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// AllUsers 返回出现过交互的全部用户 id。
func (l *Ledger) AllUsers(ctx context.Context) ([]string, error) {
	return l.kv.ZRange(ctx, keyUsers, 0, -1)
}

// AllProducts 返回出现过交互的全部商品 id。
func (l *Ledger) AllProducts(ctx context.Context) ([]string, error) {
	return l.kv.ZRange(ctx, keyProducts, 0, -1)
}

// Popularity 返回商品的原始交互热度（累计交互次数），排序破并列用。
func (l *Ledger) Popularity(ctx context.Context, productID string) float64 {
	score, err := l.kv.ZScore(ctx, keyPopularity, productID)
	if err != nil {
		return 0
	}
	return score
}

// TrendingScores 汇总最近 windowDays 天的日桶，返回按聚合权重降序的商品列表。
// 与目标用户无关，作为冷启动兜底。
func (l *Ledger) TrendingScores(ctx context.Context, windowDays int) ([]core.ZMember, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	totals := make(map[string]float64)
	day := l.now().UTC()
	for i := 0; i < windowDays; i++ {
		bucket := keyTrend + day.AddDate(0, 0, -i).Format("20060102")
		members, err := l.kv.ZRangeWithScores(ctx, bucket, 0, -1)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, m := range members {
			totals[m.Member] += m.Score
		}
	}

	out := make([]core.ZMember, 0, len(totals))
	for id, score := range totals {
		out = append(out, core.ZMember{Member: id, Score: score})
	}
	// 按分数降序、同分按 id 升序，保证结果确定
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Member < out[j].Member
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}
