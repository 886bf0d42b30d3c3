// Package service 是推荐子系统的对外门面：
// 记录交互、读推荐（缓存优先）、查相似商品。
// 上层（HTTP/gRPC 接入层）只依赖本包，不直接触碰 ledger/similarity/cache。
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/ledger"
	"github.com/rushteam/shoprec/recommend"
)

// Service 组合交互流水、推荐生成器与结果缓存。
//
// 读路径：缓存命中直接返回；未命中同步生成后回填。
// 同一 (user, type) 的并发未命中用 singleflight 合并成一次生成。
type Service struct {
	ledger    *ledger.Ledger
	generator *recommend.Generator
	cache     *cache.Cache
	config    core.TuningConfig
	logger    *zap.SugaredLogger

	group singleflight.Group
}

// Option 配置 Service 的可选项。
type Option func(*Service)

// WithLogger 注入日志器，默认 zap.NewNop。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger.Sugar() }
}

// WithConfig 注入调参配置。
func WithConfig(cfg core.TuningConfig) Option {
	return func(s *Service) { s.config = cfg }
}

func New(
	l *ledger.Ledger,
	g *recommend.Generator,
	c *cache.Cache,
	opts ...Option,
) *Service {
	s := &Service{
		ledger:    l,
		generator: g,
		cache:     c,
		config:    &core.DefaultTuningConfig{},
		logger:    zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RecordInteraction 记录一次用户-商品交互。
// typ 大小写不敏感，未知类型按 view 处理；rating 必须带 [1,5] 的 value。
// 返回事件 id。
func (s *Service) RecordInteraction(
	ctx context.Context,
	userID, productID, typ string,
	value *float64,
	sessionID string,
) (string, error) {
	event := &core.InteractionEvent{
		UserID:    userID,
		ProductID: productID,
		Type:      core.ParseInteractionType(typ),
		Value:     value,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}

	eventID, err := s.ledger.Record(ctx, event)
	if err != nil {
		if core.IsValidation(err) {
			s.logger.Warnw("interaction rejected",
				"user", userID, "product", productID, "type", typ, "err", err)
		}
		return "", err
	}

	s.logger.Debugw("interaction recorded",
		"event", eventID, "user", userID, "product", productID, "type", event.Type)
	return eventID, nil
}

// GetRecommendations 返回用户某一类型的推荐。
// 缓存按请求类型索引；个性化降级为 trending 时条目的 Type 字段会如实标注，
// 但仍缓存在请求类型的 key 下，下一条交互失效后重新生成。
func (s *Service) GetRecommendations(
	ctx context.Context,
	userID string,
	typ core.RecommendationType,
	limit int,
) ([]core.Recommendation, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput,
			"recommend: user id is required")
	}

	recs, hit, err := s.cache.Get(ctx, userID, typ)
	if err != nil {
		// 缓存故障不致命：退化为直接生成
		s.logger.Warnw("cache read failed", "user", userID, "type", typ, "err", err)
	}
	if hit {
		return clip(recs, limit), nil
	}

	key := fmt.Sprintf("%s|%s", userID, typ)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// 缓存的结果集按 TopK 档生成，读请求再按 limit 截断，
		// 避免不同 limit 反复触发生成
		generated, actual, genErr := s.generator.Generate(ctx, userID, typ, s.config.TopKNeighbors())
		if genErr != nil {
			return nil, genErr
		}
		if putErr := s.cache.Put(ctx, userID, typ, generated); putErr != nil {
			s.logger.Warnw("cache write failed",
				"user", userID, "type", typ, "err", putErr)
		}
		if actual != typ {
			s.logger.Infow("recommendation degraded",
				"user", userID, "requested", typ, "actual", actual)
		}
		return generated, nil
	})
	if err != nil {
		return nil, err
	}

	return clip(v.([]core.Recommendation), limit), nil
}

// GetSimilarProducts 返回某商品的相似商品（不个性化、不缓存）。
func (s *Service) GetSimilarProducts(
	ctx context.Context,
	productID string,
	limit int,
) ([]core.Recommendation, error) {
	if productID == "" {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput,
			"recommend: product id is required")
	}
	return s.generator.GenerateSimilar(ctx, productID, limit)
}

// GetAlsoViewed 返回"看过该商品的人还看了"榜单（实时统计，不缓存）。
func (s *Service) GetAlsoViewed(
	ctx context.Context,
	productID string,
	limit int,
) ([]core.Recommendation, error) {
	if productID == "" {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput,
			"recommend: product id is required")
	}
	return s.generator.GenerateAlsoViewed(ctx, productID, limit)
}

// InvalidateUser 手动清空用户的全部推荐缓存。
// 高价值交互触发的自动失效走 ledger 的回调，此方法留给运营后台。
func (s *Service) InvalidateUser(ctx context.Context, userID string) error {
	return s.cache.Invalidate(ctx, userID)
}

// clip 按 limit 截断缓存里的全量结果集。
func clip(recs []core.Recommendation, limit int) []core.Recommendation {
	if limit <= 0 || limit >= len(recs) {
		return recs
	}
	return recs[:limit]
}
