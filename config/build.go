package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/feature"
	"github.com/rushteam/shoprec/ledger"
	"github.com/rushteam/shoprec/recommend"
	"github.com/rushteam/shoprec/scheduler"
	"github.com/rushteam/shoprec/service"
	"github.com/rushteam/shoprec/similarity"
	"github.com/rushteam/shoprec/store"
)

// App 是按配置装配完成的推荐子系统。
type App struct {
	Store     core.KeyValueStore
	Ledger    *ledger.Ledger
	Engine    *similarity.Engine
	Generator *recommend.Generator
	Cache     *cache.Cache
	Service   *service.Service
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// Build 按配置装配整个子系统。
//
// 装配关系：
//   - ledger 的失效回调接到 cache.Invalidate（购买后清空用户缓存）
//   - similarity.Engine 读 ledger 写边存储，调度器周期触发
//   - generator 读边存储与 ledger，service 在缓存未命中时调用
func Build(cfg *Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tuning := &cfg.Tuning

	kv, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Store: kv}
	app.closers = append(app.closers, kv.Close)

	app.Cache = cache.New(kv, cache.WithConfig(tuning))

	sugar := logger.Sugar()
	app.Ledger = ledger.New(kv,
		ledger.WithInvalidateOn(cfg.InvalidateTypes()...),
		ledger.WithOnInvalidate(func(ctx context.Context, userID string) {
			if err := app.Cache.Invalidate(ctx, userID); err != nil {
				sugar.Warnw("cache invalidation failed", "user", userID, "err", err)
			}
		}),
	)

	attrs, err := buildAttributeSource(cfg, kv)
	if err != nil {
		return nil, err
	}
	if closer, ok := attrs.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	edges := similarity.NewStoreEdgeAdapter(kv)
	app.Engine = &similarity.Engine{
		Interactions: app.Ledger,
		Edges:        edges,
		Attrs:        attrs,
		Config:       tuning,
	}

	app.Generator = &recommend.Generator{
		Ledger:          app.Ledger,
		Neighbors:       edges,
		CoViews:         app.Ledger,
		RuleExpr:        cfg.Rules.FilterExpr,
		SimilarFallback: similarFallback(cfg),
		Config:          tuning,
	}

	app.Service = service.New(app.Ledger, app.Generator, app.Cache,
		service.WithConfig(tuning),
		service.WithLogger(logger),
	)

	app.Scheduler = scheduler.New(scheduler.WithLogger(logger))
	if cfg.Similarity.Interval > 0 {
		app.Scheduler.RegisterSimilarityJobs(app.Engine, cfg.Similarity.Interval.Std(), cfg.SimilarityMethods()...)
		if cfg.Similarity.CoOccurrence {
			app.Scheduler.RegisterCoOccurrenceJob(app.Engine, cfg.Similarity.Interval.Std())
		}
	}
	if cfg.Cache.SweepInterval > 0 {
		app.Scheduler.RegisterCacheSweepJob(app.Cache, app.Ledger, cfg.Cache.SweepInterval.Std())
	}

	return app, nil
}

// Start 启动后台调度。
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start(ctx)
}

// Stop 停止后台调度并释放资源。
func (a *App) Stop() error {
	a.Scheduler.Stop()
	var firstErr error
	for _, close := range a.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildStore(cfg *Config) (core.KeyValueStore, error) {
	switch cfg.Store.Type {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStoreWithOptions(&redis.Options{
			Addr:     cfg.Store.Addr,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
		})
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Store.Type)
	}
}

func buildAttributeSource(cfg *Config, kv core.KeyValueStore) (similarity.AttributeSource, error) {
	catalog := feature.NewStoreAttributeSource(kv)
	if !cfg.Feast.Enabled {
		return catalog, nil
	}
	return feature.NewFeastAttributeSource(
		cfg.Feast.Host,
		cfg.Feast.Port,
		cfg.Feast.Project,
		cfg.Feast.Features,
		catalog,
	)
}

// similarFallback 配置了 content 度量时，similar_items 的兜底走内容相似。
func similarFallback(cfg *Config) core.SimilarityMethod {
	for _, m := range cfg.SimilarityMethods() {
		if m == core.SimContent {
			return core.SimContent
		}
	}
	return ""
}
