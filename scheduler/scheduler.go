// Package scheduler 周期性地重算相似度边。
// 交互流水持续写入，但边的 pair 级计算代价高，读路径不现算，
// 由调度器在后台按固定间隔批量刷新。
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/similarity"
)

// SimilarityRunner 是一轮批量相似度计算的执行方，由 similarity.Engine 实现。
type SimilarityRunner interface {
	ComputeUserSimilarities(ctx context.Context, method core.SimilarityMethod) (*similarity.Report, error)
	ComputeProductSimilarities(ctx context.Context, method core.SimilarityMethod) (*similarity.Report, error)
}

// Job 是一个周期任务。
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler 管理一组周期任务的生命周期。
// Start 后每个任务独立 goroutine 按 Interval 触发，Stop 统一取消并等待退出。
type Scheduler struct {
	jobs   []Job
	logger *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option 配置 Scheduler 的可选项。
type Option func(*Scheduler)

// WithLogger 注入日志器，默认 zap.NewNop。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger.Sugar() }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register 注册一个周期任务；Interval<=0 的任务被忽略。
// 必须在 Start 之前调用。
func (s *Scheduler) Register(job Job) {
	if job.Interval <= 0 || job.Run == nil {
		return
	}
	s.jobs = append(s.jobs, job)
}

// RegisterSimilarityJobs 注册标准的用户/商品相似度重算任务。
// methods 为空时默认 cosine。
func (s *Scheduler) RegisterSimilarityJobs(
	runner SimilarityRunner,
	interval time.Duration,
	methods ...core.SimilarityMethod,
) {
	if len(methods) == 0 {
		methods = []core.SimilarityMethod{core.SimCosine}
	}
	for _, method := range methods {
		method := method
		// content 只对商品有意义，不注册用户侧任务
		if method != core.SimContent {
			s.Register(Job{
				Name:     "similarity.users." + string(method),
				Interval: interval,
				Run: func(ctx context.Context) error {
					report, err := runner.ComputeUserSimilarities(ctx, method)
					if err != nil {
						return err
					}
					s.logReport("user", report)
					return nil
				},
			})
		}
		s.Register(Job{
			Name:     "similarity.products." + string(method),
			Interval: interval,
			Run: func(ctx context.Context) error {
				report, err := runner.ComputeProductSimilarities(ctx, method)
				if err != nil {
					return err
				}
				s.logReport("product", report)
				return nil
			},
		})
	}
}

// CoOccurrenceRunner 是共现商品相似度批量计算的执行方，由 similarity.Engine 实现。
type CoOccurrenceRunner interface {
	ComputeCoOccurrenceSimilarities(ctx context.Context) (*similarity.Report, error)
}

// RegisterCoOccurrenceJob 注册商品共现相似度的重算任务。
func (s *Scheduler) RegisterCoOccurrenceJob(runner CoOccurrenceRunner, interval time.Duration) {
	s.Register(Job{
		Name:     "similarity.products.co_occurrence",
		Interval: interval,
		Run: func(ctx context.Context) error {
			report, err := runner.ComputeCoOccurrenceSimilarities(ctx)
			if err != nil {
				return err
			}
			s.logReport("product", report)
			return nil
		},
	})
}

// CacheSweeper 清理一批用户的过期缓存行，由 cache.Cache 实现。
type CacheSweeper interface {
	Sweep(ctx context.Context, userIDs []string) (int, error)
}

// UserLister 枚举全量用户，由 ledger.Ledger 实现。
type UserLister interface {
	AllUsers(ctx context.Context) ([]string, error)
}

// RegisterCacheSweepJob 注册过期缓存的主动清理任务。
// 读路径的懒清理已保证正确性，该任务默认不开启。
func (s *Scheduler) RegisterCacheSweepJob(
	sweeper CacheSweeper,
	users UserLister,
	interval time.Duration,
) {
	s.Register(Job{
		Name:     "cache.sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			ids, err := users.AllUsers(ctx)
			if err != nil {
				return err
			}
			removed, err := sweeper.Sweep(ctx, ids)
			if err != nil {
				return err
			}
			s.logger.Infow("cache sweep finished",
				"users", len(ids),
				"removed", removed,
			)
			return nil
		},
	})
}

// Start 启动全部任务。重复调用无效果。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range s.jobs {
		job := job
		s.wg.Add(1)
		go s.loop(runCtx, job)
	}
	s.logger.Infow("scheduler started", "jobs", len(s.jobs))
}

// Stop 取消全部任务并等待退出。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Infow("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			if err := job.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				// 单轮失败只记录，下个周期重试
				s.logger.Errorw("job failed",
					"job", job.Name,
					"elapsed", time.Since(started),
					"err", err,
				)
				continue
			}
			s.logger.Debugw("job finished",
				"job", job.Name,
				"elapsed", time.Since(started),
			)
		}
	}
}

func (s *Scheduler) logReport(kind string, report *similarity.Report) {
	if report == nil {
		return
	}
	s.logger.Infow("similarity pass finished",
		"kind", kind,
		"method", report.Method,
		"entities", report.Entities,
		"pairs", report.Pairs,
		"written", report.Written,
		"skipped", report.Skipped,
		"elapsed", report.Duration,
	)
}
