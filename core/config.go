package core

import "time"

// TuningConfig 是推荐子系统可调参数的配置接口，用于提供默认值。
// config 包提供基于 YAML 的实现；零值字段回退到 Default 实现。
type TuningConfig interface {
	// TopKNeighbors 返回近邻数 K（相似用户/相似商品）
	TopKNeighbors() int

	// RecommendLimit 返回推荐结果的默认条数上限
	RecommendLimit() int

	// MinSharedItems 返回计算相似度所需的最小共同物品/用户数，
	// 低于该阈值不产出相似度边
	MinSharedItems() int

	// MinSimilarity 返回相似度落库阈值，绝对值低于此不写边
	MinSimilarity() float64

	// TrendingWindowDays 返回趋势热度统计的时间窗口（天）
	TrendingWindowDays() int

	// HybridUserWeight 返回 hybrid 混合中 user-CF 的权重（item-CF 为 1-w）
	HybridUserWeight() float64

	// CacheTTL 返回指定推荐类型的缓存存活时间
	CacheTTL(t RecommendationType) time.Duration

	// MaxWorkers 返回批量相似度计算的并发上限
	MaxWorkers() int

	// Timeout 返回单个召回源的超时时间
	Timeout() time.Duration
}

// DefaultTuningConfig 是默认配置实现，取值对齐线上电商场景的常用档位。
type DefaultTuningConfig struct{}

func (c *DefaultTuningConfig) TopKNeighbors() int { return 20 }

func (c *DefaultTuningConfig) RecommendLimit() int { return 10 }

func (c *DefaultTuningConfig) MinSharedItems() int { return 2 }

func (c *DefaultTuningConfig) MinSimilarity() float64 { return 0.1 }

func (c *DefaultTuningConfig) TrendingWindowDays() int { return 7 }

func (c *DefaultTuningConfig) HybridUserWeight() float64 { return 0.5 }

func (c *DefaultTuningConfig) CacheTTL(RecommendationType) time.Duration {
	return 24 * time.Hour
}

func (c *DefaultTuningConfig) MaxWorkers() int { return 8 }

func (c *DefaultTuningConfig) Timeout() time.Duration { return 2 * time.Second }
