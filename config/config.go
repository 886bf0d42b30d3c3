// Package config 提供推荐子系统的 YAML 配置与装配。
//
// 配置文件示例：
//
//	store:
//	  type: redis
//	  addr: 127.0.0.1:6379
//	  db: 0
//	tuning:
//	  top_k_neighbors: 20
//	  recommend_limit: 10
//	  min_similarity: 0.1
//	  cache_ttl: 24h
//	similarity:
//	  methods: [cosine, content]
//	  interval: 1h
//	ledger:
//	  invalidate_on: [purchase]
//	feast:
//	  enabled: true
//	  host: 127.0.0.1
//	  port: 6565
//	  project: shop
//	  features: ["product_attrs:category", "product_attrs:brand"]
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/shoprec/core"
)

// Duration 是支持 "24h" / "90s" 形式的时长配置项。
// 纯数字按秒解释。
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Config 是子系统的完整配置。
type Config struct {
	Store      StoreConfig      `yaml:"store" json:"store"`
	Tuning     TuningConfig     `yaml:"tuning" json:"tuning"`
	Similarity SimilarityConfig `yaml:"similarity" json:"similarity"`
	Ledger     LedgerConfig     `yaml:"ledger" json:"ledger"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Feast      FeastConfig      `yaml:"feast" json:"feast"`
	Rules      RulesConfig      `yaml:"rules" json:"rules"`
}

// StoreConfig 选择存储后端。
type StoreConfig struct {
	// Type "memory" 或 "redis"，默认 memory
	Type     string `yaml:"type" json:"type"`
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// SimilarityConfig 控制后台相似度重算。
type SimilarityConfig struct {
	// Methods 要计算的度量方式，默认 [cosine]
	Methods []string `yaml:"methods" json:"methods"`

	// Interval 重算间隔，为 0 时不启动后台任务
	Interval Duration `yaml:"interval" json:"interval"`

	// CoOccurrence 追加商品共现相似度的批量任务
	CoOccurrence bool `yaml:"co_occurrence" json:"co_occurrence"`
}

// LedgerConfig 控制交互流水的行为。
type LedgerConfig struct {
	// InvalidateOn 触发缓存失效的交互类型，默认 [purchase]
	InvalidateOn []string `yaml:"invalidate_on" json:"invalidate_on"`
}

// CacheConfig 是推荐缓存的运行配置。
type CacheConfig struct {
	// SweepInterval 过期条目主动清理间隔，为 0 时只做读时懒清理
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// FeastConfig 控制商品属性的 Feast 来源；
// 不启用时属性走 KV 存储（StoreAttributeSource）。
type FeastConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port" json:"port"`
	Project  string   `yaml:"project" json:"project"`
	Features []string `yaml:"features" json:"features"`
}

// RulesConfig 业务规则过滤。
type RulesConfig struct {
	// FilterExpr CEL 表达式，匹配的候选被剔除；为空不启用
	FilterExpr string `yaml:"filter_expr" json:"filter_expr"`
}

// TuningConfig 是可调参数，零值字段回退到默认档位。
// 实现 core.TuningConfig。
type TuningConfig struct {
	TopK              int      `yaml:"top_k_neighbors" json:"top_k_neighbors"`
	Limit             int      `yaml:"recommend_limit" json:"recommend_limit"`
	MinShared         int      `yaml:"min_shared_items" json:"min_shared_items"`
	MinSim            float64  `yaml:"min_similarity" json:"min_similarity"`
	TrendingWindow    int      `yaml:"trending_window_days" json:"trending_window_days"`
	HybridWeight      float64  `yaml:"hybrid_user_weight" json:"hybrid_user_weight"`
	TTL               Duration `yaml:"cache_ttl" json:"cache_ttl"`
	TrendingTTL       Duration `yaml:"trending_cache_ttl" json:"trending_cache_ttl"`
	Workers           int      `yaml:"max_workers" json:"max_workers"`
	GenerationTimeout Duration `yaml:"timeout" json:"timeout"`
}

var defaults = &core.DefaultTuningConfig{}

func (c *TuningConfig) TopKNeighbors() int {
	if c.TopK > 0 {
		return c.TopK
	}
	return defaults.TopKNeighbors()
}

func (c *TuningConfig) RecommendLimit() int {
	if c.Limit > 0 {
		return c.Limit
	}
	return defaults.RecommendLimit()
}

func (c *TuningConfig) MinSharedItems() int {
	if c.MinShared > 0 {
		return c.MinShared
	}
	return defaults.MinSharedItems()
}

func (c *TuningConfig) MinSimilarity() float64 {
	if c.MinSim > 0 {
		return c.MinSim
	}
	return defaults.MinSimilarity()
}

func (c *TuningConfig) TrendingWindowDays() int {
	if c.TrendingWindow > 0 {
		return c.TrendingWindow
	}
	return defaults.TrendingWindowDays()
}

func (c *TuningConfig) HybridUserWeight() float64 {
	if c.HybridWeight > 0 && c.HybridWeight < 1 {
		return c.HybridWeight
	}
	return defaults.HybridUserWeight()
}

func (c *TuningConfig) CacheTTL(typ core.RecommendationType) time.Duration {
	if typ == core.RecTrending && c.TrendingTTL > 0 {
		return c.TrendingTTL.Std()
	}
	if c.TTL > 0 {
		return c.TTL.Std()
	}
	return defaults.CacheTTL(typ)
}

func (c *TuningConfig) MaxWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return defaults.MaxWorkers()
}

func (c *TuningConfig) Timeout() time.Duration {
	if c.GenerationTimeout > 0 {
		return c.GenerationTimeout.Std()
	}
	return defaults.Timeout()
}

var _ core.TuningConfig = (*TuningConfig)(nil)

// Load 从 YAML 文件加载配置。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// SimilarityMethods 返回配置的度量方式，默认 [cosine]。
func (c *Config) SimilarityMethods() []core.SimilarityMethod {
	if len(c.Similarity.Methods) == 0 {
		return []core.SimilarityMethod{core.SimCosine}
	}
	methods := make([]core.SimilarityMethod, 0, len(c.Similarity.Methods))
	for _, m := range c.Similarity.Methods {
		methods = append(methods, core.SimilarityMethod(m))
	}
	return methods
}

// InvalidateTypes 返回触发缓存失效的交互类型，默认 [purchase]。
func (c *Config) InvalidateTypes() []core.InteractionType {
	if len(c.Ledger.InvalidateOn) == 0 {
		return []core.InteractionType{core.InteractionPurchase}
	}
	types := make([]core.InteractionType, 0, len(c.Ledger.InvalidateOn))
	for _, t := range c.Ledger.InvalidateOn {
		types = append(types, core.ParseInteractionType(t))
	}
	return types
}
