package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/shoprec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是候选过滤规则的解释器，使用 CEL (Common Expression Language) 实现。
// 协作方用它表达业务规则（如"过滤掉趋势来源且分数过低的候选"），
// 不需要改代码即可调整过滤策略。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.rec_source == "trending" / label.rec_method != "cosine"
//   - 数值：item.score > 0.7 / item.popularity >= 5.0
//   - 逻辑：label.category == "shirt" && item.score > 0.8
//   - 存在性：label.rec_source != null
//   - 包含：label.rec_source.contains("cf")
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的规则解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行规则表达式，返回布尔结果。
// 空表达式恒为 true。
//
// 注意：CEL 访问不存在的 key 会报错，应使用 label.key != null 检查存在性。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	for k, v := range e.item.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
	}

	item := map[string]interface{}{
		"id":         e.item.ID,
		"score":      e.item.Score,
		"popularity": e.item.Popularity,
		"meta":       e.item.Meta,
		"labels":     labels,
	}

	rctx := map[string]interface{}{
		"user_id":    e.rctx.UserID,
		"product_id": e.rctx.ProductID,
		"scene":      e.rctx.Scene,
		"params":     e.rctx.Params,
	}

	// label 作为顶层访问器：label.rec_source 直接取 value
	labelAccessor := make(map[string]interface{})
	for k, v := range labels {
		labelAccessor[k] = v.(map[string]interface{})["value"]
	}

	return map[string]interface{}{
		"item":  item,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
