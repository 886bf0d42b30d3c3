package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的业务规则过滤器。
// 表达式返回 true 的候选被剔除，协作方不改代码即可调整策略。
//
// 示例：
//   - `item.score < 0.05`                     剔除低分候选
//   - `label.rec_source == "trending" && item.popularity < 3.0`
type RuleFilter struct {
	// Expr CEL 表达式；为空时不过滤任何候选
	Expr string
}

func NewRuleFilter(expr string) *RuleFilter {
	return &RuleFilter{Expr: expr}
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}

	matched, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		// 规则本身有问题时放行候选，错误上抛由 FilterNode 记录
		return false, err
	}
	return matched, nil
}
