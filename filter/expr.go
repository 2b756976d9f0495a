package filter

import (
	"context"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤物品：表达式为 true 时过滤。
//
// 示例：`item.score < 2.0` 去掉只被一次共现支撑的弱候选。
type ExprFilter struct {
	Expr *dsl.Expr
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Expr: e}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	return f.Expr.Match(item, rctx)
}
