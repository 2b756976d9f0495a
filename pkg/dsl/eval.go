package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/videorec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的 Label DSL 表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，之后可被并发请求反复求值。
//
// 可用变量：
//   - item：id / score / features / labels
//   - label：item 的 label 值，label.recall_source == "item2item"
//   - rctx：user_id / scene / limit / history / params
//
// 示例：
//   - `item.score >= 2.0` → 共现累计分不低于 2
//   - `item.id in rctx.history` → 物品已在用户历史中
//   - `label.rank_model == "lightgbm" && item.score > 0.7`
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式。表达式必须返回 bool。
func Compile(expr string) (*Expr, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("compile %q: must return bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Expr{src: expr, prg: prg}, nil
}

// String 返回表达式源码。
func (e *Expr) String() string { return e.src }

// Match 对一个物品求值。
// 访问不存在的 key 会返回错误，存在性判断请用 has(label.key) 或 "key" in label。
func (e *Expr) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", e.src, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return boolean, got %T", e.src, out.Value())
	}
	return result, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	values := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]any{"value": v.Value, "source": v.Source}
		values[k] = v.Value
	}
	features := item.Features
	if features == nil {
		features = map[string]float64{}
	}

	ctx := map[string]any{
		"user_id": int64(0),
		"scene":   "",
		"limit":   int64(0),
		"history": []int64{},
		"params":  map[string]any{},
	}
	if rctx != nil {
		ctx["user_id"] = rctx.UserID
		ctx["scene"] = rctx.Scene
		ctx["limit"] = int64(rctx.Limit)
		if rctx.History != nil {
			ctx["history"] = rctx.History
		}
		if rctx.Params != nil {
			ctx["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item": map[string]any{
			"id":       item.ID,
			"score":    item.Score,
			"features": features,
			"labels":   labels,
		},
		"label": values,
		"rctx":  ctx,
	}
}
