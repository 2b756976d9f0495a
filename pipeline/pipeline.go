package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/videorec/core"
)

// Hook 在每个 Node 执行后被调用，用于日志与打点。
type Hook func(ctx context.Context, node Node, in, out int, elapsed time.Duration)

// Pipeline 把推荐逻辑拆成可组合的 Node 链（Recall → Filter → Rank → TopN）。
// 构建完成后只读，可被并发请求共享。
type Pipeline struct {
	Name  string
	Nodes []Node
	Hooks []Hook
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		for _, h := range p.Hooks {
			h(ctx, node, len(cur), len(next), time.Since(start))
		}
		cur = next
	}
	return cur, nil
}

// Kinds 返回各 Node 的阶段，便于校验与观测。
func (p *Pipeline) Kinds() []Kind {
	kinds := make([]Kind, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		kinds = append(kinds, n.Kind())
	}
	return kinds
}
