package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/filter"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/metrics"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/rank"
	"github.com/rushteam/videorec/recall"
	"github.com/rushteam/videorec/rerank"
)

// Runtime 是一次离线构建的全部在线依赖：索引、编码器、用户历史、打分器与 Pipeline。
//
// 设计原则：
//   - 构建完成后只读，被所有请求共享，请求路径上不修改任何字段
//   - 更新方式只有整体重建后通过 Service.Swap 原子替换
//   - 进行中的请求继续使用它开始时拿到的 Runtime
type Runtime struct {
	Index    *recall.Index
	Encoder  *feature.Encoder
	History  core.HistoryStore
	Scorer   core.Scorer
	Pipeline *pipeline.Pipeline
	BuiltAt  time.Time
}

// PipelineOptions 配置默认 Pipeline。
type PipelineOptions struct {
	// OverFetch 召回相对 TopK 的放大倍数，<=0 时使用 recall.DefaultOverFetch
	OverFetch int

	// Filters 是召回与排序之间的过滤器（可选）
	Filters []filter.Filter
}

// DefaultPipeline 组装默认链路：
//
//	recall.item2item (TopK*OverFetch) → [filter.node] → rank.scorer → rerank.topn (TopK)
func DefaultPipeline(idx *recall.Index, enc *feature.Encoder, scorer core.Scorer, opts PipelineOptions) *pipeline.Pipeline {
	nodes := []pipeline.Node{
		&recall.Item2Item{Index: idx, OverFetch: opts.OverFetch},
	}
	if len(opts.Filters) > 0 {
		nodes = append(nodes, &filter.FilterNode{
			Filters: opts.Filters,
			OnError: func(f filter.Filter, item *core.Item, err error) {
				logging.Warn().Err(err).Str("filter", f.Name()).Int64("item_id", item.ID).Msg("filter failed, item kept")
			},
		})
	}
	nodes = append(nodes,
		&rank.ScorerNode{Encoder: enc, Scorer: scorer},
		&rerank.TopNNode{},
	)
	return &pipeline.Pipeline{Name: "item2item_rank", Nodes: nodes}
}

// Observe 为 Pipeline 挂上日志与指标 Hook。
func Observe(p *pipeline.Pipeline) *pipeline.Pipeline {
	p.Hooks = append(p.Hooks, func(ctx context.Context, node pipeline.Node, in, out int, elapsed time.Duration) {
		metrics.RecordNode(node.Name(), string(node.Kind()), out, elapsed)
		logging.Ctx(ctx).Debug().
			Str("node", node.Name()).
			Int("in", in).
			Int("out", out).
			Dur("elapsed", elapsed).
			Msg("pipeline node done")
	})
	return p
}

// BuildRuntime 从交互日志离线构建 Runtime：共现索引（只用正反馈）、
// 全量人群编码器与内存用户历史。history 为 nil 时使用日志构建的 recall.MemoryHistory。
func BuildRuntime(
	ctx context.Context,
	interactions []core.Interaction,
	scorer core.Scorer,
	history core.HistoryStore,
	opts PipelineOptions,
	buildOpts ...recall.BuildOption,
) (*Runtime, error) {
	start := time.Now()
	idx, err := recall.BuildIndex(ctx, interactions, buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("build runtime: %w", err)
	}
	elapsed := time.Since(start)
	metrics.RecordIndex(idx.Len(), idx.Pairs(), elapsed)

	enc := feature.EncoderFromInteractions(interactions)
	if history == nil {
		history = recall.NewMemoryHistory(interactions)
	}

	logging.Info().
		Int("interactions", len(interactions)).
		Int("index_items", idx.Len()).
		Int("index_pairs", idx.Pairs()).
		Int("users", enc.NumUsers()).
		Int("items", enc.NumItems()).
		Dur("elapsed", elapsed).
		Msg("runtime built")

	return NewRuntime(idx, enc, history, scorer, opts), nil
}

// NewRuntime 由已经构建好的索引、编码器与用户历史组装 Runtime，挂上默认 Pipeline。
// 用于快照加载与离线评估：索引与历史可以来自不同的数据范围，编码器必须与线上模型训练时一致。
func NewRuntime(
	idx *recall.Index,
	enc *feature.Encoder,
	history core.HistoryStore,
	scorer core.Scorer,
	opts PipelineOptions,
) *Runtime {
	return &Runtime{
		Index:    idx,
		Encoder:  enc,
		History:  history,
		Scorer:   scorer,
		Pipeline: Observe(DefaultPipeline(idx, enc, scorer, opts)),
		BuiltAt:  time.Now(),
	}
}
