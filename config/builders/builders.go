// Package builders 注册内置 Node 的配置构建器。
package builders

import (
	"fmt"

	"github.com/rushteam/videorec/config"
	"github.com/rushteam/videorec/filter"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/pkg/conv"
	"github.com/rushteam/videorec/rank"
	"github.com/rushteam/videorec/recall"
	"github.com/rushteam/videorec/rerank"
)

func init() {
	config.Register("recall.item2item", BuildItem2ItemNode)
	config.Register("filter", BuildFilterNode)
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("rank.scorer", BuildScorerNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildItem2ItemNode: {top_k: 0, over_fetch: 10}
func BuildItem2ItemNode(deps config.Deps, cfg map[string]any) (pipeline.Node, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("recall.item2item: index is required")
	}
	return &recall.Item2Item{
		Index:     deps.Index,
		TopK:      conv.ConfigGetInt(cfg, "top_k", 0),
		OverFetch: conv.ConfigGetInt(cfg, "over_fetch", deps.OverFetch),
	}, nil
}

// BuildFilterNode: {filters: [{type: blacklist, item_ids: [1, 2], key: "blacklist"}, {type: expr, expr: "..."}]}
func BuildFilterNode(deps config.Deps, cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "blacklist":
			ids := conv.SliceAnyToInt64(filterMap["item_ids"])
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewBlacklistFilter(ids, deps.Store, key))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

// BuildExprFilterNode 是单个 CEL 过滤器的简写：{expr: "item.score < 2.0"}
func BuildExprFilterNode(_ config.Deps, cfg map[string]any) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("filter.expr: expr is required")
	}
	f, err := filter.NewExprFilter(expr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

func BuildScorerNode(deps config.Deps, _ map[string]any) (pipeline.Node, error) {
	if deps.Encoder == nil || deps.Scorer == nil {
		return nil, fmt.Errorf("rank.scorer: encoder and scorer are required")
	}
	return &rank.ScorerNode{Encoder: deps.Encoder, Scorer: deps.Scorer}, nil
}

// BuildTopNNode: {n: 0}，n<=0 时按请求的 topk 截断
func BuildTopNNode(_ config.Deps, cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}
