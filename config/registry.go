package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/recall"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/videorec/config/builders"
// 以触发内置 Node（recall.item2item、filter.expr、rank.scorer、rerank.topn 等）的 init 注册。

// Deps 是构建 Node 时可用的运行时依赖（同一次离线构建的产物）。
type Deps struct {
	Index   *recall.Index
	Encoder *feature.Encoder
	Scorer  core.Scorer

	// Store 供需要外部数据的 Node 使用（如 filter.blacklist），可以为 nil
	Store core.Store

	// OverFetch 是召回放大倍数的默认值
	OverFetch int
}

// NodeBuilder 根据运行时依赖与 Node 配置构建 Node。
type NodeBuilder func(deps Deps, config map[string]any) (pipeline.Node, error)

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，建议在 init 中调用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Factory 返回绑定了 deps 的 NodeFactory，包含所有通过 Register 注册的 Node 类型。
func Factory(deps Deps) *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return builder(deps, cfg)
		})
	}
	return f
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	for _, nc := range cfg.Pipeline.Nodes {
		if _, ok := defaultBuilders[nc.Type]; !ok {
			types := make([]string, 0, len(defaultBuilders))
			for t := range defaultBuilders {
				types = append(types, t)
			}
			sort.Strings(types)
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, types)
		}
	}
	return nil
}

// BuildPipeline 校验并构建配置描述的 Pipeline。
func BuildPipeline(cfg *pipeline.Config, deps Deps) (*pipeline.Pipeline, error) {
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(Factory(deps))
}
