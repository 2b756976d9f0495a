package builders

import (
	"context"
	"testing"

	"github.com/rushteam/videorec/config"
	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/recall"
)

type constScorer struct{}

func (constScorer) Name() string { return "const" }
func (constScorer) Score(_ context.Context, rows []core.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.Item)
	}
	return out, nil
}

const pipelineYAML = `
pipeline:
  name: item2item_rank
  nodes:
    - type: recall.item2item
      config:
        over_fetch: 5
    - type: filter
      config:
        filters:
          - type: blacklist
            item_ids: [4]
          - type: expr
            expr: "item.score < 1.0"
    - type: rank.scorer
    - type: rerank.topn
`

func TestBuildPipelineFromYAML(t *testing.T) {
	log := []core.Interaction{
		{UserID: 1, ItemID: 1, Label: 1},
		{UserID: 1, ItemID: 2, Label: 1},
		{UserID: 1, ItemID: 3, Label: 1},
		{UserID: 2, ItemID: 1, Label: 1},
		{UserID: 2, ItemID: 4, Label: 1},
	}
	idx, err := recall.BuildIndex(context.Background(), log)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	cfg, err := pipeline.ParseYAML([]byte(pipelineYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	p, err := config.BuildPipeline(cfg, config.Deps{
		Index:     idx,
		Encoder:   feature.EncoderFromInteractions(log),
		Scorer:    constScorer{},
		OverFetch: 10,
	})
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	kinds := p.Kinds()
	want := []pipeline.Kind{pipeline.KindRecall, pipeline.KindFilter, pipeline.KindRank, pipeline.KindReRank}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if r := p.Nodes[0].(*recall.Item2Item); r.OverFetch != 5 {
		t.Errorf("over_fetch = %d, want 5", r.OverFetch)
	}

	// 历史 {1} 的邻居为 2、3、4，其中 4 被黑名单过滤
	rctx := &core.RecommendContext{UserID: 1, Limit: 10, History: []int64{1}}
	items, err := p.Run(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 2 || items[0].ID != 3 || items[1].ID != 2 {
		t.Errorf("items = %v", items)
	}
}

func TestBuilders_Errors(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		cfg  map[string]any
		deps config.Deps
	}{
		{name: "item2item without index", typ: "recall.item2item"},
		{name: "scorer without deps", typ: "rank.scorer"},
		{name: "filter without filters", typ: "filter", cfg: map[string]any{}},
		{name: "unknown filter", typ: "filter", cfg: map[string]any{"filters": []any{map[string]any{"type": "nope"}}}},
		{name: "empty expr", typ: "filter.expr", cfg: map[string]any{}},
		{name: "bad expr", typ: "filter.expr", cfg: map[string]any{"expr": "item.score <"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Factory(tt.deps).Build(tt.typ, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
