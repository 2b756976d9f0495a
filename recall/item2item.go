package recall

import (
	"cmp"
	"context"
	"slices"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/pkg/utils"
)

// DefaultOverFetch 是召回相对最终 TopK 的默认放大倍数：召回 TopK*10 个候选交给排序阶段。
const DefaultOverFetch = 10

// Candidate 是召回结果：候选物品及其共现累计分。
type Candidate struct {
	Item  int64
	Score int
}

// Recommend 基于共现索引为一段用户历史召回候选物品。
//
// 对历史中的每个物品，把它的每个邻居的共现次数累加到该邻居上；邻居本身在历史中时跳过
// （不推荐已交互过的物品）。历史中的重复物品按出现次数重复累加。
//
// 排序规则：分数降序，分数相同按物品 ID 升序。该规则是全序，同样的输入总是得到同样的输出。
// 空历史或 topk<=0 返回空；索引中不存在的历史物品不贡献分数；候选不足 topk 时原样返回，不补齐。
func Recommend(history []int64, idx *Index, topk int) []Candidate {
	if len(history) == 0 || topk <= 0 || idx.Len() == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(history))
	for _, id := range history {
		seen[id] = struct{}{}
	}

	scores := make(map[int64]int)
	for _, id := range history {
		for _, n := range idx.Neighbors(id) {
			if _, ok := seen[n.Item]; ok {
				continue
			}
			scores[n.Item] += n.Count
		}
	}
	if len(scores) == 0 {
		return nil
	}

	out := make([]Candidate, 0, len(scores))
	for item, score := range scores {
		out = append(out, Candidate{Item: item, Score: score})
	}
	slices.SortFunc(out, compareCandidates)
	if len(out) > topk {
		out = out[:topk]
	}
	return out
}

func compareCandidates(a, b Candidate) int {
	return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Item, b.Item))
}

// Item2Item 是基于物品共现的召回 Node（i2i）。
// 实现 pipeline.Node，可直接放进 Pipeline。
//
// 召回数量：TopK>0 时固定为 TopK；否则为 rctx.Limit * OverFetch，
// 让排序阶段拥有比最终截断更宽的候选池。
type Item2Item struct {
	Index *Index

	// TopK 固定召回数量（可选）
	TopK int

	// OverFetch 召回放大倍数，<=0 时使用 DefaultOverFetch
	OverFetch int
}

func (r *Item2Item) Name() string        { return "recall.item2item" }
func (r *Item2Item) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Item2Item) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Limit 返回本次请求的召回数量。
func (r *Item2Item) Limit(rctx *core.RecommendContext) int {
	if r.TopK > 0 {
		return r.TopK
	}
	factor := r.OverFetch
	if factor <= 0 {
		factor = DefaultOverFetch
	}
	return rctx.Limit * factor
}

// Recall 按用户历史取共现候选，分数为累加的共现次数。
func (r *Item2Item) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Index == nil || rctx == nil || len(rctx.History) == 0 {
		return nil, nil
	}

	cands := Recommend(rctx.History, r.Index, r.Limit(rctx))
	out := make([]*core.Item, 0, len(cands))
	for _, c := range cands {
		it := core.NewItem(c.Item)
		it.Score = float64(c.Score)
		it.PutFeature("cooccur_score", float64(c.Score))
		it.PutLabel("recall_source", utils.NewLabel("item2item", utils.SourceRecall))
		out = append(out, it)
	}
	return out, nil
}
