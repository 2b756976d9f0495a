package rank

import (
	"cmp"
	"context"
	"slices"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/pkg/utils"
)

// ScorerNode 是使用 core.Scorer 的排序 Node（不限定模型类型，LightGBM / LR / RPC 均可）。
//   - 为每个候选组装 [user_id_enc, item_id_enc] 特征，丢弃缺少编码的候选并计入 rctx.Unmapped
//   - 一次批量调用模型，写入 labels：rank_model
//   - 用模型分数覆盖 item.Score，按分数降序排序，分数相同按物品 ID 升序
//
// 没有可打分的候选时不调用模型。
// 模型调用失败返回 core.ErrScorerUnavailable，不会降级为召回顺序。
type ScorerNode struct {
	Encoder *feature.Encoder
	Scorer  core.Scorer
}

func (n *ScorerNode) Name() string        { return "rank.scorer" }
func (n *ScorerNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScorerNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	if n.Encoder == nil || n.Scorer == nil {
		return nil, core.ErrScorerUnavailable
	}

	asm := feature.Assemble(n.Encoder, rctx.UserID, items)
	rctx.Unmapped += asm.Unmapped
	if len(asm.Rows) == 0 {
		return []*core.Item{}, nil
	}

	scores, err := n.Scorer.Score(ctx, asm.Rows)
	if err != nil {
		return nil, core.ErrScorerUnavailable.Wrap(err)
	}
	if len(scores) != len(asm.Rows) {
		return nil, core.ErrScoreMismatch
	}

	lbl := utils.NewLabel(n.Scorer.Name(), utils.SourceRank)
	for i, it := range asm.Items {
		it.Score = scores[i]
		it.PutLabel("rank_model", lbl)
	}
	SortByScore(asm.Items)
	return asm.Items, nil
}

// SortByScore 按分数降序排序，分数相同按物品 ID 升序。
func SortByScore(items []*core.Item) {
	slices.SortFunc(items, func(a, b *core.Item) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.ID, b.ID))
	})
}
