package eval

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/recall"
)

// Case 是一个用户的离线评估样本：History 作为输入，Truth 是被留出的物品。
type Case struct {
	UserID  int64
	History []int64
	Truth   []int64
}

// LeaveLastOut 按用户做留一切分：每个用户（按日志顺序）最后一个正反馈物品作为 Truth。
//
// 正反馈少于 2 个的用户不产生样本，他们的记录全部留在训练集中。
// 返回的 train 不含任何被留出的记录，用它构建索引可避免评估时看到答案。
// 非正反馈记录被忽略。
func LeaveLastOut(interactions []core.Interaction) (train []core.Interaction, cases []Case) {
	type userLog struct {
		rows []int
	}
	order := []int64{}
	logs := map[int64]*userLog{}
	for i, in := range interactions {
		if !in.Positive() {
			continue
		}
		l, ok := logs[in.UserID]
		if !ok {
			l = &userLog{}
			logs[in.UserID] = l
			order = append(order, in.UserID)
		}
		l.rows = append(l.rows, i)
	}

	heldOut := make(map[int]struct{})
	for _, uid := range order {
		rows := logs[uid].rows
		if len(rows) < 2 {
			continue
		}
		last := rows[len(rows)-1]
		heldOut[last] = struct{}{}

		history := make([]int64, 0, len(rows)-1)
		for _, r := range rows[:len(rows)-1] {
			history = append(history, interactions[r].ItemID)
		}
		cases = append(cases, Case{
			UserID:  uid,
			History: history,
			Truth:   []int64{interactions[last].ItemID},
		})
	}

	for i, in := range interactions {
		if !in.Positive() {
			continue
		}
		if _, ok := heldOut[i]; ok {
			continue
		}
		train = append(train, in)
	}
	return train, cases
}

// RecommendFunc 为一个评估样本返回推荐的物品 ID（按推荐顺序）。
type RecommendFunc func(ctx context.Context, c Case, k int) ([]int64, error)

// Item2ItemRecommender 用共现索引直接召回，评估纯召回阶段。
func Item2ItemRecommender(idx *recall.Index) RecommendFunc {
	return func(_ context.Context, c Case, k int) ([]int64, error) {
		cands := recall.Recommend(c.History, idx, k)
		out := make([]int64, len(cands))
		for i, cand := range cands {
			out[i] = cand.Item
		}
		return out, nil
	}
}

// Report 是召回评估结果（对所有样本取均值）。
type Report struct {
	Users   int     `json:"users"`
	K       int     `json:"k"`
	Recall  float64 `json:"recall"`
	HitRate float64 `json:"hit_rate"`
}

// Evaluate 对全部样本并行执行 fn 并计算 Recall@K / HitRate@K 均值。
// 任意样本出错则整体失败。
func Evaluate(ctx context.Context, cases []Case, fn RecommendFunc, k int) (Report, error) {
	rep := Report{Users: len(cases), K: k}
	if len(cases) == 0 {
		return rep, nil
	}

	recalls := make([]float64, len(cases))
	hitRates := make([]float64, len(cases))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range cases {
		eg.Go(func() error {
			predicted, err := fn(egCtx, c, k)
			if err != nil {
				return fmt.Errorf("user %d: %w", c.UserID, err)
			}
			recalls[i] = RecallAtK(c.Truth, predicted, k)
			hitRates[i] = HitRateAtK(c.Truth, predicted, k)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, err
	}

	rep.Recall = mean(recalls)
	rep.HitRate = mean(hitRates)
	return rep, nil
}

// ScoredLabel 是排序阶段的一条预测：用户、模型分数与真实标签。
type ScoredLabel struct {
	UserID int64
	ItemID int64
	Score  float64
	Label  float64
}

// RankingMetrics 是排序评估结果（按用户分组后取均值）。
type RankingMetrics struct {
	Users     int     `json:"users"`
	K         int     `json:"k"`
	Precision float64 `json:"precision"`
	NDCG      float64 `json:"ndcg"`
	AUC       float64 `json:"auc"`
}

// RankingReport 按用户分组，组内按分数降序（分数相同按物品 ID 升序）排列标签，
// 计算每个用户的 Precision@K 与 NDCG@K 后取均值；AUC 在全部样本上计算。
func RankingReport(rows []ScoredLabel, k int) RankingMetrics {
	out := RankingMetrics{K: k}
	if len(rows) == 0 {
		return out
	}

	var users []int64
	groups := make(map[int64][]ScoredLabel)
	labels := make([]float64, len(rows))
	scores := make([]float64, len(rows))
	for i, r := range rows {
		if _, ok := groups[r.UserID]; !ok {
			users = append(users, r.UserID)
		}
		groups[r.UserID] = append(groups[r.UserID], r)
		labels[i] = r.Label
		scores[i] = r.Score
	}

	precisions := make([]float64, 0, len(users))
	ndcgs := make([]float64, 0, len(users))
	for _, uid := range users {
		g := groups[uid]
		slices.SortFunc(g, func(a, b ScoredLabel) int {
			return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.ItemID, b.ItemID))
		})
		ordered := make([]float64, len(g))
		for i, r := range g {
			ordered[i] = r.Label
		}
		precisions = append(precisions, PrecisionAtK(ordered, k))
		ndcgs = append(ndcgs, NDCGAtK(ordered, k))
	}

	out.Users = len(users)
	out.Precision = mean(precisions)
	out.NDCG = mean(ndcgs)
	out.AUC = AUC(labels, scores)
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
