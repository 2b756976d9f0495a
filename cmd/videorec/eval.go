package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/dataset"
	"github.com/rushteam/videorec/eval"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/recall"
	"github.com/rushteam/videorec/service"
)

type evalOutput struct {
	Interactions int                  `json:"interactions"`
	Train        int                  `json:"train"`
	Recall       eval.Report          `json:"recall_stage"`
	Ranked       *eval.Report         `json:"ranked_stage,omitempty"`
	Ranking      *eval.RankingMetrics `json:"ranking,omitempty"`
	Elapsed      string               `json:"elapsed"`
}

// runEval 执行留一法离线评估：每个用户最后一次正反馈作为真值，其余正反馈构建索引。
// 默认只评估召回阶段；-rank 时额外评估 召回 + 模型排序 的完整链路。
func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	k := fs.Int("k", 10, "cutoff for Recall@K / HitRate@K")
	withRank := fs.Bool("rank", false, "also evaluate the full recall + rank pipeline")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *k <= 0 {
		return fmt.Errorf("k must be positive, got %d", *k)
	}

	ctx := context.Background()
	start := time.Now()

	interactions, err := dataset.LoadFile(cfg.Data.InteractionsPath, cfg.Data.Threshold)
	if err != nil {
		return err
	}
	train, cases := eval.LeaveLastOut(interactions)
	logging.Info().Int("train", len(train)).Int("cases", len(cases)).Msg("leave-last-out split")

	idx, err := recall.BuildIndex(ctx, train, recall.WithWorkers(cfg.Recall.Workers))
	if err != nil {
		return err
	}
	out := evalOutput{Interactions: len(interactions), Train: len(train)}
	out.Recall, err = eval.Evaluate(ctx, cases, eval.Item2ItemRecommender(idx), *k)
	if err != nil {
		return err
	}

	if *withRank {
		scorer, err := buildScorer(cfg.Rank)
		if err != nil {
			return err
		}
		rt := evalRuntime(interactions, train, idx, scorer, service.PipelineOptions{OverFetch: cfg.Recall.OverFetch})
		svc := service.New(rt)

		ranked, err := eval.Evaluate(ctx, cases, serviceRecommender(svc), *k)
		if err != nil {
			return err
		}
		out.Ranked = &ranked

		rows, err := scoredRows(ctx, svc, cases, *k)
		if err != nil {
			return err
		}
		rm := eval.RankingReport(rows, *k)
		out.Ranking = &rm
	}

	out.Elapsed = time.Since(start).String()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// evalRuntime 组装排序阶段评估用的 Runtime：索引与历史只来自训练部分；
// 编码器与线上一致，由全量交互日志构建（编码只依赖 ID 首次出现顺序，不携带标签）。
func evalRuntime(
	interactions, train []core.Interaction,
	idx *recall.Index,
	scorer core.Scorer,
	opts service.PipelineOptions,
) *service.Runtime {
	enc := feature.EncoderFromInteractions(interactions)
	return service.NewRuntime(idx, enc, recall.NewMemoryHistory(train), scorer, opts)
}

func serviceRecommender(svc *service.Service) eval.RecommendFunc {
	return func(ctx context.Context, c eval.Case, k int) ([]int64, error) {
		res, err := svc.Recommend(ctx, c.UserID, k)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(res.Items))
		for i, it := range res.Items {
			ids[i] = it.ItemID
		}
		return ids, nil
	}
}

// scoredRows 把每个用户的推荐结果展开为 (分数, 是否命中) 样本，用于 Precision / NDCG / AUC。
func scoredRows(ctx context.Context, svc *service.Service, cases []eval.Case, k int) ([]eval.ScoredLabel, error) {
	var rows []eval.ScoredLabel
	for _, c := range cases {
		res, err := svc.Recommend(ctx, c.UserID, k)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", c.UserID, err)
		}
		truth := make(map[int64]struct{}, len(c.Truth))
		for _, id := range c.Truth {
			truth[id] = struct{}{}
		}
		for _, it := range res.Items {
			label := 0.0
			if _, ok := truth[it.ItemID]; ok {
				label = 1
			}
			rows = append(rows, eval.ScoredLabel{UserID: c.UserID, ItemID: it.ItemID, Score: it.Score, Label: label})
		}
	}
	return rows, nil
}
