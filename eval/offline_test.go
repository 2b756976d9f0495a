package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/recall"
)

func sampleLog() []core.Interaction {
	return []core.Interaction{
		{UserID: 1, ItemID: 10, Label: 1},
		{UserID: 2, ItemID: 10, Label: 1},
		{UserID: 1, ItemID: 20, Label: 1},
		{UserID: 2, ItemID: 99, Label: 0},
		{UserID: 3, ItemID: 40, Label: 1},
		{UserID: 2, ItemID: 20, Label: 1},
		{UserID: 1, ItemID: 30, Label: 1},
	}
}

func TestLeaveLastOut(t *testing.T) {
	train, cases := LeaveLastOut(sampleLog())

	if len(cases) != 2 {
		t.Fatalf("cases = %+v, want 2", cases)
	}
	c1, c2 := cases[0], cases[1]
	if c1.UserID != 1 || len(c1.History) != 2 || c1.History[1] != 20 || c1.Truth[0] != 30 {
		t.Errorf("case 1 = %+v", c1)
	}
	if c2.UserID != 2 || len(c2.History) != 1 || c2.History[0] != 10 || c2.Truth[0] != 20 {
		t.Errorf("case 2 = %+v", c2)
	}

	if len(train) != 4 {
		t.Fatalf("train = %+v, want 4 rows", train)
	}
	for _, in := range train {
		if (in.UserID == 1 && in.ItemID == 30) || (in.UserID == 2 && in.ItemID == 20) {
			t.Errorf("held-out row leaked into train: %+v", in)
		}
		if !in.Positive() {
			t.Errorf("negative row in train: %+v", in)
		}
	}
}

func TestEvaluate_Item2Item(t *testing.T) {
	train, cases := LeaveLastOut(sampleLog())
	idx, err := recall.BuildIndex(context.Background(), train)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	rep, err := Evaluate(context.Background(), cases, Item2ItemRecommender(idx), 10)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// 用户 1 的历史 {10,20} 没有新邻居；用户 2 的历史 {10} 召回 20 命中。
	if rep.Users != 2 || !almostEqual(rep.Recall, 0.5) || !almostEqual(rep.HitRate, 0.5) {
		t.Errorf("report = %+v", rep)
	}
}

func TestEvaluate_Empty(t *testing.T) {
	rep, err := Evaluate(context.Background(), nil, nil, 10)
	if err != nil || rep.Users != 0 || rep.Recall != 0 {
		t.Errorf("Evaluate(nil) = %+v, %v", rep, err)
	}
}

func TestEvaluate_Error(t *testing.T) {
	boom := errors.New("boom")
	fn := func(context.Context, Case, int) ([]int64, error) { return nil, boom }
	_, err := Evaluate(context.Background(), []Case{{UserID: 1, Truth: []int64{1}}}, fn, 10)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRankingReport(t *testing.T) {
	rows := []ScoredLabel{
		{UserID: 1, ItemID: 1, Score: 0.9, Label: 1},
		{UserID: 1, ItemID: 2, Score: 0.1, Label: 0},
		{UserID: 1, ItemID: 3, Score: 0.5, Label: 1},
		{UserID: 2, ItemID: 4, Score: 0.3, Label: 0},
		{UserID: 2, ItemID: 5, Score: 0.7, Label: 0},
	}
	got := RankingReport(rows, 2)
	if got.Users != 2 {
		t.Errorf("Users = %d", got.Users)
	}
	if !almostEqual(got.Precision, 0.5) {
		t.Errorf("Precision = %v, want 0.5", got.Precision)
	}
	if !almostEqual(got.NDCG, 0.5) {
		t.Errorf("NDCG = %v, want 0.5", got.NDCG)
	}
	if !almostEqual(got.AUC, 5.0/6.0) {
		t.Errorf("AUC = %v, want 5/6", got.AUC)
	}

	if empty := RankingReport(nil, 10); empty.Users != 0 || empty.NDCG != 0 {
		t.Errorf("empty report = %+v", empty)
	}
}
