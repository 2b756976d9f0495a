package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
)

// tableScorer 按物品编码查表打分，并记录调用次数。
type tableScorer struct {
	scores map[int]float64
	err    error
	calls  int
	short  bool
}

func (s *tableScorer) Name() string { return "table" }

func (s *tableScorer) Score(_ context.Context, rows []core.FeatureRow) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = s.scores[r.Item]
	}
	if s.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func items(ids ...int64) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(id)
	}
	return out
}

func ids(items []*core.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestScorerNode_Process(t *testing.T) {
	// 物品编码：100->0, 200->1, 300->2, 400->3
	enc := feature.NewEncoder([]int64{7}, []int64{100, 200, 300, 400})

	tests := []struct {
		name         string
		userID       int64
		in           []*core.Item
		scores       map[int]float64
		want         []int64
		wantUnmapped int
		wantCalls    int
	}{
		{
			name:      "sort by model score",
			userID:    7,
			in:        items(100, 200, 300),
			scores:    map[int]float64{0: 0.1, 1: 0.9, 2: 0.5},
			want:      []int64{200, 300, 100},
			wantCalls: 1,
		},
		{
			name:      "ties broken by item id",
			userID:    7,
			in:        items(400, 200, 300),
			scores:    map[int]float64{1: 0.5, 2: 0.5, 3: 0.5},
			want:      []int64{200, 300, 400},
			wantCalls: 1,
		},
		{
			name:         "unmapped items dropped",
			userID:       7,
			in:           items(100, 999, 300),
			scores:       map[int]float64{0: 0.2, 2: 0.3},
			want:         []int64{300, 100},
			wantUnmapped: 1,
			wantCalls:    1,
		},
		{
			name:         "unknown user skips scorer",
			userID:       8,
			in:           items(100, 200),
			want:         []int64{},
			wantUnmapped: 2,
		},
		{
			name:         "all items unmapped skips scorer",
			userID:       7,
			in:           items(998, 999),
			want:         []int64{},
			wantUnmapped: 2,
		},
		{
			name: "empty input skips scorer",
			in:   nil,
			want: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &tableScorer{scores: tt.scores}
			n := &ScorerNode{Encoder: enc, Scorer: s}
			rctx := &core.RecommendContext{UserID: tt.userID}
			out, err := n.Process(context.Background(), rctx, tt.in)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			got := ids(out)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
			if rctx.Unmapped != tt.wantUnmapped {
				t.Errorf("Unmapped = %d, want %d", rctx.Unmapped, tt.wantUnmapped)
			}
			if s.calls != tt.wantCalls {
				t.Errorf("scorer calls = %d, want %d", s.calls, tt.wantCalls)
			}
		})
	}
}

func TestScorerNode_Labels(t *testing.T) {
	enc := feature.NewEncoder([]int64{1}, []int64{10})
	n := &ScorerNode{Encoder: enc, Scorer: &tableScorer{scores: map[int]float64{0: 0.7}}}
	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, items(10))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	it := out[0]
	if it.Score != 0.7 {
		t.Errorf("Score = %v, want 0.7", it.Score)
	}
	if lbl := it.Labels["rank_model"]; lbl.Value != "table" || lbl.Source != "rank" {
		t.Errorf("rank_model label = %+v", lbl)
	}
	if it.Features[feature.FeatureUserEnc] != 0 || it.Features[feature.FeatureItemEnc] != 0 {
		t.Errorf("features = %v", it.Features)
	}
}

func TestScorerNode_Errors(t *testing.T) {
	enc := feature.NewEncoder([]int64{1}, []int64{10, 20})
	boom := errors.New("boom")

	_, err := (&ScorerNode{Encoder: enc, Scorer: &tableScorer{err: boom}}).
		Process(context.Background(), &core.RecommendContext{UserID: 1}, items(10, 20))
	if !errors.Is(err, core.ErrScorerUnavailable) || !errors.Is(err, boom) {
		t.Errorf("scorer failure: err = %v", err)
	}
	if !core.IsUnavailable(err) {
		t.Errorf("IsUnavailable(%v) = false", err)
	}

	_, err = (&ScorerNode{Encoder: enc, Scorer: &tableScorer{short: true}}).
		Process(context.Background(), &core.RecommendContext{UserID: 1}, items(10, 20))
	if !errors.Is(err, core.ErrScoreMismatch) {
		t.Errorf("short scores: err = %v", err)
	}
}
