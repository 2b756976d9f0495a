package model

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/rushteam/videorec/core"
)

func TestLRModel_Score(t *testing.T) {
	m := &LRModel{
		Bias: 0,
		Weights: map[string]float64{
			UserKey(0): 1,
			ItemKey(1): -1,
			ItemKey(2): 2,
		},
	}
	rows := []core.FeatureRow{{User: 0, Item: 1}, {User: 0, Item: 2}, {User: 9, Item: 9}}
	scores, err := m.Score(context.Background(), rows)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := []float64{0.5, 1 / (1 + math.Exp(-3)), 0.5}
	for i := range want {
		if math.Abs(scores[i]-want[i]) > 1e-9 {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestLoadLRModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lr.json")
	if err := os.WriteFile(path, []byte(`{"bias":0.5,"weights":{"user:1":0.25}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadLRModel(path)
	if err != nil {
		t.Fatalf("LoadLRModel: %v", err)
	}
	if m.Bias != 0.5 || m.Weights["user:1"] != 0.25 {
		t.Errorf("unexpected model: %+v", m)
	}
	if _, err := LoadLRModel(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadLightGBM_MissingFile(t *testing.T) {
	if _, err := LoadLightGBM(filepath.Join(t.TempDir(), "model.txt"), 1); err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestLoadLightGBM_FeatureCount(t *testing.T) {
	if _, err := LoadLightGBM(filepath.Join("testdata", "model_3features.txt"), 1); err == nil {
		t.Fatal("expected error for model with 3 features")
	}
}

// testdata/model.txt：单棵树，按 item_id_enc <= 2.5 分裂，左叶 -1、右叶 +1，binary sigmoid:1
func TestLightGBM_Score(t *testing.T) {
	m, err := LoadLightGBM(filepath.Join("testdata", "model.txt"), 2)
	if err != nil {
		t.Fatalf("LoadLightGBM: %v", err)
	}
	low, high := 1/(1+math.Exp(1)), 1/(1+math.Exp(-1))

	tests := []struct {
		name string
		rows []core.FeatureRow
		want []float64
	}{
		{name: "empty", rows: nil, want: []float64{}},
		{name: "split on item", rows: []core.FeatureRow{{User: 0, Item: 1}, {User: 0, Item: 5}}, want: []float64{0.2689414213699951, 0.7310585786300049}},
		// 用户编码不参与分裂
		{name: "user ignored", rows: []core.FeatureRow{{User: 3, Item: 2}, {User: 9, Item: 3}}, want: []float64{low, high}},
		{name: "threshold inclusive", rows: []core.FeatureRow{{User: 0, Item: 0}, {User: 0, Item: 2}, {User: 0, Item: 3}}, want: []float64{low, low, high}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := m.Score(context.Background(), tt.rows)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if len(scores) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(scores), len(tt.want))
			}
			for i := range scores {
				if math.Abs(scores[i]-tt.want[i]) > 1e-12 {
					t.Errorf("scores[%d] = %v, want %v", i, scores[i], tt.want[i])
				}
			}
		})
	}
}

func TestLightGBM_ScoreCanceled(t *testing.T) {
	m, err := LoadLightGBM(filepath.Join("testdata", "model.txt"), 1)
	if err != nil {
		t.Fatalf("LoadLightGBM: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Score(ctx, []core.FeatureRow{{User: 0, Item: 1}}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRPCScorer_Score(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		scores := make([]float64, len(got.Instances))
		for i, inst := range got.Instances {
			scores[i] = float64(inst[1]) / 10
		}
		_ = json.NewEncoder(w).Encode(rpcResponse{Scores: scores})
	}))
	defer srv.Close()

	m := NewRPCScorer("remote", srv.URL)
	scores, err := m.Score(context.Background(), []core.FeatureRow{{User: 1, Item: 3}, {User: 1, Item: 5}})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.3 || scores[1] != 0.5 {
		t.Errorf("scores = %v", scores)
	}
	if len(got.FeatureNames) != 2 || got.FeatureNames[0] != "user_id_enc" {
		t.Errorf("feature_names = %v", got.FeatureNames)
	}
}

func TestRPCScorer_EmptyRowsSkipCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	scores, err := NewRPCScorer("remote", srv.URL).Score(context.Background(), nil)
	if err != nil || len(scores) != 0 {
		t.Fatalf("Score(nil) = %v, %v", scores, err)
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times", calls.Load())
	}
}

func TestRPCScorer_Mismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scores":[0.1]}`))
	}))
	defer srv.Close()

	_, err := NewRPCScorer("remote", srv.URL).Score(context.Background(), []core.FeatureRow{{}, {}})
	if !errors.Is(err, core.ErrScoreMismatch) {
		t.Fatalf("err = %v, want ErrScoreMismatch", err)
	}
}

func TestRPCScorer_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewRPCScorer("remote", srv.URL, WithBreaker(2, time.Minute), WithTimeout(time.Second))
	rows := []core.FeatureRow{{User: 0, Item: 0}}
	for i := 0; i < 2; i++ {
		if _, err := m.Score(context.Background(), rows); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if m.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", m.State())
	}
	_, err := m.Score(context.Background(), rows)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}
