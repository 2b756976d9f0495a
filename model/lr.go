package model

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/videorec/core"
)

// LRModel 实现了逻辑回归 (Logistic Regression) 打分。
// 两个类别特征按 one-hot 展开，权重 key 形如 "user:12"、"item:345"（编码后的 ID）。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + W[user:u] + W[item:i]
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 缺失的权重视为 0，因此未见过的编码退化为只看另一侧特征。
type LRModel struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// LoadLRModel 从 JSON 文件加载模型：{"bias": 0.1, "weights": {"user:0": 0.3, "item:5": -0.2}}
func LoadLRModel(path string) (*LRModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lr model: %w", err)
	}
	var m LRModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse lr model: %w", err)
	}
	return &m, nil
}

// UserKey / ItemKey 返回 one-hot 特征的权重 key。
func UserKey(code int) string { return "user:" + strconv.Itoa(code) }
func ItemKey(code int) string { return "item:" + strconv.Itoa(code) }

func (m *LRModel) Name() string { return "lr" }

func (m *LRModel) Score(ctx context.Context, rows []core.FeatureRow) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(rows))
	for i, r := range rows {
		z := m.Bias + m.Weights[UserKey(r.User)] + m.Weights[ItemKey(r.Item)]
		scores[i] = 1 / (1 + math.Exp(-z))
	}
	return scores, nil
}

var _ core.Scorer = (*LRModel)(nil)
