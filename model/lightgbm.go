package model

import (
	"context"
	"fmt"

	"github.com/dmitryikh/leaves"

	"github.com/rushteam/videorec/core"
)

// LightGBM 是加载离线训练好的 LightGBM 文本模型（model.txt）的打分器。
// 模型以 [user_id_enc, item_id_enc] 两列训练；加载时应用模型自带的输出变换
// （binary 目标为 sigmoid），分数即正反馈概率。
//
// 编码必须来自 feature.EncoderFromInteractions（按 ID 首次出现顺序）。pandas
// astype("category").cat.codes 按 ID 排序分配编码，用那种方式训练的 model.txt
// 在这里会拿到错误的编码，需要用本仓库的编码重新训练。
//
// Ensemble 加载后只读，可被并发请求共享。
type LightGBM struct {
	ensemble *leaves.Ensemble
	threads  int
}

// LoadLightGBM 从文件加载模型。threads<=0 时按单线程预测。
func LoadLightGBM(path string, threads int) (*LightGBM, error) {
	ensemble, err := leaves.LGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("load lightgbm model %s: %w", path, err)
	}
	if n := ensemble.NFeatures(); n != 2 {
		return nil, fmt.Errorf("lightgbm model %s: expected 2 features, got %d", path, n)
	}
	if threads <= 0 {
		threads = 1
	}
	return &LightGBM{ensemble: ensemble, threads: threads}, nil
}

func (m *LightGBM) Name() string { return "lightgbm" }

func (m *LightGBM) Score(ctx context.Context, rows []core.FeatureRow) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []float64{}, nil
	}
	dense := make([]float64, 0, len(rows)*2)
	for _, r := range rows {
		dense = append(dense, r.Values()...)
	}
	scores := make([]float64, len(rows)*m.ensemble.NOutputGroups())
	if err := m.ensemble.PredictDense(dense, len(rows), 2, scores, 0, m.threads); err != nil {
		return nil, fmt.Errorf("lightgbm predict: %w", err)
	}
	if err := checkScores(rows, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

var _ core.Scorer = (*LightGBM)(nil)
