// Package model 提供 core.Scorer 的具体实现。
//
// 排序模型只消费两个类别特征 [user_id_enc, item_id_enc]：
//   - LightGBM：加载离线训练好的 LightGBM 文本模型（model.txt）
//   - LRModel：本地逻辑回归，权重按 one-hot 编码特征给出
//   - RPCScorer：通过 HTTP 调用外部模型服务（XGBoost / TF Serving 等）
package model

import (
	"fmt"

	"github.com/rushteam/videorec/core"
)

// checkScores 校验模型输出与输入行数一致。
func checkScores(rows []core.FeatureRow, scores []float64) error {
	if len(scores) != len(rows) {
		return core.ErrScoreMismatch.Wrap(fmt.Errorf("expected %d, got %d", len(rows), len(scores)))
	}
	return nil
}
