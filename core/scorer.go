package core

import "context"

// FeatureRow 是送入排序模型的一行特征：编码后的用户 ID 与物品 ID。
type FeatureRow struct {
	User int
	Item int
}

// Values 返回模型输入的稠密特征向量 [user_id_enc, item_id_enc]。
func (r FeatureRow) Values() []float64 {
	return []float64{float64(r.User), float64(r.Item)}
}

// Scorer 是排序模型的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由 model 包实现（LightGBM、LR、RPC 等）
//   - 只暴露一个能力：对一批 (user_enc, item_enc) 打分
//   - 返回的分数与 rows 一一对应、顺序一致；数量不一致视为错误
//
// 模型在服务启动前加载完成，之后只读，每次调用无状态，可被并发请求共享。
type Scorer interface {
	Name() string
	Score(ctx context.Context, rows []FeatureRow) ([]float64, error)
}

// HistoryStore 是用户历史的读取接口，返回用户正反馈过的物品（按日志顺序）。
// 未知用户返回空列表而不是错误。
type HistoryStore interface {
	GetUserHistory(ctx context.Context, userID int64) ([]int64, error)
}
