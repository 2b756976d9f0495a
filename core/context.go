package core

// RecommendContext 承载单次请求的用户信息，贯穿整个 Pipeline 透传。
// 它只属于创建它的请求，不在请求之间共享，因此无需加锁。
type RecommendContext struct {
	UserID int64

	// Scene 是请求场景（如 home / detail），过滤表达式通过 rctx.scene 读取
	Scene string

	// Limit 是请求最终返回的物品数（TopK）
	Limit int

	// History 是用户正反馈过的物品 ID（按日志顺序）
	History []int64

	// Params 请求级上下文参数，过滤表达式通过 rctx.params 读取
	Params map[string]any

	// Unmapped 记录特征组装阶段因缺少编码被丢弃的候选数量
	Unmapped int
}
