// Package videorec 是一个"召回 + 排序"两阶段的视频推荐服务。
//
// 设计要点：
//   - 召回：基于用户正反馈的物品共现索引（Item-to-Item），按历史累加共现次数取候选
//   - 排序：把 (用户, 物品) 编码为稠密特征，交给 LightGBM / LR / 远程模型打分
//   - Pipeline-first：Recall → Filter → Rank → TopN 由 Node 串联，可通过 YAML 重新编排
//   - 离线构建、在线只读：索引与编码器构建一次后原子替换，请求之间无共享可变状态
//
// 入口见 cmd/videorec；核心链路见 recall、feature、rank、service 包。
package videorec

import "github.com/rushteam/videorec/pipeline"

// 轻量 facade：便于直接 import "videorec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
