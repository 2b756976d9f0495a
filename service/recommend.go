// Package service 编排一次推荐请求：用户历史 → 共现召回 → 特征组装 → 模型排序 → TopK。
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/metrics"
)

// DefaultTopK 是请求未指定 topk 时的返回数量。
const DefaultTopK = 10

// ErrNotReady 表示 Service 尚未装载 Runtime。
var ErrNotReady = core.NewDomainError("service", core.ErrorCodeUnavailable, "service: runtime not ready")

// RankedItem 是一条推荐结果（原始物品 ID 与模型分数）。
type RankedItem struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// Result 是一次推荐的结果。Unmapped 是因缺少编码被丢弃的候选数。
type Result struct {
	UserID   int64        `json:"user_id"`
	Items    []RankedItem `json:"recommendations"`
	Unmapped int          `json:"unmapped,omitempty"`
}

// Service 是推荐服务的入口。
//
// 设计原则：
//   - 所有在线依赖收敛在不可变的 Runtime 中，通过 atomic.Pointer 持有，没有全局状态
//   - Swap 原子替换 Runtime；进行中的请求不受影响
//   - 请求级数据（RecommendContext、候选列表）只属于该请求
type Service struct {
	rt          atomic.Pointer[Runtime]
	defaultTopK int
	logger      *zerolog.Logger
}

// Option 配置 Service。
type Option func(*Service)

// WithDefaultTopK 设置 topk<=0 时使用的返回数量。
func WithDefaultTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultTopK = k
		}
	}
}

// WithLogger 使用指定 logger；默认使用 logging 包的全局 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = &l }
}

// New 创建 Service。rt 可以为 nil，之后通过 Swap 装载。
func New(rt *Runtime, opts ...Option) *Service {
	s := &Service{defaultTopK: DefaultTopK}
	for _, opt := range opts {
		opt(s)
	}
	if rt != nil {
		s.rt.Store(rt)
	}
	return s
}

// Swap 原子替换 Runtime，返回旧的 Runtime。
func (s *Service) Swap(rt *Runtime) *Runtime {
	old := s.rt.Swap(rt)
	metrics.RuntimeSwaps.Inc()
	if rt != nil && rt.Index != nil {
		metrics.IndexItems.Set(float64(rt.Index.Len()))
		metrics.IndexPairs.Set(float64(rt.Index.Pairs()))
	}
	return old
}

// Runtime 返回当前 Runtime（可能为 nil）。
func (s *Service) Runtime() *Runtime { return s.rt.Load() }

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.Ctx(ctx)
}

// Request 是一次推荐请求。Scene 与 Params 原样放进 RecommendContext，
// 供过滤表达式按场景或请求参数生效。
type Request struct {
	UserID int64
	TopK   int
	Scene  string
	Params map[string]any
}

// Recommend 为用户返回 TopK 推荐，不带场景与请求参数。
func (s *Service) Recommend(ctx context.Context, userID int64, topk int) (*Result, error) {
	return s.RecommendRequest(ctx, Request{UserID: userID, TopK: topk})
}

// RecommendRequest 执行一次推荐请求。
//
//   - TopK<=0 时使用默认值
//   - 用户没有历史（含未知用户）时返回空结果，不召回也不调用模型
//   - 召回为空或候选全部缺少编码时返回空结果，不调用模型
//   - 模型调用失败返回 core.ErrScorerUnavailable，不降级
//
// 结果按模型分数降序，分数相同按物品 ID 升序，数量不超过 TopK。
func (s *Service) RecommendRequest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.recommend(ctx, req)
	metrics.RecordRecommend(outcome(res, err), time.Since(start))
	return res, err
}

func (s *Service) recommend(ctx context.Context, req Request) (*Result, error) {
	rt := s.rt.Load()
	if rt == nil {
		return nil, ErrNotReady
	}
	userID, topk := req.UserID, req.TopK
	if topk <= 0 {
		topk = s.defaultTopK
	}

	res := &Result{UserID: userID, Items: []RankedItem{}}

	history, err := rt.History.GetUserHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history for user %d: %w", userID, err)
	}
	if len(history) == 0 {
		s.log(ctx).Debug().Int64("user_id", userID).Msg("no history, empty result")
		return res, nil
	}

	rctx := &core.RecommendContext{
		UserID:  userID,
		Scene:   req.Scene,
		Limit:   topk,
		History: history,
		Params:  req.Params,
	}
	items, err := rt.Pipeline.Run(ctx, rctx, nil)
	if err != nil {
		if errors.Is(err, core.ErrScorerUnavailable) && rt.Scorer != nil {
			metrics.ScorerErrors.WithLabelValues(rt.Scorer.Name()).Inc()
		}
		s.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("recommend failed")
		return nil, err
	}

	if rctx.Unmapped > 0 {
		metrics.UnmappedCandidates.Add(float64(rctx.Unmapped))
		s.log(ctx).Warn().
			Int64("user_id", userID).
			Int("unmapped", rctx.Unmapped).
			Msg("candidates dropped without encoding")
	}
	res.Unmapped = rctx.Unmapped

	if len(items) > topk {
		items = items[:topk]
	}
	for _, it := range items {
		res.Items = append(res.Items, RankedItem{ItemID: it.ID, Score: it.Score})
	}
	return res, nil
}

func outcome(res *Result, err error) string {
	switch {
	case err == nil && len(res.Items) == 0:
		return metrics.OutcomeEmpty
	case err == nil:
		return metrics.OutcomeOK
	case core.IsUnavailable(err):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}
