package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
)

// RPCScorer 通过 HTTP 调用外部模型服务进行批量打分。
// 支持 GBDT、XGBoost、TensorFlow Serving 等任何实现了以下协议的服务。
//
// 请求格式（JSON）：
//
//	{"feature_names": ["user_id_enc", "item_id_enc"], "instances": [[3, 17], [3, 42]]}
//
// 响应格式（JSON）：
//
//	{"scores": [0.85, 0.72]}
//
// 调用经过熔断器：连续失败达到阈值后快速失败，Timeout 后半开探测。
type RPCScorer struct {
	name     string
	Endpoint string
	Client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]float64]
}

// RPCOption 配置 RPCScorer。
type RPCOption func(*rpcOptions)

type rpcOptions struct {
	timeout      time.Duration
	maxFailures  uint32
	openTimeout  time.Duration
	client       *http.Client
	stateChanged func(name string, from, to gobreaker.State)
}

// WithTimeout 设置单次请求超时，默认 5s。
func WithTimeout(d time.Duration) RPCOption {
	return func(o *rpcOptions) { o.timeout = d }
}

// WithBreaker 设置熔断阈值（连续失败次数）与熔断持续时间。
func WithBreaker(maxFailures uint32, openTimeout time.Duration) RPCOption {
	return func(o *rpcOptions) {
		o.maxFailures = maxFailures
		o.openTimeout = openTimeout
	}
}

// WithHTTPClient 使用自定义 http.Client（测试或自定义 Transport）。
func WithHTTPClient(c *http.Client) RPCOption {
	return func(o *rpcOptions) { o.client = c }
}

// WithStateChange 注册熔断器状态变化回调。
func WithStateChange(fn func(name string, from, to gobreaker.State)) RPCOption {
	return func(o *rpcOptions) { o.stateChanged = fn }
}

func NewRPCScorer(name, endpoint string, opts ...RPCOption) *RPCScorer {
	o := rpcOptions{
		timeout:     5 * time.Second,
		maxFailures: 5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	client := o.client
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: o.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.maxFailures
		},
		// 调用方取消不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: o.stateChanged,
	}
	return &RPCScorer{
		name:     name,
		Endpoint: endpoint,
		Client:   client,
		breaker:  gobreaker.NewCircuitBreaker[[]float64](settings),
	}
}

func (m *RPCScorer) Name() string { return m.name }

// State 返回当前熔断器状态。
func (m *RPCScorer) State() gobreaker.State { return m.breaker.State() }

type rpcRequest struct {
	FeatureNames []string `json:"feature_names"`
	Instances    [][2]int `json:"instances"`
}

type rpcResponse struct {
	Scores []float64 `json:"scores"`
}

func (m *RPCScorer) Score(ctx context.Context, rows []core.FeatureRow) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	scores, err := m.breaker.Execute(func() ([]float64, error) {
		return m.call(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	if err := checkScores(rows, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (m *RPCScorer) call(ctx context.Context, rows []core.FeatureRow) ([]float64, error) {
	body := rpcRequest{
		FeatureNames: []string{feature.FeatureUserEnc, feature.FeatureItemEnc},
		Instances:    make([][2]int, len(rows)),
	}
	for i, r := range rows {
		body.Instances[i] = [2]int{r.User, r.Item}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, string(msg))
	}

	var result rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Scores, nil
}

var _ core.Scorer = (*RPCScorer)(nil)
