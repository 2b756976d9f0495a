// Package server 把推荐服务暴露为 HTTP 接口。
//
//	GET /                          服务信息
//	GET /recommend/{user_id}?topk=10&scene=home   其余查询参数进入 rctx.params
//	GET /healthz                   Runtime 已装载时返回 200
//	GET /metrics                   Prometheus 指标
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/service"
)

// Options 是 HTTP 层配置。
type Options struct {
	Version     string
	DefaultTopK int
	MaxTopK     int

	// RateLimit 是每个客户端 IP 每分钟的请求上限，0 表示不限流
	RateLimit int
}

type Server struct {
	svc    *service.Service
	opts   Options
	router chi.Router
}

func New(svc *service.Service, opts Options) *Server {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = service.DefaultTopK
	}
	if opts.MaxTopK < opts.DefaultTopK {
		opts.MaxTopK = opts.DefaultTopK
	}
	s := &Server{svc: svc, opts: opts}
	s.router = s.routes()
	return s
}

// Handler 返回根 http.Handler。
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleInfo)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.opts.RateLimit, time.Minute))
		}
		r.Get("/recommend/{user_id}", s.handleRecommend)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type infoResponse struct {
	Service    string     `json:"service"`
	Version    string     `json:"version,omitempty"`
	Ready      bool       `json:"ready"`
	IndexItems int        `json:"index_items"`
	Users      int        `json:"users"`
	Items      int        `json:"items"`
	Scorer     string     `json:"scorer,omitempty"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	info := infoResponse{Service: "videorec", Version: s.opts.Version}
	if rt := s.svc.Runtime(); rt != nil {
		info.Ready = true
		info.IndexItems = rt.Index.Len()
		info.Users = rt.Encoder.NumUsers()
		info.Items = rt.Encoder.NumItems()
		if !rt.BuiltAt.IsZero() {
			builtAt := rt.BuiltAt
			info.BuiltAt = &builtAt
		}
		if rt.Scorer != nil {
			info.Scorer = rt.Scorer.Name()
		}
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Runtime() == nil {
		writeError(w, http.StatusServiceUnavailable, "runtime not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || userID < 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a non-negative integer")
		return
	}

	topk := s.opts.DefaultTopK
	if raw := r.URL.Query().Get("topk"); raw != "" {
		topk, err = strconv.Atoi(raw)
		if err != nil || topk <= 0 || topk > s.opts.MaxTopK {
			writeError(w, http.StatusBadRequest, "topk must be between 1 and "+strconv.Itoa(s.opts.MaxTopK))
			return
		}
	}

	res, err := s.svc.RecommendRequest(r.Context(), recommendRequest(r, userID, topk))
	if err != nil {
		switch {
		case core.IsUnavailable(err):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// recommendRequest 把 scene 与其余查询参数（除 topk）带进请求，同名参数取第一个值。
func recommendRequest(r *http.Request, userID int64, topk int) service.Request {
	req := service.Request{UserID: userID, TopK: topk}
	for key, values := range r.URL.Query() {
		switch {
		case key == "topk" || len(values) == 0:
		case key == "scene":
			req.Scene = values[0]
		default:
			if req.Params == nil {
				req.Params = make(map[string]any)
			}
			req.Params[key] = values[0]
		}
	}
	return req
}

// requestLogger 为每个请求注入带 request_id 的 logger，并记录访问日志。
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := logging.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ctx := logging.WithContext(r.Context(), l)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		l.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
