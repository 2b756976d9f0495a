package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rushteam/videorec/config"
	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/dataset"
	"github.com/rushteam/videorec/filter"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/metrics"
	"github.com/rushteam/videorec/model"
	"github.com/rushteam/videorec/pipeline"
	"github.com/rushteam/videorec/recall"
	"github.com/rushteam/videorec/service"
	"github.com/rushteam/videorec/snapshot"
	"github.com/rushteam/videorec/store"
)

// loadConfig 解析 -config 参数、加载配置并初始化日志。
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "path to config.yaml (default: $CONFIG_PATH or ./config.yaml)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

// buildScorer 按 rank.backend 加载排序模型。
func buildScorer(cfg config.RankConfig) (core.Scorer, error) {
	switch cfg.Backend {
	case config.BackendLightGBM:
		return model.LoadLightGBM(cfg.ModelPath, cfg.Threads)
	case config.BackendLR:
		return model.LoadLRModel(cfg.ModelPath)
	case config.BackendRPC:
		return model.NewRPCScorer("rank.rpc", cfg.Endpoint,
			model.WithTimeout(cfg.Timeout),
			model.WithBreaker(cfg.BreakerFailures, cfg.BreakerTimeout),
			model.WithStateChange(metrics.RecordBreakerState),
		), nil
	default:
		return nil, fmt.Errorf("unknown rank backend %q", cfg.Backend)
	}
}

// openStore 打开 store.backend 对应的存储。none / file 返回 nil。
func openStore(ctx context.Context, cfg config.StoreConfig) (core.Store, error) {
	if cfg.Backend != config.StoreRedis {
		return nil, nil
	}
	st, err := store.NewRedisStore(ctx, store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// buildFilters 组装 filter 段配置的过滤器。st 为 nil 时黑名单只使用静态列表。
func buildFilters(cfg config.FilterConfig, st core.Store) ([]filter.Filter, error) {
	var filters []filter.Filter
	if len(cfg.Blacklist) > 0 || (st != nil && cfg.BlacklistKey != "") {
		filters = append(filters, filter.NewBlacklistFilter(cfg.Blacklist, st, cfg.BlacklistKey))
	}
	if cfg.Expr != "" {
		f, err := filter.NewExprFilter(cfg.Expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// loadRuntime 按 store.backend 构建一份完整 Runtime：
//   - none：读取交互日志并在进程内构建索引
//   - file：加载本地快照，用户历史放入内存 KV
//   - redis：加载 Redis 中的快照，用户历史直接读 Redis
//
// 返回的 release 在 Runtime 被替换下线后调用，释放它独占的资源。
func loadRuntime(ctx context.Context, cfg *config.Config, scorer core.Scorer, st core.Store) (rt *service.Runtime, release func(), err error) {
	release = func() {}
	filters, err := buildFilters(cfg.Filter, st)
	if err != nil {
		return nil, nil, err
	}
	opts := service.PipelineOptions{OverFetch: cfg.Recall.OverFetch, Filters: filters}

	switch cfg.Store.Backend {
	case config.StoreNone:
		interactions, err := dataset.LoadFile(cfg.Data.InteractionsPath, cfg.Data.Threshold)
		if err != nil {
			return nil, nil, err
		}
		rt, err = service.BuildRuntime(ctx, interactions, scorer, nil, opts, recall.WithWorkers(cfg.Recall.Workers))
		if err != nil {
			return nil, nil, err
		}
	case config.StoreFile:
		start := time.Now()
		snap, err := snapshot.LoadFile(cfg.Store.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
		mem := store.NewMemoryStore()
		history := store.NewKVHistory(mem)
		if err := history.SaveHistories(ctx, snap.History); err != nil {
			_ = mem.Close()
			return nil, nil, err
		}
		rt, err = restoreRuntime(snap, scorer, history, opts, start)
		if err != nil {
			_ = mem.Close()
			return nil, nil, err
		}
		release = func() { _ = mem.Close() }
	case config.StoreRedis:
		start := time.Now()
		snap, err := snapshot.Load(ctx, st, cfg.Store.SnapshotKey)
		if err != nil {
			return nil, nil, err
		}
		rt, err = restoreRuntime(snap, scorer, store.NewKVHistory(st), opts, start)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Pipeline.Path != "" {
		p, err := loadPipeline(cfg, rt, st)
		if err != nil {
			release()
			return nil, nil, err
		}
		rt.Pipeline = p
	}
	return rt, release, nil
}

func restoreRuntime(
	snap *snapshot.Snapshot,
	scorer core.Scorer,
	history core.HistoryStore,
	opts service.PipelineOptions,
	start time.Time,
) (*service.Runtime, error) {
	idx, enc, err := snap.Restore()
	if err != nil {
		return nil, err
	}
	metrics.RecordIndex(idx.Len(), idx.Pairs(), time.Since(start))
	logging.Info().
		Int("index_items", idx.Len()).
		Int("index_pairs", idx.Pairs()).
		Int("users", enc.NumUsers()).
		Int("items", enc.NumItems()).
		Dur("elapsed", time.Since(start)).
		Msg("runtime restored from snapshot")
	return service.NewRuntime(idx, enc, history, scorer, opts), nil
}

// loadPipeline 用 pipeline.path 描述的链路替换默认 Pipeline。
func loadPipeline(cfg *config.Config, rt *service.Runtime, st core.Store) (*pipeline.Pipeline, error) {
	pcfg, err := pipeline.LoadFromYAML(cfg.Pipeline.Path)
	if err != nil {
		return nil, err
	}
	p, err := config.BuildPipeline(pcfg, config.Deps{
		Index:     rt.Index,
		Encoder:   rt.Encoder,
		Scorer:    rt.Scorer,
		Store:     st,
		OverFetch: cfg.Recall.OverFetch,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", cfg.Pipeline.Path, err)
	}
	logging.Info().Str("pipeline", p.Name).Int("nodes", len(p.Nodes)).Msg("pipeline loaded from config")
	return service.Observe(p), nil
}
