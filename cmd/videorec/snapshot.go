package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rushteam/videorec/config"
	"github.com/rushteam/videorec/dataset"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/metrics"
	"github.com/rushteam/videorec/recall"
	"github.com/rushteam/videorec/snapshot"
	"github.com/rushteam/videorec/store"
)

// runSnapshot 从交互日志离线构建索引与编码器并持久化：
//   - file：写入 store.snapshot_path，用户历史随快照一起保存
//   - redis：快照写入 store.snapshot_key，用户历史按用户写入 history:{user_id}
func runSnapshot(args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("snapshot", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.StoreNone {
		return fmt.Errorf("store.backend must be %q or %q to write a snapshot", config.StoreFile, config.StoreRedis)
	}

	ctx := context.Background()
	interactions, err := dataset.LoadFile(cfg.Data.InteractionsPath, cfg.Data.Threshold)
	if err != nil {
		return err
	}

	start := time.Now()
	idx, err := recall.BuildIndex(ctx, interactions, recall.WithWorkers(cfg.Recall.Workers))
	if err != nil {
		return err
	}
	metrics.RecordIndex(idx.Len(), idx.Pairs(), time.Since(start))
	enc := feature.EncoderFromInteractions(interactions)
	histories := recall.NewMemoryHistory(interactions).Histories()

	switch cfg.Store.Backend {
	case config.StoreFile:
		if err := snapshot.SaveFile(cfg.Store.SnapshotPath, snapshot.New(idx, enc, histories)); err != nil {
			return err
		}
	case config.StoreRedis:
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := store.NewKVHistory(st).SaveHistories(ctx, histories); err != nil {
			return err
		}
		if err := snapshot.Save(ctx, st, cfg.Store.SnapshotKey, snapshot.New(idx, enc, nil)); err != nil {
			return err
		}
	}

	logging.Info().
		Str("store", cfg.Store.Backend).
		Int("index_items", idx.Len()).
		Int("index_pairs", idx.Pairs()).
		Int("users", enc.NumUsers()).
		Int("items", enc.NumItems()).
		Int("histories", len(histories)).
		Dur("elapsed", time.Since(start)).
		Msg("snapshot written")
	return nil
}
