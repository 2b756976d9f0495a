package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/videorec/config"
	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/logging"
	"github.com/rushteam/videorec/server"
	"github.com/rushteam/videorec/service"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scorer, err := buildScorer(cfg.Rank)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	rt, release, err := loadRuntime(ctx, cfg, scorer, st)
	if err != nil {
		return err
	}
	svc := service.New(rt, service.WithDefaultTopK(cfg.Server.DefaultTopK))

	srv := server.New(svc, server.Options{
		Version:     version,
		DefaultTopK: cfg.Server.DefaultTopK,
		MaxTopK:     cfg.Server.MaxTopK,
		RateLimit:   cfg.Server.RateLimit,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", cfg.Server.Addr).
			Str("scorer", scorer.Name()).
			Str("store", cfg.Store.Backend).
			Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case err, ok := <-errCh:
			release()
			if ok {
				return err
			}
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				release = reload(ctx, cfg, svc, scorer, st, release)
				continue
			}
			logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			err := httpServer.Shutdown(shutdownCtx)
			stop()
			release()
			if err != nil {
				return err
			}
			logging.Info().Msg("server stopped gracefully")
			return nil
		}
	}
}

// reload 重新构建 Runtime 并原子替换；失败时保留旧 Runtime 继续服务。
// 返回当前在线 Runtime 的 release。
func reload(
	ctx context.Context,
	cfg *config.Config,
	svc *service.Service,
	scorer core.Scorer,
	st core.Store,
	release func(),
) func() {
	start := time.Now()
	rt, next, err := loadRuntime(ctx, cfg, scorer, st)
	if err != nil {
		logging.Error().Err(err).Msg("runtime reload failed, keeping current runtime")
		return release
	}
	svc.Swap(rt)
	release()
	logging.Info().Dur("elapsed", time.Since(start)).Msg("runtime swapped")
	return next
}
