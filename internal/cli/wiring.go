package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/probesweep/internal/attack"
	"github.com/roach88/probesweep/internal/bench"
	"github.com/roach88/probesweep/internal/keys"
	"github.com/roach88/probesweep/internal/ledger"
	"github.com/roach88/probesweep/internal/match"
	"github.com/roach88/probesweep/internal/naming"
)

// newDriver builds a run driver from the loaded configuration. The caller
// owns l.
func (o *RootOptions) newDriver(l ledger.Ledger) (*attack.Driver, error) {
	cfg := o.Config
	registry, err := keys.LoadRegistry(cfg.KeyRegistry)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load key registry", err)
	}
	provisioner := keys.NewProvisioner(registry, nil, o.Logger)
	engine := &attack.Command{Binary: cfg.Engine, Timeout: cfg.RunTimeout}
	layout := naming.Layout{LogDir: cfg.LogDir, TmpDir: cfg.TmpDir}

	return attack.NewDriver(engine, provisioner, layout,
		attack.WithLedger(l),
		attack.WithLogger(o.Logger),
	), nil
}

func (o *RootOptions) openLedger() (ledger.Ledger, error) {
	l, err := ledger.Open(o.Config.Ledger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return l, nil
}

func (o *RootOptions) newMatcher() (*match.Matcher, error) {
	opts := []match.Option{
		match.WithAdapter(&bench.Adapter{CacheDir: o.Config.CacheDir}),
		match.WithLogger(o.Logger),
	}
	if len(o.Config.AllowList) > 0 {
		opts = append(opts, match.WithAllowList(o.Config.AllowList))
	}
	m, err := match.NewMatcher(o.Config.CorpusDir, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create matcher", err)
	}
	return m, nil
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM. The returned stop function releases the handler.
func signalContext(cmd *cobra.Command, logger *zap.Logger) (context.Context, func()) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// serveMetrics exposes Prometheus metrics on addr until the returned stop
// function is called. An empty addr is a no-op.
func serveMetrics(addr string, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
