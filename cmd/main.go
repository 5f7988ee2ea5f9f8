package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tweetcast/internal/adapters/http/api"
	"github.com/okian/tweetcast/internal/adapters/http/site"
	"github.com/okian/tweetcast/internal/adapters/http/swagger"
	service "github.com/okian/tweetcast/internal/app"
	"github.com/okian/tweetcast/internal/config"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registerRuntimeCollectors()

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Error(ctx, "listen failed", logger.String("addr", cfg.Addr), logger.Error(err))
		os.Exit(1)
	}
	if err := run(ctx, cfg, lis, log); err != nil {
		log.Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// registerRuntimeCollectors adds Go runtime and process metrics to the
// service registry served on /metrics.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// newMux mounts the API, the docs and the landing page.
func newMux(ctx context.Context, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux, svc)
	return mux
}

// run builds and starts the service, serves HTTP on lis until ctx is done,
// then drains the server and the service.
func run(ctx context.Context, cfg *config.Config, lis net.Listener, log logger.Logger) error {
	svc, err := service.Build(ctx, cfg, log)
	if err != nil {
		_ = lis.Close()
		return fmt.Errorf("build service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		_ = lis.Close()
		return errors.Join(fmt.Errorf("start service: %w", err), svc.Stop(ctx))
	}

	srv := &http.Server{
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(serr))
	}
	if stopErr := svc.Stop(shutdownCtx); stopErr != nil {
		log.Error(ctx, "service stop failed", logger.Error(stopErr))
		err = errors.Join(err, stopErr)
	}

	log.Info(ctx, "server stopped")
	return err
}
