package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/tweetcast/internal/cmd/ctl"
	"github.com/okian/tweetcast/pkg/logger"
)

const defaultServer = "http://127.0.0.1:9080"

func serverFromEnv() string {
	if url := os.Getenv("TWEETCAST_SERVER"); url != "" {
		return url
	}
	return defaultServer
}

func main() {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctl.NewRoot(serverFromEnv).ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
