// Command server accepts telemetry batches from agents and stores them.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vshulcz/Telemetra/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	info := util.BuildInfo{Version: buildVersion, Date: buildDate, Commit: buildCommit}
	if _, err := info.WriteTo(os.Stdout); err != nil {
		log.Printf("print build info: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], logger, nil); err != nil {
		stop()
		logger.Fatal("server failed", zap.Error(err))
	}
}
