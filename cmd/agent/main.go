// Command agent samples host and runtime metrics and ships them to the server in batches.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], logger, info.UserAgent("telemetra-agent"), nil); err != nil {
		stop()
		logger.Fatal("agent failed", zap.Error(err))
	}
}
