// Command fundlink builds and queries a mutual fund retrieval index with
// platform link attribution.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/fundlink/internal/adapters/driving/cli"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal; secrets may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("loading .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, wire, version)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
