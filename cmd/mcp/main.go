package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/footwear-qc/internal/adapters/mcp"
	"github.com/kirillkom/footwear-qc/internal/bootstrap"
	"github.com/kirillkom/footwear-qc/internal/config"
	"github.com/kirillkom/footwear-qc/internal/observability/logging"
)

const serviceName = "qc-mcp"

var version = "dev"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	qc, err := bootstrap.NewQC(cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}

	if err := mcpadapter.NewServer(qc, version).ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err.Error())
		os.Exit(1)
	}
}
