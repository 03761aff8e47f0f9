// Command lexecon boots a Core and runs its background sweepers
// (escalation SLA checks, retention classification, notification
// forwarding) until terminated. The core has no HTTP surface — callers
// embed the lexecon package directly to call Decide, CreateEscalation,
// GenerateExport, and the rest of the C1-C12 operations; this binary
// exists for the sweeper loops and as an operational health check.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	lexecon "github.com/Lexicoding-systems/Lexecon-sub000"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := parseLogLevel(os.Getenv("LEXECON_LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("lexecon starting", "version", version, "ledger_path", cfg.LedgerPath,
		"postgres_enabled", cfg.PostgresURL != "")

	core, err := lexecon.New(ctx,
		lexecon.WithConfig(cfg),
		lexecon.WithLogger(logger),
		lexecon.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("init core: %w", err)
	}

	logger.Info("lexecon ready")
	if err := core.Run(ctx); err != nil {
		return fmt.Errorf("core run: %w", err)
	}

	logger.Info("lexecon stopped")
	return nil
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
