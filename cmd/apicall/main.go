package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-apiclient/internal/app"
	"github.com/samvad-hq/samvad-apiclient/internal/config"
	"github.com/samvad-hq/samvad-apiclient/internal/logger"
)

func main() {
	recent := flag.Int("recent", 0, "print the N most recent journaled calls and exit")
	flag.Parse()

	if err := run(*recent); err != nil {
		fmt.Fprintf(os.Stderr, "apicall failed: %v\n", err)
		os.Exit(1)
	}
}

func run(recent int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("apicall starting", "config", map[string]any{
		"app_name":      cfg.AppName,
		"env":           cfg.Env,
		"api_host":      cfg.APIHost,
		"calls_file":    cfg.CallsFile,
		"call_interval": cfg.CallInterval.String(),
		"storage_type":  cfg.StorageType,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(ctx, cfg, logger.Zap{})
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err.Error())
		return err
	}

	if recent > 0 {
		defer runner.Close()
		recs, err := runner.Recent(recent)
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("runner run: %w", err)
	}
	return nil
}
