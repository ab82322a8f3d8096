package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-apiclient/internal/config"
	"github.com/samvad-hq/samvad-apiclient/internal/dispatch"
	"github.com/samvad-hq/samvad-apiclient/internal/domain"
	"github.com/samvad-hq/samvad-apiclient/internal/logger"
	"github.com/samvad-hq/samvad-apiclient/internal/storage"
	"github.com/samvad-hq/samvad-apiclient/pkg/apiclient"
	"github.com/samvad-hq/samvad-apiclient/pkg/calls"
	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
	"github.com/samvad-hq/samvad-apiclient/pkg/transport"
)

// Runner represents the API call runtime. It runs the configured calls once or on
// an interval, journaling and publishing every outcome.
type Runner struct {
	cfg      *config.Config
	client   *apiclient.Client
	fanout   *publishers.Fanout
	service  *dispatch.Service
	journal  storage.Journal
	interval time.Duration
	log      logger.Logger

	closeOnce sync.Once
}

// NewRunner builds a runner from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := calls.LoadCalls(cfg.CallsFile); err != nil {
		return nil, fmt.Errorf("load calls registry: %w", err)
	}
	callList := calls.Calls()
	callIDs := make([]string, 0, len(callList))
	for _, c := range callList {
		callIDs = append(callIDs, c.ID)
	}
	log.InfoObj("calls registry loaded", "calls_meta", map[string]any{
		"count": len(callIDs),
		"ids":   callIDs,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	journal, err := storage.NewJournal(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RecordTTL:       cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"record_ttl_seconds":       int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	client := apiclient.NewClient(newExecutor(cfg, log), cfg.APIHost, cfg.APIUser, cfg.APIPassword,
		apiclient.WithLogger(log))
	if cfg.ContentType != "" {
		client.SetContentType(cfg.ContentType)
	}

	return &Runner{
		cfg:      cfg,
		client:   client,
		fanout:   fanout,
		service:  dispatch.NewService(client, journal, fanout),
		journal:  journal,
		interval: cfg.CallInterval,
		log:      log,
	}, nil
}

func newExecutor(cfg *config.Config, log logger.Logger) *transport.Executor {
	opts := []transport.Option{
		transport.WithConnectTimeout(cfg.ConnectTimeout),
		transport.WithTimeout(cfg.Timeout),
		transport.WithFollowRedirects(cfg.FollowRedirects),
		transport.WithMaxRedirects(cfg.MaxRedirects),
		transport.WithVerbose(cfg.Verbose),
		transport.WithLogger(log),
	}
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		opts = append(opts, transport.WithUserAgent(ua))
	}
	return transport.NewExecutor(opts...)
}

// buildFanout loads publishers when a publishers file is configured.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured", "publishers_meta", map[string]any{"count": 0})
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Run executes the enabled calls once, or repeatedly until the context is cancelled
// when an interval is configured.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.Close()

	enabled := calls.EnabledCalls()
	if len(enabled) == 0 {
		r.log.WarnObj("no enabled calls configured; nothing to run", "calls_file", r.cfg.CallsFile)
		return nil
	}

	r.log.InfoObj("runner starting", "runner_state", map[string]any{
		"calls_count":      len(enabled),
		"publishers_count": r.fanout.Size(),
		"call_interval":    r.interval.String(),
	})

	if r.interval <= 0 {
		return r.runOnce(ctx, enabled)
	}

	if err := r.runOnce(ctx, enabled); err != nil {
		r.log.ErrorObj("initial pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("runner loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx, enabled); err != nil {
				r.log.ErrorObj("scheduled pass failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single pass across the enabled calls.
func (r *Runner) runOnce(ctx context.Context, list []calls.Call) error {
	start := time.Now()
	r.log.InfoObj("pass started", "pass_meta", map[string]any{
		"calls_count": len(list),
		"started_at":  start.UTC(),
	})

	records, err := r.service.Run(ctx, list)
	succeeded := 0
	for _, rec := range records {
		if rec.OK {
			succeeded++
		}
	}
	r.log.InfoObj("pass completed", "pass_meta", map[string]any{
		"calls_count": len(list),
		"succeeded":   succeeded,
		"failed":      len(records) - succeeded,
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return err
}

// Recent returns the latest journaled call records, newest first.
func (r *Runner) Recent(limit int) ([]domain.CallRecord, error) {
	if r == nil || r.journal == nil {
		return nil, errors.New("runner is not initialized")
	}
	return r.journal.Recent(limit)
}

// Close releases storage and publisher clients, logging any errors encountered.
// Run closes the runner on return.
func (r *Runner) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		if err := r.journal.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err.Error())
		}
		if err := r.fanout.Close(); err != nil {
			r.log.ErrorObj("publishers close failed", "error", err.Error())
		}
	})
}
