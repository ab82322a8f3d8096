package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-apiclient/internal/domain"
)

// Package storage keeps a local journal of executed API calls.

// Journal records call outcomes and returns the most recent ones.
type Journal interface {
	Close() error
	Record(rec domain.CallRecord) error
	Recent(limit int) ([]domain.CallRecord, error)
}

// Options controls retention characteristics for concrete journal implementations.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewJournal creates the configured storage backend.
func NewJournal(typ, path string, opts Options) (Journal, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopJournal{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopJournal struct{}

func (noopJournal) Close() error                            { return nil }
func (noopJournal) Record(domain.CallRecord) error          { return nil }
func (noopJournal) Recent(int) ([]domain.CallRecord, error) { return nil, nil }
