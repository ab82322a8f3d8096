package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samvad-hq/samvad-apiclient/internal/domain"
	"github.com/samvad-hq/samvad-apiclient/internal/logger"
	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/calls"
	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
)

// Service runs configured API calls and reports each outcome.
type Service struct {
	caller    Caller
	recorder  Recorder
	publisher EventPublisher
}

// NewService wires a dispatcher. recorder and publisher may be nil.
func NewService(caller Caller, recorder Recorder, publisher EventPublisher) *Service {
	return &Service{
		caller:    caller,
		recorder:  recorder,
		publisher: publisher,
	}
}

// Run executes every call in order and returns one record per call that started.
// Call failures do not stop the pass; they are joined into the returned error.
func (s *Service) Run(ctx context.Context, cfgs []calls.Call) ([]domain.CallRecord, error) {
	if s == nil || s.caller == nil {
		return nil, fmt.Errorf("dispatch service is not initialized")
	}

	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no calls configured for dispatch")
	}

	records := make([]domain.CallRecord, 0, len(cfgs))
	var errs []error

	for _, cfg := range cfgs {
		if err := wait(ctx, cfg.RequestDelay()); err != nil {
			errs = append(errs, err)
			break
		}

		rec, err := s.runCall(ctx, cfg)
		records = append(records, rec)
		if err != nil {
			errs = append(errs, err)
			logger.ErrorObj("api call failed", "call_error", map[string]any{
				"call_id":    cfg.ID,
				"error":      err.Error(),
				"error_code": rec.ErrorCode,
			})
		}
		s.report(ctx, cfg, rec)
	}

	return records, errors.Join(errs...)
}

func (s *Service) runCall(ctx context.Context, cfg calls.Call) (domain.CallRecord, error) {
	rec := domain.CallRecord{
		CallID: cfg.ID,
		Method: cfg.Method,
		Path:   cfg.Path,
		At:     time.Now().UTC(),
	}

	resp, err := s.caller.Do(ctx, cfg.Method, cfg.Path, cfg.Params, cfg.Headers)
	rec.DurationMS = time.Since(rec.At).Milliseconds()
	if err != nil {
		return failed(rec, err), fmt.Errorf("call %s: %w", cfg.ID, err)
	}
	defer resp.Body().Close()

	rec.Status = resp.StatusCode()
	result, err := s.caller.Decode(resp)
	if err != nil {
		return failed(rec, err), fmt.Errorf("call %s: %w", cfg.ID, err)
	}
	rec.ResultKeys = resultKeys(result)

	if !cfg.Accepts(rec.Status) {
		err := fmt.Errorf("call %s: unexpected status %d %s", cfg.ID, rec.Status, resp.ReasonPhrase())
		rec.Error = err.Error()
		return rec, err
	}

	rec.OK = true
	logger.InfoObj("api call completed", "call_result", map[string]any{
		"call_id":     cfg.ID,
		"status":      rec.Status,
		"duration_ms": rec.DurationMS,
		"result_keys": len(rec.ResultKeys),
	})
	return rec, nil
}

// report stores and publishes rec. Delivery problems are logged, never returned.
func (s *Service) report(ctx context.Context, cfg calls.Call, rec domain.CallRecord) {
	if s.recorder != nil {
		if err := s.recorder.Record(rec); err != nil {
			logger.WarnObj("call journal write failed", "journal_error", map[string]any{
				"call_id": cfg.ID,
				"error":   err.Error(),
			})
		}
	}

	if s.publisher == nil {
		return
	}
	delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(cfg.ID, cfg.Name, rec))
	if err != nil {
		logger.WarnObj("call event publish failed", "publish_error", map[string]any{
			"call_id":   cfg.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

func failed(rec domain.CallRecord, err error) domain.CallRecord {
	rec.Error = err.Error()
	var te *apierrors.TransportError
	if errors.As(err, &te) {
		rec.ErrorCode = te.Code
	}
	var ce *apierrors.ClientError
	if errors.As(err, &ce) && rec.Status == 0 {
		rec.Status = ce.StatusCode
	}
	return rec
}

func resultKeys(result map[string]any) []string {
	if len(result) == 0 {
		return nil
	}
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
