package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-apiclient/pkg/message"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
	"github.com/samvad-hq/samvad-apiclient/pkg/transport"
	"github.com/samvad-hq/samvad-apiclient/pkg/uri"
)

type httpPublisher struct {
	id      string
	method  string
	url     uri.URI
	headers map[string]string
	exec    transport.Transport
	typ     string
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	target, err := uri.Parse(cfg.HTTP.URL)
	if err != nil {
		return nil, fmt.Errorf("publisher %q url: %w", cfg.ID, err)
	}

	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}
	timeout := cfg.HTTP.TimeoutSeconds
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds
	}

	log = ensureLogger(log)
	exec := transport.NewExecutor(
		transport.WithTimeout(time.Duration(timeout)*time.Second),
		transport.WithConnectTimeout(time.Duration(timeout)*time.Second),
		transport.WithLogger(log),
	)

	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  method,
		url:     target,
		headers: cfg.HTTP.Headers,
		exec:    exec,
		log:     log,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := h.request(payload)
	if err != nil {
		return err
	}
	defer req.Body().Close()

	resp, err := h.exec.Execute(ctx, req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body().Close()

	if resp.StatusCode() >= 400 {
		body, _ := resp.Body().Contents()
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), readBodySnippet(body))
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"call_id":      evt.CallID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func (h *httpPublisher) request(payload []byte) (*message.Request, error) {
	req, err := message.NewRequest(h.method, h.url)
	if err != nil {
		return nil, err
	}
	for name, value := range h.headers {
		if req, err = req.WithHeader(name, value); err != nil {
			return nil, err
		}
	}
	if req, err = req.WithHeader("Content-Type", "application/json"); err != nil {
		return nil, err
	}

	body, err := stream.FromBytes(payload)
	if err != nil {
		return nil, err
	}
	return req.WithBody(body), nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
