package dispatch

import (
	"context"

	"github.com/samvad-hq/samvad-apiclient/internal/domain"
	"github.com/samvad-hq/samvad-apiclient/pkg/message"
	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
)

// Caller executes a configured API call. *apiclient.Client satisfies it.
type Caller interface {
	Do(ctx context.Context, method, path string, params map[string]any, headers map[string]string) (*message.Response, error)
	Decode(resp *message.Response) (map[string]any, error)
}

// Recorder persists call outcomes.
type Recorder interface {
	Record(rec domain.CallRecord) error
}

// EventPublisher publishes call outcomes downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
