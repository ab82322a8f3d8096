// Package transport executes immutable requests against an HTTP engine and
// returns materialized responses.
package transport

import (
	"context"

	"github.com/samvad-hq/samvad-apiclient/pkg/message"
)

// Transport executes one request per call.
type Transport interface {
	// Execute sends req once and returns the received response. The returned
	// response owns its body stream.
	Execute(ctx context.Context, req *message.Request) (*message.Response, error)
	// LastResponse returns the response of the last successful Execute, nil before any.
	LastResponse() *message.Response
}
