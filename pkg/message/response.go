package message

import (
	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
)

// Response is an immutable received response.
type Response struct {
	Message
	status int
	reason string
}

// NewResponse returns a 200 response with an empty reason phrase and a detached body.
func NewResponse() *Response {
	return &Response{Message: newMessage(), status: 200}
}

func (r *Response) StatusCode() int { return r.status }

func (r *Response) ReasonPhrase() string { return r.reason }

// WithStatus sets the status code. The reason phrase is only replaced when reason
// is non-empty.
func (r *Response) WithStatus(code int, reason string) (*Response, error) {
	if !IsValidStatus(code) {
		return nil, apierrors.InvalidArgument("\"%d\" is not a valid HTTP status code", code)
	}
	c := *r
	c.Message = r.Message.clone()
	c.status = code
	if reason != "" {
		c.reason = reason
	}
	return &c, nil
}

func (r *Response) WithProtocolVersion(version string) (*Response, error) {
	m, err := r.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.Message = m
	return &c, nil
}

func (r *Response) WithHeader(name string, values ...string) (*Response, error) {
	m, err := r.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.Message = m
	return &c, nil
}

func (r *Response) WithAddedHeader(name string, values ...string) (*Response, error) {
	m, err := r.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.Message = m
	return &c, nil
}

func (r *Response) WithoutHeader(name string) *Response {
	c := *r
	c.Message = r.withoutHeader(name)
	return &c
}

func (r *Response) WithBody(body *stream.Stream) *Response {
	c := *r
	c.Message = r.withBody(body)
	return &c
}
