package message

import (
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
	"github.com/samvad-hq/samvad-apiclient/pkg/uri"
)

const hostHeader = "Host"

// Request is an immutable outgoing request.
type Request struct {
	Message
	method string
	uri    uri.URI
	target string
}

// NewRequest builds a request for method and u. An empty method means GET.
// The Host header follows u's authority.
func NewRequest(method string, u uri.URI) (*Request, error) {
	if method == "" {
		method = MethodGet
	}
	if err := validateMethod(method); err != nil {
		return nil, err
	}

	r := &Request{Message: newMessage(), method: method}
	return r.WithURI(u, false), nil
}

func (r *Request) clone() *Request {
	c := *r
	c.Message = r.Message.clone()
	return &c
}

func (r *Request) Method() string {
	if r.method == "" {
		return MethodGet
	}
	return r.method
}

func (r *Request) URI() uri.URI { return r.uri }

// RequestTarget returns the explicit override, else path plus "?query", else "/".
func (r *Request) RequestTarget() string {
	if r.target != "" {
		return r.target
	}

	target := r.uri.Path()
	if q := r.uri.Query(); q != "" {
		target += "?" + q
	}
	if target == "" {
		target = "/"
	}
	return target
}

func (r *Request) WithRequestTarget(target string) (*Request, error) {
	if strings.ContainsAny(target, " \t\r\n") {
		return nil, apierrors.InvalidArgument("Request target %q must not contain whitespace", target)
	}
	c := r.clone()
	c.target = target
	return c, nil
}

func (r *Request) WithMethod(method string) (*Request, error) {
	if err := validateMethod(method); err != nil {
		return nil, err
	}
	c := r.clone()
	c.method = method
	return c, nil
}

// WithURI replaces the URI. When u has a host the Host header is set to host[:port],
// unless preserveHost is true and a Host header is already present.
func (r *Request) WithURI(u uri.URI, preserveHost bool) *Request {
	c := r.clone()
	c.uri = u

	if preserveHost && r.HasHeader(hostHeader) {
		return c
	}
	if u.Host() == "" {
		return c
	}

	host := u.Host()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port, ok := u.Port(); ok {
		host += ":" + strconv.Itoa(port)
	}
	c.headers.setFirst(hostHeader, []string{host})
	return c
}

func (r *Request) WithProtocolVersion(version string) (*Request, error) {
	m, err := r.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.Message = m
	return &c, nil
}

func (r *Request) WithHeader(name string, values ...string) (*Request, error) {
	m, err := r.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.Message = m
	return &c, nil
}

func (r *Request) WithAddedHeader(name string, values ...string) (*Request, error) {
	m, err := r.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.Message = m
	return &c, nil
}

func (r *Request) WithoutHeader(name string) *Request {
	c := *r
	c.Message = r.withoutHeader(name)
	return &c
}

func (r *Request) WithBody(body *stream.Stream) *Request {
	c := *r
	c.Message = r.withBody(body)
	return &c
}

func validateMethod(method string) error {
	if method == "" || strings.IndexFunc(method, func(r rune) bool { return !httpguts.IsTokenRune(r) }) >= 0 {
		return apierrors.InvalidArgument("%q is not a valid HTTP method", method)
	}
	return nil
}
