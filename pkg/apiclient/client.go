// Package apiclient composes JSON API calls on top of a transport.
package apiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/message"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
	"github.com/samvad-hq/samvad-apiclient/pkg/transport"
	"github.com/samvad-hq/samvad-apiclient/pkg/uri"
)

const (
	DefaultContentType = "application/json"

	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
)

// Client calls a JSON API rooted at Host. It is not safe for concurrent
// reconfiguration; Call itself only reads the configuration.
type Client struct {
	transport transport.Transport
	host      string
	headers   []header
	log       transport.Logger
}

type header struct {
	name  string
	value string
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(log transport.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient returns a client using t, or a default Executor when t is nil. A
// non-empty user adds Basic authorization.
func NewClient(t transport.Transport, host, user, password string, opts ...Option) *Client {
	c := &Client{host: host}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.log == nil {
		c.log = nopLogger{}
	}
	if t == nil {
		t = transport.NewExecutor(transport.WithLogger(c.log))
	}
	c.transport = t

	c.SetContentType(DefaultContentType)
	if user != "" {
		c.SetAuthorization(user, password)
	}
	return c
}

func (c *Client) Transport() transport.Transport { return c.transport }

func (c *Client) SetTransport(t transport.Transport) { c.transport = t }

func (c *Client) Host() string { return c.host }

func (c *Client) SetHost(host string) { c.host = host }

func (c *Client) SetContentType(contentType string) {
	c.AddRequestHeader(headerContentType, contentType)
}

func (c *Client) SetAuthorization(user, password string) {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	c.AddRequestHeader(headerAuthorization, "Basic "+token)
}

// AddRequestHeader sets a default header sent with every call, replacing any
// earlier value for the same name.
func (c *Client) AddRequestHeader(name, value string) {
	for i := range c.headers {
		if c.headers[i].name == name {
			c.headers[i].value = value
			return
		}
	}
	c.headers = append(c.headers, header{name: name, value: value})
}

// RequestHeaders returns a copy of the default headers.
func (c *Client) RequestHeaders() map[string]string {
	out := make(map[string]string, len(c.headers))
	for _, h := range c.headers {
		out[h.name] = h.value
	}
	return out
}

// Call sends method to Host+path with params as a JSON body and decodes the JSON
// answer. A 401 response fails with a *apierrors.ClientError. Bodies that are empty
// or not JSON decode to an empty map.
func (c *Client) Call(ctx context.Context, method, path string, params map[string]any) (map[string]any, error) {
	resp, err := c.Do(ctx, method, path, params, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body().Close()

	return c.Decode(resp)
}

// Decode interprets a response the way Call does.
func (c *Client) Decode(resp *message.Response) (map[string]any, error) {
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, apierrors.Client(resp.StatusCode(), "Unauthorized API access")
	}

	raw, err := resp.Body().Contents()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	result, ok := decode(raw)
	if !ok && len(raw) > 0 {
		c.log.WarnObj("non-JSON response", "response", describe(resp, raw))
	}
	return result, nil
}

// Do sends the request with the default headers plus extra and returns the raw
// response. The caller closes the response body.
func (c *Client) Do(ctx context.Context, method, path string, params map[string]any, extra map[string]string) (*message.Response, error) {
	if c.transport == nil {
		return nil, apierrors.InvalidArgument("Transport is not configured")
	}

	req, body, err := c.newRequest(method, path, params, extra)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	resp, err := c.transport.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
	}
	c.log.DebugObj("api call completed", "call", map[string]any{
		"method": strings.ToUpper(method),
		"path":   path,
		"status": resp.StatusCode(),
	})
	return resp, nil
}

func (c *Client) newRequest(method, path string, params map[string]any, extra map[string]string) (*message.Request, *stream.Stream, error) {
	u, err := uri.Parse(c.host + path)
	if err != nil {
		return nil, nil, err
	}

	req, err := message.NewRequest(method, u)
	if err != nil {
		return nil, nil, err
	}
	for _, h := range c.headers {
		if req, err = req.WithHeader(h.name, h.value); err != nil {
			return nil, nil, err
		}
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if req, err = req.WithHeader(name, extra[name]); err != nil {
			return nil, nil, err
		}
	}

	body, err := stream.NewTemp()
	if err != nil {
		return nil, nil, err
	}
	if len(params) > 0 {
		payload, err := json.Marshal(params)
		if err != nil {
			_ = body.Close()
			return nil, nil, fmt.Errorf("encode params: %w", err)
		}
		if _, err := body.Write(payload); err != nil {
			_ = body.Close()
			return nil, nil, err
		}
	}

	return req.WithBody(body), body, nil
}

// decode turns a JSON document into a map. Objects are returned as is, arrays are
// keyed by index and scalars are stored under "0". ok is false when raw is not JSON.
func decode(raw []byte) (map[string]any, bool) {
	result := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, true
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return result, false
	}

	switch val := v.(type) {
	case nil:
	case map[string]any:
		return val, true
	case []any:
		for i, item := range val {
			result[strconv.Itoa(i)] = item
		}
	default:
		result["0"] = val
	}
	return result, true
}

// describe summarizes a non-JSON body for logging, using the page title for HTML.
func describe(resp *message.Response, raw []byte) map[string]any {
	info := map[string]any{
		"status":       resp.StatusCode(),
		"content_type": resp.HeaderLine(headerContentType),
		"bytes":        len(raw),
	}
	if strings.Contains(resp.HeaderLine(headerContentType), "html") {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw)); err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				info["title"] = title
			}
		}
	}
	return info
}

type nopLogger struct{}

func (nopLogger) InfoObj(string, string, interface{})  {}
func (nopLogger) DebugObj(string, string, interface{}) {}
func (nopLogger) WarnObj(string, string, interface{})  {}
func (nopLogger) ErrorObj(string, string, interface{}) {}
