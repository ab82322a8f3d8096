package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/message"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
)

// Executor is a Transport driving one resty execution per call. Calls on the
// same Executor are serialized.
type Executor struct {
	mu        sync.Mutex
	client    *resty.Client
	overrides map[OptionKey]any
	log       Logger
	last      *message.Response
	active    *call
}

var _ Transport = (*Executor)(nil)

// NewExecutor returns an Executor with the default option set plus opts.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		overrides: make(map[OptionKey]any),
		log:       noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// SetOption overrides one engine option for every later call.
func (e *Executor) SetOption(key OptionKey, value any) error {
	v, err := normalizeOption(key, value)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.overrides[key] = v
	e.mu.Unlock()
	return nil
}

func (e *Executor) override(key OptionKey, value any) {
	if err := e.SetOption(key, value); err != nil {
		e.log.WarnObj("ignoring executor option", "error", err.Error())
	}
}

func (e *Executor) LastResponse() *message.Response {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// call is the state of one Execute. Everything in it is released before Execute returns.
type call struct {
	opts      callOptions
	agent     []string
	transport *http.Transport
	rawBody   io.ReadCloser
	sink      *stream.Stream
}

func (e *Executor) Execute(ctx context.Context, req *message.Request) (*message.Response, error) {
	if req == nil {
		return nil, apierrors.InvalidArgument("Request must not be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c := &call{opts: buildCallOptions(e.overrides)}
	e.active = c
	defer e.release(c)

	client := e.acquire()

	sink, err := stream.NewTemp()
	if err != nil {
		return nil, fmt.Errorf("response sink: %w", err)
	}
	c.sink = sink

	method := strings.ToUpper(req.Method())
	if !message.IsKnownMethod(method) {
		return nil, apierrors.Transport("Method %s is unsupported", method)
	}

	target := req.URI()
	if target.Host() == "" {
		return nil, apierrors.TransportCode(CodeText(CodeMalformedURL), CodeMalformedURL, nil)
	}
	url := target.String()

	c.opts.headers = headerLines(req)
	c.agent = userAgent(c.opts.headers, c.opts.userAgent)
	payload := requestPayload(req)

	e.configure(client, c)

	r := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	applyHeaders(r, c.opts)
	if len(payload) > 0 {
		r.SetBody(payload)
	}

	e.log.DebugObj("executing request", "request", map[string]any{
		"method": method,
		"url":    url,
		"bytes":  len(payload),
	})

	resp, err := perform(r, method, url)
	if resp != nil {
		c.rawBody = resp.RawBody()
	}
	if err != nil {
		return nil, e.engineError(err)
	}

	if err := c.receive(resp); err != nil {
		return nil, e.engineError(err)
	}

	out, err := buildResponse(resp, c.sink)
	if err != nil {
		e.log.WarnObj("response rejected", "error", map[string]any{"code": CodeReceive, "message": err.Error()})
		return nil, apierrors.TransportCode(err.Error(), CodeReceive, err)
	}
	c.sink = nil

	e.last = out
	e.log.DebugObj("request executed", "response", map[string]any{
		"status": out.StatusCode(),
		"length": out.HeaderLine("Content-Length"),
	})
	return out, nil
}

// acquire returns the engine handle, creating it on first use.
func (e *Executor) acquire() *resty.Client {
	if e.client == nil {
		e.client = resty.New().SetPreRequestHook(e.prepare)
	}
	return e.client
}

// prepare runs on the engine's outgoing request. The canonical User-Agent slot is
// always written so neither resty nor net/http adds a default; an empty value
// sends no User-Agent line.
func (e *Executor) prepare(_ *resty.Client, hr *http.Request) error {
	if e.active != nil {
		hr.Header["User-Agent"] = e.active.agent
	}
	return nil
}

// configure resets the handle to the call's option set.
func (e *Executor) configure(client *resty.Client, c *call) {
	dialer := &net.Dialer{Timeout: c.opts.connectTimeout}
	c.transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: c.opts.connectTimeout,
		DisableKeepAlives:   true,
	}
	if c.opts.httpVersion == "2" {
		c.transport.ForceAttemptHTTP2 = true
	} else {
		c.transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	client.SetTransport(c.transport).
		SetTimeout(c.opts.timeout).
		SetAllowGetMethodPayload(true).
		SetDebug(c.opts.verbose).
		SetLogger(engineLogger{log: e.log}).
		SetRedirectPolicy(redirectPolicy(c.opts))
}

func redirectPolicy(opts callOptions) resty.RedirectPolicy {
	follow, limit := opts.followRedirects, opts.maxRedirects
	return resty.RedirectPolicyFunc(func(_ *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) > limit {
			return errTooManyRedirects
		}
		return nil
	})
}

// perform runs the method directive once.
func perform(r *resty.Request, method, url string) (*resty.Response, error) {
	switch method {
	case message.MethodHead:
		return r.Head(url)
	case message.MethodGet:
		return r.Get(url)
	case message.MethodPost:
		return r.Post(url)
	default:
		return r.Execute(method, url)
	}
}

// receive copies the raw response into the sink.
func (c *call) receive(resp *resty.Response) error {
	if !c.opts.returnTransfer {
		if c.rawBody == nil {
			return nil
		}
		_, err := io.Copy(io.Discard, c.rawBody)
		return err
	}

	w := &sinkWriter{dst: c.sink}
	if c.opts.headerOut {
		if _, err := io.WriteString(w, rawHeaderBlock(resp)); err != nil {
			return err
		}
	}
	if c.rawBody == nil {
		return nil
	}
	if _, err := io.Copy(w, c.rawBody); err != nil {
		if w.err != nil {
			return &sinkError{err: w.err}
		}
		return err
	}
	return nil
}

func (e *Executor) engineError(err error) error {
	var te *apierrors.TransportError
	if errors.As(err, &te) {
		return te
	}

	code := classify(err)
	var se *sinkError
	if errors.As(err, &se) {
		code = CodeWrite
	}

	msg := err.Error()
	if msg == "" {
		msg = CodeText(code)
	}
	e.log.WarnObj("request failed", "error", map[string]any{"code": code, "message": msg})
	return apierrors.TransportCode(msg, code, err)
}

// release runs on every exit path of Execute.
func (e *Executor) release(c *call) {
	if c.rawBody != nil {
		_ = c.rawBody.Close()
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	if c.sink != nil {
		_ = c.sink.Close()
	}
	*c = call{}
	e.active = nil
}

// buildResponse folds status and headers into a Response that owns sink.
func buildResponse(resp *resty.Response, sink *stream.Stream) (*message.Response, error) {
	code := resp.StatusCode()
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status(), strconv.Itoa(code)))

	out, err := message.NewResponse().WithStatus(code, reason)
	if err != nil {
		return nil, err
	}

	header := resp.Header()
	if ct := header.Get("Content-Type"); ct != "" {
		if out, err = out.WithHeader("Content-Type", ct); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(header))
	for name := range header {
		if name == "Content-Type" || name == "Content-Length" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if out, err = out.WithHeader(name, header[name]...); err != nil {
			return nil, err
		}
	}

	size, _ := sink.Size()
	if out, err = out.WithHeader("Content-Length", strconv.FormatInt(size, 10)); err != nil {
		return nil, err
	}

	if err := sink.Rewind(); err != nil {
		return nil, err
	}
	return out.WithBody(sink), nil
}

// headerLines renders every request header as one "Name: value" line.
func headerLines(req *message.Request) []string {
	names := req.HeaderNames()
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+strings.Join(req.Header(name), ", "))
	}
	return lines
}

// applyHeaders sets the header lines on r without canonicalizing names.
func applyHeaders(r *resty.Request, opts callOptions) {
	for _, line := range opts.headers {
		name, value, _ := strings.Cut(line, ": ")
		r.Header[name] = []string{value}
	}
}

// userAgent picks the User-Agent value for the canonical header slot. A request
// header spelled exactly "User-Agent" keeps its value. Any other spelling is sent
// as written, so the slot is emptied to avoid a second line.
func userAgent(lines []string, configured string) []string {
	for _, line := range lines {
		name, value, _ := strings.Cut(line, ": ")
		if name == "User-Agent" {
			return []string{value}
		}
		if strings.EqualFold(name, "User-Agent") {
			return []string{""}
		}
	}
	return []string{configured}
}

// requestPayload returns the request body, empty for detached or unreadable bodies.
func requestPayload(req *message.Request) []byte {
	body := req.Body()
	if !body.IsReadable() {
		return nil
	}
	b, err := body.Contents()
	if err != nil {
		return nil
	}
	return b
}

func rawHeaderBlock(resp *resty.Response) string {
	var b strings.Builder
	proto := "HTTP/1.1"
	if resp.RawResponse != nil && resp.RawResponse.Proto != "" {
		proto = resp.RawResponse.Proto
	}
	fmt.Fprintf(&b, "%s %s\r\n", proto, resp.Status())
	_ = resp.Header().Write(&b)
	b.WriteString("\r\n")
	return b.String()
}

type sinkWriter struct {
	dst io.Writer
	err error
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return e.err.Error() }

func (e *sinkError) Unwrap() error { return e.err }
