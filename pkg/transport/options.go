package transport

import (
	"time"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
)

// OptionKey names an engine option the caller may override.
type OptionKey string

const (
	OptReturnTransfer  OptionKey = "return_transfer"
	OptVerbose         OptionKey = "verbose"
	OptConnectTimeout  OptionKey = "connect_timeout"
	OptTimeout         OptionKey = "timeout"
	OptHTTPVersion     OptionKey = "http_version"
	OptFollowRedirects OptionKey = "follow_location"
	OptMaxRedirects    OptionKey = "max_redirects"
	OptHeaderOut       OptionKey = "header"
	OptUserAgent       OptionKey = "user_agent"
)

// Defaults applied to every option the caller leaves unset.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultHTTPVersion    = "1.1"
	DefaultMaxRedirects   = 5
)

// Option configures an Executor.
type Option func(*Executor)

func WithConnectTimeout(d time.Duration) Option {
	return func(e *Executor) { e.override(OptConnectTimeout, d) }
}

func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.override(OptTimeout, d) }
}

func WithFollowRedirects(follow bool) Option {
	return func(e *Executor) { e.override(OptFollowRedirects, follow) }
}

func WithMaxRedirects(n int) Option {
	return func(e *Executor) { e.override(OptMaxRedirects, n) }
}

func WithVerbose(verbose bool) Option {
	return func(e *Executor) { e.override(OptVerbose, verbose) }
}

func WithUserAgent(ua string) Option {
	return func(e *Executor) { e.override(OptUserAgent, ua) }
}

// WithHTTPVersion accepts "1.1" or "2".
func WithHTTPVersion(v string) Option {
	return func(e *Executor) { e.override(OptHTTPVersion, v) }
}

func WithLogger(log Logger) Option {
	return func(e *Executor) { e.log = ensureLogger(log) }
}

// callOptions is the option set of a single Execute call.
type callOptions struct {
	returnTransfer  bool
	verbose         bool
	connectTimeout  time.Duration
	timeout         time.Duration
	httpVersion     string
	followRedirects bool
	maxRedirects    int
	headerOut       bool
	userAgent       string

	headers []string
}

// buildCallOptions starts from the defaults and applies every override.
func buildCallOptions(overrides map[OptionKey]any) callOptions {
	opts := callOptions{
		returnTransfer:  true,
		connectTimeout:  DefaultConnectTimeout,
		timeout:         DefaultTimeout,
		httpVersion:     DefaultHTTPVersion,
		followRedirects: true,
		maxRedirects:    DefaultMaxRedirects,
	}

	for key, value := range overrides {
		switch key {
		case OptReturnTransfer:
			opts.returnTransfer = value.(bool)
		case OptVerbose:
			opts.verbose = value.(bool)
		case OptConnectTimeout:
			opts.connectTimeout = value.(time.Duration)
		case OptTimeout:
			opts.timeout = value.(time.Duration)
		case OptHTTPVersion:
			opts.httpVersion = value.(string)
		case OptFollowRedirects:
			opts.followRedirects = value.(bool)
		case OptMaxRedirects:
			opts.maxRedirects = value.(int)
		case OptHeaderOut:
			opts.headerOut = value.(bool)
		case OptUserAgent:
			opts.userAgent = value.(string)
		}
	}

	return opts
}

// normalizeOption checks that value has the type key expects. Durations may also
// be given as whole seconds.
func normalizeOption(key OptionKey, value any) (any, error) {
	switch key {
	case OptReturnTransfer, OptVerbose, OptFollowRedirects, OptHeaderOut:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case OptConnectTimeout, OptTimeout:
		switch v := value.(type) {
		case time.Duration:
			if v > 0 {
				return v, nil
			}
		case int:
			if v > 0 {
				return time.Duration(v) * time.Second, nil
			}
		}
	case OptMaxRedirects:
		if n, ok := value.(int); ok && n >= 0 {
			return n, nil
		}
	case OptHTTPVersion:
		if v, ok := value.(string); ok && (v == "1.1" || v == "2") {
			return v, nil
		}
	case OptUserAgent:
		if v, ok := value.(string); ok {
			return v, nil
		}
	default:
		return nil, apierrors.InvalidArgument("Option %q is not supported", string(key))
	}
	return nil, apierrors.InvalidArgument("Option %q has invalid value %v", string(key), value)
}
