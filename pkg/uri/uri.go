// Package uri implements an immutable URI value: parsing, validation and
// serialization, with copy-on-write mutators.
package uri

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
)

const (
	minPort = 1
	maxPort = 65535
)

// URI is a parsed URI reference. The zero value is the empty URI.
// Every With* method returns a modified copy and leaves the receiver untouched.
type URI struct {
	scheme    string // as written; Scheme lowercases
	authority bool   // "//" present even though host may be empty
	userInfo  string
	host      string
	port      int // 0 means unset
	path      string
	query     string
	fragment  string
}

// Parse splits raw into its components. The empty string parses to the empty URI.
func Parse(raw string) (URI, error) {
	if raw == "" {
		return URI{}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, apierrors.InvalidArgument("%q is not valid URI string", raw)
	}

	rest := raw
	if u.Scheme != "" {
		rest = raw[len(u.Scheme)+1:]
	}
	out := URI{
		scheme:    raw[:len(u.Scheme)],
		authority: strings.HasPrefix(rest, "//"),
		host:      u.Hostname(),
		path:      u.EscapedPath(),
		query:     u.RawQuery,
		fragment:  u.EscapedFragment(),
	}
	if u.Opaque != "" {
		out.path = u.Opaque
	}
	if u.User != nil {
		out.userInfo = rawUserInfo(raw)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < minPort || port > maxPort {
			return URI{}, apierrors.InvalidArgument("%q is not valid URI string", raw)
		}
		out.port = port
	}

	return out, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(raw string) URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// rawUserInfo returns the user-info section exactly as written, so that
// percent-encoded credentials survive a round trip.
func rawUserInfo(raw string) string {
	_, rest, ok := strings.Cut(raw, "//")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return ""
	}
	return rest[:at]
}

// String reassembles the URI.
func (u URI) String() string {
	var b strings.Builder

	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}
	if u.hasAuthority() {
		b.WriteString("//")
		b.WriteString(u.Authority())
	}
	b.WriteString(u.path)
	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}

	return b.String()
}

// Authority returns [userinfo@]host[:port], or "" when the URI has no authority.
func (u URI) Authority() string {
	if !u.hasAuthority() {
		return ""
	}

	authority := u.host
	if strings.Contains(authority, ":") {
		authority = "[" + authority + "]"
	}
	if u.userInfo != "" {
		authority = u.userInfo + "@" + authority
	}
	if u.port != 0 {
		authority += ":" + strconv.Itoa(u.port)
	}

	return authority
}

func (u URI) hasAuthority() bool { return u.authority || u.host != "" }

func (u URI) Scheme() string   { return strings.ToLower(u.scheme) }
func (u URI) UserInfo() string { return u.userInfo }
func (u URI) Host() string     { return u.host }
func (u URI) Path() string     { return u.path }
func (u URI) Query() string    { return u.query }
func (u URI) Fragment() string { return u.fragment }

// Port reports the port and whether one is set.
func (u URI) Port() (int, bool) {
	return u.port, u.port != 0
}

// IsZero reports whether u is the empty URI.
func (u URI) IsZero() bool {
	return u == URI{}
}

// WithScheme lowercases s, drops everything but letters and accepts only http and https.
func (u URI) WithScheme(s string) (URI, error) {
	scheme := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)

	if scheme != "http" && scheme != "https" {
		return u, apierrors.InvalidArgument("%q is not a valid scheme", scheme)
	}

	u.scheme = scheme
	return u, nil
}

// WithUserInfo sets "user" or, when password is non-empty, "user:password".
// An empty user clears the user info.
func (u URI) WithUserInfo(user, password string) (URI, error) {
	if strings.ContainsAny(user, ":@/") {
		return u, apierrors.InvalidArgument("User %q is not a valid user name", user)
	}
	if strings.ContainsAny(password, "@/") {
		return u, apierrors.InvalidArgument("Password for user %q is not valid", user)
	}

	switch {
	case user == "":
		u.userInfo = ""
	case password == "":
		u.userInfo = user
	default:
		u.userInfo = user + ":" + password
	}
	return u, nil
}

func (u URI) WithHost(host string) (URI, error) {
	if strings.ContainsAny(host, "/?#@ \t\r\n") {
		return u, apierrors.InvalidArgument("%q is not a valid host", host)
	}

	u.host = host
	u.authority = host != ""
	return u, nil
}

func (u URI) WithPort(port int) (URI, error) {
	if port < minPort || port > maxPort {
		return u, apierrors.InvalidArgument("\"%d\" is not valid TCP/UDP port", port)
	}

	u.port = port
	return u, nil
}

// WithoutPort returns a copy with the port unset.
func (u URI) WithoutPort() URI {
	u.port = 0
	return u
}

// WithPath rejects paths carrying a query or a fragment.
func (u URI) WithPath(path string) (URI, error) {
	if strings.Contains(path, "?") {
		return u, apierrors.InvalidArgument("Path %q must not contain valid query string", path)
	}
	if strings.Contains(path, "#") {
		return u, apierrors.InvalidArgument("Path %q must not contain hash (#) fragment", path)
	}

	u.path = path
	return u, nil
}

// WithQuery expects the query with its leading "?" and stores what follows it.
func (u URI) WithQuery(query string) (URI, error) {
	_, after, ok := strings.Cut(query, "?")
	if !ok {
		return u, apierrors.InvalidArgument("Query %q does not contain necessary query string", query)
	}
	if strings.Contains(query, "#") {
		return u, apierrors.InvalidArgument("Query %q must not contain hash (#) fragment", query)
	}

	u.query = after
	return u, nil
}

// WithFragment expects the fragment with its leading "#" and stores what follows it.
func (u URI) WithFragment(fragment string) (URI, error) {
	_, after, ok := strings.Cut(fragment, "#")
	if !ok {
		return u, apierrors.InvalidArgument("Fragment %q does not contain necessary hash (#) fragment", fragment)
	}

	u.fragment = after
	return u, nil
}
