// Package message holds the immutable HTTP message values shared by requests and
// responses. Every With* method returns a new value; header sets are deep-copied
// and a body passed to WithBody is owned by the returned value.
package message

import (
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
)

// DefaultProtocolVersion is used until WithProtocolVersion says otherwise.
const DefaultProtocolVersion = "1.1"

// Message is the header and body container embedded by Request and Response.
// Header names are matched exactly as stored, without case folding.
type Message struct {
	protocol string
	headers  headerSet
	body     *stream.Stream
}

func newMessage() Message {
	return Message{protocol: DefaultProtocolVersion, body: stream.New()}
}

// NewMessage returns an empty HTTP/1.1 message with a detached body.
func NewMessage() *Message {
	m := newMessage()
	return &m
}

func (m *Message) clone() Message {
	c := *m
	c.headers = m.headers.clone()
	return c
}

func (m *Message) ProtocolVersion() string {
	if m.protocol == "" {
		return DefaultProtocolVersion
	}
	return m.protocol
}

// Headers returns a copy of every header.
func (m *Message) Headers() map[string][]string {
	return m.headers.toMap()
}

// HeaderNames returns the header names in insertion order.
func (m *Message) HeaderNames() []string {
	return append([]string(nil), m.headers.names...)
}

func (m *Message) HasHeader(name string) bool {
	_, ok := m.headers.values[name]
	return ok
}

// Header returns a copy of the values stored under name, nil when absent.
func (m *Message) Header(name string) []string {
	v, ok := m.headers.values[name]
	if !ok {
		return nil
	}
	return append([]string(nil), v...)
}

// HeaderLine joins the values of name with ",". Absent headers give "".
func (m *Message) HeaderLine(name string) string {
	return strings.Join(m.headers.values[name], ",")
}

// Body returns the body stream. It is never nil.
func (m *Message) Body() *stream.Stream {
	if m.body == nil {
		return stream.New()
	}
	return m.body
}

func (m *Message) WithProtocolVersion(version string) (*Message, error) {
	c, err := m.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Message) WithHeader(name string, values ...string) (*Message, error) {
	c, err := m.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Message) WithAddedHeader(name string, values ...string) (*Message, error) {
	c, err := m.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Message) WithoutHeader(name string) *Message {
	c := m.withoutHeader(name)
	return &c
}

func (m *Message) WithBody(body *stream.Stream) *Message {
	c := m.withBody(body)
	return &c
}

func (m *Message) withProtocolVersion(version string) (Message, error) {
	if version == "" || strings.ContainsAny(version, " \t\r\n/") {
		return Message{}, apierrors.InvalidArgument("%q is not a valid protocol version", version)
	}
	c := m.clone()
	c.protocol = version
	return c, nil
}

func (m *Message) withHeader(name string, values []string) (Message, error) {
	if err := validateHeader(name, values); err != nil {
		return Message{}, err
	}
	c := m.clone()
	c.headers.set(name, values)
	return c, nil
}

func (m *Message) withAddedHeader(name string, values []string) (Message, error) {
	if err := validateHeader(name, values); err != nil {
		return Message{}, err
	}
	c := m.clone()
	c.headers.add(name, values)
	return c, nil
}

func (m *Message) withoutHeader(name string) Message {
	c := m.clone()
	c.headers.del(name)
	return c
}

func (m *Message) withBody(body *stream.Stream) Message {
	c := m.clone()
	if body == nil {
		body = stream.New()
	}
	c.body = body
	return c
}

func validateHeader(name string, values []string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return apierrors.InvalidArgument("%q is not a valid header name", name)
	}
	for _, v := range values {
		if !httpguts.ValidHeaderFieldValue(v) {
			return apierrors.InvalidArgument("Header %q has an invalid value", name)
		}
	}
	return nil
}

// headerSet keeps values by exact name plus the order names were first set in.
type headerSet struct {
	names  []string
	values map[string][]string
}

func (h headerSet) clone() headerSet {
	c := headerSet{
		names:  append([]string(nil), h.names...),
		values: make(map[string][]string, len(h.values)),
	}
	for k, v := range h.values {
		c.values[k] = append([]string(nil), v...)
	}
	return c
}

func (h *headerSet) ensure() {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
}

func (h *headerSet) set(name string, values []string) {
	h.ensure()
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = append([]string{}, values...)
}

// setFirst is set, but a new name goes to the front.
func (h *headerSet) setFirst(name string, values []string) {
	h.ensure()
	if _, ok := h.values[name]; !ok {
		h.names = append([]string{name}, h.names...)
	}
	h.values[name] = append([]string{}, values...)
}

func (h *headerSet) add(name string, values []string) {
	h.ensure()
	if _, ok := h.values[name]; !ok {
		h.set(name, values)
		return
	}
	h.values[name] = append(h.values[name], values...)
}

func (h *headerSet) del(name string) {
	if _, ok := h.values[name]; !ok {
		return
	}
	delete(h.values, name)
	for i, n := range h.names {
		if n == name {
			h.names = append(h.names[:i:i], h.names[i+1:]...)
			break
		}
	}
}

func (h headerSet) toMap() map[string][]string {
	out := make(map[string][]string, len(h.values))
	for k, v := range h.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}
