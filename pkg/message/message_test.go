package message

import (
	"errors"
	"reflect"
	"testing"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
	"github.com/samvad-hq/samvad-apiclient/pkg/stream"
	"github.com/samvad-hq/samvad-apiclient/pkg/uri"
)

func TestMessageHeaders(t *testing.T) {
	m := NewMessage()

	withAccept, err := m.WithHeader("Accept", "application/json")
	if err != nil {
		t.Fatalf("WithHeader: %v", err)
	}
	if m.HasHeader("Accept") {
		t.Fatalf("receiver must not change")
	}
	if got := withAccept.Header("Accept"); !reflect.DeepEqual(got, []string{"application/json"}) {
		t.Fatalf("Accept = %v", got)
	}

	added, err := withAccept.WithAddedHeader("Accept", "text/plain")
	if err != nil {
		t.Fatalf("WithAddedHeader: %v", err)
	}
	if got := added.HeaderLine("Accept"); got != "application/json,text/plain" {
		t.Fatalf("HeaderLine = %q", got)
	}
	if got := withAccept.HeaderLine("Accept"); got != "application/json" {
		t.Fatalf("previous value changed to %q", got)
	}

	replaced, err := added.WithHeader("Accept", "*/*")
	if err != nil {
		t.Fatalf("WithHeader replace: %v", err)
	}
	if got := replaced.Header("Accept"); !reflect.DeepEqual(got, []string{"*/*"}) {
		t.Fatalf("replaced Accept = %v", got)
	}

	removed := replaced.WithoutHeader("Accept")
	if removed.HasHeader("Accept") || removed.HeaderLine("Accept") != "" {
		t.Fatalf("Accept should be removed")
	}
	if removed.WithoutHeader("Missing") == nil {
		t.Fatalf("removing a missing header returns a message")
	}
}

func TestHeaderNamesAreExactCase(t *testing.T) {
	m, err := NewMessage().WithHeader("X-Token", "abc")
	if err != nil {
		t.Fatalf("WithHeader: %v", err)
	}

	if !m.HasHeader("X-Token") || m.HasHeader("x-token") || m.Header("X-TOKEN") != nil {
		t.Fatalf("header lookup should be case sensitive")
	}
}

func TestHeaderOrderAndCopies(t *testing.T) {
	m := NewMessage()
	m, _ = m.WithHeader("B", "1")
	m, _ = m.WithHeader("A", "2")
	m, _ = m.WithAddedHeader("C", "3")
	m, _ = m.WithHeader("B", "4")

	if got := m.HeaderNames(); !reflect.DeepEqual(got, []string{"B", "A", "C"}) {
		t.Fatalf("HeaderNames = %v", got)
	}

	all := m.Headers()
	all["B"][0] = "mutated"
	got := m.Header("B")
	got[0] = "mutated"
	if v := m.Header("B"); !reflect.DeepEqual(v, []string{"4"}) {
		t.Fatalf("header copies leaked into message: %v", v)
	}
}

func TestInvalidHeaders(t *testing.T) {
	if _, err := NewMessage().WithHeader("Bad Name", "x"); !errors.Is(err, apierrors.ErrInvalidArgument) {
		t.Fatalf("bad name error = %v", err)
	}
	if _, err := NewMessage().WithHeader("X-Ok", "line\nbreak"); !errors.Is(err, apierrors.ErrInvalidArgument) {
		t.Fatalf("bad value error = %v", err)
	}
}

func TestProtocolVersion(t *testing.T) {
	m := NewMessage()
	if m.ProtocolVersion() != "1.1" {
		t.Fatalf("default version = %q", m.ProtocolVersion())
	}

	v10, err := m.WithProtocolVersion("1.0")
	if err != nil {
		t.Fatalf("WithProtocolVersion: %v", err)
	}
	if v10.ProtocolVersion() != "1.0" || m.ProtocolVersion() != "1.1" {
		t.Fatalf("versions = %q / %q", v10.ProtocolVersion(), m.ProtocolVersion())
	}

	if _, err := m.WithProtocolVersion(""); err == nil {
		t.Fatalf("expected error for empty version")
	}
}

func TestBodyOwnershipTransfers(t *testing.T) {
	m := NewMessage()
	if m.Body().Attached() {
		t.Fatalf("new message has a detached body")
	}

	body, err := stream.FromBytes([]byte("hello"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer body.Close()

	withBody := m.WithBody(body)
	if withBody.Body() != body {
		t.Fatalf("WithBody should keep the given stream")
	}
	if m.Body().Attached() {
		t.Fatalf("receiver body changed")
	}
	if withBody.Body().String() != "hello" {
		t.Fatalf("body = %q", withBody.Body().String())
	}
}

func TestNewRequestDefaults(t *testing.T) {
	r, err := NewRequest("", uri.URI{})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	if r.Method() != "GET" || r.RequestTarget() != "/" || r.ProtocolVersion() != "1.1" {
		t.Fatalf("unexpected defaults %s %s %s", r.Method(), r.RequestTarget(), r.ProtocolVersion())
	}
	if r.HasHeader("Host") {
		t.Fatalf("empty URI must not set Host")
	}
}

func TestRequestSyncsHost(t *testing.T) {
	r, err := NewRequest(MethodPost, uri.MustParse("https://localhost:9210/api/?query=true"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	if r.HeaderLine("Host") != "localhost:9210" || r.RequestTarget() != "/api/?query=true" {
		t.Fatalf("Host=%q target=%q", r.HeaderLine("Host"), r.RequestTarget())
	}
	if r.HeaderNames()[0] != "Host" {
		t.Fatalf("Host should be first, got %v", r.HeaderNames())
	}

	withHeader, err := r.WithHeader("X-Trace", "1")
	if err != nil {
		t.Fatalf("WithHeader: %v", err)
	}

	moved := withHeader.WithURI(uri.MustParse("http://other.example/x"), false)
	if moved.HeaderLine("Host") != "other.example" || moved.HeaderLine("X-Trace") != "1" {
		t.Fatalf("moved Host=%q X-Trace=%q", moved.HeaderLine("Host"), moved.HeaderLine("X-Trace"))
	}
	if withHeader.HeaderLine("Host") != "localhost:9210" {
		t.Fatalf("receiver Host changed")
	}

	kept := withHeader.WithURI(uri.MustParse("http://other.example/x"), true)
	if kept.HeaderLine("Host") != "localhost:9210" || kept.URI().Host() != "other.example" {
		t.Fatalf("preserved Host=%q uri host=%q", kept.HeaderLine("Host"), kept.URI().Host())
	}

	noHost := withHeader.WithURI(uri.MustParse("/only/path"), false)
	if noHost.HeaderLine("Host") != "localhost:9210" {
		t.Fatalf("URI without host must keep Host, got %q", noHost.HeaderLine("Host"))
	}
}

func TestRequestPreserveHostWithoutExistingHeader(t *testing.T) {
	r, err := NewRequest("GET", uri.URI{})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	got := r.WithURI(uri.MustParse("http://api.example:8080/"), true)
	if got.HeaderLine("Host") != "api.example:8080" {
		t.Fatalf("Host = %q", got.HeaderLine("Host"))
	}
}

func TestRequestTargetOverride(t *testing.T) {
	r, err := NewRequest("GET", uri.MustParse("http://example.com/a?b=1"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	over, err := r.WithRequestTarget("*")
	if err != nil {
		t.Fatalf("WithRequestTarget: %v", err)
	}
	if over.RequestTarget() != "*" || r.RequestTarget() != "/a?b=1" {
		t.Fatalf("targets = %q / %q", over.RequestTarget(), r.RequestTarget())
	}

	if _, err := r.WithRequestTarget("/a b"); err == nil {
		t.Fatalf("expected error for target with whitespace")
	}
}

func TestWithMethod(t *testing.T) {
	r, err := NewRequest("GET", uri.URI{})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	patched, err := r.WithMethod("PATCH")
	if err != nil {
		t.Fatalf("WithMethod: %v", err)
	}
	if patched.Method() != "PATCH" || r.Method() != "GET" {
		t.Fatalf("methods = %s / %s", patched.Method(), r.Method())
	}

	for _, bad := range []string{"", "GE T", "GET\n"} {
		if _, err := r.WithMethod(bad); !errors.Is(err, apierrors.ErrInvalidArgument) {
			t.Fatalf("WithMethod(%q) error = %v", bad, err)
		}
	}
}

func TestRequestHeaderCopiesAreIndependent(t *testing.T) {
	r, err := NewRequest("GET", uri.MustParse("http://example.com"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	a, err := r.WithAddedHeader("X-List", "1")
	if err != nil {
		t.Fatalf("WithAddedHeader: %v", err)
	}
	b, err := a.WithAddedHeader("X-List", "2")
	if err != nil {
		t.Fatalf("WithAddedHeader: %v", err)
	}

	if !reflect.DeepEqual(a.Header("X-List"), []string{"1"}) || !reflect.DeepEqual(b.Header("X-List"), []string{"1", "2"}) {
		t.Fatalf("values = %v / %v", a.Header("X-List"), b.Header("X-List"))
	}
}

func TestResponseStatus(t *testing.T) {
	r := NewResponse()
	if r.StatusCode() != 200 || r.ReasonPhrase() != "" {
		t.Fatalf("defaults = %d %q", r.StatusCode(), r.ReasonPhrase())
	}

	_, err := r.WithStatus(999, "")
	if !errors.Is(err, apierrors.ErrInvalidArgument) {
		t.Fatalf("WithStatus(999) error = %v", err)
	}
	if err.Error() != `"999" is not a valid HTTP status code` {
		t.Fatalf("unexpected message %q", err.Error())
	}

	created, err := r.WithStatus(201, "Made It")
	if err != nil || created.ReasonPhrase() != "Made It" {
		t.Fatalf("WithStatus(201) = %q, %v", created.ReasonPhrase(), err)
	}

	ok, err := created.WithStatus(200, "")
	if err != nil {
		t.Fatalf("WithStatus(200): %v", err)
	}
	if ok.StatusCode() != 200 || ok.ReasonPhrase() != "Made It" || created.StatusCode() != 201 {
		t.Fatalf("unexpected statuses %d %q / %d", ok.StatusCode(), ok.ReasonPhrase(), created.StatusCode())
	}
}

func TestResponseMutatorsKeepStatus(t *testing.T) {
	r, err := NewResponse().WithStatus(404, "Not Found")
	if err != nil {
		t.Fatalf("WithStatus: %v", err)
	}

	h, err := r.WithHeader("Content-Type", "text/plain")
	if err != nil {
		t.Fatalf("WithHeader: %v", err)
	}
	if h.StatusCode() != 404 || h.ReasonPhrase() != "Not Found" {
		t.Fatalf("status lost: %d %q", h.StatusCode(), h.ReasonPhrase())
	}
	if r.HasHeader("Content-Type") {
		t.Fatalf("receiver changed")
	}
}

func TestStaticTables(t *testing.T) {
	if !IsKnownMethod("get") || !IsKnownMethod("PURGE") || IsKnownMethod("TEST") {
		t.Fatalf("unexpected method table")
	}
	if !IsValidStatus(418) || IsValidStatus(299) {
		t.Fatalf("unexpected status table")
	}
	if StatusText(404) != "Not Found" || StatusText(999) != "" {
		t.Fatalf("unexpected status text")
	}
}
