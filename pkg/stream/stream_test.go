package stream

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
)

func TestDetachedStream(t *testing.T) {
	s := New()

	if s.IsReadable() || s.IsWritable() || s.IsSeekable() {
		t.Fatalf("detached stream must report no capabilities")
	}
	if !s.EOF() {
		t.Fatalf("detached stream should be at EOF")
	}
	if _, ok := s.Size(); ok {
		t.Fatalf("detached stream has no size")
	}
	if s.Metadata() != nil || s.MetadataValue("mode") != nil {
		t.Fatalf("detached stream has no metadata")
	}
	if s.String() != "" {
		t.Fatalf("String() = %q", s.String())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := s.Tell()
	assertStreamError(t, err, "Missing resource")
	_, err = s.Write([]byte("x"))
	assertStreamError(t, err, "Missing resource")
	_, err = s.ReadN(4)
	assertStreamError(t, err, "Missing resource")
	_, err = s.Contents()
	assertStreamError(t, err, "Missing resource")
	assertStreamError(t, s.Seek(0, io.SeekStart), "Missing resource")
	assertStreamError(t, s.Rewind(), "Missing resource")
}

func TestTempRoundTrip(t *testing.T) {
	s, err := NewTemp()
	if err != nil {
		t.Fatalf("NewTemp: %v", err)
	}
	defer s.Close()

	n, err := s.Write([]byte("Lorem ipsum"))
	if err != nil || n != 11 {
		t.Fatalf("Write = %d, %v", n, err)
	}

	if size, ok := s.Size(); !ok || size != 11 {
		t.Fatalf("Size = %d %v, want 11", size, ok)
	}
	if pos, err := s.Tell(); err != nil || pos != 11 {
		t.Fatalf("Tell = %d, %v", pos, err)
	}

	if err := s.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	got, err := s.ReadN(5)
	if err != nil || string(got) != "Lorem" {
		t.Fatalf("ReadN(5) = %q, %v", got, err)
	}
	if s.EOF() {
		t.Fatalf("stream should not be at EOF yet")
	}

	rest, err := s.ReadN(100)
	if err != nil || string(rest) != " ipsum" {
		t.Fatalf("ReadN(100) = %q, %v", rest, err)
	}
	if !s.EOF() {
		t.Fatalf("stream should be at EOF")
	}

	all, err := s.Contents()
	if err != nil || string(all) != "Lorem ipsum" {
		t.Fatalf("Contents = %q, %v", all, err)
	}
	if s.String() != "Lorem ipsum" {
		t.Fatalf("String() = %q", s.String())
	}
}

func TestFromBytes(t *testing.T) {
	s, err := FromBytes([]byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer s.Close()

	b, err := io.ReadAll(s)
	if err != nil || string(b) != `{"ok":true}` {
		t.Fatalf("ReadAll = %q, %v", b, err)
	}
	if s.MetadataValue("mode") != TempMode {
		t.Fatalf("mode = %v", s.MetadataValue("mode"))
	}
	if s.MetadataValue("seekable") != true {
		t.Fatalf("seekable = %v", s.MetadataValue("seekable"))
	}
}

func TestModeCapabilities(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data.txt", []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r, err := OpenFs(fs, "/data.txt", "r")
	if err != nil {
		t.Fatalf("OpenFs r: %v", err)
	}
	defer r.Close()
	if !r.IsReadable() || r.IsWritable() {
		t.Fatalf("mode r should be read-only")
	}
	_, err = r.Write([]byte("x"))
	assertStreamError(t, err, "Stream is not writable")

	w, err := OpenFs(fs, "/out.txt", "w")
	if err != nil {
		t.Fatalf("OpenFs w: %v", err)
	}
	defer w.Close()
	if !w.IsWritable() || w.IsReadable() {
		t.Fatalf("mode w should be write-only")
	}
	_, err = w.Contents()
	assertStreamError(t, err, "Stream is not readable")
	if w.String() != "" {
		t.Fatalf("write-only String() = %q", w.String())
	}

	rw, err := OpenFs(fs, "/data.txt", "r+")
	if err != nil {
		t.Fatalf("OpenFs r+: %v", err)
	}
	defer rw.Close()
	if !rw.IsReadable() || !rw.IsWritable() {
		t.Fatalf("mode r+ should be read-write")
	}
}

func TestOpenPathOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.txt")

	s, err := Open(path, "w+")
	if err != nil {
		t.Fatalf("Open w+: %v", err)
	}
	if _, err := s.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if s.MetadataValue("uri") != path {
		t.Fatalf("uri = %v, want %s", s.MetadataValue("uri"), path)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := Open(path, "rb")
	if err != nil {
		t.Fatalf("Open rb: %v", err)
	}
	defer again.Close()
	if again.String() != "payload" {
		t.Fatalf("String() = %q", again.String())
	}
}

func TestAttachRejectsInvalidSources(t *testing.T) {
	s := New()

	for _, tc := range []struct {
		source any
		mode   string
	}{
		{source: "/no/such/dir/file.txt", mode: "r"},
		{source: "", mode: "r"},
		{source: 42, mode: "r"},
		{source: io.NopCloser(strings.NewReader("x")), mode: ""},
		{source: "/tmp/whatever", mode: "q"},
	} {
		err := s.Attach(tc.source, tc.mode)
		if !errors.Is(err, apierrors.ErrInvalidArgument) {
			t.Fatalf("Attach(%v, %q) error = %v, want InvalidArgument", tc.source, tc.mode, err)
		}
		if err.Error() != "Invalid stream provided" {
			t.Fatalf("unexpected message %q", err.Error())
		}
	}
	if s.Attached() {
		t.Fatalf("failed attach must leave the stream detached")
	}
}

func TestNonSeekableHandle(t *testing.T) {
	s := New()
	if err := s.AttachHandle(io.NopCloser(strings.NewReader("abc")), "r"); err != nil {
		t.Fatalf("AttachHandle: %v", err)
	}

	if !s.IsReadable() || s.IsSeekable() {
		t.Fatalf("expected readable, non-seekable stream")
	}
	assertStreamError(t, s.Seek(1, io.SeekStart), "Stream is not seekable")
	_, err := s.Tell()
	assertStreamError(t, err, "Cannot get resource pointer")
	if _, ok := s.Size(); ok {
		t.Fatalf("non-seekable handle has no size")
	}

	b, err := s.Contents()
	if err != nil || string(b) != "abc" {
		t.Fatalf("Contents = %q, %v", b, err)
	}
}

func TestDetachTransfersOwnership(t *testing.T) {
	s, err := FromBytes([]byte("abc"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	h := s.Detach()
	if h == nil {
		t.Fatalf("Detach returned nil handle")
	}
	if s.Attached() || !s.EOF() {
		t.Fatalf("detached stream should be empty")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close after detach: %v", err)
	}

	f, ok := h.(afero.File)
	if !ok {
		t.Fatalf("handle type = %T, want afero.File", h)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing detached handle: %v", err)
	}
}

func assertStreamError(t *testing.T, err error, msg string) {
	t.Helper()
	if !errors.Is(err, apierrors.ErrStream) {
		t.Fatalf("want stream error, got %v", err)
	}
	var se *apierrors.StreamError
	if !errors.As(err, &se) {
		t.Fatalf("want *StreamError, got %T", err)
	}
	if se.Message != msg {
		t.Fatalf("message = %q, want %q", se.Message, msg)
	}
}
