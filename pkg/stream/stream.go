// Package stream wraps an attachable I/O handle behind a byte stream with explicit
// readable, writable and seekable state. Handles are afero files (memory-backed
// for temporary buffers, OS-backed for paths) or any caller-supplied io.Closer.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/samvad-hq/samvad-apiclient/pkg/apierrors"
)

const (
	msgMissingResource = "Missing resource"
	msgNotSeekable     = "Stream is not seekable"
	msgNotWritable     = "Stream is not writable"
	msgNotReadable     = "Stream is not readable"
	msgSeekFailed      = "Error seeking within stream"
	msgWriteFailed     = "Error during writing to stream"
	msgReadFailed      = "Cannot read from stream"
	msgTellFailed      = "Cannot get resource pointer"
	msgInvalidStream   = "Invalid stream provided"
)

// TempMode is the mode of buffers created by NewTemp.
const TempMode = "w+b"

type statter interface {
	Stat() (os.FileInfo, error)
}

type namer interface {
	Name() string
}

// Stream is a byte stream over zero or one attached handle. A detached stream is
// neither readable, writable nor seekable, reports EOF and has an unknown size.
// The stream owns its handle until Detach hands it back or Close releases it.
type Stream struct {
	handle io.Closer
	mode   string
	eof    bool
}

// New returns a detached stream.
func New() *Stream {
	return &Stream{}
}

// Open attaches source with mode. A string source is a path on the OS filesystem.
func Open(source any, mode string) (*Stream, error) {
	s := New()
	if err := s.Attach(source, mode); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenFs opens name on fs with mode.
func OpenFs(fs afero.Fs, name, mode string) (*Stream, error) {
	f, err := openFile(fs, name, mode)
	if err != nil {
		return nil, err
	}
	return &Stream{handle: f, mode: mode}, nil
}

// NewTemp returns a readable, writable and seekable stream over a fresh in-memory buffer.
func NewTemp() (*Stream, error) {
	f, err := afero.TempFile(afero.NewMemMapFs(), "", "stream-")
	if err != nil {
		return nil, apierrors.StreamCause(msgInvalidStream, err)
	}
	return &Stream{handle: f, mode: TempMode}, nil
}

// FromBytes returns a temporary stream holding b, positioned at the start.
func FromBytes(b []byte) (*Stream, error) {
	s, err := NewTemp()
	if err != nil {
		return nil, err
	}
	if len(b) > 0 {
		if _, err := s.Write(b); err != nil {
			_ = s.Close()
			return nil, err
		}
		if err := s.Rewind(); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Attach replaces the current handle with one built from source. A string is opened
// as a path, an io.Closer is attached as is. The previous handle is not released.
func (s *Stream) Attach(source any, mode string) error {
	if mode == "" {
		return apierrors.InvalidArgument(msgInvalidStream)
	}

	switch src := source.(type) {
	case string:
		if src == "" {
			return apierrors.InvalidArgument(msgInvalidStream)
		}
		f, err := openFile(afero.NewOsFs(), src, mode)
		if err != nil {
			return err
		}
		s.set(f, mode)
		return nil
	case io.Closer:
		return s.AttachHandle(src, mode)
	default:
		return apierrors.InvalidArgument(msgInvalidStream)
	}
}

// AttachHandle attaches an already-open handle with the mode it was opened in.
func (s *Stream) AttachHandle(h io.Closer, mode string) error {
	if h == nil || mode == "" {
		return apierrors.InvalidArgument(msgInvalidStream)
	}
	s.set(h, mode)
	return nil
}

func (s *Stream) set(h io.Closer, mode string) {
	s.handle = h
	s.mode = mode
	s.eof = false
}

// Detach hands the handle back to the caller and leaves the stream detached.
func (s *Stream) Detach() io.Closer {
	h := s.handle
	s.handle = nil
	s.mode = ""
	s.eof = false
	return h
}

// Close releases the handle. Closing a detached stream is a no-op.
func (s *Stream) Close() error {
	if s == nil || s.handle == nil {
		return nil
	}
	if err := s.Detach().Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}

// Attached reports whether a handle is attached.
func (s *Stream) Attached() bool {
	return s != nil && s.handle != nil
}

// Size returns the handle's size when it can be determined.
func (s *Stream) Size() (int64, bool) {
	if !s.Attached() {
		return 0, false
	}
	st, ok := s.handle.(statter)
	if !ok {
		return 0, false
	}
	info, err := st.Stat()
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

// Tell returns the current position.
func (s *Stream) Tell() (int64, error) {
	if !s.Attached() {
		return 0, apierrors.Stream(msgMissingResource)
	}
	seeker, ok := s.handle.(io.Seeker)
	if !ok {
		return 0, apierrors.Stream(msgTellFailed)
	}
	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, apierrors.StreamCause(msgTellFailed, err)
	}
	return pos, nil
}

// EOF reports whether a read has hit the end. A detached stream is always at EOF.
func (s *Stream) EOF() bool {
	if !s.Attached() {
		return true
	}
	return s.eof
}

func (s *Stream) IsSeekable() bool {
	if !s.Attached() {
		return false
	}
	_, ok := s.handle.(io.Seeker)
	return ok
}

func (s *Stream) IsWritable() bool {
	if !s.Attached() || !strings.ContainsAny(s.mode, "xwca+") {
		return false
	}
	_, ok := s.handle.(io.Writer)
	return ok
}

func (s *Stream) IsReadable() bool {
	if !s.Attached() || !strings.ContainsAny(s.mode, "r+") {
		return false
	}
	_, ok := s.handle.(io.Reader)
	return ok
}

// Seek moves the position. whence takes the io.Seek* constants.
func (s *Stream) Seek(offset int64, whence int) error {
	if !s.Attached() {
		return apierrors.Stream(msgMissingResource)
	}
	if !s.IsSeekable() {
		return apierrors.Stream(msgNotSeekable)
	}
	if _, err := s.handle.(io.Seeker).Seek(offset, whence); err != nil {
		return apierrors.StreamCause(msgSeekFailed, err)
	}
	s.eof = false
	return nil
}

func (s *Stream) Rewind() error {
	return s.Seek(0, io.SeekStart)
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	if !s.Attached() {
		return 0, apierrors.Stream(msgMissingResource)
	}
	if !s.IsWritable() {
		return 0, apierrors.Stream(msgNotWritable)
	}
	n, err := s.handle.(io.Writer).Write(p)
	if err != nil {
		return n, apierrors.StreamCause(msgWriteFailed, err)
	}
	return n, nil
}

// Read implements io.Reader and returns io.EOF unwrapped at the end of the stream.
func (s *Stream) Read(p []byte) (int, error) {
	if !s.Attached() {
		return 0, apierrors.Stream(msgMissingResource)
	}
	if !s.IsReadable() {
		return 0, apierrors.Stream(msgNotReadable)
	}
	n, err := s.handle.(io.Reader).Read(p)
	if errors.Is(err, io.EOF) {
		s.eof = true
		return n, io.EOF
	}
	if err != nil {
		return n, apierrors.StreamCause(msgReadFailed, err)
	}
	return n, nil
}

// ReadN reads up to length bytes. A short result without error means the end was reached.
func (s *Stream) ReadN(length int) ([]byte, error) {
	if !s.Attached() {
		return nil, apierrors.Stream(msgMissingResource)
	}
	if !s.IsReadable() {
		return nil, apierrors.Stream(msgNotReadable)
	}
	if length <= 0 {
		return []byte{}, nil
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(s.handle.(io.Reader), buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
	case err != nil:
		return nil, apierrors.StreamCause(msgReadFailed, err)
	}
	return buf[:n], nil
}

// Contents returns everything from the start of a seekable stream, or the remainder
// of a non-seekable one.
func (s *Stream) Contents() ([]byte, error) {
	if !s.Attached() {
		return nil, apierrors.Stream(msgMissingResource)
	}
	if !s.IsReadable() {
		return nil, apierrors.Stream(msgNotReadable)
	}
	if s.IsSeekable() {
		if err := s.Rewind(); err != nil {
			return nil, err
		}
	}

	b, err := io.ReadAll(s.handle.(io.Reader))
	if err != nil {
		return nil, apierrors.StreamCause(msgReadFailed, err)
	}
	s.eof = true
	return b, nil
}

// String returns the full contents, or "" when they cannot be read.
func (s *Stream) String() string {
	if !s.IsReadable() {
		return ""
	}
	b, err := s.Contents()
	if err != nil {
		return ""
	}
	return string(b)
}

// Metadata describes the attached handle, nil when detached.
func (s *Stream) Metadata() map[string]any {
	if !s.Attached() {
		return nil
	}
	meta := map[string]any{
		"mode":     s.mode,
		"seekable": s.IsSeekable(),
		"eof":      s.eof,
	}
	if n, ok := s.handle.(namer); ok {
		meta["uri"] = n.Name()
	}
	return meta
}

// MetadataValue returns one metadata entry, nil when absent.
func (s *Stream) MetadataValue(key string) any {
	return s.Metadata()[key]
}

func openFile(fs afero.Fs, name, mode string) (afero.File, error) {
	flag, ok := openFlags(mode)
	if !ok {
		return nil, apierrors.InvalidArgument(msgInvalidStream)
	}
	f, err := fs.OpenFile(name, flag, 0o644)
	if err != nil {
		return nil, apierrors.InvalidArgument(msgInvalidStream)
	}
	return f, nil
}

// openFlags maps an fopen-style mode ("r", "w+", "ab", ...) to os.OpenFile flags.
func openFlags(mode string) (int, bool) {
	m := strings.NewReplacer("b", "", "t", "").Replace(mode)
	plus := strings.HasSuffix(m, "+")
	m = strings.TrimSuffix(m, "+")

	rw := os.O_WRONLY
	if plus {
		rw = os.O_RDWR
	}

	switch m {
	case "r":
		if plus {
			return os.O_RDWR, true
		}
		return os.O_RDONLY, true
	case "w":
		return rw | os.O_CREATE | os.O_TRUNC, true
	case "a":
		return rw | os.O_CREATE | os.O_APPEND, true
	case "x":
		return rw | os.O_CREATE | os.O_EXCL, true
	case "c":
		return rw | os.O_CREATE, true
	default:
		return 0, false
	}
}
