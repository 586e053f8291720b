package kernelfs

import (
	"io"
	"io/fs"
	"os"
)

// stream is a standard stream. Missing halves read as EOF and refuse
// writes.
type stream struct {
	io.Reader
	io.Writer
}

func newStream(v any) *stream {
	s := &stream{}
	if x, ok := v.(io.Reader); ok {
		s.Reader = x
	}
	if x, ok := v.(io.Writer); ok {
		s.Writer = x
	}
	return s
}

func (s *stream) Read(buf []byte) (int, error) {
	if s.Reader == nil {
		return 0, io.EOF
	}
	return s.Reader.Read(buf)
}

func (s *stream) Write(p []byte) (int, error) {
	if s.Writer == nil {
		return 0, fs.ErrInvalid
	}
	return s.Writer.Write(p)
}

// terminal reports whether either half is a character device.
func (s *stream) terminal() bool {
	for _, v := range []any{s.Reader, s.Writer} {
		f, ok := v.(*os.File)
		if !ok {
			continue
		}
		info, err := f.Stat()
		if err == nil && info.Mode()&fs.ModeCharDevice != 0 {
			return true
		}
	}
	return false
}
