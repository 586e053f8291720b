package xila

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"syscall"

	"github.com/hack-pad/hackpadfs"
)

// ResultOf converts an error returned by a Go file system into a kernel
// result. A nil error is Success; unrecognised errors are Other.
func ResultOf(err error) Result {
	var result Result
	switch {
	case err == nil:
		return Success
	case errors.As(err, &result):
		return result
	// syscall.ENOTEMPTY also matches fs.ErrExist
	case errors.Is(err, hackpadfs.ErrIsDir), errors.Is(err, syscall.EISDIR):
		return IsDirectory
	case errors.Is(err, hackpadfs.ErrNotDir), errors.Is(err, syscall.ENOTDIR):
		return NotDirectory
	case errors.Is(err, hackpadfs.ErrNotEmpty), errors.Is(err, syscall.ENOTEMPTY):
		return DirectoryNotEmpty
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrClosed):
		return InvalidIdentifier
	case errors.Is(err, fs.ErrInvalid):
		return InvalidParameter
	case errors.Is(err, hackpadfs.ErrNotImplemented), errors.Is(err, errors.ErrUnsupported):
		return UnsupportedOperation
	case errors.Is(err, syscall.ENOSPC):
		return NoSpaceLeft
	case errors.Is(err, syscall.ENAMETOOLONG):
		return NameTooLong
	case errors.Is(err, syscall.EMFILE):
		return TooManyOpenFiles
	case errors.Is(err, syscall.EBUSY):
		return RessourceBusy
	case errors.Is(err, syscall.EFBIG):
		return FileTooLarge
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.EIO):
		return InputOutput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Unknown
	}
	return Other
}
