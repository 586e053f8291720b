package xilawasi

import (
	"github.com/stealthrocket/wasi-go"

	"github.com/xila-project/xilawasi/xila"
)

// ErrnoOf translates a kernel result into a WASI error code. The two code
// spaces are not numerically compatible: results that have no WASI
// counterpart become ECANCELED, never the raw kernel value.
func ErrnoOf(result xila.Result) wasi.Errno {
	switch result {
	case xila.Success:
		return wasi.ESUCCESS

	// missing entries and bad paths
	case xila.NotFound, xila.InvalidSymbolicLink, xila.NoAttribute:
		return wasi.ENOENT
	case xila.InvalidPath, xila.InvalidParameter, xila.InvalidFlags, xila.InvalidMode, xila.TimeError:
		return wasi.EINVAL
	case xila.NameTooLong:
		return wasi.ENAMETOOLONG
	case xila.InvalidDirectory, xila.NotDirectory:
		return wasi.ENOTDIR
	case xila.IsDirectory:
		return wasi.EISDIR
	case xila.DirectoryNotEmpty:
		return wasi.ENOTEMPTY
	case xila.AlreadyExists, xila.DirectoryAlreadyExists:
		return wasi.EEXIST
	case xila.InvalidFile, xila.InvalidIdentifier, xila.InvalidInode:
		return wasi.EBADF

	// permission and mode
	case xila.PermissionDenied:
		return wasi.EACCES
	case xila.FailedToGetUsersInformations:
		return wasi.EPERM
	case xila.UnsupportedOperation:
		return wasi.ENOTSUP

	// resource exhaustion
	case xila.FileSystemFull, xila.NoSpaceLeft:
		return wasi.ENOSPC
	case xila.TooManyOpenFiles:
		return wasi.EMFILE
	case xila.TooManyMountedFileSystems:
		return wasi.ENFILE
	case xila.FileTooLarge:
		return wasi.EFBIG
	case xila.NoMemory:
		return wasi.ENOMEM

	// concurrency and lifecycle
	case xila.RessourceBusy:
		return wasi.EBUSY
	case xila.InternalError:
		return wasi.ENOTRECOVERABLE
	case xila.AlreadyInitialized:
		return wasi.EALREADY
	case xila.NotInitialized, xila.FailedToGetUsersManagerInstance, xila.FailedToGetTaskManagerInstance:
		return wasi.EAGAIN
	case xila.FailedToGetTaskInformations:
		return wasi.ESRCH

	// device level
	case xila.FailedToInitializeFileSystem, xila.FileSystemError, xila.InputOutput, xila.Corrupted:
		return wasi.EIO
	}
	return wasi.ECANCELED
}
