package libc

import (
	"github.com/stealthrocket/wasi-go"
)

// Errno is the guest-visible return value of a WASI import.
type Errno = int32

const ErrnoSuccess = Errno(wasi.ESUCCESS)

// Return converts a WASI error code to the import return value.
func Return(errno wasi.Errno) Errno {
	return Errno(errno)
}

// Error converts a Go error raised on the guest side of the boundary (not a
// kernel result) into an import return value.
func Error(err error) Errno {
	if err == nil {
		return ErrnoSuccess
	}
	return Return(wasi.MakeErrno(err))
}
