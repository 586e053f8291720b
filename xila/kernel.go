package xila

import "context"

// Kernel is the host-facing call surface. Each method is one kernel entry
// point; implementations own blocking, locking and partial-transfer semantics.
//
// Paths handed to a Kernel are always absolute.
type Kernel interface {
	FileSystem
	Directories
	Clocks
}

// FileSystem is the handle and path based part of the kernel surface.
type FileSystem interface {
	GetStatistics(ctx context.Context, file Handle) (Statistics, Result)
	GetStatisticsFromPath(ctx context.Context, path string, follow bool) (Statistics, Result)
	GetAccessMode(ctx context.Context, file Handle) (Mode, Result)
	GetFlags(ctx context.Context, file Handle) (Status, Result)
	SetFlags(ctx context.Context, file Handle, status Status) Result
	Flush(ctx context.Context, file Handle, metadata bool) Result

	Open(ctx context.Context, path string, mode Mode, open Open, status Status) (Handle, Result)
	Close(ctx context.Context, file Handle) Result

	// Vectored calls take two parallel arrays: buffers[i] holds at least
	// lengths[i] bytes. The returned size is the total transferred, also on
	// failure.
	ReadVectored(ctx context.Context, file Handle, buffers [][]byte, lengths []Size) (Size, Result)
	WriteVectored(ctx context.Context, file Handle, buffers [][]byte, lengths []Size) (Size, Result)
	ReadAtPositionVectored(ctx context.Context, file Handle, buffers [][]byte, lengths []Size, position Size) (Size, Result)
	WriteAtPositionVectored(ctx context.Context, file Handle, buffers [][]byte, lengths []Size, position Size) (Size, Result)

	Allocate(ctx context.Context, file Handle, offset, length Size) Result
	Truncate(ctx context.Context, file Handle, size Size) Result
	SetTimes(ctx context.Context, file Handle, access, modification Time, flags TimeFlags) Result
	SetTimesFromPath(ctx context.Context, path string, access, modification Time, flags TimeFlags, follow bool) Result
	SetPosition(ctx context.Context, file Handle, offset int64, whence Whence) (Size, Result)
	Advise(ctx context.Context, file Handle, offset, length Size, advice Advice) Result
	IsTerminal(ctx context.Context, file Handle) (bool, Result)

	ReadLinkAt(ctx context.Context, directory Handle, path string, buffer []byte) (Size, Result)
	Link(ctx context.Context, oldPath, newPath string) Result
	CreateSymbolicLinkAt(ctx context.Context, directory Handle, target, path string) Result
	CreateDirectory(ctx context.Context, path string) Result
	Rename(ctx context.Context, oldPath, newPath string) Result
	Remove(ctx context.Context, path string) Result

	IsStdin(file Handle) bool
	IsStdout(file Handle) bool
	IsStderr(file Handle) bool
}

// Directories is the directory enumeration part of the kernel surface.
// A directory handle is positioned before its first entry when opened.
type Directories interface {
	OpenDirectory(ctx context.Context, path string) (Handle, Result)
	// ReadDirectory advances the cursor. At the end of the directory it
	// returns an Entry with a nil Name and Success.
	ReadDirectory(ctx context.Context, directory Handle) (Entry, Result)
	RewindDirectory(ctx context.Context, directory Handle) Result
	SetDirectoryPosition(ctx context.Context, directory Handle, position uint64) Result
	CloseDirectory(ctx context.Context, directory Handle) Result
}

// Clocks exposes kernel time sources.
type Clocks interface {
	ClockResolution(ctx context.Context, clock ClockID) (Time, Result)
	ClockTime(ctx context.Context, clock ClockID, precision Time) (Time, Result)
}
