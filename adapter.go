package xilawasi

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/stealthrocket/wasi-go"

	"github.com/xila-project/xilawasi/libc"
	"github.com/xila-project/xilawasi/xila"
)

// Adapter exposes POSIX/WASI shaped file system calls on top of a Xila
// kernel. Every call normalizes its arguments, performs exactly one kernel
// call and translates the outcome; it keeps no state of its own and is safe
// for concurrent use if the kernel is.
type Adapter struct {
	kernel xila.Kernel
	logger *log.Logger
}

// NewAdapter creates an adapter over kernel. Failed kernel calls are logged
// to logger when it is not nil.
func NewAdapter(kernel xila.Kernel, logger *log.Logger) *Adapter {
	return &Adapter{kernel: kernel, logger: logger}
}

// Kernel returns the wrapped kernel.
func (a *Adapter) Kernel() xila.Kernel {
	return a.kernel
}

// Valid reports whether h may be passed to the kernel.
func Valid(h xila.Handle) bool {
	return h != xila.InvalidHandle
}

func (a *Adapter) errno(result xila.Result, op string, args ...any) wasi.Errno {
	if !result.OK() && a.logger != nil {
		params := make([]string, len(args))
		for i, arg := range args {
			params[i] = fmt.Sprint(arg)
		}
		a.logger.Printf("%s(%s) = %v", op, strings.Join(params, ", "), result)
	}
	return ErrnoOf(result)
}

func (a *Adapter) Stat(ctx context.Context, file xila.Handle) (wasi.FileStat, wasi.Errno) {
	if !Valid(file) {
		return wasi.FileStat{}, wasi.EBADF
	}
	stat, result := a.kernel.GetStatistics(ctx, file)
	if !result.OK() {
		return wasi.FileStat{}, a.errno(result, "stat", file)
	}
	return FileStatOf(stat), wasi.ESUCCESS
}

// StatAt stats path, resolved from the kernel root.
func (a *Adapter) StatAt(ctx context.Context, dir xila.Handle, path string, flags wasi.LookupFlags) (wasi.FileStat, wasi.Errno) {
	if !Valid(dir) {
		return wasi.FileStat{}, wasi.EBADF
	}
	path = NormalizePath(path)
	stat, result := a.kernel.GetStatisticsFromPath(ctx, path, FollowSymlinks(flags))
	if !result.OK() {
		return wasi.FileStat{}, a.errno(result, "statat", path, flags)
	}
	return FileStatOf(stat), wasi.ESUCCESS
}

func (a *Adapter) FDFlags(ctx context.Context, file xila.Handle) (wasi.FDFlags, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	status, result := a.kernel.GetFlags(ctx, file)
	if !result.OK() {
		return 0, a.errno(result, "getfdflags", file)
	}
	return FDFlagsOf(status), wasi.ESUCCESS
}

func (a *Adapter) SetFDFlags(ctx context.Context, file xila.Handle, flags wasi.FDFlags) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	return a.errno(a.kernel.SetFlags(ctx, file, StatusOf(flags)), "setfdflags", file, flags)
}

// Sync flushes data and metadata.
func (a *Adapter) Sync(ctx context.Context, file xila.Handle) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	return a.errno(a.kernel.Flush(ctx, file, true), "fsync", file)
}

// DataSync flushes data only.
func (a *Adapter) DataSync(ctx context.Context, file xila.Handle) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	return a.errno(a.kernel.Flush(ctx, file, false), "fdatasync", file)
}

// OpenPreopenDir opens a directory made available to the guest at startup.
func (a *Adapter) OpenPreopenDir(ctx context.Context, path string) (xila.Handle, wasi.Errno) {
	path = NormalizePath(path)
	h, result := a.kernel.OpenDirectory(ctx, path)
	if !result.OK() {
		return xila.InvalidHandle, a.errno(result, "preopen", path)
	}
	return h, wasi.ESUCCESS
}

// OpenAt opens path. With wasi.OpenDirectory the kernel's directory open is
// used and the remaining flags are ignored, as the kernel opens directories
// read-only. Lookup flags have no kernel counterpart on open.
func (a *Adapter) OpenAt(ctx context.Context, dir xila.Handle, path string, oflags wasi.OpenFlags, fdflags wasi.FDFlags, lookup wasi.LookupFlags, mode libc.AccessMode) (xila.Handle, wasi.Errno) {
	if !Valid(dir) {
		return xila.InvalidHandle, wasi.EBADF
	}
	path = NormalizePath(path)

	var h xila.Handle
	var result xila.Result
	if oflags.Has(wasi.OpenDirectory) {
		h, result = a.kernel.OpenDirectory(ctx, path)
	} else {
		h, result = a.kernel.Open(ctx, path, ModeOf(mode), OpenOf(oflags), StatusOf(fdflags))
	}
	if !result.OK() {
		return xila.InvalidHandle, a.errno(result, "openat", path, oflags, fdflags, mode)
	}
	return h, wasi.ESUCCESS
}

func (a *Adapter) AccessMode(ctx context.Context, file xila.Handle) (libc.AccessMode, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	mode, result := a.kernel.GetAccessMode(ctx, file)
	if !result.OK() {
		return 0, a.errno(result, "getaccessmode", file)
	}
	return AccessModeOf(mode), wasi.ESUCCESS
}

func (a *Adapter) Close(ctx context.Context, file xila.Handle) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	return a.errno(a.kernel.Close(ctx, file), "close", file)
}

// PReadV reads into iovs at offset. The byte count is the kernel's, also on
// failure.
func (a *Adapter) PReadV(ctx context.Context, file xila.Handle, iovs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	buffers, lengths := Marshal(iovs)
	n, result := a.kernel.ReadAtPositionVectored(ctx, file, buffers, lengths, xila.Size(offset))
	return wasi.Size(n), a.errno(result, "preadv", file, len(iovs), offset)
}

func (a *Adapter) PWriteV(ctx context.Context, file xila.Handle, iovs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	buffers, lengths := Marshal(iovs)
	n, result := a.kernel.WriteAtPositionVectored(ctx, file, buffers, lengths, xila.Size(offset))
	return wasi.Size(n), a.errno(result, "pwritev", file, len(iovs), offset)
}

func (a *Adapter) ReadV(ctx context.Context, file xila.Handle, iovs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	buffers, lengths := Marshal(iovs)
	n, result := a.kernel.ReadVectored(ctx, file, buffers, lengths)
	return wasi.Size(n), a.errno(result, "readv", file, len(iovs))
}

func (a *Adapter) WriteV(ctx context.Context, file xila.Handle, iovs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	buffers, lengths := Marshal(iovs)
	n, result := a.kernel.WriteVectored(ctx, file, buffers, lengths)
	return wasi.Size(n), a.errno(result, "writev", file, len(iovs))
}

func (a *Adapter) Allocate(ctx context.Context, file xila.Handle, offset, length wasi.FileSize) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	return a.errno(a.kernel.Allocate(ctx, file, xila.Size(offset), xila.Size(length)), "fallocate", file, offset, length)
}

func (a *Adapter) Truncate(ctx context.Context, file xila.Handle, size wasi.FileSize) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	return a.errno(a.kernel.Truncate(ctx, file, xila.Size(size)), "ftruncate", file, size)
}

func (a *Adapter) SetTimes(ctx context.Context, file xila.Handle, access, modification wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	result := a.kernel.SetTimes(ctx, file, xila.Time(access), xila.Time(modification), TimeFlagsOf(flags))
	return a.errno(result, "futimens", file, flags)
}

func (a *Adapter) SetTimesAt(ctx context.Context, dir xila.Handle, path string, access, modification wasi.Timestamp, flags wasi.FSTFlags, lookup wasi.LookupFlags) wasi.Errno {
	if !Valid(dir) {
		return wasi.EBADF
	}
	path = NormalizePath(path)
	result := a.kernel.SetTimesFromPath(ctx, path, xila.Time(access), xila.Time(modification), TimeFlagsOf(flags), FollowSymlinks(lookup))
	return a.errno(result, "utimensat", path, flags, lookup)
}

// ReadlinkAt reads the target of the symbolic link at path into buf and
// returns the number of bytes used.
func (a *Adapter) ReadlinkAt(ctx context.Context, dir xila.Handle, path string, buf []byte) (int, wasi.Errno) {
	if !Valid(dir) {
		return 0, wasi.EBADF
	}
	path = NormalizePath(path)
	n, result := a.kernel.ReadLinkAt(ctx, dir, path, buf)
	if !result.OK() {
		return 0, a.errno(result, "readlinkat", path)
	}
	return int(n), wasi.ESUCCESS
}

// LinkAt creates a hard link. The kernel always resolves the origin, so
// lookup flags are not forwarded.
func (a *Adapter) LinkAt(ctx context.Context, oldDir xila.Handle, oldPath string, newDir xila.Handle, newPath string, lookup wasi.LookupFlags) wasi.Errno {
	if !Valid(oldDir) || !Valid(newDir) {
		return wasi.EBADF
	}
	oldPath, newPath = NormalizePath(oldPath), NormalizePath(newPath)
	return a.errno(a.kernel.Link(ctx, oldPath, newPath), "linkat", oldPath, newPath)
}

// SymlinkAt creates a symbolic link at path whose content is target. The
// target is stored verbatim.
func (a *Adapter) SymlinkAt(ctx context.Context, target string, dir xila.Handle, path string) wasi.Errno {
	if !Valid(dir) {
		return wasi.EBADF
	}
	path = NormalizePath(path)
	return a.errno(a.kernel.CreateSymbolicLinkAt(ctx, dir, target, path), "symlinkat", target, path)
}

func (a *Adapter) MkdirAt(ctx context.Context, dir xila.Handle, path string) wasi.Errno {
	if !Valid(dir) {
		return wasi.EBADF
	}
	path = NormalizePath(path)
	return a.errno(a.kernel.CreateDirectory(ctx, path), "mkdirat", path)
}

func (a *Adapter) RenameAt(ctx context.Context, oldDir xila.Handle, oldPath string, newDir xila.Handle, newPath string) wasi.Errno {
	if !Valid(oldDir) || !Valid(newDir) {
		return wasi.EBADF
	}
	oldPath, newPath = NormalizePath(oldPath), NormalizePath(newPath)
	return a.errno(a.kernel.Rename(ctx, oldPath, newPath), "renameat", oldPath, newPath)
}

// UnlinkAt removes a file or an empty directory; the kernel tells them apart
// itself.
func (a *Adapter) UnlinkAt(ctx context.Context, dir xila.Handle, path string, isDir bool) wasi.Errno {
	if !Valid(dir) {
		return wasi.EBADF
	}
	path = NormalizePath(path)
	return a.errno(a.kernel.Remove(ctx, path), "unlinkat", path, isDir)
}

func (a *Adapter) Seek(ctx context.Context, file xila.Handle, offset wasi.FileDelta, whence wasi.Whence) (wasi.FileSize, wasi.Errno) {
	if !Valid(file) {
		return 0, wasi.EBADF
	}
	position, result := a.kernel.SetPosition(ctx, file, int64(offset), WhenceOf(whence))
	if !result.OK() {
		return 0, a.errno(result, "lseek", file, offset, whence)
	}
	return wasi.FileSize(position), wasi.ESUCCESS
}

func (a *Adapter) Advise(ctx context.Context, file xila.Handle, offset, length wasi.FileSize, advice wasi.Advice) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	result := a.kernel.Advise(ctx, file, xila.Size(offset), xila.Size(length), AdviceOf(advice))
	return a.errno(result, "fadvise", file, offset, length, advice)
}

// IsATTY succeeds only for terminals. A successful kernel answer of "not a
// terminal" is reported as ENOTTY.
func (a *Adapter) IsATTY(ctx context.Context, file xila.Handle) wasi.Errno {
	if !Valid(file) {
		return wasi.EBADF
	}
	terminal, result := a.kernel.IsTerminal(ctx, file)
	switch {
	case terminal:
		return wasi.ESUCCESS
	case result.OK():
		return wasi.ENOTTY
	default:
		return a.errno(result, "isatty", file)
	}
}

func (a *Adapter) IsStdin(file xila.Handle) bool  { return a.kernel.IsStdin(file) }
func (a *Adapter) IsStdout(file xila.Handle) bool { return a.kernel.IsStdout(file) }
func (a *Adapter) IsStderr(file xila.Handle) bool { return a.kernel.IsStderr(file) }

// Realpath resolves path in the kernel namespace.
func (a *Adapter) Realpath(path string) string {
	return NormalizePath(path)
}

func (a *Adapter) ClockResGet(ctx context.Context, id wasi.ClockID) (wasi.Timestamp, wasi.Errno) {
	resolution, result := a.kernel.ClockResolution(ctx, ClockOf(id))
	if !result.OK() {
		return 0, a.errno(result, "clock_res_get", id)
	}
	return wasi.Timestamp(resolution), wasi.ESUCCESS
}

func (a *Adapter) ClockTimeGet(ctx context.Context, id wasi.ClockID, precision wasi.Timestamp) (wasi.Timestamp, wasi.Errno) {
	now, result := a.kernel.ClockTime(ctx, ClockOf(id), xila.Time(precision))
	if !result.OK() {
		return 0, a.errno(result, "clock_time_get", id, precision)
	}
	return wasi.Timestamp(now), wasi.ESUCCESS
}
