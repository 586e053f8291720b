package xilawasi

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"runtime"
	"unsafe"

	"github.com/bytecodealliance/wasmtime-go/v11"
	"github.com/stealthrocket/wasi-go"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/xila-project/xilawasi/kernelfs"
	"github.com/xila-project/xilawasi/libc"
	"github.com/xila-project/xilawasi/xila"
)

// WASI is a WASI environment whose file system and clocks are provided by a
// Xila kernel.
type WASI struct {
	args    charbuffer
	environ charbuffer
	files   *filesystem
	ctx     context.Context

	exited   bool
	exitCode int32

	// config
	kernel  xila.Kernel
	preopen string
	env     map[string]string
	logger  *log.Logger
	debug   bool
}

// NewWASI creates a new WASI environment.
// Currently they may not be shared between instances.
func NewWASI(opts ...Option) *WASI {
	w := &WASI{
		preopen: "/",
		logger:  log.Default(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	keys := maps.Keys(w.env)
	slices.Sort(keys)
	for _, k := range keys {
		w.environ = append(w.environ, fmt.Sprintf("%s=%s", k, w.env[k]))
	}
	if w.kernel == nil {
		w.kernel = kernelfs.New(nil,
			kernelfs.WithStdin(os.Stdin),
			kernelfs.WithStdout(os.Stdout),
			kernelfs.WithStderr(os.Stderr),
		)
	}
	var logger *log.Logger
	if w.debug {
		logger = w.logger
	}
	w.files = newFilesystem(NewAdapter(w.kernel, logger))
	if w.preopen != "" {
		if errno := w.files.mount(w.ctx, w.preopen); errno != wasi.ESUCCESS {
			w.debugf("preopen %q: %v", w.preopen, errno)
		}
	}
	return w
}

// Link defines all (supported) WASI functions on the given linker.
func (w *WASI) Link(store wasmtime.Storelike, linker *wasmtime.Linker) error {
	const mod = "wasi_snapshot_preview1"
	symbols := map[string]any{
		"args_sizes_get":          w.args_sizes_get,
		"args_get":                w.args_get,
		"environ_sizes_get":       w.environ_sizes_get,
		"environ_get":             w.environ_get,
		"clock_res_get":           w.clock_res_get,
		"clock_time_get":          w.clock_time_get,
		"fd_advise":               w.fd_advise,
		"fd_allocate":             w.fd_allocate,
		"fd_close":                w.fd_close,
		"fd_datasync":             w.fd_datasync,
		"fd_fdstat_get":           w.fd_fdstat_get,
		"fd_fdstat_set_flags":     w.fd_fdstat_set_flags,
		"fd_filestat_get":         w.fd_filestat_get,
		"fd_filestat_set_size":    w.fd_filestat_set_size,
		"fd_filestat_set_times":   w.fd_filestat_set_times,
		"fd_pread":                w.fd_pread,
		"fd_pwrite":               w.fd_pwrite,
		"fd_prestat_get":          w.fd_prestat_get,
		"fd_prestat_dir_name":     w.fd_prestat_dir_name,
		"fd_read":                 w.fd_read,
		"fd_readdir":              w.fd_readdir,
		"fd_seek":                 w.fd_seek,
		"fd_sync":                 w.fd_sync,
		"fd_tell":                 w.fd_tell,
		"fd_write":                w.fd_write,
		"path_create_directory":   w.path_create_directory,
		"path_filestat_get":       w.path_filestat_get,
		"path_filestat_set_times": w.path_filestat_set_times,
		"path_link":               w.path_link,
		"path_open":               w.path_open,
		"path_readlink":           w.path_readlink,
		"path_remove_directory":   w.path_remove_directory,
		"path_rename":             w.path_rename,
		"path_symlink":            w.path_symlink,
		"path_unlink_file":        w.path_unlink_file,
		"poll_oneoff":             w.poll_oneoff,
		"proc_exit":               w.proc_exit,
		"sched_yield":             w.sched_yield,
		"random_get":              w.random_get,
	}
	for name, fn := range symbols {
		if err := linker.DefineFunc(store, mod, name, fn); err != nil {
			return err
		}
	}
	return nil
}

// ExitCode reports the status passed to proc_exit, if the guest called it.
func (w *WASI) ExitCode() (code int32, exited bool) {
	return w.exitCode, w.exited
}

// Close releases every kernel handle still held by a guest descriptor
// above the standard streams.
func (w *WASI) Close() error {
	fds := maps.Keys(w.files.fds)
	slices.Sort(fds)
	var first wasi.Errno
	for _, fd := range fds {
		if fd <= 2 {
			continue
		}
		if errno := w.files.close(w.ctx, fd); errno != wasi.ESUCCESS && first == wasi.ESUCCESS {
			first = errno
		}
	}
	if first != wasi.ESUCCESS {
		return fmt.Errorf("close: %v", first)
	}
	return nil
}

func trap(err error) (int32, *wasmtime.Trap) {
	return 0, wasmtime.NewTrap(err.Error())
}

func ret(errno wasi.Errno) (int32, *wasmtime.Trap) {
	return libc.Return(errno), nil
}

func (w *WASI) args_sizes_get(caller *wasmtime.Caller, argc, argv int32) (int32, *wasmtime.Trap) {
	w.debugln("args_sizes_get", argc, argv)

	if err := w.args.writeSizes(caller, argc, argv); err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) environ_sizes_get(caller *wasmtime.Caller, argc, argv int32) (int32, *wasmtime.Trap) {
	w.debugln("environ_sizes_get", argc, argv)

	if err := w.environ.writeSizes(caller, argc, argv); err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) args_get(caller *wasmtime.Caller, argv, argbuf int32) (int32, *wasmtime.Trap) {
	w.debugln("args_get", argv, argbuf)

	if err := w.args.write(caller, argv, argbuf); err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) environ_get(caller *wasmtime.Caller, argv, argbuf int32) (int32, *wasmtime.Trap) {
	w.debugln("environ_get", argv, argbuf)

	if err := w.environ.write(caller, argv, argbuf); err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

// putUint64 stores v at ptr once the call has succeeded.
func putUint64(caller *wasmtime.Caller, _ptr int32, v uint64) (int32, *wasmtime.Trap) {
	ptr := ptr_t(_ptr)
	err := ensure(caller, func(base unsafe.Pointer, _ []byte) {
		*(*uint64)(unsafe.Add(base, ptr)) = v
	}, end(ptr, 8))
	if err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) clock_res_get(caller *wasmtime.Caller, clockid int32, _retptr int32) (int32, *wasmtime.Trap) {
	w.debugln("clock_res_get", clockid, _retptr)

	resolution, errno := w.files.ClockResGet(w.ctx, wasi.ClockID(clockid))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return putUint64(caller, _retptr, uint64(resolution))
}

func (w *WASI) clock_time_get(caller *wasmtime.Caller, clockid int32, precision int64, _tsptr int32) (int32, *wasmtime.Trap) {
	w.debugln("clock_time_get", clockid, precision, _tsptr)

	now, errno := w.files.ClockTimeGet(w.ctx, wasi.ClockID(clockid), wasi.Timestamp(precision))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return putUint64(caller, _tsptr, uint64(now))
}

func (w *WASI) fd_advise(caller *wasmtime.Caller, fd int32, offset, length int64, advice int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_advise", fd, offset, length, advice)
	return ret(w.files.Advise(w.ctx, w.files.handle(fd), wasi.FileSize(offset), wasi.FileSize(length), wasi.Advice(advice)))
}

func (w *WASI) fd_allocate(caller *wasmtime.Caller, fd int32, offset, length int64) (int32, *wasmtime.Trap) {
	w.debugln("fd_allocate", fd, offset, length)
	return ret(w.files.Allocate(w.ctx, w.files.handle(fd), wasi.FileSize(offset), wasi.FileSize(length)))
}

func (w *WASI) fd_close(caller *wasmtime.Caller, fd int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_close", fd)
	return ret(w.files.close(w.ctx, fd))
}

func (w *WASI) fd_datasync(caller *wasmtime.Caller, fd int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_datasync", fd)
	return ret(w.files.DataSync(w.ctx, w.files.handle(fd)))
}

func (w *WASI) fd_sync(caller *wasmtime.Caller, fd int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_sync", fd)
	return ret(w.files.Sync(w.ctx, w.files.handle(fd)))
}

// rightsOf derives descriptor rights from what the kernel reports; the
// kernel itself has no notion of rights.
func rightsOf(filetype wasi.FileType, mode libc.AccessMode) (base, inheriting wasi.Rights) {
	switch filetype {
	case wasi.DirectoryType:
		return wasi.DirectoryRights, wasi.DirectoryRights | wasi.FileRights
	case wasi.CharacterDeviceType:
		base = wasi.TTYRights
	default:
		base = wasi.FileRights
	}
	switch mode {
	case libc.AccessModeReadOnly:
		base &^= wasi.FDWriteRight
	case libc.AccessModeWriteOnly:
		base &^= wasi.FDReadRight
	}
	return base, 0
}

func (w *WASI) fd_fdstat_get(caller *wasmtime.Caller, fd, _retptr int32) (int32, *wasmtime.Trap) {
	retptr := ptr_t(_retptr)
	w.debugln("fd_fdstat_get", fd, retptr)

	f, errno := w.files.get(fd)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	stat, errno := w.files.Stat(w.ctx, f.handle)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	flags, errno := w.files.FDFlags(w.ctx, f.handle)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	mode, errno := w.files.AccessMode(w.ctx, f.handle)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	fdstat := wasi.FDStat{FileType: stat.FileType, Flags: flags}
	fdstat.RightsBase, fdstat.RightsInheriting = rightsOf(stat.FileType, mode)

	out := libc.MakeFdstat(fdstat)
	err := ensure(caller, func(base unsafe.Pointer, _ []byte) {
		*(*libc.Fdstat)(unsafe.Add(base, retptr)) = out
	}, end(retptr, size_t(unsafe.Sizeof(out))))
	if err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) fd_fdstat_set_flags(caller *wasmtime.Caller, fd int32, flags int32) (int32, *wasmtime.Trap) {
	w.debugf("fd_fdstat_set_flags(%d, %o)", fd, flags)
	return ret(w.files.SetFDFlags(w.ctx, w.files.handle(fd), wasi.FDFlags(flags)))
}

func (w *WASI) putFilestat(caller *wasmtime.Caller, retptr ptr_t, stat wasi.FileStat) (int32, *wasmtime.Trap) {
	out := libc.MakeFilestat(stat)
	err := ensure(caller, func(base unsafe.Pointer, _ []byte) {
		*(*libc.Filestat)(unsafe.Add(base, retptr)) = out
	}, end(retptr, size_t(unsafe.Sizeof(out))))
	if err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) fd_filestat_get(caller *wasmtime.Caller, fd int_t, _retptr int_t) (int32, *wasmtime.Trap) {
	retptr := ptr_t(_retptr)
	w.debugln("fd_filestat_get", fd, retptr)

	stat, errno := w.files.Stat(w.ctx, w.files.handle(fd))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return w.putFilestat(caller, retptr, stat)
}

func (w *WASI) fd_filestat_set_size(caller *wasmtime.Caller, fd int32, size int64) (int32, *wasmtime.Trap) {
	w.debugln("fd_filestat_set_size", fd, size)
	return ret(w.files.Truncate(w.ctx, w.files.handle(fd), wasi.FileSize(size)))
}

func (w *WASI) fd_filestat_set_times(caller *wasmtime.Caller, fd int32, atim, mtim int64, fstflags int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_filestat_set_times", fd, atim, mtim, fstflags)
	return ret(w.files.SetTimes(w.ctx, w.files.handle(fd), wasi.Timestamp(atim), wasi.Timestamp(mtim), wasi.FSTFlags(fstflags)))
}

// vectored resolves the guest iovecs, runs io and stores its byte count at
// retptr. The count is stored even when io fails.
func (w *WASI) vectored(caller *wasmtime.Caller, _iovs, _iovslen, _retptr int32, io func([]wasi.IOVec) (wasi.Size, wasi.Errno)) (int32, *wasmtime.Trap) {
	iovs := ptr_t(_iovs)
	iovslen := size_t(_iovslen)
	retptr := ptr_t(_retptr)

	var errno wasi.Errno
	var fault error
	err := ensure(caller, func(base unsafe.Pointer, data []byte) {
		var vecs []wasi.IOVec
		vecs, fault = guestIOVecs(base, data, iovs, iovslen)
		if fault != nil {
			return
		}
		var n wasi.Size
		n, errno = io(vecs)
		*(*size_t)(unsafe.Add(base, retptr)) = size_t(n)
	}, span(iovs, iovslen, size_t(unsafe.Sizeof(libc.Iovec{}))), end(retptr, ptrSize))
	if err == nil {
		err = fault
	}
	if err != nil {
		return trap(err)
	}
	return ret(errno)
}

func (w *WASI) fd_read(caller *wasmtime.Caller, fd, iovs, iovslen, retptr int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_read", fd, iovs, iovslen, retptr)
	h := w.files.handle(fd)
	return w.vectored(caller, iovs, iovslen, retptr, func(vecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
		return w.files.ReadV(w.ctx, h, vecs)
	})
}

func (w *WASI) fd_write(caller *wasmtime.Caller, fd, iovs, iovslen, retptr int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_write", fd, iovs, iovslen, retptr)
	h := w.files.handle(fd)
	return w.vectored(caller, iovs, iovslen, retptr, func(vecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
		return w.files.WriteV(w.ctx, h, vecs)
	})
}

func (w *WASI) fd_pread(caller *wasmtime.Caller, fd, iovs, iovslen int32, offset int64, retptr int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_pread", fd, iovs, iovslen, offset, retptr)
	h := w.files.handle(fd)
	return w.vectored(caller, iovs, iovslen, retptr, func(vecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
		return w.files.PReadV(w.ctx, h, vecs, wasi.FileSize(offset))
	})
}

func (w *WASI) fd_pwrite(caller *wasmtime.Caller, fd, iovs, iovslen int32, offset int64, retptr int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_pwrite", fd, iovs, iovslen, offset, retptr)
	h := w.files.handle(fd)
	return w.vectored(caller, iovs, iovslen, retptr, func(vecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
		return w.files.PWriteV(w.ctx, h, vecs, wasi.FileSize(offset))
	})
}

func (w *WASI) fd_seek(caller *wasmtime.Caller, fd int_t, offset int64, whence, retptr int_t) (int32, *wasmtime.Trap) {
	w.debugln("fd_seek", fd, offset, whence, retptr)

	position, errno := w.files.Seek(w.ctx, w.files.handle(fd), wasi.FileDelta(offset), wasi.Whence(whence))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return putUint64(caller, retptr, uint64(position))
}

func (w *WASI) fd_tell(caller *wasmtime.Caller, fd, retptr int32) (int32, *wasmtime.Trap) {
	w.debugln("fd_tell", fd, retptr)

	position, errno := w.files.Seek(w.ctx, w.files.handle(fd), 0, wasi.SeekCurrent)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return putUint64(caller, retptr, uint64(position))
}

func (w *WASI) fd_prestat_get(caller *wasmtime.Caller, fd int32, _prestat int32) (int32, *wasmtime.Trap) {
	prestat := ptr_t(_prestat)
	w.debugln("fd_prestat_get", fd, prestat)

	f, errno := w.files.get(fd)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	if f.preopen == "" {
		return ret(wasi.EBADF)
	}

	dir := libc.PrestatDir{
		Tag:    0, // directory
		DirLen: libc.Size(len(f.preopen)),
	}
	err := ensure(caller, func(base unsafe.Pointer, _ []byte) {
		*(*libc.PrestatDir)(unsafe.Add(base, prestat)) = dir
	}, end(prestat, size_t(unsafe.Sizeof(dir))))
	if err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) fd_prestat_dir_name(caller *wasmtime.Caller, fd int32, _buf int32, _len int32) (int32, *wasmtime.Trap) {
	buf := ptr_t(_buf)
	buflen := size_t(_len)
	w.debugln("fd_prestat_dir_name", fd, buf, buflen)

	f, errno := w.files.get(fd)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	if f.preopen == "" {
		return ret(wasi.EBADF)
	}

	err := ensure(caller, func(_ unsafe.Pointer, data []byte) {
		copy(data[buf:buf+buflen], f.preopen)
	}, end(buf, buflen))
	if err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

// fd_readdir fills the buffer with dirent headers each followed by its
// name. The last entry may be cut short; the guest then asks again from
// that entry's cookie.
func (w *WASI) fd_readdir(caller *wasmtime.Caller, fd, _buf, _buflen int_t, cookie int64, _retptr int_t) (int_t, *wasmtime.Trap) {
	buf := ptr_t(_buf)
	buflen := size_t(_buflen)
	retptr := ptr_t(_retptr) // buffer consumed
	w.debugln("fd_readdir", fd, buf, buflen, cookie, retptr)

	var errno wasi.Errno
	size := size_t(unsafe.Sizeof(libc.Dirent{}))
	err := ensure(caller, func(base unsafe.Pointer, data []byte) {
		var wrote size_t
		next := wasi.DirCookie(cookie)
		for wrote < buflen {
			var entry wasi.DirEntry
			entry, errno = w.files.readdir(w.ctx, fd, next)
			if errno != wasi.ESUCCESS || entry.Name == nil {
				break
			}
			dirent := libc.MakeDirent(entry)
			header := unsafe.Slice((*byte)(unsafe.Pointer(&dirent)), size)
			wrote += size_t(copy(data[buf+wrote:buf+buflen], header))
			wrote += size_t(copy(data[buf+wrote:buf+buflen], entry.Name))
			next = entry.Next
		}
		if wrote > 0 {
			errno = wasi.ESUCCESS
		}
		*(*size_t)(unsafe.Add(base, retptr)) = wrote
	}, end(buf, buflen), end(retptr, ptrSize))
	if err != nil {
		return trap(err)
	}
	return ret(errno)
}

// withPath reads one guest path, resolves it against the directory fd and
// hands it to fn.
func (w *WASI) withPath(caller *wasmtime.Caller, fd, _path, _pathlen int32, fn func(path string) wasi.Errno) (int32, *wasmtime.Trap) {
	path := ptr_t(_path)
	pathlen := size_t(_pathlen)

	var name string
	var errno wasi.Errno
	err := ensure(caller, func(_ unsafe.Pointer, data []byte) {
		name, errno = guestString(data, path, pathlen)
	}, end(path, pathlen))
	if err != nil {
		return trap(err)
	}
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	if name, errno = w.files.resolve(fd, name); errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(fn(name))
}

// withPaths reads two guest paths as given; callers resolve the ones that
// name a location.
func (w *WASI) withPaths(caller *wasmtime.Caller, _old, _oldlen, _new, _newlen int32, fn func(oldPath, newPath string) wasi.Errno) (int32, *wasmtime.Trap) {
	oldptr, oldlen := ptr_t(_old), size_t(_oldlen)
	newptr, newlen := ptr_t(_new), size_t(_newlen)

	var oldName, newName string
	var errno wasi.Errno
	err := ensure(caller, func(_ unsafe.Pointer, data []byte) {
		if oldName, errno = guestString(data, oldptr, oldlen); errno != wasi.ESUCCESS {
			return
		}
		newName, errno = guestString(data, newptr, newlen)
	}, end(oldptr, oldlen), end(newptr, newlen))
	if err != nil {
		return trap(err)
	}
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(fn(oldName, newName))
}

func (w *WASI) path_open(caller *wasmtime.Caller, fd, dirflags, pathptr, pathlen, oflags int32, rightsBase, rightsInheriting int64, fdflags, _retptr int32) (int32, *wasmtime.Trap) {
	retptr := ptr_t(_retptr)
	w.debugln("path_open", fd, dirflags, pathptr, pathlen, oflags, rightsBase, rightsInheriting, fdflags, retptr)

	var opened libc.Int
	errno, t := w.withPath(caller, fd, pathptr, pathlen, func(path string) wasi.Errno {
		w.debugf("path_open(%q, %o)", path, oflags)
		open := wasi.OpenFlags(oflags)
		h, errno := w.files.OpenAt(w.ctx, w.files.handle(fd), path, open, wasi.FDFlags(fdflags), wasi.LookupFlags(dirflags), accessModeOf(wasi.Rights(rightsBase)))
		if errno != wasi.ESUCCESS {
			return errno
		}
		dir := open.Has(wasi.OpenDirectory)
		if !dir {
			stat, errno := w.files.Stat(w.ctx, h)
			dir = errno == wasi.ESUCCESS && stat.FileType == wasi.DirectoryType
		}
		opened = w.files.open(w.ctx, h, dir, path)
		return wasi.ESUCCESS
	})
	if t != nil || errno != libc.ErrnoSuccess {
		return errno, t
	}
	err := ensure(caller, func(base unsafe.Pointer, _ []byte) {
		*(*int_t)(unsafe.Add(base, retptr)) = opened
	}, end(retptr, ptrSize))
	if err != nil {
		w.files.close(w.ctx, opened)
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

// accessModeOf derives the open mode from the requested read and write
// rights.
func accessModeOf(rights wasi.Rights) libc.AccessMode {
	read := rights&wasi.FDReadRight != 0
	write := rights&wasi.FDWriteRight != 0
	switch {
	case read && write:
		return libc.AccessModeReadWrite
	case write:
		return libc.AccessModeWriteOnly
	default:
		return libc.AccessModeReadOnly
	}
}

func (w *WASI) path_create_directory(caller *wasmtime.Caller, fd, path, pathlen int32) (int32, *wasmtime.Trap) {
	w.debugln("path_create_directory", fd, path, pathlen)
	return w.withPath(caller, fd, path, pathlen, func(name string) wasi.Errno {
		return w.files.MkdirAt(w.ctx, w.files.handle(fd), name)
	})
}

func (w *WASI) path_remove_directory(caller *wasmtime.Caller, fd, path, pathlen int32) (int32, *wasmtime.Trap) {
	w.debugln("path_remove_directory", fd, path, pathlen)
	return w.withPath(caller, fd, path, pathlen, func(name string) wasi.Errno {
		return w.files.UnlinkAt(w.ctx, w.files.handle(fd), name, true)
	})
}

func (w *WASI) path_unlink_file(caller *wasmtime.Caller, fd, path, pathlen int32) (int32, *wasmtime.Trap) {
	w.debugln("path_unlink_file", fd, path, pathlen)
	return w.withPath(caller, fd, path, pathlen, func(name string) wasi.Errno {
		return w.files.UnlinkAt(w.ctx, w.files.handle(fd), name, false)
	})
}

func (w *WASI) path_filestat_get(caller *wasmtime.Caller, fd, lookupflags, path, pathlen, _retptr int_t) (int32, *wasmtime.Trap) {
	retptr := ptr_t(_retptr)
	w.debugln("path_filestat_get", fd, lookupflags, path, pathlen, retptr)

	var stat wasi.FileStat
	errno, t := w.withPath(caller, fd, path, pathlen, func(name string) (errno wasi.Errno) {
		stat, errno = w.files.StatAt(w.ctx, w.files.handle(fd), name, wasi.LookupFlags(lookupflags))
		return errno
	})
	if t != nil || errno != libc.ErrnoSuccess {
		return errno, t
	}
	return w.putFilestat(caller, retptr, stat)
}

func (w *WASI) path_filestat_set_times(caller *wasmtime.Caller, fd, lookupflags, path, pathlen int32, atim, mtim int64, fstflags int32) (int32, *wasmtime.Trap) {
	w.debugln("path_filestat_set_times", fd, lookupflags, path, pathlen, atim, mtim, fstflags)
	return w.withPath(caller, fd, path, pathlen, func(name string) wasi.Errno {
		return w.files.SetTimesAt(w.ctx, w.files.handle(fd), name, wasi.Timestamp(atim), wasi.Timestamp(mtim), wasi.FSTFlags(fstflags), wasi.LookupFlags(lookupflags))
	})
}

func (w *WASI) path_link(caller *wasmtime.Caller, oldfd, oldflags, oldpath, oldpathlen, newfd, newpath, newpathlen int32) (int32, *wasmtime.Trap) {
	w.debugln("path_link", oldfd, oldflags, oldpath, oldpathlen, newfd, newpath, newpathlen)
	return w.withPaths(caller, oldpath, oldpathlen, newpath, newpathlen, func(oldName, newName string) (errno wasi.Errno) {
		if oldName, errno = w.files.resolve(oldfd, oldName); errno != wasi.ESUCCESS {
			return errno
		}
		if newName, errno = w.files.resolve(newfd, newName); errno != wasi.ESUCCESS {
			return errno
		}
		return w.files.LinkAt(w.ctx, w.files.handle(oldfd), oldName, w.files.handle(newfd), newName, wasi.LookupFlags(oldflags))
	})
}

func (w *WASI) path_rename(caller *wasmtime.Caller, fd, oldpath, oldpathlen, newfd, newpath, newpathlen int32) (int32, *wasmtime.Trap) {
	w.debugln("path_rename", fd, oldpath, oldpathlen, newfd, newpath, newpathlen)
	return w.withPaths(caller, oldpath, oldpathlen, newpath, newpathlen, func(oldName, newName string) (errno wasi.Errno) {
		if oldName, errno = w.files.resolve(fd, oldName); errno != wasi.ESUCCESS {
			return errno
		}
		if newName, errno = w.files.resolve(newfd, newName); errno != wasi.ESUCCESS {
			return errno
		}
		return w.files.RenameAt(w.ctx, w.files.handle(fd), oldName, w.files.handle(newfd), newName)
	})
}

func (w *WASI) path_symlink(caller *wasmtime.Caller, target, targetlen, fd, path, pathlen int32) (int32, *wasmtime.Trap) {
	w.debugln("path_symlink", target, targetlen, fd, path, pathlen)
	return w.withPaths(caller, target, targetlen, path, pathlen, func(targetName, name string) (errno wasi.Errno) {
		if name, errno = w.files.resolve(fd, name); errno != wasi.ESUCCESS {
			return errno
		}
		return w.files.SymlinkAt(w.ctx, targetName, w.files.handle(fd), name)
	})
}

func (w *WASI) path_readlink(caller *wasmtime.Caller, fd, path, pathlen, _bufptr, _buflen, _retptr int_t) (int32, *wasmtime.Trap) {
	bufptr := ptr_t(_bufptr)
	buflen := size_t(_buflen)
	retptr := ptr_t(_retptr)
	w.debugln("path_readlink", fd, path, pathlen, bufptr, buflen, retptr)

	if err := ensure(caller, func(unsafe.Pointer, []byte) {}, end(bufptr, buflen), end(retptr, ptrSize)); err != nil {
		return trap(err)
	}
	target := make([]byte, buflen)
	var n int
	errno, t := w.withPath(caller, fd, path, pathlen, func(name string) (errno wasi.Errno) {
		n, errno = w.files.ReadlinkAt(w.ctx, w.files.handle(fd), name, target)
		return errno
	})
	if t != nil || errno != libc.ErrnoSuccess {
		return errno, t
	}
	err := ensure(caller, func(base unsafe.Pointer, data []byte) {
		copy(data[bufptr:bufptr+buflen], target[:n])
		*(*size_t)(unsafe.Add(base, retptr)) = size_t(n)
	}, end(bufptr, buflen), end(retptr, ptrSize))
	if err != nil {
		return trap(err)
	}
	return libc.ErrnoSuccess, nil
}

func (w *WASI) poll_oneoff(caller *wasmtime.Caller, in, out, nsubs, retptr int_t) (int32, *wasmtime.Trap) {
	w.debugln("poll_oneoff", in, out, nsubs, retptr)
	return ret(wasi.ENOSYS)
}

// proc_exit always traps to unwind the guest; ExitCode reports the status.
func (w *WASI) proc_exit(caller *wasmtime.Caller, code int32) *wasmtime.Trap {
	w.debugln("proc_exit", code)
	w.exited = true
	w.exitCode = code
	return wasmtime.NewTrap(fmt.Sprintf("exit: %d", code))
}

func (w *WASI) sched_yield(caller *wasmtime.Caller) (int32, *wasmtime.Trap) {
	runtime.Gosched()
	return libc.ErrnoSuccess, nil
}

func (w *WASI) random_get(caller *wasmtime.Caller, _buf, _buflen int32) (int32, *wasmtime.Trap) {
	buf := ptr_t(_buf)
	buflen := size_t(_buflen)
	w.debugln("random_get", buf, buflen)

	var errno wasi.Errno
	err := ensure(caller, func(_ unsafe.Pointer, data []byte) {
		if _, err := rand.Read(data[buf : buf+buflen]); err != nil {
			errno = wasi.EIO
		}
	}, end(buf, buflen))
	if err != nil {
		return trap(err)
	}
	return ret(errno)
}

func (w *WASI) debugln(args ...any) {
	if !w.debug {
		return
	}
	w.logger.Println(args...)
}

func (w *WASI) debugf(fmt string, args ...any) {
	if !w.debug {
		return
	}
	w.logger.Printf(fmt, args...)
}
