package xilawasi

import (
	"context"
	"path"
	"strings"

	"github.com/stealthrocket/wasi-go"

	"github.com/xila-project/xilawasi/libc"
	"github.com/xila-project/xilawasi/xila"
)

const preopenFD = 3

// filesystem maps guest descriptors onto kernel handles.
type filesystem struct {
	fds map[libc.Int]*filedesc
	*Adapter
}

type filedesc struct {
	no      libc.Int
	handle  xila.Handle
	preopen string

	// directories only
	dir    bool
	path   string // in the kernel namespace
	stream DirStream
	cookie wasi.DirCookie
}

func newFilesystem(adapter *Adapter) *filesystem {
	system := &filesystem{
		fds:     map[libc.Int]*filedesc{},
		Adapter: adapter,
	}
	system.set(0, &filedesc{handle: xila.StandardIn, stream: InvalidDirStream})
	system.set(1, &filedesc{handle: xila.StandardOut, stream: InvalidDirStream})
	system.set(2, &filedesc{handle: xila.StandardErr, stream: InvalidDirStream})
	return system
}

// mount opens dir as the preopened directory. Its guest name is dir
// itself.
func (fsys *filesystem) mount(ctx context.Context, dir string) wasi.Errno {
	h, errno := fsys.OpenPreopenDir(ctx, dir)
	if errno != wasi.ESUCCESS {
		return errno
	}
	fd := &filedesc{handle: h, preopen: dir, dir: true, path: path.Clean(NormalizePath(dir))}
	fd.stream, _ = fsys.OpenDir(ctx, h)
	fsys.set(preopenFD, fd)
	return wasi.ESUCCESS
}

func (fsys *filesystem) set(no libc.Int, fd *filedesc) {
	fd.no = no
	fsys.fds[no] = fd
}

func (fsys *filesystem) get(fd libc.Int) (*filedesc, wasi.Errno) {
	f, ok := fsys.fds[fd]
	if !ok {
		return nil, wasi.EBADF
	}
	return f, wasi.ESUCCESS
}

// handle resolves a guest descriptor; an unknown one becomes
// xila.InvalidHandle, which the adapter rejects with EBADF.
func (fsys *filesystem) handle(fd libc.Int) xila.Handle {
	f, ok := fsys.fds[fd]
	if !ok {
		return xila.InvalidHandle
	}
	return f.handle
}

// resolve anchors a guest path at the directory behind descriptor no.
// Paths under the kernel root pass through as given; anywhere else the
// result may not leave the directory.
func (fsys *filesystem) resolve(no libc.Int, name string) (string, wasi.Errno) {
	fd, errno := fsys.get(no)
	if errno != wasi.ESUCCESS {
		return "", errno
	}
	if !fd.dir {
		return "", wasi.ENOTDIR
	}
	if fd.path == "/" {
		return name, wasi.ESUCCESS
	}
	full := path.Join(fd.path, name)
	if full != fd.path && !strings.HasPrefix(full, fd.path+"/") {
		return "", wasi.ENOTCAPABLE
	}
	return full, wasi.ESUCCESS
}

// open registers a freshly opened kernel handle under the lowest free
// descriptor above the preopen. name is the resolved path it was opened at.
func (fsys *filesystem) open(ctx context.Context, h xila.Handle, dir bool, name string) libc.Int {
	no := libc.Int(preopenFD + 1)
	for ; ; no++ {
		if _, taken := fsys.fds[no]; !taken {
			break
		}
	}
	fd := &filedesc{handle: h, dir: dir, stream: InvalidDirStream}
	if dir {
		fd.path = path.Clean(NormalizePath(name))
		fd.stream, _ = fsys.OpenDir(ctx, h)
	}
	fsys.set(no, fd)
	return no
}

// close releases the kernel handle behind fd. Directory descriptors go
// through their stream.
func (fsys *filesystem) close(ctx context.Context, no libc.Int) wasi.Errno {
	fd, errno := fsys.get(no)
	if errno != wasi.ESUCCESS {
		return errno
	}
	if fd.dir {
		errno = fsys.CloseDir(ctx, &fd.stream)
	} else {
		errno = fsys.Close(ctx, fd.handle)
	}
	delete(fsys.fds, no)
	return errno
}

// readdir returns the entry at cookie. The stream is repositioned only
// when cookie is not where the previous call left it. A nil Name marks the
// end of the directory.
func (fsys *filesystem) readdir(ctx context.Context, no libc.Int, cookie wasi.DirCookie) (wasi.DirEntry, wasi.Errno) {
	fd, errno := fsys.get(no)
	if errno != wasi.ESUCCESS {
		return wasi.DirEntry{}, errno
	}
	if !fd.dir {
		return wasi.DirEntry{}, wasi.ENOTDIR
	}
	if cookie != fd.cookie {
		if cookie == 0 {
			errno = fsys.RewindDir(ctx, fd.stream)
		} else {
			errno = fsys.SeekDir(ctx, fd.stream, cookie)
		}
		if errno != wasi.ESUCCESS {
			return wasi.DirEntry{}, errno
		}
		fd.cookie = cookie
	}
	entry, errno := fsys.ReadDir(ctx, fd.stream)
	if errno != wasi.ESUCCESS || entry.Name == nil {
		return wasi.DirEntry{}, errno
	}
	fd.cookie++
	entry.Next = fd.cookie
	return entry, wasi.ESUCCESS
}
