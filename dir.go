package xilawasi

import (
	"context"

	"github.com/stealthrocket/wasi-go"

	"github.com/xila-project/xilawasi/xila"
)

// DirStream is a directory enumeration cursor. Its identity is the
// directory handle it was opened from.
type DirStream xila.Handle

// InvalidDirStream is the identity of a closed or never opened stream.
const InvalidDirStream = DirStream(xila.InvalidHandle)

// Valid reports whether the stream may still be used.
func (s DirStream) Valid() bool {
	return s != InvalidDirStream
}

// OpenDir opens a stream over an already open directory handle.
func (a *Adapter) OpenDir(ctx context.Context, dir xila.Handle) (DirStream, wasi.Errno) {
	if !Valid(dir) {
		return InvalidDirStream, wasi.EBADF
	}
	return DirStream(dir), wasi.ESUCCESS
}

// RewindDir moves the stream back before its first entry.
func (a *Adapter) RewindDir(ctx context.Context, stream DirStream) wasi.Errno {
	if !stream.Valid() {
		return wasi.EBADF
	}
	result := a.kernel.RewindDirectory(ctx, xila.Handle(stream))
	return a.errno(result, "rewinddir", stream)
}

// SeekDir moves the stream to a cookie previously reported in
// wasi.DirEntry.Next.
func (a *Adapter) SeekDir(ctx context.Context, stream DirStream, cookie wasi.DirCookie) wasi.Errno {
	if !stream.Valid() {
		return wasi.EBADF
	}
	result := a.kernel.SetDirectoryPosition(ctx, xila.Handle(stream), uint64(cookie))
	return a.errno(result, "seekdir", stream, cookie)
}

// ReadDir returns the next entry. A nil Name with ESUCCESS means the end of
// the directory was reached; a failing errno never comes with an entry.
// Next is left for the caller, which owns the cookie sequence.
func (a *Adapter) ReadDir(ctx context.Context, stream DirStream) (wasi.DirEntry, wasi.Errno) {
	if !stream.Valid() {
		return wasi.DirEntry{}, wasi.EBADF
	}
	entry, result := a.kernel.ReadDirectory(ctx, xila.Handle(stream))
	if !result.OK() {
		return wasi.DirEntry{}, a.errno(result, "readdir", stream)
	}
	if entry.Name == nil {
		return wasi.DirEntry{}, wasi.ESUCCESS
	}
	return wasi.DirEntry{
		INode: wasi.INode(entry.Inode),
		Type:  FileTypeOf(entry.Kind),
		Name:  entry.Name,
	}, wasi.ESUCCESS
}

// CloseDir closes the stream and the directory handle behind it, then
// invalidates *stream so any later use fails with EBADF.
func (a *Adapter) CloseDir(ctx context.Context, stream *DirStream) wasi.Errno {
	if stream == nil || !stream.Valid() {
		return wasi.EBADF
	}
	dir := xila.Handle(*stream)
	result := a.kernel.CloseDirectory(ctx, dir)
	*stream = InvalidDirStream
	return a.errno(result, "closedir", dir)
}
