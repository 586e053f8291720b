package kernelfs

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/hack-pad/hackpadfs"

	"github.com/xila-project/xilawasi/xila"
)

// Optional namespace capabilities hackpadfs has no helper for.
type (
	linkFS interface {
		Link(oldname, newname string) error
	}
	readlinkFS interface {
		Readlink(name string) (string, error)
	}
)

func openFlags(mode xila.Mode, open xila.Open) int {
	var flag int
	switch {
	case mode == xila.ModeReadWrite:
		flag = hackpadfs.FlagReadWrite
	case mode&xila.ModeWrite != 0:
		flag = hackpadfs.FlagWriteOnly
	default:
		flag = hackpadfs.FlagReadOnly
	}
	if open&xila.OpenCreate != 0 {
		flag |= hackpadfs.FlagCreate
	}
	if open&xila.OpenCreateOnly != 0 {
		flag |= hackpadfs.FlagCreate | hackpadfs.FlagExclusive
	}
	if open&xila.OpenTruncate != 0 {
		flag |= hackpadfs.FlagTruncate
	}
	return flag
}

// Open opens a file. Append and synchronous status are applied by the
// kernel on every write rather than by the namespace. A read-only open of
// a directory yields a directory handle.
func (k *Kernel) Open(ctx context.Context, path string, mode xila.Mode, open xila.Open, status xila.Status) (xila.Handle, xila.Result) {
	if mode&xila.ModeReadWrite == 0 || mode&^xila.ModeReadWrite != 0 {
		return xila.InvalidHandle, xila.InvalidMode
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	name, result := k.name(path)
	if !result.OK() {
		return xila.InvalidHandle, result
	}
	if mode == xila.ModeRead && open == 0 {
		if info, err := hackpadfs.Stat(k.fsys, name); err == nil && info.IsDir() {
			return k.openDirectory(name)
		}
	}
	if open&xila.OpenCreateOnly != 0 {
		if _, err := k.stat(name, false); err == nil {
			return xila.InvalidHandle, xila.AlreadyExists
		}
	}
	file, err := hackpadfs.OpenFile(k.fsys, name, openFlags(mode, open), 0o644)
	if err != nil {
		return xila.InvalidHandle, xila.ResultOf(err)
	}
	h, result := k.add(&node{name: name, file: file, mode: mode, status: status})
	if !result.OK() {
		file.Close()
	}
	return h, result
}

// Close releases any handle, including directory and standard stream ones.
func (k *Kernel) Close(ctx context.Context, file xila.Handle) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return result
	}
	delete(k.nodes, file)
	if n.file != nil {
		return xila.ResultOf(n.file.Close())
	}
	return xila.Success
}

// transfer runs fn over each buffer in order and stops at the first short
// transfer. End of file is not an error.
func transfer(buffers [][]byte, lengths []xila.Size, fn func(p []byte, done xila.Size) (int, error)) (xila.Size, xila.Result) {
	var total xila.Size
	for i, buf := range buffers {
		if i < len(lengths) && lengths[i] < xila.Size(len(buf)) {
			buf = buf[:lengths[i]]
		}
		n, err := fn(buf, total)
		total += xila.Size(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, xila.ResultOf(err)
		}
		if n < len(buf) {
			break
		}
	}
	return total, xila.Success
}

func (k *Kernel) readable(file xila.Handle) (*node, xila.Result) {
	n, result := k.getFile(file)
	if !result.OK() {
		return nil, result
	}
	if n.mode&xila.ModeRead == 0 {
		return nil, xila.InvalidFile
	}
	return n, xila.Success
}

func (k *Kernel) writable(file xila.Handle) (*node, xila.Result) {
	n, result := k.getFile(file)
	if !result.OK() {
		return nil, result
	}
	if n.mode&xila.ModeWrite == 0 {
		return nil, xila.InvalidFile
	}
	return n, xila.Success
}

func (k *Kernel) ReadVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size) (xila.Size, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.readable(file)
	if !result.OK() {
		return 0, result
	}
	var r io.Reader = n.stream
	if n.file != nil {
		r = n.file
	}
	return transfer(buffers, lengths, func(p []byte, _ xila.Size) (int, error) {
		return r.Read(p)
	})
}

func (k *Kernel) WriteVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size) (xila.Size, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.writable(file)
	if !result.OK() {
		return 0, result
	}
	if n.stream != nil {
		return transfer(buffers, lengths, func(p []byte, _ xila.Size) (int, error) {
			return n.stream.Write(p)
		})
	}
	if n.status&xila.StatusAppend != 0 {
		if _, err := hackpadfs.SeekFile(n.file, 0, io.SeekEnd); err != nil {
			return 0, xila.ResultOf(err)
		}
	}
	total, result := transfer(buffers, lengths, func(p []byte, _ xila.Size) (int, error) {
		return hackpadfs.WriteFile(n.file, p)
	})
	if result.OK() {
		result = k.synchronize(n)
	}
	return total, result
}

func (k *Kernel) ReadAtPositionVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size, position xila.Size) (xila.Size, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.readable(file)
	if !result.OK() {
		return 0, result
	}
	if n.file == nil {
		return 0, xila.UnsupportedOperation
	}
	return transfer(buffers, lengths, func(p []byte, done xila.Size) (int, error) {
		return hackpadfs.ReadAtFile(n.file, p, int64(position+done))
	})
}

func (k *Kernel) WriteAtPositionVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size, position xila.Size) (xila.Size, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.writable(file)
	if !result.OK() {
		return 0, result
	}
	if n.file == nil {
		return 0, xila.UnsupportedOperation
	}
	total, result := transfer(buffers, lengths, func(p []byte, done xila.Size) (int, error) {
		return hackpadfs.WriteAtFile(n.file, p, int64(position+done))
	})
	if result.OK() {
		result = k.synchronize(n)
	}
	return total, result
}

func (k *Kernel) synchronize(n *node) xila.Result {
	if n.status&(xila.StatusSynchronous|xila.StatusSynchronousDataOnly) == 0 {
		return xila.Success
	}
	return xila.ResultOf(hackpadfs.SyncFile(n.file))
}

func (k *Kernel) GetStatistics(ctx context.Context, file xila.Handle) (xila.Statistics, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return xila.Statistics{}, result
	}
	switch {
	case n.stream != nil:
		return xila.Statistics{FileSystem: k.device, Links: 1, Kind: xila.KindCharacterDevice}, xila.Success
	default:
		info, err := hackpadfs.Stat(k.fsys, n.name)
		if err != nil && n.file != nil {
			// unlinked while open
			info, err = n.file.Stat()
		}
		if err != nil {
			return xila.Statistics{}, xila.ResultOf(err)
		}
		return k.statistics(n.name, info), xila.Success
	}
}

func (k *Kernel) GetStatisticsFromPath(ctx context.Context, path string, follow bool) (xila.Statistics, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	name, result := k.name(path)
	if !result.OK() {
		return xila.Statistics{}, result
	}
	info, err := k.stat(name, follow)
	if err != nil {
		return xila.Statistics{}, xila.ResultOf(err)
	}
	return k.statistics(name, info), xila.Success
}

// stat falls back to following links when the namespace cannot lstat; such
// a namespace has no links to follow.
func (k *Kernel) stat(name string, follow bool) (hackpadfs.FileInfo, error) {
	if follow {
		return hackpadfs.Stat(k.fsys, name)
	}
	info, err := hackpadfs.Lstat(k.fsys, name)
	if errors.Is(err, hackpadfs.ErrNotImplemented) {
		return hackpadfs.Stat(k.fsys, name)
	}
	return info, err
}

func (k *Kernel) GetAccessMode(ctx context.Context, file xila.Handle) (xila.Mode, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return 0, result
	}
	return n.mode, xila.Success
}

func (k *Kernel) GetFlags(ctx context.Context, file xila.Handle) (xila.Status, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return 0, result
	}
	return n.status, xila.Success
}

func (k *Kernel) SetFlags(ctx context.Context, file xila.Handle, status xila.Status) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return result
	}
	n.status = status
	return xila.Success
}

func (k *Kernel) Flush(ctx context.Context, file xila.Handle, metadata bool) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return result
	}
	switch {
	case n.file != nil:
		return xila.ResultOf(hackpadfs.SyncFile(n.file))
	case n.stream != nil:
		if s, ok := n.stream.Writer.(interface{ Sync() error }); ok {
			s.Sync()
		}
	}
	return xila.Success
}

// Allocate grows the file so that offset+length bytes exist. It never
// shrinks it.
func (k *Kernel) Allocate(ctx context.Context, file xila.Handle, offset, length xila.Size) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.writable(file)
	if !result.OK() {
		return result
	}
	if n.file == nil {
		return xila.UnsupportedOperation
	}
	info, err := n.file.Stat()
	if err != nil {
		return xila.ResultOf(err)
	}
	if end := offset + length; end > xila.Size(info.Size()) {
		return xila.ResultOf(hackpadfs.TruncateFile(n.file, int64(end)))
	}
	return xila.Success
}

func (k *Kernel) Truncate(ctx context.Context, file xila.Handle, size xila.Size) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.writable(file)
	if !result.OK() {
		return result
	}
	if n.file == nil {
		return xila.UnsupportedOperation
	}
	return xila.ResultOf(hackpadfs.TruncateFile(n.file, int64(size)))
}

func (k *Kernel) SetTimes(ctx context.Context, file xila.Handle, access, modification xila.Time, flags xila.TimeFlags) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return result
	}
	if n.stream != nil {
		return xila.UnsupportedOperation
	}
	return k.setTimes(n.name, access, modification, flags)
}

// SetTimesFromPath cannot change a link itself: without follow it fails on
// symbolic links.
func (k *Kernel) SetTimesFromPath(ctx context.Context, path string, access, modification xila.Time, flags xila.TimeFlags, follow bool) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	name, result := k.name(path)
	if !result.OK() {
		return result
	}
	if !follow {
		info, err := k.stat(name, false)
		if err != nil {
			return xila.ResultOf(err)
		}
		if kindOf(info.Mode()) == xila.KindSymbolicLink {
			return xila.UnsupportedOperation
		}
	}
	return k.setTimes(name, access, modification, flags)
}

func (k *Kernel) setTimes(name string, access, modification xila.Time, flags xila.TimeFlags) xila.Result {
	if flags&xila.TimeAccess != 0 && flags&xila.TimeAccessNow != 0 ||
		flags&xila.TimeModification != 0 && flags&xila.TimeModificationNow != 0 {
		return xila.InvalidFlags
	}
	info, err := hackpadfs.Stat(k.fsys, name)
	if err != nil {
		return xila.ResultOf(err)
	}
	now := k.clock.Now()
	pick := func(t xila.Time, set, setNow xila.TimeFlags) time.Time {
		switch {
		case flags&setNow != 0:
			return now
		case flags&set != 0:
			return time.Unix(0, int64(t))
		default:
			return info.ModTime()
		}
	}
	atime := pick(access, xila.TimeAccess, xila.TimeAccessNow)
	mtime := pick(modification, xila.TimeModification, xila.TimeModificationNow)
	return xila.ResultOf(hackpadfs.Chtimes(k.fsys, name, atime, mtime))
}

func (k *Kernel) SetPosition(ctx context.Context, file xila.Handle, offset int64, whence xila.Whence) (xila.Size, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.getFile(file)
	if !result.OK() {
		return 0, result
	}
	if n.file == nil {
		return 0, xila.UnsupportedOperation
	}
	var origin int
	switch whence {
	case xila.WhenceStart:
		origin = io.SeekStart
	case xila.WhenceCurrent:
		origin = io.SeekCurrent
	case xila.WhenceEnd:
		origin = io.SeekEnd
	default:
		return 0, xila.InvalidParameter
	}
	if origin == io.SeekStart && offset < 0 {
		return 0, xila.InvalidParameter
	}
	position, err := hackpadfs.SeekFile(n.file, offset, origin)
	if err != nil {
		return 0, xila.ResultOf(err)
	}
	return xila.Size(position), xila.Success
}

// Advise accepts any hint for an open handle and ignores it.
func (k *Kernel) Advise(ctx context.Context, file xila.Handle, offset, length xila.Size, advice xila.Advice) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	if advice > xila.AdviceNoReuse {
		return xila.InvalidParameter
	}
	_, result := k.get(file)
	return result
}

func (k *Kernel) IsTerminal(ctx context.Context, file xila.Handle) (bool, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.get(file)
	if !result.OK() {
		return false, result
	}
	return n.stream != nil && n.stream.terminal(), xila.Success
}

// ReadLinkAt copies as much of the link target as fits into buffer.
func (k *Kernel) ReadLinkAt(ctx context.Context, directory xila.Handle, path string, buffer []byte) (xila.Size, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, result := k.get(directory); !result.OK() {
		return 0, result
	}
	name, result := k.name(path)
	if !result.OK() {
		return 0, result
	}
	fsys, ok := k.fsys.(readlinkFS)
	if !ok {
		return 0, xila.UnsupportedOperation
	}
	target, err := fsys.Readlink(name)
	if err != nil {
		return 0, xila.ResultOf(err)
	}
	return xila.Size(copy(buffer, target)), xila.Success
}

func (k *Kernel) Link(ctx context.Context, oldPath, newPath string) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	oldName, result := k.name(oldPath)
	if !result.OK() {
		return result
	}
	newName, result := k.name(newPath)
	if !result.OK() {
		return result
	}
	fsys, ok := k.fsys.(linkFS)
	if !ok {
		return xila.UnsupportedOperation
	}
	if err := fsys.Link(oldName, newName); err != nil {
		return xila.ResultOf(err)
	}
	k.inodes[newName] = k.inodeOf(oldName)
	return xila.Success
}

// CreateSymbolicLinkAt stores target verbatim at path.
func (k *Kernel) CreateSymbolicLinkAt(ctx context.Context, directory xila.Handle, target, path string) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, result := k.get(directory); !result.OK() {
		return result
	}
	name, result := k.name(path)
	if !result.OK() {
		return result
	}
	return xila.ResultOf(hackpadfs.Symlink(k.fsys, target, name))
}

func (k *Kernel) CreateDirectory(ctx context.Context, path string) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	name, result := k.name(path)
	if !result.OK() {
		return result
	}
	return xila.ResultOf(hackpadfs.Mkdir(k.fsys, name, 0o755))
}

func (k *Kernel) Rename(ctx context.Context, oldPath, newPath string) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	oldName, result := k.name(oldPath)
	if !result.OK() {
		return result
	}
	newName, result := k.name(newPath)
	if !result.OK() {
		return result
	}
	if err := hackpadfs.Rename(k.fsys, oldName, newName); err != nil {
		return xila.ResultOf(err)
	}
	k.inodes[newName] = k.inodeOf(oldName)
	delete(k.inodes, oldName)
	return xila.Success
}

// Remove deletes a file or an empty directory.
func (k *Kernel) Remove(ctx context.Context, path string) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	name, result := k.name(path)
	if !result.OK() {
		return result
	}
	if err := hackpadfs.Remove(k.fsys, name); err != nil {
		return xila.ResultOf(err)
	}
	delete(k.inodes, name)
	return xila.Success
}
