// Package kernelfs is a Xila kernel file system backed by a hackpadfs
// namespace. It hands out handles for files, directories and the three
// standard streams and is safe for concurrent use.
package kernelfs

import (
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"

	"github.com/xila-project/xilawasi/xila"
)

var _ xila.Kernel = (*Kernel)(nil)

// Kernel implements xila.Kernel over a hackpadfs.FS. Paths given to it are
// absolute; "/" is the root of the wrapped file system.
type Kernel struct {
	fsys   hackpadfs.FS
	clock  Clock
	device uint32

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	mu     sync.Mutex
	nodes  map[xila.Handle]*node
	next   xila.Handle
	inodes map[string]xila.Inode
	inode  xila.Inode
	start  int64
}

type Option func(*Kernel)

// WithStdin sets the reader behind xila.StandardIn.
func WithStdin(r io.Reader) Option {
	return func(k *Kernel) {
		k.stdin = r
	}
}

// WithStdout sets the writer behind xila.StandardOut.
func WithStdout(w io.Writer) Option {
	return func(k *Kernel) {
		k.stdout = w
	}
}

// WithStderr sets the writer behind xila.StandardErr.
func WithStderr(w io.Writer) Option {
	return func(k *Kernel) {
		k.stderr = w
	}
}

// WithClock sets the clock used for timestamps and the clock calls.
func WithClock(clock Clock) Option {
	return func(k *Kernel) {
		k.clock = clock
	}
}

// WithDevice sets the file system identifier reported in statistics.
func WithDevice(id uint32) Option {
	return func(k *Kernel) {
		k.device = id
	}
}

// New creates a kernel over fsys. A nil fsys leaves only the standard
// streams; every path call then fails with xila.UnsupportedOperation.
func New(fsys hackpadfs.FS, opts ...Option) *Kernel {
	k := &Kernel{
		fsys:   fsys,
		nodes:  make(map[xila.Handle]*node),
		next:   xila.StandardErr + 1,
		inodes: make(map[string]xila.Inode),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.clock == nil {
		k.clock = SystemClock
	}
	k.start = k.clock.Now().UnixNano()
	k.nodes[xila.StandardIn] = &node{stream: newStream(k.stdin), mode: xila.ModeRead}
	k.nodes[xila.StandardOut] = &node{stream: newStream(k.stdout), mode: xila.ModeWrite}
	k.nodes[xila.StandardErr] = &node{stream: newStream(k.stderr), mode: xila.ModeWrite}
	return k
}

// node is the state behind a handle. Exactly one of file, dir and stream is
// set.
type node struct {
	name   string
	file   hackpadfs.File
	dir    *cursor
	stream *stream
	mode   xila.Mode
	status xila.Status
}

func (k *Kernel) add(n *node) (xila.Handle, xila.Result) {
	start := k.next
	for {
		h := k.next
		k.next++
		if k.next == xila.InvalidHandle {
			k.next = xila.StandardErr + 1
		}
		if _, taken := k.nodes[h]; !taken {
			k.nodes[h] = n
			return h, xila.Success
		}
		if k.next == start {
			return xila.InvalidHandle, xila.TooManyOpenFiles
		}
	}
}

func (k *Kernel) get(h xila.Handle) (*node, xila.Result) {
	n, ok := k.nodes[h]
	if !ok {
		return nil, xila.InvalidIdentifier
	}
	return n, xila.Success
}

func (k *Kernel) getFile(h xila.Handle) (*node, xila.Result) {
	n, result := k.get(h)
	if !result.OK() {
		return nil, result
	}
	if n.dir != nil {
		return nil, xila.IsDirectory
	}
	return n, xila.Success
}

// name converts an absolute kernel path into a hackpadfs name.
func (k *Kernel) name(p string) (string, xila.Result) {
	if k.fsys == nil {
		return "", xila.UnsupportedOperation
	}
	if !strings.HasPrefix(p, "/") {
		return "", xila.InvalidPath
	}
	name := strings.TrimPrefix(path.Clean(p), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", xila.InvalidPath
	}
	return name, xila.Success
}

// inodeOf returns a stable inode number for name, assigning one on first
// sight.
func (k *Kernel) inodeOf(name string) xila.Inode {
	if ino, ok := k.inodes[name]; ok {
		return ino
	}
	k.inode++
	k.inodes[name] = k.inode
	return k.inode
}

func (k *Kernel) statistics(name string, info fs.FileInfo) xila.Statistics {
	t := xila.Time(info.ModTime().UnixNano())
	return xila.Statistics{
		FileSystem:       k.device,
		Inode:            k.inodeOf(name),
		Links:            1,
		Size:             xila.Size(info.Size()),
		LastAccess:       t,
		LastModification: t,
		LastStatusChange: t,
		Kind:             kindOf(info.Mode()),
	}
}

func kindOf(mode fs.FileMode) xila.Kind {
	switch {
	case mode.IsDir():
		return xila.KindDirectory
	case mode.IsRegular():
		return xila.KindFile
	case mode&fs.ModeSymlink != 0:
		return xila.KindSymbolicLink
	case mode&fs.ModeCharDevice != 0:
		return xila.KindCharacterDevice
	case mode&fs.ModeDevice != 0:
		return xila.KindBlockDevice
	case mode&fs.ModeNamedPipe != 0:
		return xila.KindPipe
	case mode&fs.ModeSocket != 0:
		return xila.KindSocket
	default:
		return xila.KindUnknown
	}
}

func (k *Kernel) IsStdin(file xila.Handle) bool  { return file == xila.StandardIn }
func (k *Kernel) IsStdout(file xila.Handle) bool { return file == xila.StandardOut }
func (k *Kernel) IsStderr(file xila.Handle) bool { return file == xila.StandardErr }
