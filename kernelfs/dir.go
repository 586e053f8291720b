package kernelfs

import (
	"context"
	"path"
	"strings"

	"github.com/hack-pad/hackpadfs"
	"golang.org/x/exp/slices"

	"github.com/xila-project/xilawasi/xila"
)

// cursor is a snapshot of a directory's entries taken on open and on
// rewind. Its position is the index of the next entry.
type cursor struct {
	entries  []hackpadfs.DirEntry
	position uint64
}

func (k *Kernel) OpenDirectory(ctx context.Context, p string) (xila.Handle, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	name, result := k.name(p)
	if !result.OK() {
		return xila.InvalidHandle, result
	}
	return k.openDirectory(name)
}

func (k *Kernel) openDirectory(name string) (xila.Handle, xila.Result) {
	info, err := hackpadfs.Stat(k.fsys, name)
	if err != nil {
		return xila.InvalidHandle, xila.ResultOf(err)
	}
	if !info.IsDir() {
		return xila.InvalidHandle, xila.NotDirectory
	}
	entries, err := k.snapshot(name)
	if err != nil {
		return xila.InvalidHandle, xila.ResultOf(err)
	}
	return k.add(&node{name: name, dir: &cursor{entries: entries}, mode: xila.ModeRead})
}

func (k *Kernel) snapshot(name string) ([]hackpadfs.DirEntry, error) {
	entries, err := hackpadfs.ReadDir(k.fsys, name)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b hackpadfs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, nil
}

func (k *Kernel) getDirectory(h xila.Handle) (*node, xila.Result) {
	n, result := k.get(h)
	if !result.OK() {
		return nil, result
	}
	if n.dir == nil {
		return nil, xila.NotDirectory
	}
	return n, xila.Success
}

// ReadDirectory returns the entry at the cursor and advances it. Entries
// are in lexical order.
func (k *Kernel) ReadDirectory(ctx context.Context, directory xila.Handle) (xila.Entry, xila.Result) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.getDirectory(directory)
	if !result.OK() {
		return xila.Entry{}, result
	}
	c := n.dir
	if c.position >= uint64(len(c.entries)) {
		return xila.Entry{}, xila.Success
	}
	entry := c.entries[c.position]
	c.position++

	info, err := entry.Info()
	if err != nil {
		return xila.Entry{}, xila.ResultOf(err)
	}
	return xila.Entry{
		Name:  []byte(entry.Name()),
		Kind:  kindOf(info.Mode()),
		Size:  xila.Size(info.Size()),
		Inode: k.inodeOf(path.Join(n.name, entry.Name())),
	}, xila.Success
}

// RewindDirectory takes a fresh snapshot so entries created since the open
// become visible.
func (k *Kernel) RewindDirectory(ctx context.Context, directory xila.Handle) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.getDirectory(directory)
	if !result.OK() {
		return result
	}
	entries, err := k.snapshot(n.name)
	if err != nil {
		return xila.ResultOf(err)
	}
	n.dir.entries = entries
	n.dir.position = 0
	return xila.Success
}

// SetDirectoryPosition moves the cursor to an entry index. Positions past
// the end read as the end.
func (k *Kernel) SetDirectoryPosition(ctx context.Context, directory xila.Handle, position uint64) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, result := k.getDirectory(directory)
	if !result.OK() {
		return result
	}
	if end := uint64(len(n.dir.entries)); position > end {
		position = end
	}
	n.dir.position = position
	return xila.Success
}

func (k *Kernel) CloseDirectory(ctx context.Context, directory xila.Handle) xila.Result {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, result := k.getDirectory(directory); !result.OK() {
		return result
	}
	delete(k.nodes, directory)
	return xila.Success
}
