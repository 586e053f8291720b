package xilawasi

import (
	"context"

	"github.com/xila-project/xilawasi/xila"
)

type call struct {
	Op   string
	Args []any
}

// recorder is a xila.Kernel that records every call. Each operation returns
// results[op], Success by default, along with the canned values below.
type recorder struct {
	calls   []call
	results map[string]xila.Result

	handle   xila.Handle
	stat     xila.Statistics
	entries  []xila.Entry
	mode     xila.Mode
	status   xila.Status
	size     xila.Size
	position xila.Size
	terminal bool
	link     string
	time     xila.Time
}

var _ xila.Kernel = (*recorder)(nil)

func newRecorder() *recorder {
	return &recorder{results: make(map[string]xila.Result), handle: 7}
}

func (k *recorder) record(op string, args ...any) xila.Result {
	k.calls = append(k.calls, call{Op: op, Args: args})
	return k.results[op]
}

func (k *recorder) GetStatistics(ctx context.Context, file xila.Handle) (xila.Statistics, xila.Result) {
	return k.stat, k.record("GetStatistics", file)
}

func (k *recorder) GetStatisticsFromPath(ctx context.Context, path string, follow bool) (xila.Statistics, xila.Result) {
	return k.stat, k.record("GetStatisticsFromPath", path, follow)
}

func (k *recorder) GetAccessMode(ctx context.Context, file xila.Handle) (xila.Mode, xila.Result) {
	return k.mode, k.record("GetAccessMode", file)
}

func (k *recorder) GetFlags(ctx context.Context, file xila.Handle) (xila.Status, xila.Result) {
	return k.status, k.record("GetFlags", file)
}

func (k *recorder) SetFlags(ctx context.Context, file xila.Handle, status xila.Status) xila.Result {
	return k.record("SetFlags", file, status)
}

func (k *recorder) Flush(ctx context.Context, file xila.Handle, metadata bool) xila.Result {
	return k.record("Flush", file, metadata)
}

func (k *recorder) Open(ctx context.Context, path string, mode xila.Mode, open xila.Open, status xila.Status) (xila.Handle, xila.Result) {
	return k.handle, k.record("Open", path, mode, open, status)
}

func (k *recorder) Close(ctx context.Context, file xila.Handle) xila.Result {
	return k.record("Close", file)
}

func (k *recorder) ReadVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size) (xila.Size, xila.Result) {
	return k.size, k.record("ReadVectored", file, buffers, lengths)
}

func (k *recorder) WriteVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size) (xila.Size, xila.Result) {
	return k.size, k.record("WriteVectored", file, buffers, lengths)
}

func (k *recorder) ReadAtPositionVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size, position xila.Size) (xila.Size, xila.Result) {
	return k.size, k.record("ReadAtPositionVectored", file, buffers, lengths, position)
}

func (k *recorder) WriteAtPositionVectored(ctx context.Context, file xila.Handle, buffers [][]byte, lengths []xila.Size, position xila.Size) (xila.Size, xila.Result) {
	return k.size, k.record("WriteAtPositionVectored", file, buffers, lengths, position)
}

func (k *recorder) Allocate(ctx context.Context, file xila.Handle, offset, length xila.Size) xila.Result {
	return k.record("Allocate", file, offset, length)
}

func (k *recorder) Truncate(ctx context.Context, file xila.Handle, size xila.Size) xila.Result {
	return k.record("Truncate", file, size)
}

func (k *recorder) SetTimes(ctx context.Context, file xila.Handle, access, modification xila.Time, flags xila.TimeFlags) xila.Result {
	return k.record("SetTimes", file, access, modification, flags)
}

func (k *recorder) SetTimesFromPath(ctx context.Context, path string, access, modification xila.Time, flags xila.TimeFlags, follow bool) xila.Result {
	return k.record("SetTimesFromPath", path, access, modification, flags, follow)
}

func (k *recorder) SetPosition(ctx context.Context, file xila.Handle, offset int64, whence xila.Whence) (xila.Size, xila.Result) {
	return k.position, k.record("SetPosition", file, offset, whence)
}

func (k *recorder) Advise(ctx context.Context, file xila.Handle, offset, length xila.Size, advice xila.Advice) xila.Result {
	return k.record("Advise", file, offset, length, advice)
}

func (k *recorder) IsTerminal(ctx context.Context, file xila.Handle) (bool, xila.Result) {
	return k.terminal, k.record("IsTerminal", file)
}

func (k *recorder) ReadLinkAt(ctx context.Context, directory xila.Handle, path string, buffer []byte) (xila.Size, xila.Result) {
	n := copy(buffer, k.link)
	return xila.Size(n), k.record("ReadLinkAt", directory, path)
}

func (k *recorder) Link(ctx context.Context, oldPath, newPath string) xila.Result {
	return k.record("Link", oldPath, newPath)
}

func (k *recorder) CreateSymbolicLinkAt(ctx context.Context, directory xila.Handle, target, path string) xila.Result {
	return k.record("CreateSymbolicLinkAt", directory, target, path)
}

func (k *recorder) CreateDirectory(ctx context.Context, path string) xila.Result {
	return k.record("CreateDirectory", path)
}

func (k *recorder) Rename(ctx context.Context, oldPath, newPath string) xila.Result {
	return k.record("Rename", oldPath, newPath)
}

func (k *recorder) Remove(ctx context.Context, path string) xila.Result {
	return k.record("Remove", path)
}

func (k *recorder) IsStdin(file xila.Handle) bool  { return file == xila.StandardIn }
func (k *recorder) IsStdout(file xila.Handle) bool { return file == xila.StandardOut }
func (k *recorder) IsStderr(file xila.Handle) bool { return file == xila.StandardErr }

func (k *recorder) OpenDirectory(ctx context.Context, path string) (xila.Handle, xila.Result) {
	return k.handle, k.record("OpenDirectory", path)
}

// ReadDirectory hands out entries in order, then nil-named ones.
func (k *recorder) ReadDirectory(ctx context.Context, directory xila.Handle) (xila.Entry, xila.Result) {
	result := k.record("ReadDirectory", directory)
	if !result.OK() || len(k.entries) == 0 {
		return xila.Entry{}, result
	}
	entry := k.entries[0]
	k.entries = k.entries[1:]
	return entry, result
}

func (k *recorder) RewindDirectory(ctx context.Context, directory xila.Handle) xila.Result {
	return k.record("RewindDirectory", directory)
}

func (k *recorder) SetDirectoryPosition(ctx context.Context, directory xila.Handle, position uint64) xila.Result {
	return k.record("SetDirectoryPosition", directory, position)
}

func (k *recorder) CloseDirectory(ctx context.Context, directory xila.Handle) xila.Result {
	return k.record("CloseDirectory", directory)
}

func (k *recorder) ClockResolution(ctx context.Context, clock xila.ClockID) (xila.Time, xila.Result) {
	return k.time, k.record("ClockResolution", clock)
}

func (k *recorder) ClockTime(ctx context.Context, clock xila.ClockID, precision xila.Time) (xila.Time, xila.Result) {
	return k.time, k.record("ClockTime", clock, precision)
}
