package kernelfs

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/require"

	"github.com/xila-project/xilawasi/xila"
)

var epoch = time.Date(2023, time.August, 1, 12, 0, 0, 0, time.UTC)

func newKernel(t *testing.T, opts ...Option) *Kernel {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	return New(fsys, append([]Option{WithClock(FixedClock(epoch))}, opts...)...)
}

func buffers(parts ...string) ([][]byte, []xila.Size) {
	bufs := make([][]byte, len(parts))
	lengths := make([]xila.Size, len(parts))
	for i, p := range parts {
		bufs[i] = []byte(p)
		lengths[i] = xila.Size(len(p))
	}
	return bufs, lengths
}

func create(t *testing.T, k *Kernel, path, content string) {
	t.Helper()
	ctx := context.Background()
	h, result := k.Open(ctx, path, xila.ModeWrite, xila.OpenCreate|xila.OpenTruncate, 0)
	require.Equal(t, xila.Success, result)
	bufs, lengths := buffers(content)
	n, result := k.WriteVectored(ctx, h, bufs, lengths)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(len(content)), n)
	require.Equal(t, xila.Success, k.Close(ctx, h))
}

func contents(t *testing.T, k *Kernel, path string) string {
	t.Helper()
	ctx := context.Background()
	h, result := k.Open(ctx, path, xila.ModeRead, 0, 0)
	require.Equal(t, xila.Success, result)
	defer k.Close(ctx, h)
	buf := make([]byte, 256)
	n, result := k.ReadVectored(ctx, h, [][]byte{buf}, []xila.Size{xila.Size(len(buf))})
	require.Equal(t, xila.Success, result)
	return string(buf[:n])
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)

	h, result := k.Open(ctx, "/a.txt", xila.ModeReadWrite, xila.OpenCreate, 0)
	require.Equal(t, xila.Success, result)
	require.True(t, h > xila.StandardErr)

	bufs, lengths := buffers("hello", " world")
	n, result := k.WriteVectored(ctx, h, bufs, lengths)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(11), n)

	pos, result := k.SetPosition(ctx, h, 0, xila.WhenceStart)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(0), pos)

	first, second := make([]byte, 4), make([]byte, 20)
	n, result = k.ReadVectored(ctx, h, [][]byte{first, second}, []xila.Size{4, 20})
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(11), n)
	require.Equal(t, "hell", string(first))
	require.Equal(t, "o world", string(second[:7]))

	pos, result = k.SetPosition(ctx, h, -5, xila.WhenceEnd)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(6), pos)

	_, result = k.SetPosition(ctx, h, -1, xila.WhenceStart)
	require.Equal(t, xila.InvalidParameter, result)

	require.Equal(t, xila.Success, k.Close(ctx, h))
	require.Equal(t, xila.InvalidIdentifier, k.Close(ctx, h))
}

func TestPositioned(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/p.txt", "hello world")

	h, result := k.Open(ctx, "/p.txt", xila.ModeReadWrite, 0, 0)
	require.Equal(t, xila.Success, result)

	bufs, lengths := buffers("WOR", "LD")
	n, result := k.WriteAtPositionVectored(ctx, h, bufs, lengths, 6)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(5), n)

	// positioned calls leave the cursor alone
	pos, result := k.SetPosition(ctx, h, 0, xila.WhenceCurrent)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(0), pos)

	buf := make([]byte, 5)
	n, result = k.ReadAtPositionVectored(ctx, h, [][]byte{buf}, []xila.Size{5}, 6)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Size(5), n)
	require.Equal(t, "WORLD", string(buf))
	require.Equal(t, xila.Success, k.Close(ctx, h))

	require.Equal(t, "hello WORLD", contents(t, k, "/p.txt"))
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/log", "one")

	h, result := k.Open(ctx, "/log", xila.ModeWrite, 0, xila.StatusAppend)
	require.Equal(t, xila.Success, result)
	status, result := k.GetFlags(ctx, h)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.StatusAppend, status)

	bufs, lengths := buffers(",two")
	_, result = k.WriteVectored(ctx, h, bufs, lengths)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Success, k.Close(ctx, h))

	require.Equal(t, "one,two", contents(t, k, "/log"))
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/exists", "")

	_, result := k.Open(ctx, "/missing", xila.ModeRead, 0, 0)
	require.Equal(t, xila.NotFound, result)

	_, result = k.Open(ctx, "/exists", xila.ModeWrite, xila.OpenCreateOnly, 0)
	require.Equal(t, xila.AlreadyExists, result)
	_, result = k.Open(ctx, "/exists", xila.ModeWrite, xila.OpenCreate|xila.OpenCreateOnly, 0)
	require.Equal(t, xila.AlreadyExists, result)
	h, result := k.Open(ctx, "/fresh", xila.ModeWrite, xila.OpenCreateOnly, 0)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Success, k.Close(ctx, h))

	_, result = k.Open(ctx, "/exists", 0, 0, 0)
	require.Equal(t, xila.InvalidMode, result)

	_, result = k.Open(ctx, "relative", xila.ModeRead, 0, 0)
	require.Equal(t, xila.InvalidPath, result)
}

func TestAccessMode(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/ro", "data")

	h, result := k.Open(ctx, "/ro", xila.ModeRead, 0, 0)
	require.Equal(t, xila.Success, result)
	mode, result := k.GetAccessMode(ctx, h)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.ModeRead, mode)

	bufs, lengths := buffers("nope")
	_, result = k.WriteVectored(ctx, h, bufs, lengths)
	require.Equal(t, xila.InvalidFile, result)
	require.Equal(t, xila.InvalidFile, k.Truncate(ctx, h, 0))
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t, WithDevice(9))
	create(t, k, "/s.txt", "12345")

	h, result := k.Open(ctx, "/s.txt", xila.ModeRead, 0, 0)
	require.Equal(t, xila.Success, result)
	byHandle, result := k.GetStatistics(ctx, h)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.KindFile, byHandle.Kind)
	require.Equal(t, xila.Size(5), byHandle.Size)
	require.Equal(t, uint32(9), byHandle.FileSystem)
	require.NotZero(t, byHandle.Inode)

	byPath, result := k.GetStatisticsFromPath(ctx, "/s.txt", true)
	require.Equal(t, xila.Success, result)
	require.Equal(t, byHandle.Inode, byPath.Inode)

	root, result := k.GetStatisticsFromPath(ctx, "/", false)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.KindDirectory, root.Kind)
	require.NotEqual(t, byHandle.Inode, root.Inode)
}

func TestSizeChanges(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/grow", "abc")

	h, result := k.Open(ctx, "/grow", xila.ModeReadWrite, 0, 0)
	require.Equal(t, xila.Success, result)

	require.Equal(t, xila.Success, k.Allocate(ctx, h, 10, 10))
	stat, _ := k.GetStatistics(ctx, h)
	require.Equal(t, xila.Size(20), stat.Size)

	// allocating inside the file never shrinks it
	require.Equal(t, xila.Success, k.Allocate(ctx, h, 0, 1))
	stat, _ = k.GetStatistics(ctx, h)
	require.Equal(t, xila.Size(20), stat.Size)

	require.Equal(t, xila.Success, k.Truncate(ctx, h, 2))
	stat, _ = k.GetStatistics(ctx, h)
	require.Equal(t, xila.Size(2), stat.Size)
}

func TestSetTimes(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/t", "")

	later := epoch.Add(time.Hour)
	result := k.SetTimesFromPath(ctx, "/t", 0, xila.Time(later.UnixNano()), xila.TimeModification, true)
	require.Equal(t, xila.Success, result)
	stat, _ := k.GetStatisticsFromPath(ctx, "/t", true)
	require.Equal(t, xila.Time(later.UnixNano()), stat.LastModification)

	h, _ := k.Open(ctx, "/t", xila.ModeRead, 0, 0)
	require.Equal(t, xila.Success, k.SetTimes(ctx, h, 0, 0, xila.TimeModificationNow))
	stat, _ = k.GetStatistics(ctx, h)
	require.Equal(t, xila.Time(epoch.UnixNano()), stat.LastModification)

	require.Equal(t, xila.InvalidFlags, k.SetTimes(ctx, h, 0, 0, xila.TimeAccess|xila.TimeAccessNow))
	require.Equal(t, xila.UnsupportedOperation, k.SetTimes(ctx, xila.StandardOut, 0, 0, xila.TimeAccessNow))
}

func TestDirectories(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	require.Equal(t, xila.Success, k.CreateDirectory(ctx, "/d"))
	require.Equal(t, xila.AlreadyExists, k.CreateDirectory(ctx, "/d"))
	create(t, k, "/d/b", "bb")
	create(t, k, "/d/a", "a")
	require.Equal(t, xila.Success, k.CreateDirectory(ctx, "/d/c"))

	dir, result := k.OpenDirectory(ctx, "/d")
	require.Equal(t, xila.Success, result)

	var names []string
	for {
		entry, result := k.ReadDirectory(ctx, dir)
		require.Equal(t, xila.Success, result)
		if entry.Name == nil {
			break
		}
		names = append(names, string(entry.Name))
		require.NotZero(t, entry.Inode)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)

	require.Equal(t, xila.Success, k.SetDirectoryPosition(ctx, dir, 1))
	entry, _ := k.ReadDirectory(ctx, dir)
	require.Equal(t, "b", string(entry.Name))
	require.Equal(t, xila.KindFile, entry.Kind)
	require.Equal(t, xila.Size(2), entry.Size)

	require.Equal(t, xila.Success, k.SetDirectoryPosition(ctx, dir, 100))
	entry, _ = k.ReadDirectory(ctx, dir)
	require.Nil(t, entry.Name)

	create(t, k, "/d/0", "")
	require.Equal(t, xila.Success, k.RewindDirectory(ctx, dir))
	entry, _ = k.ReadDirectory(ctx, dir)
	require.Equal(t, "0", string(entry.Name))

	// the inode of an entry matches the one reported by stat
	stat, _ := k.GetStatisticsFromPath(ctx, "/d/0", true)
	require.Equal(t, stat.Inode, entry.Inode)

	require.Equal(t, xila.Success, k.CloseDirectory(ctx, dir))
	_, result = k.ReadDirectory(ctx, dir)
	require.Equal(t, xila.InvalidIdentifier, result)
}

func TestDirectoryHandles(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/file", "x")

	_, result := k.OpenDirectory(ctx, "/file")
	require.Equal(t, xila.NotDirectory, result)

	root, result := k.Open(ctx, "/", xila.ModeRead, 0, 0)
	require.Equal(t, xila.Success, result)
	stat, result := k.GetStatistics(ctx, root)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.KindDirectory, stat.Kind)

	_, result = k.ReadVectored(ctx, root, [][]byte{make([]byte, 1)}, []xila.Size{1})
	require.Equal(t, xila.IsDirectory, result)

	file, _ := k.Open(ctx, "/file", xila.ModeRead, 0, 0)
	_, result = k.ReadDirectory(ctx, file)
	require.Equal(t, xila.NotDirectory, result)

	require.Equal(t, xila.Success, k.Close(ctx, root))
}

func TestNamespaceChanges(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	create(t, k, "/old", "moved")
	before, _ := k.GetStatisticsFromPath(ctx, "/old", true)

	require.Equal(t, xila.Success, k.Rename(ctx, "/old", "/new"))
	_, result := k.GetStatisticsFromPath(ctx, "/old", true)
	require.Equal(t, xila.NotFound, result)
	after, result := k.GetStatisticsFromPath(ctx, "/new", true)
	require.Equal(t, xila.Success, result)
	require.Equal(t, before.Inode, after.Inode)
	require.Equal(t, "moved", contents(t, k, "/new"))

	require.Equal(t, xila.Success, k.Remove(ctx, "/new"))
	_, result = k.GetStatisticsFromPath(ctx, "/new", true)
	require.Equal(t, xila.NotFound, result)
	require.Equal(t, xila.NotFound, k.Remove(ctx, "/new"))
}

func TestStandardStreams(t *testing.T) {
	ctx := context.Background()
	var stdout, stderr bytes.Buffer
	k := newKernel(t, WithStdin(strings.NewReader("input")), WithStdout(&stdout), WithStderr(&stderr))

	buf := make([]byte, 16)
	n, result := k.ReadVectored(ctx, xila.StandardIn, [][]byte{buf}, []xila.Size{16})
	require.Equal(t, xila.Success, result)
	require.Equal(t, "input", string(buf[:n]))

	n, result = k.ReadVectored(ctx, xila.StandardIn, [][]byte{buf}, []xila.Size{16})
	require.Equal(t, xila.Success, result)
	require.Zero(t, n)

	bufs, lengths := buffers("out", "put")
	_, result = k.WriteVectored(ctx, xila.StandardOut, bufs, lengths)
	require.Equal(t, xila.Success, result)
	bufs, lengths = buffers("oops")
	_, result = k.WriteVectored(ctx, xila.StandardErr, bufs, lengths)
	require.Equal(t, xila.Success, result)
	require.Equal(t, "output", stdout.String())
	require.Equal(t, "oops", stderr.String())

	stat, result := k.GetStatistics(ctx, xila.StandardOut)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.KindCharacterDevice, stat.Kind)

	tty, result := k.IsTerminal(ctx, xila.StandardOut)
	require.Equal(t, xila.Success, result)
	require.False(t, tty)

	_, result = k.SetPosition(ctx, xila.StandardOut, 0, xila.WhenceStart)
	require.Equal(t, xila.UnsupportedOperation, result)
	_, result = k.ReadAtPositionVectored(ctx, xila.StandardIn, [][]byte{buf}, []xila.Size{16}, 0)
	require.Equal(t, xila.UnsupportedOperation, result)

	_, result = k.WriteVectored(ctx, xila.StandardIn, bufs, lengths)
	require.Equal(t, xila.InvalidFile, result)

	require.True(t, k.IsStdin(xila.StandardIn))
	require.True(t, k.IsStdout(xila.StandardOut))
	require.True(t, k.IsStderr(xila.StandardErr))
	require.False(t, k.IsStdout(xila.StandardErr))
}

func TestMissingStreams(t *testing.T) {
	ctx := context.Background()
	k := New(nil)

	n, result := k.ReadVectored(ctx, xila.StandardIn, [][]byte{make([]byte, 4)}, []xila.Size{4})
	require.Equal(t, xila.Success, result)
	require.Zero(t, n)

	bufs, lengths := buffers("lost")
	_, result = k.WriteVectored(ctx, xila.StandardOut, bufs, lengths)
	require.Equal(t, xila.InvalidParameter, result)
}

func TestNoNamespace(t *testing.T) {
	ctx := context.Background()
	k := New(nil)

	_, result := k.Open(ctx, "/x", xila.ModeRead, 0, 0)
	require.Equal(t, xila.UnsupportedOperation, result)
	_, result = k.OpenDirectory(ctx, "/")
	require.Equal(t, xila.UnsupportedOperation, result)
	require.Equal(t, xila.UnsupportedOperation, k.CreateDirectory(ctx, "/d"))
	_, result = k.GetStatisticsFromPath(ctx, "/", true)
	require.Equal(t, xila.UnsupportedOperation, result)
}

func TestInvalidHandle(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)
	const bogus = xila.Handle(1234)

	_, result := k.GetStatistics(ctx, bogus)
	require.Equal(t, xila.InvalidIdentifier, result)
	_, result = k.ReadVectored(ctx, bogus, nil, nil)
	require.Equal(t, xila.InvalidIdentifier, result)
	require.Equal(t, xila.InvalidIdentifier, k.Flush(ctx, bogus, true))
	require.Equal(t, xila.InvalidIdentifier, k.Advise(ctx, bogus, 0, 0, xila.AdviceNormal))
	require.Equal(t, xila.InvalidIdentifier, k.CloseDirectory(ctx, bogus))
	require.Equal(t, xila.InvalidParameter, k.Advise(ctx, xila.StandardIn, 0, 0, xila.AdviceNoReuse+1))
}

func TestClocks(t *testing.T) {
	ctx := context.Background()
	k := newKernel(t)

	now, result := k.ClockTime(ctx, xila.ClockRealtime, 0)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Time(epoch.UnixNano()), now)

	elapsed, result := k.ClockTime(ctx, xila.ClockMonotonic, 0)
	require.Equal(t, xila.Success, result)
	require.Zero(t, elapsed)

	res, result := k.ClockResolution(ctx, xila.ClockProcessCPUTime)
	require.Equal(t, xila.Success, result)
	require.Equal(t, xila.Time(1), res)

	_, result = k.ClockResolution(ctx, xila.ClockThreadCPUTime+1)
	require.Equal(t, xila.InvalidParameter, result)
	_, result = k.ClockTime(ctx, xila.ClockThreadCPUTime+1, 0)
	require.Equal(t, xila.InvalidParameter, result)
}
