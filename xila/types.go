// Package xila describes the file system surface of the Xila kernel as seen
// from the WebAssembly virtual machine: handle based calls, the kernel's own
// result codes, and its open/status/mode/whence/kind enumerations.
//
// The integer value of every constant in this package is part of the kernel
// ABI and must not change.
package xila

// Handle is an opaque kernel capability for an open file, directory or socket.
type Handle uint64

// InvalidHandle is never returned by the kernel for an open resource.
const InvalidHandle Handle = 0xFFFFFFFFFFFFFFFF

// Stdio handles, as handed to the virtual machine at startup.
const (
	StandardIn  Handle = 0
	StandardOut Handle = 1
	StandardErr Handle = 2
)

type (
	Size  = uint64 // file sizes, offsets and byte counts
	Inode = uint64
	Time  = uint64 // nanoseconds
)

// Kind is the kernel's file kind.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
	KindBlockDevice
	KindCharacterDevice
	KindPipe
	KindSocket
	KindSymbolicLink
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindDirectory:
		return "Directory"
	case KindBlockDevice:
		return "BlockDevice"
	case KindCharacterDevice:
		return "CharacterDevice"
	case KindPipe:
		return "Pipe"
	case KindSocket:
		return "Socket"
	case KindSymbolicLink:
		return "SymbolicLink"
	default:
		return "Unknown"
	}
}

// Mode holds the two orthogonal access bits of an open file.
type Mode uint8

const (
	ModeRead Mode = 1 << iota
	ModeWrite

	ModeReadWrite = ModeRead | ModeWrite
)

// Open controls file creation on open.
type Open uint8

const (
	OpenCreate Open = 1 << iota
	OpenCreateOnly
	OpenTruncate
)

// Status holds the state flags of an open file.
type Status uint8

const (
	StatusAppend Status = 1 << iota
	StatusNonBlocking
	StatusSynchronous
	StatusSynchronousDataOnly
)

// Whence is the origin of a position change.
type Whence uint8

const (
	WhenceStart Whence = iota
	WhenceCurrent
	WhenceEnd
)

// TimeFlags select which timestamps a set-times call updates.
type TimeFlags uint8

const (
	TimeAccess TimeFlags = 1 << iota
	TimeAccessNow
	TimeModification
	TimeModificationNow
)

// Advice is an access pattern hint. Values follow posix_fadvise ordering.
type Advice uint8

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceWillNeed
	AdviceDontNeed
	AdviceNoReuse
)

// ClockID identifies a kernel clock.
type ClockID uint32

const (
	ClockRealtime ClockID = iota
	ClockMonotonic
	ClockProcessCPUTime
	ClockThreadCPUTime
)

// Statistics is the kernel's file status record.
type Statistics struct {
	FileSystem       uint32
	Inode            Inode
	Links            uint64
	Size             Size
	LastAccess       Time
	LastModification Time
	LastStatusChange Time
	Kind             Kind
}

// Entry is one directory entry. Name is nil when no entry was produced.
type Entry struct {
	Name  []byte
	Kind  Kind
	Size  Size
	Inode Inode
}
