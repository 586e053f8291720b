package xilawasi

import (
	"github.com/stealthrocket/wasi-go"
	"golang.org/x/exp/constraints"

	"github.com/xila-project/xilawasi/libc"
	"github.com/xila-project/xilawasi/xila"
)

type bit[G, H constraints.Unsigned] struct {
	guest G
	host  H
}

// toHost ORs in the host bit of every set guest bit. Unlisted guest bits
// are dropped.
func toHost[G, H constraints.Unsigned](table []bit[G, H], flags G) (out H) {
	for _, b := range table {
		if flags&b.guest != 0 {
			out |= b.host
		}
	}
	return
}

func toGuest[G, H constraints.Unsigned](table []bit[G, H], flags H) (out G) {
	for _, b := range table {
		if flags&b.host != 0 {
			out |= b.guest
		}
	}
	return
}

var openBits = []bit[wasi.OpenFlags, xila.Open]{
	{wasi.OpenCreate, xila.OpenCreate},
	{wasi.OpenExclusive, xila.OpenCreateOnly},
	{wasi.OpenTruncate, xila.OpenTruncate},
}

var statusBits = []bit[wasi.FDFlags, xila.Status]{
	{wasi.Append, xila.StatusAppend},
	{wasi.Sync, xila.StatusSynchronous},
	{wasi.DSync, xila.StatusSynchronousDataOnly},
	{wasi.NonBlock, xila.StatusNonBlocking},
}

var timeBits = []bit[wasi.FSTFlags, xila.TimeFlags]{
	{wasi.AccessTime, xila.TimeAccess},
	{wasi.AccessTimeNow, xila.TimeAccessNow},
	{wasi.ModifyTime, xila.TimeModification},
	{wasi.ModifyTimeNow, xila.TimeModificationNow},
}

// OpenOf translates path_open oflags. OpenDirectory has no host bit; it
// selects a different kernel call instead.
func OpenOf(flags wasi.OpenFlags) xila.Open {
	return toHost(openBits, flags)
}

// StatusOf translates descriptor flags. RSync has no host equivalent.
func StatusOf(flags wasi.FDFlags) xila.Status {
	return toHost(statusBits, flags)
}

// FDFlagsOf translates host status flags back into descriptor flags.
func FDFlagsOf(status xila.Status) wasi.FDFlags {
	return toGuest(statusBits, status)
}

// TimeFlagsOf translates fst flags.
func TimeFlagsOf(flags wasi.FSTFlags) xila.TimeFlags {
	return toHost(timeBits, flags)
}

// FollowSymlinks extracts the only lookup flag the kernel understands.
func FollowSymlinks(flags wasi.LookupFlags) bool {
	return flags.Has(wasi.SymlinkFollow)
}

// ModeOf translates a wasi-libc access mode into host access bits.
// Out of range modes carry no bits.
func ModeOf(mode libc.AccessMode) xila.Mode {
	switch mode {
	case libc.AccessModeReadOnly:
		return xila.ModeRead
	case libc.AccessModeWriteOnly:
		return xila.ModeWrite
	case libc.AccessModeReadWrite:
		return xila.ModeReadWrite
	default:
		return 0
	}
}

// AccessModeOf translates host access bits. The write bit is tested first;
// neither bit set reads as read-only.
func AccessModeOf(mode xila.Mode) libc.AccessMode {
	if mode&xila.ModeWrite != 0 {
		if mode&xila.ModeRead != 0 {
			return libc.AccessModeReadWrite
		}
		return libc.AccessModeWriteOnly
	}
	return libc.AccessModeReadOnly
}

// WhenceOf translates a seek origin; unknown origins seek from the start.
func WhenceOf(whence wasi.Whence) xila.Whence {
	switch whence {
	case wasi.SeekCurrent:
		return xila.WhenceCurrent
	case wasi.SeekEnd:
		return xila.WhenceEnd
	default:
		return xila.WhenceStart
	}
}

// AdviceOf translates access pattern advice; both sides share posix ordering.
func AdviceOf(advice wasi.Advice) xila.Advice {
	return xila.Advice(advice)
}

// ClockOf translates a clock identifier.
func ClockOf(id wasi.ClockID) xila.ClockID {
	return xila.ClockID(id)
}
