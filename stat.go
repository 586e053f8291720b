package xilawasi

import (
	"github.com/stealthrocket/wasi-go"

	"github.com/xila-project/xilawasi/xila"
)

// FileTypeOf maps a kernel file kind onto the WASI file type. Sockets are
// reported as datagram sockets; pipes and unknown kinds as UnknownType.
func FileTypeOf(kind xila.Kind) wasi.FileType {
	switch kind {
	case xila.KindFile:
		return wasi.RegularFileType
	case xila.KindDirectory:
		return wasi.DirectoryType
	case xila.KindSymbolicLink:
		return wasi.SymbolicLinkType
	case xila.KindCharacterDevice:
		return wasi.CharacterDeviceType
	case xila.KindBlockDevice:
		return wasi.BlockDeviceType
	case xila.KindSocket:
		return wasi.SocketDGramType
	default:
		return wasi.UnknownType
	}
}

// FileStatOf copies a kernel status record into a WASI one.
func FileStatOf(stat xila.Statistics) wasi.FileStat {
	return wasi.FileStat{
		Device:     wasi.Device(stat.FileSystem),
		INode:      wasi.INode(stat.Inode),
		FileType:   FileTypeOf(stat.Kind),
		NLink:      wasi.LinkCount(stat.Links),
		Size:       wasi.FileSize(stat.Size),
		AccessTime: wasi.Timestamp(stat.LastAccess),
		ModifyTime: wasi.Timestamp(stat.LastModification),
		ChangeTime: wasi.Timestamp(stat.LastStatusChange),
	}
}
