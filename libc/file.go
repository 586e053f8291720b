package libc

import (
	"github.com/stealthrocket/wasi-go"
)

// AccessMode is the wasi-libc file access mode of an open descriptor.
type AccessMode uint8

const (
	AccessModeReadOnly AccessMode = iota
	AccessModeWriteOnly
	AccessModeReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case AccessModeReadOnly:
		return "ReadOnly"
	case AccessModeWriteOnly:
		return "WriteOnly"
	case AccessModeReadWrite:
		return "ReadWrite"
	default:
		return "Invalid"
	}
}

type Filetype = uint8

type Fdflag = uint16

// Filestat is __wasi_filestat_t as laid out in guest memory.
type Filestat struct {
	// Device ID of device containing the file.
	Dev uint64
	// File serial number.
	Ino uint64
	// File type.
	Filetype Filetype
	// Number of hard links to the file.
	Nlink uint64
	// For regular files, the file size in bytes. For symbolic links, the length in bytes of the pathname contained in the symbolic link.
	Size uint64
	// Last data access timestamp.
	Atim uint64
	// Last data modification timestamp.
	Mtim uint64
	// Last file status change timestamp.
	Ctim uint64
}

// MakeFilestat packs a WASI file status record.
func MakeFilestat(stat wasi.FileStat) Filestat {
	return Filestat{
		Dev:      uint64(stat.Device),
		Ino:      uint64(stat.INode),
		Filetype: Filetype(stat.FileType),
		Nlink:    uint64(stat.NLink),
		Size:     uint64(stat.Size),
		Atim:     uint64(stat.AccessTime),
		Mtim:     uint64(stat.ModifyTime),
		Ctim:     uint64(stat.ChangeTime),
	}
}

type Ciovec struct {
	Buf Ptr
	Len Size
}

type Iovec struct {
	Buf Ptr
	Len Size
}

type PrestatDir struct {
	Tag    uint8
	DirLen Size
}

type Fdstat struct {
	Filetype         Filetype
	Flags            Fdflag
	RightsBase       uint64
	RightsInheriting uint64
}

// MakeFdstat packs a WASI descriptor status record.
func MakeFdstat(stat wasi.FDStat) Fdstat {
	return Fdstat{
		Filetype:         Filetype(stat.FileType),
		Flags:            Fdflag(stat.Flags),
		RightsBase:       uint64(stat.RightsBase),
		RightsInheriting: uint64(stat.RightsInheriting),
	}
}

// Dirent is the fixed header written before each name by fd_readdir.
type Dirent struct {
	Next   uint64
	Ino    uint64
	Namlen Size
	Dtype  uint8
}

// MakeDirent packs a WASI directory entry header; the name is written
// separately right after it.
func MakeDirent(entry wasi.DirEntry) Dirent {
	return Dirent{
		Next:   uint64(entry.Next),
		Ino:    uint64(entry.INode),
		Namlen: Size(len(entry.Name)),
		Dtype:  uint8(entry.Type),
	}
}
