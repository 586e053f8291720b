// Package libc holds the wasm32 WASI guest records that host calls read and
// write in linear memory, with their C names.
package libc

import (
	"fmt"
	"unsafe"
)

// C scalar types as a wasm32 guest sees them.
type (
	Int  = int32
	Uint = uint32

	Size    = uint32
	Ssize   = int32
	Ptr     = uint32
	Ptrdiff = int32
)

// PtrSize is sizeof(void *) in the guest.
const PtrSize = 4

// layouts lists the guest records copied to and from memory as whole Go
// values, with the size WASI gives them.
var layouts = []struct {
	name string
	got  uintptr
	want uintptr
}{
	{"iovec", unsafe.Sizeof(Iovec{}), 8},
	{"ciovec", unsafe.Sizeof(Ciovec{}), 8},
	{"prestat_dir", unsafe.Sizeof(PrestatDir{}), 8},
	{"fdstat", unsafe.Sizeof(Fdstat{}), 24},
	{"filestat", unsafe.Sizeof(Filestat{}), 64},
	{"dirent", unsafe.Sizeof(Dirent{}), 24},
	{"timestamp", unsafe.Sizeof(uint64(0)), 8},
}

func init() {
	for _, l := range layouts {
		if l.got != l.want {
			panic(fmt.Errorf("libc: sizeof(%s) is %d, guest expects %d", l.name, l.got, l.want))
		}
	}
}
