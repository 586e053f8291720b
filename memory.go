package xilawasi

import (
	"bytes"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/bytecodealliance/wasmtime-go/v11"
	"github.com/stealthrocket/wasi-go"
	"golang.org/x/exp/slices"

	"github.com/xila-project/xilawasi/libc"
)

const ptrSize = libc.PtrSize

type int_t = int32
type uint_t = uint32
type size_t = uint_t
type ptr_t = uint_t

type segfault struct {
	addr ptr_t
	max  ptr_t
}

func (sf segfault) Error() string {
	return fmt.Sprintf("segfault: %x > %x", sf.addr, sf.max)
}

// ensure runs fn over the guest memory once every address in addrs is known
// to be in bounds.
func ensure(caller *wasmtime.Caller, fn func(base unsafe.Pointer, data []byte), addrs ...ptr_t) error {
	mem := caller.GetExport("memory").Memory()
	defer runtime.KeepAlive(mem)
	base := mem.Data(caller)
	data := mem.UnsafeData(caller)
	maxphysaddr := size_t(mem.DataSize(caller))
	maxaddr := slices.Max(addrs)
	if maxaddr > maxphysaddr {
		return segfault{addr: maxaddr, max: maxphysaddr}
	}
	fn(base, data)
	return nil
}

// end returns ptr+n, or an address past any memory when the sum wraps.
func end(ptr ptr_t, n size_t) ptr_t {
	sum := uint64(ptr) + uint64(n)
	if sum > 1<<32-1 {
		return 1<<32 - 1
	}
	return ptr_t(sum)
}

// span returns the end of count records of size bytes at ptr, or an address
// past any memory when it does not fit the address space.
func span(ptr ptr_t, count, size size_t) ptr_t {
	sum := uint64(ptr) + uint64(count)*uint64(size)
	if sum > 1<<32-1 {
		return 1<<32 - 1
	}
	return ptr_t(sum)
}

// guestString copies a guest path out of memory. Embedded NULs cannot be
// passed on to the kernel and are rejected with EINVAL.
func guestString(data []byte, ptr ptr_t, n size_t) (string, wasi.Errno) {
	b := data[ptr : ptr+n]
	if bytes.IndexByte(b, 0) >= 0 {
		return "", wasi.EINVAL
	}
	return string(b), wasi.ESUCCESS
}

// guestIOVecs resolves n guest iovecs at ptr into slices of data. The slices
// alias guest memory.
func guestIOVecs(base unsafe.Pointer, data []byte, ptr ptr_t, n size_t) ([]wasi.IOVec, error) {
	if last := span(ptr, n, size_t(unsafe.Sizeof(libc.Iovec{}))); uint64(last) > uint64(len(data)) {
		return nil, segfault{addr: last, max: ptr_t(len(data))}
	}
	iovs := make([]wasi.IOVec, n)
	if n == 0 {
		return iovs, nil
	}
	vecs := unsafe.Slice((*libc.Iovec)(unsafe.Add(base, ptr)), n)
	for i, vec := range vecs {
		last := end(vec.Buf, vec.Len)
		if last > ptr_t(len(data)) {
			return nil, segfault{addr: last, max: ptr_t(len(data))}
		}
		iovs[i] = data[vec.Buf:last:last]
	}
	return iovs, nil
}
