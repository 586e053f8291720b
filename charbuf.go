package xilawasi

import (
	"unsafe"

	"github.com/bytecodealliance/wasmtime-go/v11"

	"github.com/xila-project/xilawasi/libc"
)

// charbuffer is a NUL separated string list as handed out by args_get and
// environ_get.
type charbuffer []string

func (strs charbuffer) size() libc.Size {
	var size libc.Size
	for _, s := range strs {
		size += libc.Size(len(s) + 1)
	}
	return size
}

func (strs charbuffer) writeSizes(caller *wasmtime.Caller, _countptr, _sizeptr int32) error {
	countptr := libc.Ptr(_countptr)
	sizeptr := libc.Ptr(_sizeptr)
	return ensure(caller, func(base unsafe.Pointer, _ []byte) {
		*(*libc.Size)(unsafe.Add(base, countptr)) = libc.Size(len(strs))
		*(*libc.Size)(unsafe.Add(base, sizeptr)) = strs.size()
	}, end(countptr, ptrSize), end(sizeptr, ptrSize))
}

func (strs charbuffer) write(caller *wasmtime.Caller, _listptr, _bufptr int32) error {
	listptr := libc.Ptr(_listptr)
	bufptr := libc.Ptr(_bufptr)
	return ensure(caller, func(base unsafe.Pointer, data []byte) {
		list := unsafe.Slice((*libc.Ptr)(unsafe.Add(base, listptr)), len(strs))
		at := bufptr
		for i, s := range strs {
			list[i] = at
			at += libc.Ptr(copy(data[at:], s))
			data[at] = 0
			at++
		}
	}, end(listptr, ptrSize*libc.Size(len(strs))), end(bufptr, strs.size()))
}
