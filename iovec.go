package xilawasi

import (
	"github.com/stealthrocket/wasi-go"

	"github.com/xila-project/xilawasi/xila"
)

// Marshal reshapes guest I/O vectors into the kernel's parallel arrays.
// buffers[i] aliases iovs[i] and lengths[i] is len(iovs[i]); no bytes are
// copied and the order is kept.
func Marshal(iovs []wasi.IOVec) (buffers [][]byte, lengths []xila.Size) {
	buffers = make([][]byte, len(iovs))
	lengths = make([]xila.Size, len(iovs))
	for i, iov := range iovs {
		buffers[i] = iov
		lengths[i] = xila.Size(len(iov))
	}
	return buffers, lengths
}
