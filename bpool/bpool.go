package bpool

import (
	"math/bits"
	"sync"
)

/*
Pooled byte buffers for socket reads and request composition.
Buffers under 64k are recycled by size class, larger ones are plain allocations.

Size classes: 32,64,128,256,512,1k,2k,4k,8k,16k,32k,64k
*/
const (
	min_size  = 32
	max_size  = 64 * 1024
	pool_size = 12
)

var pool [pool_size]sync.Pool

type Buff struct {
	b       []byte
	poolIdx int8
}

func init() {
	for i := 0; i < pool_size; i++ {
		size := getSize(i)
		idx := i
		pool[i].New = func() interface{} {
			return &Buff{poolIdx: int8(idx), b: make([]byte, size)}
		}
	}
}

// New returns an empty buffer with at least size bytes of capacity.
func New(size int) *Buff {
	if size > max_size {
		return &Buff{poolIdx: -1, b: make([]byte, 0, size)}
	}
	idx := getIndex(size)
	buf := pool[idx].Get().(*Buff)
	buf.b = buf.b[0:0]
	return buf
}

// NewBuf returns a buffer holding a copy of buf.
func NewBuf(buf []byte) *Buff {
	size := len(buf)
	b := New(size)
	b.b = b.b[:size]
	copy(b.b, buf)
	return b
}

func getIndex(size int) int {
	if size <= min_size {
		return 0
	}
	return bits.Len32(uint32(size-1)) - 5
}

// Free hands the buffer back to its pool. The buffer must not be used afterwards.
func (b *Buff) Free() {
	if b == nil || b.poolIdx < 0 {
		return
	}
	pool[b.poolIdx].Put(b)
}

func (b *Buff) Size() int {
	return len(b.b)
}

func (b *Buff) Cap() int {
	return cap(b.b)
}

func (b *Buff) Reset() {
	b.b = b.b[0:0]
}

// Append grows into a larger pooled buffer when needed, so callers must keep the returned value.
func (b *Buff) Append(buf ...byte) *Buff {
	totalSize := len(buf) + b.Size()
	if totalSize > b.Cap() {
		grown := New(grow(b.Cap(), totalSize))
		grown.b = append(grown.b, b.b...)
		grown.b = append(grown.b, buf...)
		b.Free()
		return grown
	}
	b.b = append(b.b, buf...)
	return b
}

func (b *Buff) AppendString(s string) *Buff {
	totalSize := len(s) + b.Size()
	if totalSize > b.Cap() {
		grown := New(grow(b.Cap(), totalSize))
		grown.b = append(grown.b, b.b...)
		grown.b = append(grown.b, s...)
		b.Free()
		return grown
	}
	b.b = append(b.b, s...)
	return b
}

func (b *Buff) ToBytes() []byte {
	return b.b
}

func getSize(i int) int {
	return min_size << i
}

// double until the wanted size fits, so repeated appends stay amortized
func grow(cur, want int) int {
	if cur < min_size {
		cur = min_size
	}
	for cur < want {
		cur <<= 1
	}
	return cur
}
