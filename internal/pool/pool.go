// Package pool provides bucketed sync.Pool instances for plane storage and
// scratch buffers. Buffers are organized by size class to minimize waste.
package pool

import "sync"

// Size classes for bucketed pools. A 1080p luma plane with edges lands in
// the 4M class; CIF chroma planes land in the 64K class.
const (
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
	Size4M   = 4194304
)

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	switch {
	case size <= Size1K:
		return 0
	case size <= Size4K:
		return 1
	case size <= Size16K:
		return 2
	case size <= Size64K:
		return 3
	case size <= Size256K:
		return 4
	case size <= Size1M:
		return 5
	default:
		return 6
	}
}

var sizes = [7]int{Size1K, Size4K, Size16K, Size64K, Size256K, Size1M, Size4M}

var pools [7]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// Get returns a byte slice of exactly size bytes from the pool. Contents are
// unspecified; callers that need zeroed memory must clear it.
// The caller must call Put when done.
func Get(size int) []byte {
	idx := bucketIndex(size)
	bp := pools[idx].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// GetZeroed is Get followed by clearing the returned slice.
func GetZeroed(size int) []byte {
	b := Get(size)
	clear(b)
	return b
}

// Grow returns b if it can hold size bytes, otherwise a pooled replacement
// with the first len(b) bytes copied over. The old slice is returned to the
// pool. Existing contents are preserved; new bytes are unspecified.
func Grow(b []byte, size int) []byte {
	if cap(b) >= size {
		return b[:size]
	}
	nb := Get(size)
	copy(nb, b)
	Put(b)
	return nb
}

// Put returns a byte slice to the pool. The slice must have been obtained
// from Get. Slices smaller than Size1K are not pooled.
func Put(b []byte) {
	c := cap(b)
	if c < Size1K {
		return
	}
	idx := bucketIndex(c)
	// A capacity between two classes is filed under the lower one, whose
	// Get calls it can always satisfy.
	if c < sizes[idx] {
		idx--
		if idx < 0 {
			return
		}
	}
	b = b[:c]
	pools[idx].Put(&b)
}
