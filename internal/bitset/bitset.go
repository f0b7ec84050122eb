// Package bitset provides the visited-set representations used by the
// search engines: a dense bit array for state spaces that fit in memory, a
// chunked variant whose pieces are allocated on first touch, and a striped
// wrapper that serializes test-and-set per chunk for concurrent admission.
package bitset

import "sync"

// Dense is a plain bit array over [0, n), fully resident from construction.
type Dense struct {
	bits []byte
}

func NewDense(n uint64) *Dense {
	return &Dense{bits: make([]byte, (n+7)/8)}
}

func (d *Dense) Test(s uint64) bool {
	return d.bits[s>>3]&(1<<(s&7)) != 0
}

func (d *Dense) Set(s uint64) {
	d.bits[s>>3] |= 1 << (s & 7)
}

// Chunked is a lazily allocated bit array over [0, n). The array is split
// into chunks of 1<<bits bits each; a chunk's backing bytes are allocated
// the first time a bit inside it is set, and never freed. Small chunks keep
// directory overhead high but waste little per chunk; large chunks the
// reverse.
type Chunked struct {
	dir  [][]byte
	bits uint   // log2 of chunk size in bits
	mask uint64 // chunk size - 1
}

// NewChunked builds a chunked bit array over [0, n). bits selects the chunk
// size as 1<<bits bits; bits == 0 means a single chunk spanning all of n.
func NewChunked(n uint64, bits uint) *Chunked {
	if bits == 0 {
		for uint64(1)<<bits < n {
			bits++
		}
	}
	chunks := (n + uint64(1)<<bits - 1) >> bits
	if chunks == 0 {
		chunks = 1
	}
	return &Chunked{
		dir:  make([][]byte, chunks),
		bits: bits,
		mask: uint64(1)<<bits - 1,
	}
}

func (c *Chunked) Test(s uint64) bool {
	blk := c.dir[s>>c.bits]
	if blk == nil {
		// chunk never allocated, so nothing in it was ever set
		return false
	}
	o := s & c.mask
	return blk[o>>3]&(1<<(o&7)) != 0
}

func (c *Chunked) Set(s uint64) {
	ci := s >> c.bits
	blk := c.dir[ci]
	if blk == nil {
		blk = make([]byte, (uint64(1)<<c.bits+7)/8)
		c.dir[ci] = blk
	}
	o := s & c.mask
	blk[o>>3] |= 1 << (o & 7)
}

// Touched reports how many chunks have been allocated so far and how many
// exist in total, a measure of how sparsely the search filled the ID space.
func (c *Chunked) Touched() (allocated, total int) {
	for _, blk := range c.dir {
		if blk != nil {
			allocated++
		}
	}
	return allocated, len(c.dir)
}

// Chunk reports the directory slot an ID falls into.
func (c *Chunked) Chunk(s uint64) uint64 { return s >> c.bits }

// Striped wraps a Chunked set with one mutex per directory slot. The lock
// window covers the whole test-then-set (including lazy allocation), so for
// any ID exactly one caller observes a fresh admission.
type Striped struct {
	mu  []sync.Mutex
	set *Chunked
}

func NewStriped(n uint64, bits uint) *Striped {
	set := NewChunked(n, bits)
	return &Striped{
		mu:  make([]sync.Mutex, len(set.dir)),
		set: set,
	}
}

// Admit marks s visited and reports whether this call was the one that
// admitted it.
func (st *Striped) Admit(s uint64) bool {
	i := st.set.Chunk(s)
	st.mu[i].Lock()
	if st.set.Test(s) {
		st.mu[i].Unlock()
		return false
	}
	st.set.Set(s)
	st.mu[i].Unlock()
	return true
}

func (st *Striped) Test(s uint64) bool {
	i := st.set.Chunk(s)
	st.mu[i].Lock()
	v := st.set.Test(s)
	st.mu[i].Unlock()
	return v
}

func (st *Striped) Touched() (allocated, total int) { return st.set.Touched() }
