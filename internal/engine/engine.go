// Package engine implements the breadth-first search engine family: the
// in-memory engine for graphs whose parent map fits in memory, the
// disk-swapping engine and its parallel variant for large graphs, and the
// delayed-duplicate engine which keeps everything in one arena and removes
// duplicates in batches. All engines drive a solver.Domain and agree on the
// meaning of Result.
package engine

import (
	"io"
	"os"

	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
)

// DefaultBufBytes is the read/write/arena buffer size engines fall back to
// when Options leaves one unset.
const DefaultBufBytes = 50 << 20

// MaxThreads bounds the parallel engine's worker count.
const MaxThreads = 999

// Options tunes an engine. The zero value searches in the current
// directory with 50 MB buffers.
type Options struct {
	// Dir is where generation files are created; cwd if empty.
	Dir string

	// ChunkBits is m: the chunked visited set allocates pieces of 2^m bits.
	// 0 means one chunk spanning the whole ID space.
	ChunkBits uint

	// ReadBuf and WriteBuf size the page buffers for frontier files, in
	// bytes (L1 and L2).
	ReadBuf  int64
	WriteBuf int64

	// Arena sizes the delayed-duplicate engine's memory area, in bytes.
	Arena int64

	// Threads is the parallel engine's worker count T, in [1, MaxThreads].
	Threads int

	// Undirected selects the delayed-duplicate variant that keeps only the
	// previous two generations. Sound only when every move has an inverse.
	Undirected bool

	// Out receives solution output; os.Stdout if nil.
	Out io.Writer
}

func (o *Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

func (o *Options) dir() string {
	if o.Dir != "" {
		return o.Dir
	}
	return "."
}

func (o *Options) readBuf() int64 {
	if o.ReadBuf > 0 {
		return o.ReadBuf
	}
	return DefaultBufBytes
}

func (o *Options) writeBuf() int64 {
	if o.WriteBuf > 0 {
		return o.WriteBuf
	}
	return DefaultBufBytes
}

func (o *Options) arena() int64 {
	if o.Arena > 0 {
		return o.Arena
	}
	return DefaultBufBytes
}

// Result is what a finished search reports.
type Result struct {
	// Solved is true when a goal state was reached; false means the whole
	// reachable component was exhausted without one.
	Solved bool

	// Depth is the number of moves in the shortest solution when Solved,
	// otherwise the number of completed iterations. The in-memory engine
	// does not track iterations and leaves it 0 when not Solved.
	Depth int

	// Visited counts the states admitted over the whole search. The disk,
	// parallel and delayed-duplicate engines count whole generations: on a
	// win, states admitted in the generation holding the goal are not
	// included.
	Visited uint64
}

// geometry validates the domain's declared state length and state-space
// size and returns both. N = declared size + 1 so that spaces of exactly
// 2^k states stay representable.
func geometry(dom solver.Domain) (slen int, n uint64, err error) {
	slen = dom.StateLen()
	if slen < 1 || slen > solver.MaxStateLen {
		return 0, 0, xerrors.Errorf("state size %d bytes: %w", slen, solver.ErrTooLarge)
	}
	n = solver.GetID(dom.Size()) + 1
	if n == 0 || n > solver.MaxStates-1 {
		return 0, 0, xerrors.Errorf("%d states: %w", n, solver.ErrTooLarge)
	}
	return slen, n, nil
}
