package engine

import (
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
)

// Dedup is the delayed-duplicate-detection engine. It uses no disk and no
// bit array: every remembered state is stored explicitly in one arena, as
// three ranges at ascending offsets — all states from generations <= g-2
// (sorted), generation g-1 (sorted), and the generation under construction,
// whose head is sorted and already duplicate-checked and whose tail is raw.
// Duplicate removal is deferred to batches: sort and unique the tail, then
// sweep it against the two sorted runs with two-pointer merges. When the
// arena fills mid-generation the same pass runs early as a repack.
//
// The directed variant folds prev into prevprev every generation, so the
// first run grows to hold the whole visited set. The undirected variant
// discards prevprev instead: when every move has an inverse, a state
// generated at depth g can only collide with depths g-1 and g-2. It must
// not be used on puzzles with one-way moves.
//
// Solution paths are not recoverable (no generation survives long enough);
// a win reports the depth only.
type Dedup struct {
	dom solver.Domain
	out io.Writer

	undirected bool
	slen       int
	b          []byte
	cap        int64 // arena capacity in records

	// counts and offsets below are in records, not bytes
	prevprevN int64 // sorted run at [0, prevprevN)
	prevN     int64 // sorted run at [prevprevN, prevprevN+prevN)
	curS      int64 // where the current generation begins
	curNN     int64 // sorted duplicate-checked head of cur
	curIn     int64 // raw tail following the head
	repacks   int

	iter        int
	tot         uint64
	repackTotal int
	winDepth    int // moves to the first goal state seen; 0 = none yet
	err         error
}

func NewDedup(dom solver.Domain, opt Options) (*Dedup, error) {
	slen := dom.StateLen()
	if slen < 1 || slen > solver.MaxStateLen {
		return nil, xerrors.Errorf("state size %d bytes: %w", slen, solver.ErrTooLarge)
	}
	capRecs := opt.arena() / int64(slen)
	if capRecs < 2 {
		return nil, xerrors.Errorf("arena of %d bytes holds fewer than 2 states: %w", opt.arena(), solver.ErrArenaFull)
	}
	return &Dedup{
		dom:        dom,
		out:        opt.out(),
		undirected: opt.Undirected,
		slen:       slen,
		b:          make([]byte, capRecs*int64(slen)),
		cap:        capRecs,
	}, nil
}

// Run iterates generations until the frontier is empty or a goal state is
// generated.
func (e *Dedup) Run() (*Result, error) {
	// the initial state is generation 0, the sole element of prev
	copy(e.rec(0), e.dom.Encode(0))
	e.prevN = 1
	e.curS = 1
	e.tot = 1
	if e.dom.Won(0) {
		fmt.Fprintln(e.out, "we won in 0 moves")
		return &Result{Solved: true, Depth: 0, Visited: 1}, nil
	}
	for e.prevN > 0 {
		if e.repacks > 0 {
			log.WithField("repacks", e.repacks).Debug("arena repacked last generation")
		}
		log.WithFields(log.Fields{
			"gen":   e.iter,
			"queue": e.prevN,
			"tot":   e.tot,
		}).Info("generation")
		e.curNN, e.curIn, e.repacks = 0, 0, 0
		for at := e.prevprevN; at < e.prevprevN+e.prevN; at++ {
			e.dom.Decode(e.rec(at), 0)
			e.dom.VisitNeighbours(0, e.addChild)
			if e.err != nil {
				return nil, e.err
			}
			if e.winDepth > 0 {
				fmt.Fprintf(e.out, "we won in %d moves\n", e.winDepth)
				fmt.Fprintln(e.out, "solution output is not supported by this engine")
				return &Result{Solved: true, Depth: e.winDepth, Visited: e.tot}, nil
			}
		}
		// batch duplicate removal over the completed generation
		curN := e.sortAndCompress(e.curS, e.curNN+e.curIn)
		curN = e.removeDuplicates2(e.curS, curN)
		if e.undirected {
			// discard generations <= g-2 and slide everything down
			copy(e.b[:(e.prevN+curN)*int64(e.slen)],
				e.b[e.prevprevN*int64(e.slen):(e.prevprevN+e.prevN+curN)*int64(e.slen)])
			e.prevprevN = e.prevN
		} else {
			// fold prev into prevprev; the two runs are adjacent, sorted
			// and disjoint, so sorting the pair merges them
			e.sortRange(0, e.prevprevN+e.prevN)
			e.prevprevN += e.prevN
		}
		e.prevN = curN
		e.curS = e.prevprevN + e.prevN
		e.tot += uint64(curN)
		e.iter++
	}
	log.WithField("repacks", e.repackTotal).Debug("search done")
	return &Result{Solved: false, Depth: e.iter, Visited: e.tot}, nil
}

func (e *Dedup) addChild(p []byte) {
	if e.err != nil || e.winDepth > 0 {
		return
	}
	if e.curS+e.curNN+e.curIn == e.cap {
		if err := e.repack(); err != nil {
			e.err = err
			return
		}
	}
	if e.dom.Won(0) {
		e.winDepth = e.iter + 1
		return
	}
	copy(e.rec(e.curS+e.curNN+e.curIn), p[:e.slen])
	e.curIn++
}

// repack compacts the arena mid-generation: sort and unique the raw tail,
// drop states already present in the previous two runs, then merge the tail
// into the generation's sorted head.
func (e *Dedup) repack() error {
	tail := e.curS + e.curNN
	e.curIn = e.sortAndCompress(tail, e.curIn)
	e.curIn = e.removeDuplicates2(tail, e.curIn)
	if e.repacks > 0 {
		e.curNN = e.sortAndCompress(e.curS, e.curNN+e.curIn)
	} else {
		e.curNN = e.curIn
	}
	e.curIn = 0
	e.repacks++
	e.repackTotal++
	if e.curS+e.curNN >= e.cap {
		return xerrors.Errorf("arena still full after %d repacks: %w", e.repacks, solver.ErrArenaFull)
	}
	return nil
}

// rec returns the record at index i.
func (e *Dedup) rec(i int64) []byte {
	off := i * int64(e.slen)
	return e.b[off : off+int64(e.slen)]
}

// compareRec orders S-byte keys by scanning from the most significant byte
// down, which for little-endian IDs equals integer comparison.
func compareRec(a, b []byte) int {
	for i := len(a) - 1; i >= 0; i-- {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

type recRange struct {
	e     *Dedup
	start int64
	tmp   []byte
	n     int64
}

func (v recRange) Len() int { return int(v.n) }
func (v recRange) Less(i, j int) bool {
	return compareRec(v.e.rec(v.start+int64(i)), v.e.rec(v.start+int64(j))) < 0
}
func (v recRange) Swap(i, j int) {
	a, b := v.e.rec(v.start+int64(i)), v.e.rec(v.start+int64(j))
	copy(v.tmp, a)
	copy(a, b)
	copy(b, v.tmp)
}

func (e *Dedup) sortRange(start, n int64) {
	sort.Sort(recRange{e: e, start: start, n: n, tmp: make([]byte, e.slen)})
}

// sortAndCompress sorts the n records starting at start and removes
// in-range duplicates, returning the surviving count.
func (e *Dedup) sortAndCompress(start, n int64) int64 {
	if n == 0 {
		return 0
	}
	e.sortRange(start, n)
	keep := int64(1)
	for i := int64(1); i < n; i++ {
		if compareRec(e.rec(start+keep-1), e.rec(start+i)) != 0 {
			if keep != i {
				copy(e.rec(start+keep), e.rec(start+i))
			}
			keep++
		}
	}
	return keep
}

// removeDuplicates2 drops every record in [start, start+n) that also occurs
// in the prevprev or prev runs, compacting in place. All three ranges are
// sorted ascending; two cursors sweep the old runs once.
func (e *Dedup) removeDuplicates2(start, n int64) int64 {
	ppAt, pAt := int64(0), e.prevprevN
	ppEnd, pEnd := e.prevprevN, e.prevprevN+e.prevN
	keep := int64(0)
	for i := int64(0); i < n; i++ {
		rec := e.rec(start + i)
		for ppAt < ppEnd && compareRec(e.rec(ppAt), rec) < 0 {
			ppAt++
		}
		for pAt < pEnd && compareRec(e.rec(pAt), rec) < 0 {
			pAt++
		}
		if ppAt < ppEnd && compareRec(e.rec(ppAt), rec) == 0 {
			continue
		}
		if pAt < pEnd && compareRec(e.rec(pAt), rec) == 0 {
			continue
		}
		if keep != i {
			copy(e.rec(start+keep), rec)
		}
		keep++
	}
	return keep
}
