package engine

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/bitset"
)

// Parent-map sentinels. IDs are below 2^60, so the top values are free.
const (
	parentRoot      = ^uint64(0)
	parentUnvisited = ^uint64(0) - 1
)

// Memory is the in-memory engine: a dense visited bit array, a parent map
// over the whole ID space and a ring queue of pending states. It needs a
// shade over 16*N bytes of memory; in exchange, solution recovery is a walk
// up the parent chain instead of a backward scan over frontier files.
type Memory struct {
	dom  solver.Domain
	out  io.Writer
	slen int
	n    uint64

	visited *bitset.Dense
	parent  []uint64
	q       []uint64
	qs, qe  uint64

	buf       []byte
	cur       uint64
	processed uint64
	admitted  uint64

	res *Result
	err error
}

// NewMemory allocates the parent map and queue for the domain's full ID
// space.
func NewMemory(dom solver.Domain, opt Options) (*Memory, error) {
	slen, n, err := geometry(dom)
	if err != nil {
		return nil, err
	}
	e := &Memory{
		dom:  dom,
		out:  opt.out(),
		slen: slen,
		n:    n,
		buf:  make([]byte, slen),
	}
	log.WithField("states", n).Info("state space")
	e.visited = bitset.NewDense(n)
	e.parent = make([]uint64, n)
	for i := range e.parent {
		e.parent[i] = parentUnvisited
	}
	e.q = make([]uint64, n)
	return e, nil
}

// Run searches until a goal state is found or the reachable component is
// exhausted.
func (e *Memory) Run() (*Result, error) {
	start := solver.GetID(e.dom.Encode(0))
	if start >= e.n {
		return nil, xerrors.Errorf("start state %d outside state space: %w", start, solver.ErrInternal)
	}
	e.visited.Set(start)
	e.parent[start] = parentRoot
	e.admitted = 1
	if e.dom.Won(0) {
		// the initial position already satisfies the goal
		fmt.Fprintln(e.out, "we won! solution steps:")
		fmt.Fprintln(e.out, "move 0")
		e.dom.Print(e.out, 0)
		return &Result{Solved: true, Depth: 0, Visited: 1}, nil
	}
	e.q[e.qe] = start
	e.qe++
	if e.qe == e.n {
		e.qe = 0
	}
	for e.qs != e.qe {
		e.cur = e.q[e.qs]
		e.qs++
		if e.qs == e.n {
			e.qs = 0
		}
		e.processed++
		if e.processed%100000 == 0 {
			log.WithFields(log.Fields{
				"processed": e.processed,
				"queued":    (e.qe + e.n - e.qs) % e.n,
			}).Info("searching")
		}
		solver.PutID(e.buf, e.cur)
		e.dom.Decode(e.buf, 0)
		e.dom.VisitNeighbours(0, e.addChild)
		if e.err != nil {
			return nil, e.err
		}
		if e.res != nil {
			return e.res, nil
		}
	}
	return &Result{Solved: false, Visited: e.admitted}, nil
}

func (e *Memory) addChild(p []byte) {
	if e.err != nil || e.res != nil {
		return
	}
	child := solver.GetID(p)
	if child >= e.n {
		e.err = xerrors.Errorf("child state %d outside state space: %w", child, solver.ErrInternal)
		return
	}
	if e.visited.Test(child) {
		return
	}
	e.visited.Set(child)
	e.parent[child] = e.cur
	e.admitted++
	if e.dom.Won(0) {
		e.res = e.solution(child)
		return
	}
	e.q[e.qe] = child
	e.qe++
	if e.qe == e.n {
		e.qe = 0
	}
	if e.qs == e.qe {
		e.err = xerrors.Errorf("%w", solver.ErrQueueExhausted)
	}
}

// solution follows the parent chain from the winning state back to the
// root, then prints the path in playing order.
func (e *Memory) solution(win uint64) *Result {
	var path []uint64
	for v := win; v != parentRoot; v = e.parent[v] {
		path = append(path, v)
	}
	fmt.Fprintln(e.out, "we won! solution steps:")
	for i := len(path) - 1; i >= 0; i-- {
		fmt.Fprintf(e.out, "move %d\n", len(path)-1-i)
		solver.PutID(e.buf, path[i])
		e.dom.Decode(e.buf, 0)
		e.dom.Print(e.out, 0)
	}
	return &Result{Solved: true, Depth: len(path) - 1, Visited: e.admitted}
}
