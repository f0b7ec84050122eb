package engine

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/bitset"
	"github.com/stubbscroll/solver/internal/genstore"
	"github.com/stubbscroll/solver/internal/trace"
)

// Parallel is the disk-swapping engine with a worker pool. The on-disk
// format is identical to Disk. Within a generation the master reads pages;
// T workers split every page in strides of T records, so the partition is
// disjoint by construction. All workers of a page are joined before the
// next page is read, and a generation's output file is complete before the
// next generation starts, which preserves BFS layering: the depth at which
// a state is first admitted equals its shortest-path distance.
//
// Admission goes through a visited set with one lock per directory chunk;
// the lock covers the whole test-then-set, so exactly one worker admits a
// given ID. The win check runs under its own lock to break the race of two
// workers whose admissions would both claim victory. Reconstruction is
// serial.
type Parallel struct {
	dom     solver.Domain
	opt     Options
	out     io.Writer
	store   *genstore.Store
	visited *bitset.Striped
	slen    int
	n       uint64
	threads int

	outMu sync.Mutex
	w     *genstore.Writer

	sol struct {
		sync.Mutex
		found bool
		winID uint64
	}
	stop atomic.Bool

	errMu sync.Mutex
	err   error

	gen int
	tot uint64
}

func NewParallel(dom solver.Domain, opt Options) (*Parallel, error) {
	if opt.Threads < 1 || opt.Threads > MaxThreads {
		return nil, xerrors.Errorf("number of threads should be between 1 and %d", MaxThreads)
	}
	slen, n, err := geometry(dom)
	if err != nil {
		return nil, err
	}
	e := &Parallel{
		dom:     dom,
		opt:     opt,
		out:     opt.out(),
		store:   genstore.New(opt.dir(), slen),
		visited: bitset.NewStriped(n, opt.ChunkBits),
		slen:    slen,
		n:       n,
		threads: opt.Threads,
	}
	log.WithFields(log.Fields{
		"states":  n,
		"threads": opt.Threads,
	}).Info("state space")
	return e, nil
}

func (e *Parallel) Run() (*Result, error) {
	if err := e.seed(); err != nil {
		return nil, err
	}
	if e.dom.Won(0) {
		fmt.Fprintln(e.out, "we won! solution steps:")
		fmt.Fprintln(e.out, "move 0")
		e.dom.Print(e.out, 0)
		return &Result{Solved: true, Depth: 0, Visited: 1}, nil
	}
	for e.gen = 0; ; e.gen++ {
		qlen, err := e.store.Count(e.gen)
		if err != nil {
			return nil, err
		}
		if err := e.store.Create(e.gen + 1); err != nil {
			return nil, err
		}
		e.w = e.store.NewWriter(e.gen+1, e.opt.writeBuf())
		e.tot += uint64(qlen)
		log.WithFields(log.Fields{
			"gen":   e.gen,
			"queue": qlen,
			"tot":   e.tot,
		}).Info("generation")
		if qlen == 0 {
			e.telemetry()
			return &Result{Solved: false, Depth: e.gen, Visited: e.tot}, nil
		}
		ev := trace.Event(fmt.Sprintf("gen %d", e.gen), 0)
		trace.Count("frontier", uint64(qlen))
		err = e.expand()
		ev.Done()
		if err != nil {
			return nil, err
		}
		if err := e.w.Flush(); err != nil {
			return nil, err
		}
		if e.solutionFound() {
			e.telemetry()
			e.sol.Lock()
			winID := e.sol.winID
			e.sol.Unlock()
			if err := backwardScan(e.dom, e.store, e.opt.readBuf(), e.gen, winID, e.out); err != nil {
				return nil, err
			}
			return &Result{Solved: true, Depth: e.gen + 1, Visited: e.tot}, nil
		}
	}
}

func (e *Parallel) seed() error {
	init := e.dom.Encode(0)
	id := solver.GetID(init)
	if id >= e.n {
		return xerrors.Errorf("start state %d outside state space: %w", id, solver.ErrInternal)
	}
	if err := e.store.Create(0); err != nil {
		return err
	}
	w := e.store.NewWriter(0, e.opt.writeBuf())
	if err := w.Append(init); err != nil {
		return err
	}
	e.visited.Admit(id)
	return w.Flush()
}

// expand fans each page of the current generation out over the worker
// pool. Spawning the workers is the start of a page's processing and
// Wait is its end; no state of the next page is touched until every
// worker of this one has drained.
func (e *Parallel) expand() error {
	r, err := e.store.Open(e.gen, e.opt.readBuf())
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		page, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		var g errgroup.Group
		for t := 1; t <= e.threads; t++ {
			t := t
			g.Go(func() error { return e.worker(page, t) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := e.firstErr(); err != nil {
			return err
		}
	}
}

// worker expands the records of page at offsets t-1, t-1+T, t-1+2T, ...
// using its own scratch state slot.
func (e *Parallel) worker(page []byte, t int) error {
	stride := e.threads * e.slen
	for off := (t - 1) * e.slen; off < len(page); off += stride {
		if e.stop.Load() {
			return nil
		}
		rec := page[off : off+e.slen]
		if id := solver.GetID(rec); id >= e.n {
			return xerrors.Errorf("state %d outside state space in %s: %w", id, e.store.Path(e.gen), solver.ErrInternal)
		}
		e.dom.Decode(rec, t)
		e.dom.VisitNeighbours(t, func(child []byte) { e.addChild(child, t) })
	}
	return nil
}

func (e *Parallel) addChild(p []byte, thr int) {
	if e.stop.Load() {
		return
	}
	id := solver.GetID(p)
	if id >= e.n {
		e.fail(xerrors.Errorf("child state %d outside state space: %w", id, solver.ErrInternal))
		return
	}
	if !e.visited.Admit(id) {
		return
	}
	e.sol.Lock()
	if e.sol.found {
		e.sol.Unlock()
		return
	}
	if e.dom.Won(thr) {
		e.sol.found = true
		e.sol.winID = id
		e.sol.Unlock()
		e.stop.Store(true)
		return
	}
	e.sol.Unlock()
	e.outMu.Lock()
	err := e.w.Append(p)
	e.outMu.Unlock()
	if err != nil {
		e.fail(err)
	}
}

// fail records the first error and makes every worker drain.
func (e *Parallel) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.stop.Store(true)
}

func (e *Parallel) firstErr() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *Parallel) solutionFound() bool {
	e.sol.Lock()
	defer e.sol.Unlock()
	return e.sol.found
}

func (e *Parallel) telemetry() {
	alloc, total := e.visited.Touched()
	log.WithFields(log.Fields{
		"touched": alloc,
		"chunks":  total,
	}).Info("lazy allocation")
}
