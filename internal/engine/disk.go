package engine

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/bitset"
	"github.com/stubbscroll/solver/internal/genstore"
	"github.com/stubbscroll/solver/internal/trace"
)

// Disk is the single-threaded disk-swapping engine. The visited set is a
// chunked lazy bit array needing N/8 bits worst case; each depth's frontier
// lives in a generation file that is read back in pages when the depth is
// expanded. No predecessor pointers are stored, so solutions are recovered
// by scanning the frontier files backward.
type Disk struct {
	dom solver.Domain
	opt Options
	out io.Writer

	store   *genstore.Store
	visited *bitset.Chunked
	slen    int
	n       uint64

	gen    int
	tot    uint64
	w      *genstore.Writer
	solved bool
	winID  uint64
	err    error
}

func NewDisk(dom solver.Domain, opt Options) (*Disk, error) {
	slen, n, err := geometry(dom)
	if err != nil {
		return nil, err
	}
	e := &Disk{
		dom:     dom,
		opt:     opt,
		out:     opt.out(),
		store:   genstore.New(opt.dir(), slen),
		visited: bitset.NewChunked(n, opt.ChunkBits),
		slen:    slen,
		n:       n,
	}
	log.WithFields(log.Fields{
		"states":   n,
		"statelen": slen,
	}).Info("state space")
	return e, nil
}

// Run searches until a goal state is admitted or a generation comes up
// empty.
func (e *Disk) Run() (*Result, error) {
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
		if e.solved {
			e.telemetry()
			if err := backwardScan(e.dom, e.store, e.opt.readBuf(), e.gen, e.winID, e.out); err != nil {
				return nil, err
			}
			return &Result{Solved: true, Depth: e.gen + 1, Visited: e.tot}, nil
		}
		if err := e.w.Flush(); err != nil {
			return nil, err
		}
	}
}

// seed writes the initial state to GEN-0000 and marks it visited.
func (e *Disk) seed() error {
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
	e.visited.Set(id)
	return w.Flush()
}

// expand reads the current generation in pages and drives the domain over
// every state in it.
func (e *Disk) expand() error {
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
		for off := 0; off < len(page); off += e.slen {
			rec := page[off : off+e.slen]
			if id := solver.GetID(rec); id >= e.n {
				return xerrors.Errorf("state %d outside state space in %s: %w", id, e.store.Path(e.gen), solver.ErrInternal)
			}
			e.dom.Decode(rec, 0)
			e.dom.VisitNeighbours(0, e.addChild)
			if e.err != nil {
				return e.err
			}
			if e.solved {
				return nil
			}
		}
	}
}

func (e *Disk) addChild(p []byte) {
	if e.err != nil || e.solved {
		return
	}
	id := solver.GetID(p)
	if id >= e.n {
		e.err = xerrors.Errorf("child state %d outside state space: %w", id, solver.ErrInternal)
		return
	}
	if e.visited.Test(id) {
		return
	}
	e.visited.Set(id)
	if e.dom.Won(0) {
		e.solved = true
		e.winID = id
		return
	}
	if err := e.w.Append(p); err != nil {
		e.err = err
	}
}

func (e *Disk) telemetry() {
	alloc, total := e.visited.Touched()
	log.WithFields(log.Fields{
		"touched": alloc,
		"chunks":  total,
	}).Info("lazy allocation")
}
