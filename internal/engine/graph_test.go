package engine

import (
	"fmt"
	"io"

	"github.com/stubbscroll/solver"
)

// graphDomain implements solver.Domain over an explicit adjacency list, so
// engines can be exercised on graphs with known structure.
type graphDomain struct {
	n     uint64
	slen  int
	adj   [][]uint64
	start uint64
	goal  uint64 // noGoal exhausts the component
	cur   []uint64
	bufs  [][]byte
}

const noGoal = ^uint64(0)

func newGraphDomain(n uint64, edges [][2]uint64, start, goal uint64, threads int) *graphDomain {
	g := &graphDomain{
		n:     n,
		slen:  solver.IDLen(n - 1),
		adj:   make([][]uint64, n),
		start: start,
		goal:  goal,
		cur:   make([]uint64, threads),
		bufs:  make([][]byte, threads),
	}
	for _, e := range edges {
		g.adj[e[0]] = append(g.adj[e[0]], e[1])
	}
	for i := range g.cur {
		g.cur[i] = start
		g.bufs[i] = make([]byte, g.slen)
	}
	return g
}

func (g *graphDomain) Init(io.Reader, int) error { return nil }
func (g *graphDomain) StateLen() int             { return g.slen }

func (g *graphDomain) Size() []byte {
	buf := make([]byte, g.slen)
	solver.PutID(buf, g.n-1)
	return buf
}

func (g *graphDomain) Encode(thr int) []byte {
	solver.PutID(g.bufs[thr], g.cur[thr])
	return g.bufs[thr]
}

func (g *graphDomain) Decode(buf []byte, thr int) { g.cur[thr] = solver.GetID(buf) }

func (g *graphDomain) Won(thr int) bool {
	return g.goal != noGoal && g.cur[thr] == g.goal
}

func (g *graphDomain) Print(w io.Writer, thr int) {
	fmt.Fprintf(w, "state %d\n", g.cur[thr])
}

func (g *graphDomain) VisitNeighbours(thr int, emit func([]byte)) {
	me := g.cur[thr]
	for _, c := range g.adj[me] {
		g.cur[thr] = c
		solver.PutID(g.bufs[thr], c)
		emit(g.bufs[thr])
	}
	g.cur[thr] = me
}

// undirect returns the edge list with every reverse edge added.
func undirect(edges [][2]uint64) [][2]uint64 {
	out := make([][2]uint64, 0, 2*len(edges))
	for _, e := range edges {
		out = append(out, e, [2]uint64{e[1], e[0]})
	}
	return out
}
