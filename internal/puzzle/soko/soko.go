// Package soko implements a sokoban domain for small-ish puzzles: one man
// pushes blocks onto destination cells. States are identified by writing
// the block positions and then the man position as digits base floor-count,
// so the ID space is floor^(blocks+1). No deadlock pruning: a block pushed
// into a corner simply leads to a dead subtree the search exhausts.
package soko

import (
	"fmt"
	"io"
	"math/bits"

	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/puzzle"
)

const maxDim = 40

var (
	dx = [4]int{1, 0, -1, 0}
	dy = [4]int{0, 1, 0, -1}
)

// Cell glyphs, as in the level files: # wall, space floor, @ man, $ block,
// . destination, * block on destination, + man on destination.
const (
	wall  = '#'
	floor = ' '
	man   = '@'
	block = '$'
	goal  = '.'
)

// Puzzle is the sokoban domain. The static map (walls and destinations)
// and the floor-cell numbering are built once at Init; the per-thread
// scratch holds only the mobile layer.
type Puzzle struct {
	x, y   int
	smap   []byte // static: wall, floor or goal, indexed j*x+i
	cellID []int  // floor-cell index per cell, -1 for walls
	cellAt []int  // inverse: cell offset per floor-cell index
	floor  int
	blocks int
	dsize  uint64
	slen   int

	cur  [][]byte // per-thread mobile layer: wall, floor, man or block
	bufs [][]byte
}

func New() *Puzzle { return &Puzzle{} }

func (p *Puzzle) Init(r io.Reader, threads int) error {
	lvl, err := puzzle.Parse(r)
	if err != nil {
		return err
	}
	if lvl.X > maxDim || lvl.Y > maxDim {
		return xerrors.Errorf("map larger than %dx%d: %w", maxDim, maxDim, solver.ErrBadInput)
	}
	p.x, p.y = lvl.X, lvl.Y
	p.smap = make([]byte, p.x*p.y)
	start := make([]byte, p.x*p.y)
	men, goals := 0, 0
	for j, row := range lvl.Rows {
		for i := 0; i < p.x; i++ {
			if i >= len(row) {
				return xerrors.Errorf("map row %d too short: %w", j, solver.ErrBadInput)
			}
			k := j*p.x + i
			switch row[i] {
			case wall:
				p.smap[k], start[k] = wall, wall
			case floor:
				p.smap[k], start[k] = floor, floor
			case goal:
				p.smap[k], start[k] = goal, floor
			case block:
				p.smap[k], start[k] = floor, block
			case '*':
				p.smap[k], start[k] = goal, block
			case man:
				p.smap[k], start[k] = floor, man
			case '+':
				p.smap[k], start[k] = goal, man
			default:
				return xerrors.Errorf("illegal char %q in map: %w", row[i], solver.ErrBadInput)
			}
		}
	}

	// number the floor cells in scan order; encoded states are digits in
	// this numbering
	p.cellID = make([]int, p.x*p.y)
	for k := range p.cellID {
		p.cellID[k] = -1
	}
	for k, c := range p.smap {
		switch c {
		case floor, goal:
			p.cellID[k] = p.floor
			p.cellAt = append(p.cellAt, k)
			p.floor++
			if c == goal {
				goals++
			}
		}
		switch start[k] {
		case man:
			men++
		case block:
			p.blocks++
		}
	}
	if men != 1 {
		return xerrors.Errorf("map must contain 1 man: %w", solver.ErrBadInput)
	}
	if goals != p.blocks {
		return xerrors.Errorf("map must contain the same number of blocks and destinations: %w", solver.ErrBadInput)
	}
	if goals == 0 {
		return xerrors.Errorf("map must contain at least 1 block: %w", solver.ErrBadInput)
	}

	// dsize = floor^(blocks+1)
	p.dsize = 1
	for i := 0; i <= p.blocks; i++ {
		hi, lo := bits.Mul64(p.dsize, uint64(p.floor))
		if hi != 0 || lo >= solver.MaxStates {
			return xerrors.Errorf("%d floor cells, %d blocks: %w", p.floor, p.blocks, solver.ErrTooLarge)
		}
		p.dsize = lo
	}
	p.slen = solver.IDLen(p.dsize)

	p.cur = make([][]byte, threads)
	p.bufs = make([][]byte, threads)
	for t := 0; t < threads; t++ {
		p.cur[t] = append([]byte(nil), start...)
		p.bufs[t] = make([]byte, p.slen)
	}
	return nil
}

func (p *Puzzle) StateLen() int { return p.slen }

func (p *Puzzle) Size() []byte {
	buf := make([]byte, p.slen)
	solver.PutID(buf, p.dsize-1)
	return buf
}

// Encode writes the block cells in scan order and the man's cell as digits
// base floor-count. Blocks are interchangeable, and the scan order keeps
// the encoding canonical.
func (p *Puzzle) Encode(thr int) []byte {
	var v uint64
	for k, c := range p.cur[thr] {
		if c == block {
			v = v*uint64(p.floor) + uint64(p.cellID[k])
		}
	}
	for k, c := range p.cur[thr] {
		if c == man {
			v = v*uint64(p.floor) + uint64(p.cellID[k])
		}
	}
	solver.PutID(p.bufs[thr], v)
	return p.bufs[thr]
}

func (p *Puzzle) Decode(buf []byte, thr int) {
	v := solver.GetID(buf)
	m := p.cur[thr]
	for _, k := range p.cellAt {
		m[k] = floor
	}
	m[p.cellAt[v%uint64(p.floor)]] = man
	v /= uint64(p.floor)
	for i := 0; i < p.blocks; i++ {
		m[p.cellAt[v%uint64(p.floor)]] = block
		v /= uint64(p.floor)
	}
}

// Won is true when every destination holds a block.
func (p *Puzzle) Won(thr int) bool {
	for k, c := range p.smap {
		if c == goal && p.cur[thr][k] != block {
			return false
		}
	}
	return true
}

func (p *Puzzle) Print(w io.Writer, thr int) {
	for j := 0; j < p.y; j++ {
		w.Write(p.cur[thr][j*p.x : (j+1)*p.x])
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// VisitNeighbours moves the man into each of the four directions, pushing
// a block ahead of him when the cell behind it is free.
func (p *Puzzle) VisitNeighbours(thr int, emit func(child []byte)) {
	m := p.cur[thr]
	var cx, cy int
	for k, c := range m {
		if c == man {
			cx, cy = k%p.x, k/p.x
		}
	}
	at := cy*p.x + cx
	for d := 0; d < 4; d++ {
		x2, y2 := cx+dx[d], cy+dy[d]
		if x2 < 0 || y2 < 0 || x2 >= p.x || y2 >= p.y {
			continue
		}
		to := y2*p.x + x2
		switch m[to] {
		case floor:
			m[at], m[to] = floor, man
			emit(p.Encode(thr))
			m[at], m[to] = man, floor
		case block:
			x3, y3 := x2+dx[d], y2+dy[d]
			if x3 < 0 || y3 < 0 || x3 >= p.x || y3 >= p.y {
				continue
			}
			past := y3*p.x + x3
			if m[past] != floor {
				continue
			}
			m[at], m[to], m[past] = floor, man, block
			emit(p.Encode(thr))
			m[at], m[to], m[past] = man, block, floor
		}
	}
}
