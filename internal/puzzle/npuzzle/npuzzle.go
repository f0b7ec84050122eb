// Package npuzzle implements the generalized 15-puzzle: an x*y board of
// numbered tiles with one blank, solved by sliding tiles into the blank
// until tile k sits on cell k. States are identified by the lexicographic
// rank of the board's permutation, so the ID space is exactly (x*y)! and
// every ID decodes to a board.
//
// Half of all permutations are unreachable; a parity check rejects
// unsolvable inputs up front instead of letting a search exhaust 10^13
// states to prove the obvious.
package npuzzle

import (
	"fmt"
	"io"
	"math/bits"

	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/puzzle"
)

// maxCells keeps xy! inside uint64 so the factorial table cannot overflow;
// the contractual 2^60 ID-space bound is checked against the computed size
// separately (19 cells fit it, 20 do not).
const (
	maxDim   = 20
	maxCells = 20
)

var (
	dx = [4]int{1, 0, -1, 0}
	dy = [4]int{0, 1, 0, -1}
)

// Puzzle is the n-puzzle domain. Boards are stored row-major; cell value 0
// is the blank, and the goal places value (k+1) mod x*y on cell k.
type Puzzle struct {
	exhaust bool // never report a win; survey the whole component

	x, y, xy  int
	dsize     uint64
	slen      int
	factorial []uint64

	cur  [][]int // per-thread scratch boards
	bufs [][]byte
}

// New returns an uninitialized domain. With exhaust set, Won never fires
// and a search enumerates the entire reachable component, which is how
// radius surveys of the puzzle are run.
func New(exhaust bool) *Puzzle {
	return &Puzzle{exhaust: exhaust}
}

func (p *Puzzle) Init(r io.Reader, threads int) error {
	lvl, err := puzzle.Parse(r)
	if err != nil {
		return err
	}
	if lvl.X < 2 || lvl.Y < 2 {
		return xerrors.Errorf("size must be at least 2 in each dimension: %w", solver.ErrBadInput)
	}
	if lvl.X > maxDim || lvl.Y > maxDim {
		return xerrors.Errorf("map larger than %dx%d: %w", maxDim, maxDim, solver.ErrBadInput)
	}
	p.x, p.y = lvl.X, lvl.Y
	p.xy = p.x * p.y
	if p.xy > maxCells {
		return xerrors.Errorf("%d cells: %w", p.xy, solver.ErrTooLarge)
	}

	start, err := p.parseBoard(lvl.Rows)
	if err != nil {
		return err
	}

	// every value 0..xy-1 exactly once
	var seen uint64
	for _, v := range start {
		if v < 0 || v >= p.xy || seen&(1<<uint(v)) != 0 {
			return xerrors.Errorf("board must hold each number from 0 to %d once: %w", p.xy-1, solver.ErrBadInput)
		}
		seen |= 1 << uint(v)
	}

	p.factorial = make([]uint64, p.xy+1)
	p.factorial[0] = 1
	for i := 1; i <= p.xy; i++ {
		p.factorial[i] = p.factorial[i-1] * uint64(i)
	}
	p.dsize = p.factorial[p.xy]
	if p.dsize > solver.MaxStates-1 {
		return xerrors.Errorf("%d states: %w", p.dsize, solver.ErrTooLarge)
	}
	p.slen = solver.IDLen(p.dsize)

	if !solvable(start, p.x, p.y) {
		return xerrors.Errorf("unsolvable input state: %w", solver.ErrBadInput)
	}

	p.cur = make([][]int, threads)
	p.bufs = make([][]byte, threads)
	for t := 0; t < threads; t++ {
		p.cur[t] = append([]int(nil), start...)
		p.bufs[t] = make([]byte, p.slen)
	}
	return nil
}

// parseBoard reads the map rows: digits 1-9, A-Z for 10-35, a-z for 36-61,
// {n} for a literal number, and space or 0 for the blank.
func (p *Puzzle) parseBoard(rows []string) ([]int, error) {
	board := make([]int, p.xy)
	for j, row := range rows {
		k := 0
		for i := 0; i < p.x; i++ {
			if k >= len(row) {
				return nil, xerrors.Errorf("map row %d too short: %w", j, solver.ErrBadInput)
			}
			c := row[k]
			k++
			var val int
			switch {
			case c == '{':
				for k < len(row) && row[k] >= '0' && row[k] <= '9' {
					val = val*10 + int(row[k]-'0')
					k++
				}
				if k >= len(row) || row[k] != '}' {
					return nil, xerrors.Errorf("expected } in map: %w", solver.ErrBadInput)
				}
				k++
			case c >= '0' && c <= '9':
				val = int(c - '0')
			case c >= 'A' && c <= 'Z':
				val = int(c-'A') + 10
			case c >= 'a' && c <= 'z':
				val = int(c-'a') + 36
			case c == ' ':
				val = 0
			default:
				return nil, xerrors.Errorf("illegal char %q in map: %w", c, solver.ErrBadInput)
			}
			board[j*p.x+i] = val
		}
	}
	return board, nil
}

// solvable reports whether the goal is reachable. Every slide transposes
// the blank with one tile and moves the blank one step, so the parity of
// the cell-to-goal-cell permutation (blank included) always equals the
// parity of the blank's taxicab distance to its goal corner; positions
// where the two disagree are unreachable.
func solvable(board []int, x, y int) bool {
	xy := x * y
	sigma := make([]int, xy)
	cab := 0
	for k, v := range board {
		if v == 0 {
			i, j := k%x, k/x
			cab = x + y - i - j - 2
			sigma[k] = xy - 1
		} else {
			sigma[k] = v - 1
		}
	}
	parity := 0
	done := make([]bool, xy)
	for i := range sigma {
		if done[i] || sigma[i] == i {
			continue
		}
		for k := i; !done[k]; k = sigma[k] {
			done[k] = true
			parity++
		}
		parity-- // a cycle of length L is L-1 transpositions
	}
	return (cab+parity)%2 == 0
}

func (p *Puzzle) StateLen() int { return p.slen }

func (p *Puzzle) Size() []byte {
	buf := make([]byte, p.slen)
	solver.PutID(buf, p.dsize-1)
	return buf
}

// Encode ranks the board's permutation: at step k, count how many unused
// values are smaller than the cell's value and weigh by (xy-k-1)!.
func (p *Puzzle) Encode(thr int) []byte {
	var v uint64
	var taken uint64
	for k, val := range p.cur[thr] {
		a := val - bits.OnesCount64(taken&(1<<uint(val)-1))
		v += uint64(a) * p.factorial[p.xy-k-1]
		taken |= 1 << uint(val)
	}
	solver.PutID(p.bufs[thr], v)
	return p.bufs[thr]
}

// Decode unranks an ID back into a board.
func (p *Puzzle) Decode(buf []byte, thr int) {
	v := solver.GetID(buf)
	var taken uint64
	for k := range p.cur[thr] {
		f := p.factorial[p.xy-k-1]
		a := int(v / f)
		v %= f
		// the a-th value not yet used
		m := 0
		for skip := a; ; m++ {
			if taken&(1<<uint(m)) == 0 {
				if skip == 0 {
					break
				}
				skip--
			}
		}
		p.cur[thr][k] = m
		taken |= 1 << uint(m)
	}
}

func (p *Puzzle) Won(thr int) bool {
	if p.exhaust {
		return false
	}
	for k, v := range p.cur[thr] {
		if v != (k+1)%p.xy {
			return false
		}
	}
	return true
}

func (p *Puzzle) Print(w io.Writer, thr int) {
	for j := 0; j < p.y; j++ {
		for i := 0; i < p.x; i++ {
			fmt.Fprintf(w, "%3d", p.cur[thr][j*p.x+i])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// VisitNeighbours slides each of the up to four tiles adjacent to the
// blank into it.
func (p *Puzzle) VisitNeighbours(thr int, emit func(child []byte)) {
	m := p.cur[thr]
	var cx, cy int
	for k, v := range m {
		if v == 0 {
			cx, cy = k%p.x, k/p.x
		}
	}
	blank := cy*p.x + cx
	for d := 0; d < 4; d++ {
		x2, y2 := cx+dx[d], cy+dy[d]
		if x2 < 0 || y2 < 0 || x2 >= p.x || y2 >= p.y {
			continue
		}
		from := y2*p.x + x2
		m[blank], m[from] = m[from], 0
		emit(p.Encode(thr))
		m[from], m[blank] = m[blank], 0
	}
}
