package npuzzle

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/engine"
)

func level(rows ...string) string {
	var b strings.Builder
	b.WriteString(rows[0])
	for _, r := range rows[1:] {
		b.WriteString("\n")
		b.WriteString(r)
	}
	b.WriteString("\n")
	return b.String()
}

func mustInit(t *testing.T, in string, threads int) *Puzzle {
	t.Helper()
	p := New(false)
	require.NoError(t, p.Init(strings.NewReader(in), threads))
	return p
}

func TestInitGoalBoard(t *testing.T) {
	t.Parallel()

	p := mustInit(t, level("size 3 3", "map", "123", "456", "780"), 1)
	require.Equal(t, 9*8*7*6*5*4*3*2, int(solver.GetID(p.Size()))+1)
	require.True(t, p.Won(0))
}

func TestUnsolvableFifteenPuzzle(t *testing.T) {
	t.Parallel()

	// the goal position with tiles 1 and 2 swapped: odd permutation,
	// blank in place, famously unsolvable
	p := New(false)
	err := p.Init(strings.NewReader(level(
		"size 4 4", "map", "2134", "5678", "9ABC", "DEF0")), 1)
	require.ErrorIs(t, err, solver.ErrBadInput)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"too small":     level("size 1 4", "map", "1", "2", "3", " "),
		"missing tile":  level("size 2 2", "map", "12", "4 "),
		"repeated tile": level("size 2 2", "map", "11", "2 "),
		"illegal char":  level("size 2 2", "map", "1!", "2 "),
		"short row":     level("size 3 2", "map", "12", "345"),
		"open brace":    level("size 2 2", "map", "{1 ", "23"),
	} {
		p := New(false)
		if err := p.Init(strings.NewReader(in), 1); !errors.Is(err, solver.ErrBadInput) {
			t.Errorf("%s: err = %v, want ErrBadInput", name, err)
		}
	}
}

func TestTwentyCellBoardTooLarge(t *testing.T) {
	t.Parallel()

	// 20! rankings exceed the 2^60-1 ID-space bound
	p := New(false)
	err := p.Init(strings.NewReader(level(
		"size 4 5", "map", "1234", "5678", "9ABC", "DEFG", "HIJ ")), 1)
	require.ErrorIs(t, err, solver.ErrTooLarge)
}

func TestBraceTiles(t *testing.T) {
	t.Parallel()

	// {n} spells a tile out in decimal; mixes with single-char tiles
	p := mustInit(t, level("size 2 2", "map", "{1}{2}", "{3}0"), 1)
	require.True(t, p.Won(0))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	p := mustInit(t, level("size 3 2", "map", "123", "45 "), 1)
	// drive the scratch state through every rank and check the codec
	// inverts itself
	buf := make([]byte, p.StateLen())
	for v := uint64(0); v < p.dsize; v += 17 {
		solver.PutID(buf, v)
		p.Decode(buf, 0)
		require.Equal(t, v, solver.GetID(p.Encode(0)), "rank %d", v)
	}
}

func TestNeighbourCounts(t *testing.T) {
	t.Parallel()

	// blank in a corner slides 2 tiles, on an edge 3, in the middle 4
	for _, tt := range []struct {
		rows []string
		want int
	}{
		{[]string{"size 3 3", "map", "123", "456", "78 "}, 2},
		{[]string{"size 3 3", "map", "123", "4 6", "758"}, 4},
		{[]string{"size 3 3", "map", "123", " 46", "758"}, 3},
	} {
		p := mustInit(t, level(tt.rows...), 1)
		n := 0
		p.VisitNeighbours(0, func([]byte) { n++ })
		require.Equal(t, tt.want, n, "board %v", tt.rows)
	}
}

func TestStartAtGoalZeroStepSolution(t *testing.T) {
	t.Parallel()

	// the 8-puzzle already in its goal position solves in zero moves
	p := mustInit(t, level("size 3 3", "map", "123", "456", "780"), 1)
	e, err := engine.NewMemory(p, engine.Options{Out: io.Discard})
	require.NoError(t, err)
	res, err := e.Run()
	require.NoError(t, err)
	require.True(t, res.Solved)
	require.Equal(t, 0, res.Depth)
}

func TestSolveShortScrambles(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		rows  []string
		depth int
	}{
		{[]string{"size 2 2", "map", "12", "03"}, 1},
		{[]string{"size 3 3", "map", "123", "450", "786"}, 1},
		{[]string{"size 3 3", "map", "123", "406", "758"}, 2},
	} {
		p := mustInit(t, level(tt.rows...), 1)
		e, err := engine.NewMemory(p, engine.Options{Out: io.Discard})
		require.NoError(t, err)
		res, err := e.Run()
		require.NoError(t, err)
		require.True(t, res.Solved, "board %v", tt.rows)
		require.Equal(t, tt.depth, res.Depth, "board %v", tt.rows)
	}
}

func TestEnginesAgreeOnScramble(t *testing.T) {
	t.Parallel()

	rows := []string{"size 3 3", "map", " 13", "425", "786"}
	in := level(rows...)

	mem := mustInit(t, in, 1)
	me, err := engine.NewMemory(mem, engine.Options{Out: io.Discard})
	require.NoError(t, err)
	memRes, err := me.Run()
	require.NoError(t, err)
	require.True(t, memRes.Solved)

	dsk := mustInit(t, in, 1)
	de, err := engine.NewDisk(dsk, engine.Options{Dir: t.TempDir(), Out: io.Discard})
	require.NoError(t, err)
	dskRes, err := de.Run()
	require.NoError(t, err)
	require.Equal(t, memRes.Depth, dskRes.Depth)

	ddp := mustInit(t, in, 1)
	dd, err := engine.NewDedup(ddp, engine.Options{Out: io.Discard})
	require.NoError(t, err)
	ddRes, err := dd.Run()
	require.NoError(t, err)
	require.Equal(t, memRes.Depth, ddRes.Depth)

	par := mustInit(t, in, 4)
	pe, err := engine.NewParallel(par, engine.Options{Dir: t.TempDir(), Out: io.Discard, Threads: 3})
	require.NoError(t, err)
	parRes, err := pe.Run()
	require.NoError(t, err)
	require.Equal(t, memRes.Depth, parRes.Depth)
}

func TestExhaustCountsComponent(t *testing.T) {
	t.Parallel()

	// half of the 2x2 board's 24 permutations are reachable
	p := New(true)
	require.NoError(t, p.Init(strings.NewReader(level("size 2 2", "map", "12", "3 ")), 1))
	e, err := engine.NewMemory(p, engine.Options{Out: io.Discard})
	require.NoError(t, err)
	res, err := e.Run()
	require.NoError(t, err)
	require.False(t, res.Solved)
	require.Equal(t, uint64(12), res.Visited)
}

func TestSolvable(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		board []int
		x, y  int
		want  bool
	}{
		{[]int{1, 2, 3, 0}, 2, 2, true},
		{[]int{2, 1, 3, 0}, 2, 2, false},
		{[]int{1, 2, 3, 4, 5, 6, 7, 8, 0}, 3, 3, true},
		{[]int{1, 2, 3, 4, 5, 6, 8, 7, 0}, 3, 3, false},
		{[]int{1, 2, 0, 3}, 2, 2, true}, // one slide from the goal
		{[]int{0, 1, 2, 3, 4, 5, 6, 7, 8}, 3, 3, true},
	} {
		if got := solvable(tt.board, tt.x, tt.y); got != tt.want {
			t.Errorf("solvable(%v) = %v, want %v", tt.board, got, tt.want)
		}
	}
}
