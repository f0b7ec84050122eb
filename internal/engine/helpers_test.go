package engine

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/genstore"
)

// step is one printed solution entry: the move label and the state the
// graphDomain rendered.
type step struct {
	move  int
	state uint64
}

// parseSolution pulls the move/state pairs out of engine output.
func parseSolution(t *testing.T, out string) []step {
	t.Helper()
	var steps []step
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "move ") {
			m, err := strconv.Atoi(strings.TrimPrefix(line, "move "))
			if err != nil {
				t.Fatalf("bad move line %q", line)
			}
			steps = append(steps, step{move: m, state: noGoal})
		} else if strings.HasPrefix(line, "state ") {
			s, err := strconv.ParseUint(strings.TrimPrefix(line, "state "), 10, 64)
			if err != nil {
				t.Fatalf("bad state line %q", line)
			}
			if len(steps) == 0 || steps[len(steps)-1].state != noGoal {
				t.Fatalf("state line %q without preceding move", line)
			}
			steps[len(steps)-1].state = s
		}
	}
	return steps
}

// checkForwardPath verifies a start-to-goal path: labels 0..len-1 and every
// consecutive pair connected by a domain move.
func checkForwardPath(t *testing.T, g *graphDomain, steps []step) {
	t.Helper()
	for i, s := range steps {
		if s.move != i {
			t.Fatalf("step %d labeled move %d", i, s.move)
		}
	}
	checkEdges(t, g, steps)
}

// checkReversePath verifies a goal-to-start path as the disk engines print
// it: labels descending to 0, edges pointing toward the earlier entry.
func checkReversePath(t *testing.T, g *graphDomain, steps []step) {
	t.Helper()
	for i, s := range steps {
		if want := len(steps) - 1 - i; s.move != want {
			t.Fatalf("step %d labeled move %d, want %d", i, s.move, want)
		}
	}
	rev := make([]step, len(steps))
	for i, s := range steps {
		rev[len(steps)-1-i] = s
	}
	checkEdges(t, g, rev)
}

func checkEdges(t *testing.T, g *graphDomain, steps []step) {
	t.Helper()
	for i := 1; i < len(steps); i++ {
		from, to := steps[i-1].state, steps[i].state
		ok := false
		for _, c := range g.adj[from] {
			if c == to {
				ok = true
			}
		}
		if !ok {
			t.Fatalf("no move %d -> %d in the domain", from, to)
		}
	}
}

// readGen returns the IDs of one generation file in file order.
func readGen(t *testing.T, dir string, slen, gen int) []uint64 {
	t.Helper()
	s := genstore.New(dir, slen)
	r, err := s.Open(gen, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var ids []uint64
	for {
		page, err := r.Next()
		if err == io.EOF {
			return ids
		}
		if err != nil {
			t.Fatal(err)
		}
		for off := 0; off < len(page); off += slen {
			ids = append(ids, solver.GetID(page[off:off+slen]))
		}
	}
}

func asSet(ids []uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
