package engine

import (
	"io"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// refDistances computes shortest-path lengths from start on the same edge
// list with gonum, as an independent oracle. Unreachable nodes map to -1.
func refDistances(n uint64, edges [][2]uint64, start uint64) []int {
	g := simple.NewDirectedGraph()
	for i := uint64(0); i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		if e[0] == e[1] {
			continue // simple graphs reject self-loops; a self-move never changes BFS depth
		}
		g.SetEdge(g.NewEdge(simple.Node(e[0]), simple.Node(e[1])))
	}
	shortest := path.DijkstraFrom(g.Node(int64(start)), g)
	dist := make([]int, n)
	for i := uint64(0); i < n; i++ {
		w := shortest.WeightTo(int64(i))
		if math.IsInf(w, 1) {
			dist[i] = -1
		} else {
			dist[i] = int(w)
		}
	}
	return dist
}

func randomGraph(rng *rand.Rand, n uint64, extra int) [][2]uint64 {
	var edges [][2]uint64
	// a spine through the lower half keeps a good chunk reachable; the
	// upper half's reachability is up to the random edges
	for i := uint64(0); i+1 < n/2; i++ {
		edges = append(edges, [2]uint64{i, i + 1})
	}
	for k := 0; k < extra; k++ {
		edges = append(edges, [2]uint64{uint64(rng.Intn(int(n))), uint64(rng.Intn(int(n)))})
	}
	return edges
}

// TestBFSLayeringMatchesReference checks completeness and BFS layering of
// the disk engine against gonum on random graphs: a state appears in
// generation g iff its shortest-path distance is g, and nowhere else.
func TestBFSLayeringMatchesReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		n := uint64(20 + rng.Intn(100))
		edges := randomGraph(rng, n, int(n)*2)
		dist := refDistances(n, edges, 0)

		dir := t.TempDir()
		g := newGraphDomain(n, edges, 0, noGoal, 1)
		e, err := NewDisk(g, Options{Dir: dir, Out: io.Discard})
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.Run()
		if err != nil {
			t.Fatal(err)
		}

		depthOf := make(map[uint64]int)
		for gen := 0; gen <= res.Depth; gen++ {
			for _, id := range readGen(t, dir, g.slen, gen) {
				if prev, dup := depthOf[id]; dup {
					t.Fatalf("round %d: state %d in generations %d and %d", round, id, prev, gen)
				}
				depthOf[id] = gen
			}
		}
		var reachable uint64
		for s := uint64(0); s < n; s++ {
			got, visited := depthOf[s]
			if dist[s] == -1 {
				if visited {
					t.Errorf("round %d: unreachable state %d admitted at depth %d", round, s, got)
				}
				continue
			}
			reachable++
			if !visited {
				t.Errorf("round %d: reachable state %d (distance %d) never admitted", round, s, dist[s])
			} else if got != dist[s] {
				t.Errorf("round %d: state %d at depth %d, reference distance %d", round, s, got, dist[s])
			}
		}
		if res.Visited != reachable {
			t.Errorf("round %d: Visited = %d, reference reachable = %d", round, res.Visited, reachable)
		}
	}
}

// TestSolutionLengthMatchesReference checks the in-memory engine's solution
// depth against the reference distance, including unreachable goals.
func TestSolutionLengthMatchesReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1337))
	for round := 0; round < 8; round++ {
		n := uint64(10 + rng.Intn(60))
		edges := randomGraph(rng, n, int(n))
		goal := uint64(rng.Intn(int(n)))
		dist := refDistances(n, edges, 0)

		g := newGraphDomain(n, edges, 0, goal, 1)
		e, err := NewMemory(g, Options{Out: io.Discard})
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.Run()
		if err != nil {
			t.Fatal(err)
		}
		if dist[goal] == -1 {
			if res.Solved {
				t.Errorf("round %d: solved unreachable goal %d", round, goal)
			}
			continue
		}
		if !res.Solved {
			t.Errorf("round %d: goal %d at distance %d not solved", round, goal, dist[goal])
		} else if res.Depth != dist[goal] {
			t.Errorf("round %d: Depth = %d, reference distance %d", round, res.Depth, dist[goal])
		}
	}
}

// TestDedupCountsMatchReference checks the delayed-duplicate engine's
// visited total against the reference reachable count.
func TestDedupCountsMatchReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))
	for round := 0; round < 5; round++ {
		n := uint64(10 + rng.Intn(50))
		edges := randomGraph(rng, n, int(n)*2)
		dist := refDistances(n, edges, 0)
		var reachable uint64
		for s := uint64(0); s < n; s++ {
			if dist[s] != -1 {
				reachable++
			}
		}

		g := newGraphDomain(n, edges, 0, noGoal, 1)
		e, err := NewDedup(g, Options{Out: io.Discard})
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.Run()
		if err != nil {
			t.Fatal(err)
		}
		if res.Visited != reachable {
			t.Errorf("round %d: Visited = %d, reference reachable = %d", round, res.Visited, reachable)
		}
	}
}
