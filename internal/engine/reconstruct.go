package engine

import (
	"fmt"
	"io"

	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/genstore"
)

// backwardScan recovers a solution path from the frontier files alone. The
// winning state's depth is known; for every depth below it, descending, the
// scan decodes each state of that generation and enumerates its forward
// moves until one of them produces the state currently looked for. Such a
// state is by definition a predecessor on a shortest path: it is printed
// and becomes the next target. Only forward move generation is ever needed,
// so directed graphs are fine.
//
// States are printed from the goal back to the start. Reconstruction is
// much cheaper than the search itself: no duplicate checks, and each
// generation scan stops at the first hit.
func backwardScan(dom solver.Domain, store *genstore.Store, readBuf int64, fromGen int, winID uint64, out io.Writer) error {
	slen := dom.StateLen()
	buf := make([]byte, slen)
	target := winID

	fmt.Fprintln(out, "we won! solution steps (in reverse):")
	fmt.Fprintf(out, "move %d\n", fromGen+1)
	solver.PutID(buf, target)
	dom.Decode(buf, 0)
	dom.Print(out, 0)

	found := false
	check := func(child []byte) {
		if !found && solver.GetID(child) == target {
			found = true
		}
	}
	for gen := fromGen; gen >= 0; gen-- {
		r, err := store.Open(gen, readBuf)
		if err != nil {
			return err
		}
		found = false
	scan:
		for {
			page, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				r.Close()
				return err
			}
			for off := 0; off < len(page); off += slen {
				rec := page[off : off+slen]
				dom.Decode(rec, 0)
				found = false
				dom.VisitNeighbours(0, check)
				if found {
					target = solver.GetID(rec)
					fmt.Fprintf(out, "move %d\n", gen)
					dom.Decode(rec, 0)
					dom.Print(out, 0)
					break scan
				}
			}
		}
		if err := r.Close(); err != nil {
			return xerrors.Errorf("closing generation file: %w", err)
		}
		if !found {
			return xerrors.Errorf("no predecessor of state %d in generation %d: %w", target, gen, solver.ErrInternal)
		}
	}
	return nil
}
