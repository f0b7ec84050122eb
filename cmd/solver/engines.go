package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/engine"
	"github.com/stubbscroll/solver/internal/genstore"
	"github.com/stubbscroll/solver/internal/puzzle/npuzzle"
	"github.com/stubbscroll/solver/internal/puzzle/soko"
)

// runner is what every engine offers once constructed.
type runner interface {
	Run() (*engine.Result, error)
}

func newDomain() (solver.Domain, error) {
	switch puzzleFlag {
	case "", "npuzzle":
		return npuzzle.New(exhaustFlag), nil
	case "soko":
		if exhaustFlag {
			return nil, xerrors.Errorf("--exhaust only applies to npuzzle")
		}
		return soko.New(), nil
	default:
		return nil, xerrors.Errorf("unknown puzzle %q (want npuzzle or soko)", puzzleFlag)
	}
}

// runSearch initializes the domain from stdin, builds the engine and
// reports the outcome. threads is the number of scratch slots the domain
// needs.
func runSearch(threads int, build func(solver.Domain, io.Writer) (runner, error)) error {
	dom, err := newDomain()
	if err != nil {
		return err
	}
	if err := dom.Init(os.Stdin, threads); err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	var pending *renameio.PendingFile
	if solutionFile != "" {
		pending, err = renameio.TempFile("", solutionFile)
		if err != nil {
			return err
		}
		defer pending.Cleanup()
		out = io.MultiWriter(os.Stdout, pending)
	}
	if cleanFlag {
		store := genstore.New(".", dom.StateLen())
		solver.RegisterCleanup(store.RemoveAll)
	}

	eng, err := build(dom, out)
	if err != nil {
		return err
	}
	res, err := eng.Run()
	if err != nil {
		return err
	}
	if !res.Solved {
		fmt.Println("no solution found")
	}
	log.WithFields(log.Fields{
		"solved":  res.Solved,
		"depth":   res.Depth,
		"visited": res.Visited,
	}).Info("search finished")
	if res.Solved && pending != nil {
		return pending.CloseAtomicallyReplace()
	}
	return nil
}

// positional parses optional trailing integer arguments into dst, in
// order. Mirrors the original's argv handling: later arguments need the
// earlier ones.
func positional(args []string, dst ...*int64) error {
	if len(args) > len(dst) {
		return xerrors.Errorf("too many arguments")
	}
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil || v < 0 {
			return xerrors.Errorf("argument %q: want a non-negative number", a)
		}
		*dst[i] = v
	}
	return nil
}

func addMemCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "mem",
		Short: "in-memory BFS (needs 16 bytes per state)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(1, func(dom solver.Domain, out io.Writer) (runner, error) {
				e, err := engine.NewMemory(dom, engine.Options{Out: out})
				if err != nil {
					return nil, err
				}
				return e, nil
			})
		},
	})
}

// configured returns the config-file defaults for m, L1 and L2, falling
// back to the given values.
func configured(m, l1, l2 int64) (int64, int64, int64) {
	if cfg.ChunkBits != nil {
		m = int64(*cfg.ChunkBits)
	}
	if cfg.ReadMB > 0 {
		l1 = cfg.ReadMB
	}
	if cfg.WriteMB > 0 {
		l2 = cfg.WriteMB
	}
	return m, l1, l2
}

// tuningArgs resolves the [m [L1_MB [L2_MB]]] positional arguments of the
// disk engines over the given defaults.
func tuningArgs(args []string, m, l1, l2 int64) (int64, int64, int64, error) {
	var err error
	switch len(args) {
	case 1:
		err = positional(args, &m)
	case 2:
		err = positional(args, &m, &l1)
	case 3:
		err = positional(args, &m, &l1, &l2)
	}
	return m, l1, l2, err
}

func addDiskCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "disk [m [L1_MB [L2_MB]]]",
		Short: "disk-swapping BFS (needs 1 bit per state, lazily allocated)",
		Long: `Disk-swapping BFS. Frontier files GEN-xxxx are written to the current
directory. 2^m is the chunk size of the lazily allocated visited set (m=0:
one chunk); L1_MB and L2_MB size the read and write buffers.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, l1, l2 := configured(16, 50, 50)
			m, l1, l2, err := tuningArgs(args, m, l1, l2)
			if err != nil {
				return err
			}
			return runSearch(1, func(dom solver.Domain, out io.Writer) (runner, error) {
				e, err := engine.NewDisk(dom, engine.Options{
					ChunkBits: uint(m),
					ReadBuf:   l1 << 20,
					WriteBuf:  l2 << 20,
					Out:       out,
				})
				if err != nil {
					return nil, err
				}
				return e, nil
			})
		},
	})
}

func addDedupCommand(root *cobra.Command) {
	var undirected bool
	cmd := &cobra.Command{
		Use:   "dedup [MB]",
		Short: "delayed-duplicate-detection BFS in a fixed arena, no disk",
		Long: `Delayed-duplicate-detection BFS. All remembered states live in one arena
of MB megabytes; duplicates are removed in batches by merge passes. With
--undirected only the previous two generations are kept, which is sound
only for puzzles whose every move has an inverse. Solution paths are not
recoverable; a win reports the depth only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arena := int64(50)
			if cfg.ArenaMB > 0 {
				arena = cfg.ArenaMB
			}
			if err := positional(args, &arena); err != nil {
				return err
			}
			return runSearch(1, func(dom solver.Domain, out io.Writer) (runner, error) {
				e, err := engine.NewDedup(dom, engine.Options{
					Arena:      arena << 20,
					Undirected: undirected,
					Out:        out,
				})
				if err != nil {
					return nil, err
				}
				return e, nil
			})
		},
	}
	cmd.Flags().BoolVar(&undirected, "undirected", false, "keep only two generations (undirected move graphs only)")
	root.AddCommand(cmd)
}

func addParCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "par T [m [L1_MB [L2_MB]]]",
		Short: "parallel disk-swapping BFS with T worker threads",
		Args:  cobra.RangeArgs(1, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			threads, err := strconv.Atoi(args[0])
			if err != nil || threads < 1 || threads > engine.MaxThreads {
				return xerrors.Errorf("number of threads should be between 1 and %d", engine.MaxThreads)
			}
			m, l1, l2 := configured(20, 400, 50)
			m, l1, l2, err = tuningArgs(args[1:], m, l1, l2)
			if err != nil {
				return err
			}
			return runSearch(threads+1, func(dom solver.Domain, out io.Writer) (runner, error) {
				e, err := engine.NewParallel(dom, engine.Options{
					ChunkBits: uint(m),
					ReadBuf:   l1 << 20,
					WriteBuf:  l2 << 20,
					Threads:   threads,
					Out:       out,
				})
				if err != nil {
					return nil, err
				}
				return e, nil
			})
		},
	})
}
