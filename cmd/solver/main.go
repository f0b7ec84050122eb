// Binary solver exhaustively explores the state space of a puzzle by
// breadth-first search, finding a shortest solution or proving there is
// none. The puzzle description is read from standard input; the engine and
// its tuning are chosen on the command line:
//
//	solver mem < level.txt
//	solver disk [m [L1 [L2]]] < level.txt
//	solver dedup [MB] < level.txt
//	solver par T [m [L1 [L2]]] < level.txt
//
// Engines that swap to disk create files named GEN-xxxx in the current
// directory.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stubbscroll/solver"
	"github.com/stubbscroll/solver/internal/config"
	"github.com/stubbscroll/solver/internal/oninterrupt"
	"github.com/stubbscroll/solver/internal/trace"
)

var version = "dev"

var (
	puzzleFlag   string
	exhaustFlag  bool
	verboseFlag  bool
	solutionFile string
	ctraceFile   string
	cleanFlag    bool

	cfg *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "solver",
		Short:         "exhaustive breadth-first puzzle solver",
		Long:          "solver — exhaustive breadth-first search over puzzle state spaces.\nReads the puzzle from standard input, picks a search engine per subcommand.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag {
				log.SetLevel(log.DebugLevel)
			}
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if puzzleFlag == "" {
				puzzleFlag = cfg.Puzzle
			}
			if ctraceFile != "" {
				f, err := os.Create(ctraceFile)
				if err != nil {
					return err
				}
				trace.Sink(f)
				solver.RegisterCleanup(f.Close)
			}
			oninterrupt.Register(func() { solver.RunCleanups() })
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pflags := rootCmd.PersistentFlags()
	pflags.StringVarP(&puzzleFlag, "puzzle", "p", "", "puzzle domain: npuzzle or soko (default npuzzle)")
	pflags.BoolVar(&exhaustFlag, "exhaust", false, "never stop at a goal; survey the whole reachable component (npuzzle only)")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "extra detail on progress and memory use")
	pflags.StringVar(&solutionFile, "solution-file", "", "also write the solution to this file (atomically)")
	pflags.StringVar(&ctraceFile, "ctracefile", "", "write a chrome trace event file of the search")
	pflags.BoolVar(&cleanFlag, "clean", false, "remove GEN-* files when the search ends")

	addMemCommand(rootCmd)
	addDiskCommand(rootCmd)
	addDedupCommand(rootCmd)
	addParCommand(rootCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		solver.RunCleanups()
		os.Exit(1)
	}
	if err := solver.RunCleanups(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
