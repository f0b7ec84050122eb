// Package config loads optional solver defaults from a solverrc.toml file,
// so machine-specific buffer sizes do not have to be repeated on every run.
// Command-line arguments override the file.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/xerrors"
)

const rcFile = "solverrc.toml"

// Config mirrors solverrc.toml. Zero values mean "not set"; ChunkBits is a
// pointer because m = 0 (one chunk) is a meaningful setting. Threads is
// parsed but not used as a default: the par subcommand always takes T on
// the command line.
type Config struct {
	Puzzle    string `toml:"puzzle,omitempty"`
	Threads   int    `toml:"threads,omitempty"`
	ChunkBits *uint  `toml:"chunk_bits,omitempty"`
	ReadMB    int64  `toml:"read_mb,omitempty"`
	WriteMB   int64  `toml:"write_mb,omitempty"`
	ArenaMB   int64  `toml:"arena_mb,omitempty"`
}

// Path returns the file that Load would read: $SOLVER_HOME/solverrc.toml
// when SOLVER_HOME is set, otherwise ./solverrc.toml.
func Path() string {
	if home := os.Getenv("SOLVER_HOME"); home != "" {
		return filepath.Join(home, rcFile)
	}
	return rcFile
}

// Load reads the config file. A missing file is not an error and yields
// the zero Config.
func Load() (*Config, error) {
	return load(Path())
}

func load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, xerrors.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, xerrors.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
