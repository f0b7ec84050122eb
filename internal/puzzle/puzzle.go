// Package puzzle holds the level-file scanner shared by the puzzle
// domains. Level files are line oriented: lines whose first character is #
// are comments, "size x y" sets the board dimensions, and "map" is followed
// by y raw board rows. Everything else is ignored. How the board rows are
// interpreted is up to each domain.
package puzzle

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
)

// Level is a parsed puzzle description.
type Level struct {
	X, Y int
	Rows []string // raw map rows, exactly Y of them
}

// Parse reads a level from r. Malformed descriptions are ErrBadInput.
func Parse(r io.Reader) (*Level, error) {
	var lvl Level
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "size":
			x, y, err := parseSize(fields)
			if err != nil {
				return nil, err
			}
			lvl.X, lvl.Y = x, y
		case "map":
			if lvl.Y == 0 {
				return nil, xerrors.Errorf("map before size: %w", solver.ErrBadInput)
			}
			lvl.Rows = lvl.Rows[:0]
			for j := 0; j < lvl.Y; j++ {
				if !sc.Scan() {
					return nil, xerrors.Errorf("map ended unexpectedly: %w", solver.ErrBadInput)
				}
				lvl.Rows = append(lvl.Rows, sc.Text())
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("reading puzzle description: %w", err)
	}
	if lvl.X == 0 || lvl.Y == 0 {
		return nil, xerrors.Errorf("no size line: %w", solver.ErrBadInput)
	}
	if lvl.Rows == nil {
		return nil, xerrors.Errorf("no map: %w", solver.ErrBadInput)
	}
	return &lvl, nil
}

func parseSize(fields []string) (x, y int, err error) {
	if len(fields) != 3 {
		return 0, 0, xerrors.Errorf("wrong parameters for size: %w", solver.ErrBadInput)
	}
	x, errX := strconv.Atoi(fields[1])
	y, errY := strconv.Atoi(fields[2])
	if errX != nil || errY != nil || x < 1 || y < 1 {
		return 0, 0, xerrors.Errorf("wrong parameters for size: %w", solver.ErrBadInput)
	}
	return x, y, nil
}
