package puzzle

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stubbscroll/solver"
)

func TestParse(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"# a comment",
		"size 3 2",
		"map",
		"123",
		"45 ",
		"",
	}, "\n")
	lvl, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := &Level{X: 3, Y: 2, Rows: []string{"123", "45 "}}
	if diff := cmp.Diff(want, lvl); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMapRowsMayStartWithHash(t *testing.T) {
	t.Parallel()

	// sokoban walls are #; only directive lines treat # as a comment
	in := "size 3 2\nmap\n###\n#@#\n"
	lvl, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if lvl.Rows[0] != "###" || lvl.Rows[1] != "#@#" {
		t.Errorf("Rows = %q", lvl.Rows)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"no size":        "map\nab\n",
		"no map":         "size 2 2\n",
		"short map":      "size 2 3\nmap\nab\ncd\n",
		"bad size":       "size 2\nmap\nab\n",
		"negative size":  "size -2 2\nmap\n\n",
		"size not a num": "size two 2\nmap\nab\n",
		"empty input":    "",
	} {
		if _, err := Parse(strings.NewReader(in)); !errors.Is(err, solver.ErrBadInput) {
			t.Errorf("%s: err = %v, want ErrBadInput", name, err)
		}
	}
}
