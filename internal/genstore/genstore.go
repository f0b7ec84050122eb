// Package genstore persists BFS frontiers to disk: one file per depth,
// named GEN-%04d, holding nothing but concatenated S-byte little-endian
// state IDs. All access is sequential; readers consume page-sized chunks,
// writers accumulate admitted states in memory and append to the file
// whenever the buffer fills.
package genstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"

	"github.com/stubbscroll/solver"
)

// Store names and sizes the generation files of one search.
type Store struct {
	dir  string
	slen int
}

// New returns a store writing GEN-* files into dir. slen is the record
// (state) length in bytes.
func New(dir string, slen int) *Store {
	return &Store{dir: dir, slen: slen}
}

// Path returns the file name for a generation. Depths beyond 9999 widen the
// suffix naturally.
func (s *Store) Path(gen int) string {
	return filepath.Join(s.dir, fmt.Sprintf("GEN-%04d", gen))
}

// Create truncates the generation file to zero length, creating it if
// needed.
func (s *Store) Create(gen int) error {
	f, err := os.Create(s.Path(gen))
	if err != nil {
		return xerrors.Errorf("creating generation file: %w", err)
	}
	if err := f.Close(); err != nil {
		return xerrors.Errorf("creating generation file: %w", err)
	}
	return nil
}

// Size returns the generation file's length in bytes.
func (s *Store) Size(gen int) (int64, error) {
	fi, err := os.Stat(s.Path(gen))
	if err != nil {
		return 0, xerrors.Errorf("sizing generation file: %w", err)
	}
	return fi.Size(), nil
}

// Count returns the number of states in a generation file.
func (s *Store) Count(gen int) (int64, error) {
	n, err := s.Size(gen)
	if err != nil {
		return 0, err
	}
	if n%int64(s.slen) != 0 {
		return 0, xerrors.Errorf("%s length %d not a multiple of state length %d: %w",
			s.Path(gen), n, s.slen, solver.ErrInternal)
	}
	return n / int64(s.slen), nil
}

// RemoveAll deletes every GEN-* file in the store's directory.
func (s *Store) RemoveAll() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "GEN-*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return xerrors.Errorf("removing generation file: %w", err)
		}
	}
	return nil
}

// roundRecords clamps a buffer length to a positive multiple of the record
// length.
func (s *Store) roundRecords(n int64) int64 {
	n -= n % int64(s.slen)
	if n < int64(s.slen) {
		n = int64(s.slen)
	}
	return n
}

// A Reader scans one generation file front to back in pages.
type Reader struct {
	f    *os.File
	buf  []byte
	left int64
}

// Open positions a reader at the start of a generation file. pageLen sizes
// the read buffer; it is rounded down to a multiple of the state length.
func (s *Store) Open(gen int, pageLen int64) (*Reader, error) {
	f, err := os.Open(s.Path(gen))
	if err != nil {
		return nil, xerrors.Errorf("opening generation file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("sizing generation file: %w", err)
	}
	if fi.Size()%int64(s.slen) != 0 {
		f.Close()
		return nil, xerrors.Errorf("%s length %d not a multiple of state length %d: %w",
			s.Path(gen), fi.Size(), s.slen, solver.ErrInternal)
	}
	fadviseSequential(f)
	return &Reader{
		f:    f,
		buf:  make([]byte, s.roundRecords(pageLen)),
		left: fi.Size(),
	}, nil
}

// Next returns the next page of the file, a slice valid until the following
// call. At end of file it returns nil, io.EOF.
func (r *Reader) Next() ([]byte, error) {
	if r.left == 0 {
		return nil, io.EOF
	}
	grab := r.left
	if grab > int64(len(r.buf)) {
		grab = int64(len(r.buf))
	}
	page := r.buf[:grab]
	if _, err := io.ReadFull(r.f, page); err != nil {
		return nil, xerrors.Errorf("reading generation file: %w", err)
	}
	r.left -= grab
	return page, nil
}

func (r *Reader) Close() error { return r.f.Close() }

// A Writer buffers admitted states for one generation and appends the
// buffer to the file whenever it fills. Flush appends any partial buffer at
// end of generation.
type Writer struct {
	store *Store
	gen   int
	buf   []byte
	n     int
	wrote int64 // states spilled to disk so far
	dots  bool  // print a progress dot per spill
}

// NewWriter returns a writer targeting a generation file. bufLen sizes the
// in-memory buffer; it is rounded down to a multiple of the state length.
func (s *Store) NewWriter(gen int, bufLen int64) *Writer {
	return &Writer{
		store: s,
		gen:   gen,
		buf:   make([]byte, s.roundRecords(bufLen)),
		dots:  isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Append copies one S-byte state into the buffer, spilling to disk first if
// the buffer is full.
func (w *Writer) Append(id []byte) error {
	if w.n == len(w.buf) {
		if err := w.spill(); err != nil {
			return err
		}
	}
	copy(w.buf[w.n:], id[:w.store.slen])
	w.n += w.store.slen
	return nil
}

// Flush appends whatever the buffer holds to the generation file.
func (w *Writer) Flush() error {
	if w.n == 0 {
		return nil
	}
	return w.spill()
}

// Count returns the number of states written so far, spilled or buffered.
func (w *Writer) Count() int64 {
	return w.wrote + int64(w.n/w.store.slen)
}

func (w *Writer) spill() error {
	f, err := os.OpenFile(w.store.Path(w.gen), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return xerrors.Errorf("appending to generation file: %w", err)
	}
	if _, err := f.Write(w.buf[:w.n]); err != nil {
		f.Close()
		return xerrors.Errorf("appending to generation file: %w", err)
	}
	if err := f.Close(); err != nil {
		return xerrors.Errorf("appending to generation file: %w", err)
	}
	w.wrote += int64(w.n / w.store.slen)
	w.n = 0
	if w.dots {
		fmt.Print(".")
	}
	return nil
}
