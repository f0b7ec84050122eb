package solver

import "fmt"

const (
	// MaxStateLen is the widest supported encoded state, in bytes.
	MaxStateLen = 8

	// MaxStates bounds the state space; state IDs live in [0, MaxStates).
	MaxStates = 1 << 60
)

// GetID reads a little-endian state ID from buf. The buffer length is the
// domain's state length S.
func GetID(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// PutID writes v into buf in little-endian order. The value must fit in
// len(buf) bytes; engines validate IDs against N before handing them around,
// so an overflow here is a programming error and panics.
func PutID(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v)
		v >>= 8
	}
	if v != 0 {
		panic(fmt.Sprintf("solver: state ID does not fit in %d bytes", len(buf)))
	}
}

// IDLen returns the number of bytes needed to hold v in little-endian form,
// at least 1.
func IDLen(v uint64) int {
	n := 1
	for v >>= 8; v != 0; v >>= 8 {
		n++
	}
	return n
}
