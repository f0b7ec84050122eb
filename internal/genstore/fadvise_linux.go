package genstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// fadviseSequential tells the kernel the file will be read front to back so
// it can read ahead aggressively. Best effort.
func fadviseSequential(f *os.File) {
	unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
