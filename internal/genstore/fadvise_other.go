//go:build !linux

package genstore

import "os"

func fadviseSequential(*os.File) {}
