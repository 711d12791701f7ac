//go:build linux

package archive

import "golang.org/x/sys/unix"

// fadviseRandom tells the kernel that lookups will touch the file at
// random, which disables readahead. Best-effort.
func fadviseRandom(fd int, size int64) {
	_ = unix.Fadvise(fd, 0, size, unix.FADV_RANDOM)
}
