//go:build linux

package archive

import "golang.org/x/sys/unix"

// MADV_POPULATE_WRITE was added in Linux 5.14.
const madvPopulateWrite = 23

// prefaultRegion asks the kernel to populate the writable mapping up front.
// Older kernels return EINVAL, which is ignored.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
