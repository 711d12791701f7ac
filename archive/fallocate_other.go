//go:build !linux && !darwin

package archive

import "os"

// fallocateFile sets the file length. Disk blocks may not be reserved on
// this platform.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}
