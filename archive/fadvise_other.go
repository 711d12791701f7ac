//go:build !linux

package archive

// fadviseRandom is a no-op outside Linux.
func fadviseRandom(fd int, size int64) {}
