//go:build !linux

package archive

// prefaultRegion is a no-op outside Linux.
func prefaultRegion(data []byte) {}
