package uuidmap

import (
	"fmt"
	"iter"
	"strings"
)

// formatEntries renders seq as prefix + "k:v k:v" + "]".
func formatEntries[K, V any](prefix string, seq iter.Seq2[K, V]) string {
	var b strings.Builder
	b.WriteString(prefix)
	sep := ""
	for k, v := range seq {
		fmt.Fprintf(&b, "%s%v:%v", sep, k, v)
		sep = " "
	}
	b.WriteByte(']')
	return b.String()
}

// formatKeys renders seq as prefix + "k k" + "]".
func formatKeys[K any](prefix string, seq iter.Seq[K]) string {
	var b strings.Builder
	b.WriteString(prefix)
	sep := ""
	for k := range seq {
		fmt.Fprintf(&b, "%s%v", sep, k)
		sep = " "
	}
	b.WriteByte(']')
	return b.String()
}
