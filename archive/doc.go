// Package archive persists uuidmap containers in a memory-mappable file
// format and reads them back without deserializing.
//
// # Layout
//
// All fields are little-endian:
//
//	[Header 48B][Slot table: capacity x 4B][Entry table: len x 32B][Value region][Footer 16B]
//
// The slot table is an open-addressing table with linear probing. A slot
// holds the index of its entry plus one, zero marks an empty slot, and
// probing for an identifier starts at uuidmap.Sum64(id) & (capacity-1).
// Capacity is the smallest power of two that keeps the load factor at or
// below 7/8, and at least 8. Entries appear in the container's iteration
// order, so ordered containers archive their insertion order.
//
// Map values are encoded by a Codec whose name is stored in the header.
// The footer holds xxHash64 checksums of the slot table and of the entry
// table plus value region; Verify checks them.
//
// # Usage
//
//	m := uuidmap.NewMap[string](0)
//	m.Insert(uuidmap.NewV7(), "a")
//
//	if err := archive.WriteFile("users.uuma", archive.Map(m)); err != nil {
//		return err
//	}
//
//	a, err := archive.Open("users.uuma")
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	var name string
//	ok, err := a.Value(id, &name)
//
//	restored, err := archive.LoadMap[string](a)
package archive
