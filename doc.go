// Package uuidmap implements hash maps and sets keyed by UUIDv4 and UUIDv7
// identifiers that skip general-purpose hashing.
//
// Both formats already carry random bits in fixed positions, so the hash of
// an identifier is read straight out of it: byte 7 followed by bytes 9
// through 15. See Hasher for the layout.
//
// # Basic Usage
//
// Unordered containers:
//
//	users := uuidmap.NewMap[string](0)
//	users.Insert(uuidmap.NewV7(), "alice")
//
//	seen := uuidmap.NewSet(0)
//	seen.Insert(id)
//
// Ordered containers iterate in insertion order and support positional
// access:
//
//	queue := uuidmap.NewOrderedMap[Job](0)
//	queue.Insert(jobID, job)
//	first, job, ok := queue.First()
//
// Domain identifier types work through the Like interface:
//
//	type UserID uuid.UUID
//
//	func (u UserID) UUID() uuid.UUID { return uuid.UUID(u) }
//
//	byUser := uuidmap.NewLikeMap[UserID, Profile](0)
//
// # Identifier Contract
//
// Only UUIDv4 and UUIDv7 identifiers with the RFC 9562 variant may be used as
// keys. Any other identifier reaching a hashing operation panics with an
// error wrapping a sentinel from the errors package. Validate or Parse
// identifiers that come from untrusted input before using them as keys.
//
// # Parallel Builds
//
// ExtendParallel and the CollectXxxParallel constructors consume several
// sequences on a bounded worker pool, each worker building a private
// container that is merged once all workers finish. Partition splits an
// existing container by key hash so parts can be processed independently.
//
// # Package Structure
//
//   - Hashing: hasher.go (Hasher, Sum64), strategy.go (Strategy, Like)
//   - Identifiers: format.go (FormatOf, Validate, Parse, NewV4, NewV7)
//   - Containers: hashmap.go, hashset.go, indexmap.go, indexset.go, shapes.go
//   - Parallelism: parallel.go, parallel_options.go
//   - Persistence: archive/ (memory-mapped container files)
//   - Database columns: cql/ (gocql collection column adapters)
//   - Errors: errors/ (sentinels shared by every package)
package uuidmap
