package uuidmap

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/bits"
	"sync/atomic"

	uuiderrors "github.com/tamirms/uuidmap/errors"
	intbits "github.com/tamirms/uuidmap/internal/bits"
	"golang.org/x/sync/errgroup"
)

// ctxCheckInterval is how many entries a worker consumes between context
// checks.
const ctxCheckInterval = 1024

// errWorkerPanic marks a worker that panicked; the panic value itself is
// re-raised on the calling goroutine.
var errWorkerPanic = errors.New("uuidmap: parallel worker panicked")

// workerPanic holds the first panic value raised by a worker.
type workerPanic struct {
	value any
}

// runParts calls build once per part on a bounded pool of worker goroutines
// and returns the results in part order.
//
// Workers never touch shared state: each builds its own result and the
// caller merges them after Wait returns. A panic in any worker (for example
// an unsupported identifier reaching a hasher) cancels the others and is
// re-raised on the calling goroutine.
func runParts[P, T any](ctx context.Context, parts []P, cfg *parallelConfig, build func(context.Context, P) (T, error)) ([]T, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workerCount())

	results := make([]T, len(parts))
	var panicked atomic.Pointer[workerPanic]
	for i, part := range parts {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					panicked.CompareAndSwap(nil, &workerPanic{value: r})
					err = errWorkerPanic
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], err = build(gctx, part)
			return err
		})
	}

	err := g.Wait()
	if p := panicked.Load(); p != nil {
		panic(p.value)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// consume2 calls fn for every pair of seq, checking ctx periodically.
func consume2[K, V any](ctx context.Context, seq iter.Seq2[K, V], fn func(K, V) error) error {
	n := 0
	for k, v := range seq {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(k, v); err != nil {
			return err
		}
		n++
	}
	return nil
}

// consume is consume2 for single-value sequences.
func consume[K any](ctx context.Context, seq iter.Seq[K], fn func(K) error) error {
	return consume2(ctx, withUnit(seq), func(k K, _ struct{}) error { return fn(k) })
}

// withUnit turns a key sequence into a key/struct{} sequence.
func withUnit[K any](seq iter.Seq[K]) iter.Seq2[K, struct{}] {
	return func(yield func(K, struct{}) bool) {
		for k := range seq {
			if !yield(k, struct{}{}) {
				return
			}
		}
	}
}

// partition routes every pair of all into one of n buckets by key hash,
// keeping the relative order of pairs within a bucket.
func partition[K, V any, S Strategy[K]](n int, all iter.Seq2[K, V]) ([][]entry[K, V], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", uuiderrors.ErrInvalidPartitions, n)
	}
	var s S
	buckets := make([][]entry[K, V], n)
	for k, v := range all {
		// Rotate byte 7 out of the top bits: UUIDv7 generators may fill it
		// with a sub-millisecond counter, and FastRange routes on high bits.
		h := bits.RotateLeft64(s.HashKey(&k), 8)
		i := intbits.FastRange(h, n)
		buckets[i] = append(buckets[i], entry[K, V]{key: k, value: v})
	}
	return buckets, nil
}

func pairsOf[K, V any](es []entry[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range es {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

func keysOf[K, V any](es []entry[K, V]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, e := range es {
			if !yield(e.key) {
				return
			}
		}
	}
}

func seq2Parts[K, V any](buckets [][]entry[K, V]) []iter.Seq2[K, V] {
	parts := make([]iter.Seq2[K, V], len(buckets))
	for i, b := range buckets {
		parts[i] = pairsOf(b)
	}
	return parts
}

func seqParts[K, V any](buckets [][]entry[K, V]) []iter.Seq[K] {
	parts := make([]iter.Seq[K], len(buckets))
	for i, b := range buckets {
		parts[i] = keysOf(b)
	}
	return parts
}

// ExtendParallel consumes every part on its own worker, each building a
// private HashMap, and merges the results into m once all workers are done.
// Pairs for the same key in different parts resolve in part order.
// On error (including ctx cancellation) m is left unchanged.
func (m *HashMap[K, V, S]) ExtendParallel(ctx context.Context, parts []iter.Seq2[K, V], opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	partials, err := runParts(ctx, parts, cfg, func(ctx context.Context, part iter.Seq2[K, V]) (*HashMap[K, V, S], error) {
		p := &HashMap[K, V, S]{}
		return p, consume2(ctx, part, func(k K, v V) error {
			p.Insert(k, v)
			return nil
		})
	})
	if err != nil {
		return err
	}

	if m.table == nil {
		total := 0
		for _, p := range partials {
			total += p.Len()
		}
		m.table = newTable[K, V, S](total)
	}
	for _, p := range partials {
		m.Extend(p.All())
	}
	cfg.logger.Debug("uuidmap: parallel extend", "shape", "map", "parts", len(parts), "workers", cfg.workerCount(), "len", m.Len())
	return nil
}

// Partition splits a snapshot of m into n sequences by key hash. Every key
// lands in exactly one sequence, always the same one for a given n.
func (m *HashMap[K, V, S]) Partition(n int) ([]iter.Seq2[K, V], error) {
	buckets, err := partition[K, V, S](n, m.All())
	if err != nil {
		return nil, err
	}
	return seq2Parts(buckets), nil
}

// ForEachParallel calls fn for every entry on parallel workers. The first
// error stops the remaining workers and is returned. fn must not mutate m.
func (m *HashMap[K, V, S]) ForEachParallel(ctx context.Context, fn func(K, V) error, opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	buckets, err := partition[K, V, S](cfg.workerCount(), m.All())
	if err != nil {
		return err
	}
	_, err = runParts(ctx, buckets, cfg, func(ctx context.Context, b []entry[K, V]) (struct{}, error) {
		return struct{}{}, consume2(ctx, pairsOf(b), fn)
	})
	return err
}

// ExtendParallel is like HashMap.ExtendParallel. Partial maps are merged in
// part order, so entries of part i precede new entries of part i+1.
func (m *IndexMap[K, V, S]) ExtendParallel(ctx context.Context, parts []iter.Seq2[K, V], opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	partials, err := runParts(ctx, parts, cfg, func(ctx context.Context, part iter.Seq2[K, V]) (*IndexMap[K, V, S], error) {
		p := &IndexMap[K, V, S]{}
		return p, consume2(ctx, part, func(k K, v V) error {
			p.Insert(k, v)
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, p := range partials {
		m.Extend(p.All())
	}
	cfg.logger.Debug("uuidmap: parallel extend", "shape", "index_map", "parts", len(parts), "workers", cfg.workerCount(), "len", m.Len())
	return nil
}

// Partition splits a snapshot of m into n sequences by key hash. Within a
// sequence, entries keep their insertion order.
func (m *IndexMap[K, V, S]) Partition(n int) ([]iter.Seq2[K, V], error) {
	buckets, err := partition[K, V, S](n, m.All())
	if err != nil {
		return nil, err
	}
	return seq2Parts(buckets), nil
}

// ForEachParallel calls fn for every entry on parallel workers.
// fn must not mutate m.
func (m *IndexMap[K, V, S]) ForEachParallel(ctx context.Context, fn func(K, V) error, opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	buckets, err := partition[K, V, S](cfg.workerCount(), m.All())
	if err != nil {
		return err
	}
	_, err = runParts(ctx, buckets, cfg, func(ctx context.Context, b []entry[K, V]) (struct{}, error) {
		return struct{}{}, consume2(ctx, pairsOf(b), fn)
	})
	return err
}

// ExtendParallel is like HashMap.ExtendParallel for sets.
func (s *HashSet[K, S]) ExtendParallel(ctx context.Context, parts []iter.Seq[K], opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	partials, err := runParts(ctx, parts, cfg, func(ctx context.Context, part iter.Seq[K]) (*HashSet[K, S], error) {
		p := &HashSet[K, S]{}
		return p, consume(ctx, part, func(k K) error {
			p.Insert(k)
			return nil
		})
	})
	if err != nil {
		return err
	}

	if s.table == nil {
		total := 0
		for _, p := range partials {
			total += p.Len()
		}
		s.table = newTable[K, struct{}, S](total)
	}
	for _, p := range partials {
		s.Extend(p.All())
	}
	cfg.logger.Debug("uuidmap: parallel extend", "shape", "set", "parts", len(parts), "workers", cfg.workerCount(), "len", s.Len())
	return nil
}

// Partition splits a snapshot of s into n sequences by key hash.
func (s *HashSet[K, S]) Partition(n int) ([]iter.Seq[K], error) {
	buckets, err := partition[K, struct{}, S](n, withUnit(s.All()))
	if err != nil {
		return nil, err
	}
	return seqParts(buckets), nil
}

// ForEachParallel calls fn for every key on parallel workers.
// fn must not mutate s.
func (s *HashSet[K, S]) ForEachParallel(ctx context.Context, fn func(K) error, opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	buckets, err := partition[K, struct{}, S](cfg.workerCount(), withUnit(s.All()))
	if err != nil {
		return err
	}
	_, err = runParts(ctx, buckets, cfg, func(ctx context.Context, b []entry[K, struct{}]) (struct{}, error) {
		return struct{}{}, consume(ctx, keysOf(b), fn)
	})
	return err
}

// ExtendParallel is like IndexMap.ExtendParallel for sets.
func (s *IndexSet[K, S]) ExtendParallel(ctx context.Context, parts []iter.Seq[K], opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	partials, err := runParts(ctx, parts, cfg, func(ctx context.Context, part iter.Seq[K]) (*IndexSet[K, S], error) {
		p := &IndexSet[K, S]{}
		return p, consume(ctx, part, func(k K) error {
			p.Insert(k)
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, p := range partials {
		s.Extend(p.All())
	}
	cfg.logger.Debug("uuidmap: parallel extend", "shape", "index_set", "parts", len(parts), "workers", cfg.workerCount(), "len", s.Len())
	return nil
}

// Partition splits a snapshot of s into n sequences by key hash. Within a
// sequence, keys keep their insertion order.
func (s *IndexSet[K, S]) Partition(n int) ([]iter.Seq[K], error) {
	buckets, err := partition[K, struct{}, S](n, withUnit(s.All()))
	if err != nil {
		return nil, err
	}
	return seqParts(buckets), nil
}

// ForEachParallel calls fn for every key on parallel workers.
// fn must not mutate s.
func (s *IndexSet[K, S]) ForEachParallel(ctx context.Context, fn func(K) error, opts ...ParallelOption) error {
	cfg := newParallelConfig(opts)
	buckets, err := partition[K, struct{}, S](cfg.workerCount(), withUnit(s.All()))
	if err != nil {
		return err
	}
	_, err = runParts(ctx, buckets, cfg, func(ctx context.Context, b []entry[K, struct{}]) (struct{}, error) {
		return struct{}{}, consume(ctx, keysOf(b), fn)
	})
	return err
}

// CollectHashMapParallel builds a HashMap from parts on parallel workers.
func CollectHashMapParallel[K comparable, V any, S Strategy[K]](ctx context.Context, parts []iter.Seq2[K, V], opts ...ParallelOption) (*HashMap[K, V, S], error) {
	m := &HashMap[K, V, S]{}
	if err := m.ExtendParallel(ctx, parts, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// CollectIndexMapParallel builds an IndexMap from parts on parallel workers,
// keeping part order.
func CollectIndexMapParallel[K comparable, V any, S Strategy[K]](ctx context.Context, parts []iter.Seq2[K, V], opts ...ParallelOption) (*IndexMap[K, V, S], error) {
	m := &IndexMap[K, V, S]{}
	if err := m.ExtendParallel(ctx, parts, opts...); err != nil {
		return nil, err
	}
	return m, nil
}

// CollectHashSetParallel builds a HashSet from parts on parallel workers.
func CollectHashSetParallel[K comparable, S Strategy[K]](ctx context.Context, parts []iter.Seq[K], opts ...ParallelOption) (*HashSet[K, S], error) {
	s := &HashSet[K, S]{}
	if err := s.ExtendParallel(ctx, parts, opts...); err != nil {
		return nil, err
	}
	return s, nil
}

// CollectIndexSetParallel builds an IndexSet from parts on parallel workers,
// keeping part order.
func CollectIndexSetParallel[K comparable, S Strategy[K]](ctx context.Context, parts []iter.Seq[K], opts ...ParallelOption) (*IndexSet[K, S], error) {
	s := &IndexSet[K, S]{}
	if err := s.ExtendParallel(ctx, parts, opts...); err != nil {
		return nil, err
	}
	return s, nil
}
