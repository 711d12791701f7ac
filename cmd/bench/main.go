// Bench is a benchmarking tool for measuring uuidmap hashing, build and
// lookup throughput against general-purpose hashes and the builtin map,
// plus archive write and lookup costs.
//
// Usage:
//
//	go run ./cmd/bench -keys 10000000 -format v7 -workers 8
//
// Flags:
//
//	-keys      Number of identifiers (default: 10,000,000)
//	-format    Identifier format: v4, v7 or mixed (default: v7)
//	-workers   Parallel build workers, 0 for GOMAXPROCS (default: 0)
//	-archive   Also benchmark archive write/open/lookup (default: true)
package main

import (
	"context"
	"flag"
	"fmt"
	"iter"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	"github.com/tamirms/uuidmap"
	"github.com/tamirms/uuidmap/archive"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS every 10ms until stopped.
type peakSampler struct {
	alloc atomic.Uint64
	rss   atomic.Uint64
	done  chan struct{}
}

func startPeakSampler() *peakSampler {
	p := &peakSampler{done: make(chan struct{})}
	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&p.alloc, samples[0].Value.Uint64())
				storeMax(&p.rss, getMaxRSS())
			}
		}
	}()
	return p
}

func (p *peakSampler) stop() { close(p.done) }

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func generate(n int, format string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		switch format {
		case "v4":
			ids[i] = uuidmap.NewV4()
		case "v7":
			ids[i] = uuidmap.NewV7()
		case "mixed":
			if i%2 == 0 {
				ids[i] = uuidmap.NewV4()
			} else {
				ids[i] = uuidmap.NewV7()
			}
		default:
			return nil, fmt.Errorf("unknown format %q (use v4, v7 or mixed)", format)
		}
	}
	return ids, nil
}

// timeHash measures fn over every identifier and returns ns per hash.
func timeHash(ids []uuid.UUID, fn func(id *uuid.UUID) uint64) float64 {
	var sink uint64
	start := time.Now()
	for i := range ids {
		sink ^= fn(&ids[i])
	}
	d := time.Since(start)
	if sink == 42 {
		fmt.Print("") // keep sink live
	}
	return float64(d.Nanoseconds()) / float64(len(ids))
}

// chunks splits ids into n contiguous parts for parallel building.
func chunks(ids []uuid.UUID, n int) []iter.Seq2[uuid.UUID, int] {
	parts := make([]iter.Seq2[uuid.UUID, int], 0, n)
	size := (len(ids) + n - 1) / n
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		parts = append(parts, func(yield func(uuid.UUID, int) bool) {
			for i := start; i < end; i++ {
				if !yield(ids[i], i) {
					return
				}
			}
		})
	}
	return parts
}

func main() {
	keysFlag := flag.Int("keys", 10_000_000, "number of identifiers")
	formatFlag := flag.String("format", "v7", "identifier format: v4, v7 or mixed")
	workersFlag := flag.Int("workers", 0, "parallel build workers (0 = GOMAXPROCS)")
	archiveFlag := flag.Bool("archive", true, "benchmark archive write, open and lookup")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	flag.Parse()

	numKeys := *keysFlag
	workers := *workersFlag
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	fmt.Println("Generating identifiers...")
	ids, err := generate(numKeys, *formatFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Hashing identifiers...")
	seed := uint32(0x1234)
	nsEntropy := timeHash(ids, func(id *uuid.UUID) uint64 { return uuidmap.Sum64(*id) })
	nsXXH3 := timeHash(ids, func(id *uuid.UUID) uint64 { return xxh3.Hash(id[:]) })
	nsXXHash := timeHash(ids, func(id *uuid.UUID) uint64 { return xxhash.Sum64(id[:]) })
	nsMurmur := timeHash(ids, func(id *uuid.UUID) uint64 { return murmur3.Sum64WithSeed(id[:], seed) })

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()
	sampler := startPeakSampler()
	sampler.alloc.Store(baseline.Alloc)
	sampler.rss.Store(baselineRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Building uuidmap.Map...")
	buildStart := time.Now()
	m := uuidmap.NewMap[int](numKeys)
	for i, id := range ids {
		m.Insert(id, i)
	}
	buildDuration := time.Since(buildStart)

	fmt.Println("Building builtin map...")
	builtinStart := time.Now()
	builtin := make(map[uuid.UUID]int, numKeys)
	for i, id := range ids {
		builtin[id] = i
	}
	builtinDuration := time.Since(builtinStart)

	fmt.Printf("Building uuidmap.Map in parallel (%d workers)...\n", workers)
	parallelStart := time.Now()
	pm, err := uuidmap.CollectMapParallel(context.Background(), chunks(ids, workers), uuidmap.WithWorkers(workers))
	parallelDuration := time.Since(parallelStart)
	if err != nil {
		fmt.Printf("parallel build failed: %v\n", err)
		return
	}

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	sampler.stop()
	peakHeapMem := sampler.alloc.Load() - baseline.Alloc
	peakRSSMem := sampler.rss.Load() - baselineRSS

	if pm.Len() != m.Len() {
		fmt.Printf("parallel build produced %d entries, want %d\n", pm.Len(), m.Len())
		return
	}

	queryOrder := mrand.Perm(numKeys)
	numQueries := min(1_000_000, numKeys)

	fmt.Println("Benchmarking lookups...")
	lookupStart := time.Now()
	for i := range numQueries {
		_, _ = m.Get(ids[queryOrder[i]])
	}
	lookupNs := float64(time.Since(lookupStart).Nanoseconds()) / float64(numQueries)

	builtinLookupStart := time.Now()
	for i := range numQueries {
		_ = builtin[ids[queryOrder[i]]]
	}
	builtinLookupNs := float64(time.Since(builtinLookupStart).Nanoseconds()) / float64(numQueries)

	var archiveWrite time.Duration
	var archiveBytes int64
	var archiveLookupNs float64
	if *archiveFlag {
		archiveWrite, archiveBytes, archiveLookupNs, err = benchArchive(m, ids, queryOrder[:numQueries])
		if err != nil {
			fmt.Printf("archive benchmark failed: %v\n", err)
			return
		}
	}

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╦══════════════════╗\n")
	fmt.Printf("║ Format: %-12s║ Keys: %-9d║ Workers: %-8d║\n", *formatFlag, numKeys, workers)
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Metric              ║ uuidmap        ║ Baseline         ║\n")
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Hash (entropy)      ║ %6.2f ns      ║ -                ║\n", nsEntropy)
	fmt.Printf("║ Hash (xxh3)         ║ -              ║ %6.2f ns        ║\n", nsXXH3)
	fmt.Printf("║ Hash (xxhash64)     ║ -              ║ %6.2f ns        ║\n", nsXXHash)
	fmt.Printf("║ Hash (murmur3)      ║ -              ║ %6.2f ns        ║\n", nsMurmur)
	fmt.Printf("║ Build time          ║ %6.2f sec     ║ %6.2f sec       ║\n", buildDuration.Seconds(), builtinDuration.Seconds())
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║ %6.2f M/sec     ║\n",
		float64(numKeys)/buildDuration.Seconds()/1_000_000, float64(numKeys)/builtinDuration.Seconds()/1_000_000)
	fmt.Printf("║ Parallel build      ║ %6.2f sec     ║ -                ║\n", parallelDuration.Seconds())
	fmt.Printf("║ Lookup latency      ║ %6.2f ns      ║ %6.2f ns        ║\n", lookupNs, builtinLookupNs)
	if *archiveFlag {
		fmt.Printf("║ Archive write       ║ %6.2f sec     ║ -                ║\n", archiveWrite.Seconds())
		fmt.Printf("║ Archive size        ║ %6.2f B/key   ║ -                ║\n", float64(archiveBytes)/float64(numKeys))
		fmt.Printf("║ Archive lookup      ║ %6.2f ns      ║ -                ║\n", archiveLookupNs)
	}
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║ (all builds)     ║\n", float64(peakHeapMem)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║ (all builds)     ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╩══════════════════╝\n")
}

// benchArchive writes m to a temporary archive, reopens it and measures
// raw value lookups in queryOrder.
func benchArchive(m *uuidmap.Map[int], ids []uuid.UUID, queryOrder []int) (time.Duration, int64, float64, error) {
	tmpDir, err := os.MkdirTemp("", "bench-")
	if err != nil {
		return 0, 0, 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	path := filepath.Join(tmpDir, "bench.uuma")

	fmt.Println("Writing archive...")
	start := time.Now()
	if err := archive.WriteFile(path, archive.Map(m), archive.WithCodec(archive.GoJSON{})); err != nil {
		return 0, 0, 0, err
	}
	write := time.Since(start)

	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, 0, err
	}

	a, err := archive.Open(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer func() { _ = a.Close() }()

	fmt.Println("Benchmarking archive lookups...")
	queries := slices.Clone(queryOrder)
	lookupStart := time.Now()
	for _, q := range queries {
		_, _ = a.Lookup(ids[q])
	}
	lookupNs := float64(time.Since(lookupStart).Nanoseconds()) / float64(len(queries))
	return write, info.Size(), lookupNs, nil
}
