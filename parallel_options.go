package uuidmap

import (
	"log/slog"
	"runtime"
)

// ParallelOption is a functional option for parallel builds and scans.
type ParallelOption func(*parallelConfig)

type parallelConfig struct {
	workers int
	logger  *slog.Logger
}

func defaultParallelConfig() *parallelConfig {
	return &parallelConfig{
		workers: 0, // Default to GOMAXPROCS; use WithWorkers(n) to bound
		logger:  slog.New(slog.DiscardHandler),
	}
}

func newParallelConfig(opts []ParallelOption) *parallelConfig {
	cfg := defaultParallelConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// workerCount resolves the configured worker count.
func (c *parallelConfig) workerCount() int {
	if c.workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.workers
}

// WithWorkers sets the number of parallel workers.
// Zero or a negative value means runtime.GOMAXPROCS(0).
func WithWorkers(n int) ParallelOption {
	return func(c *parallelConfig) {
		c.workers = n
	}
}

// WithLogger sets the logger that receives debug events for parallel
// operations. The default discards everything.
func WithLogger(l *slog.Logger) ParallelOption {
	return func(c *parallelConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
