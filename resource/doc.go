// Package resource limits the resources shared by indexes in one process.
//
// A Controller governs three budgets:
//
//   - Memory: bytes reserved for index capacity (non-blocking, fail-fast)
//   - Workers: goroutines used by batch inserts and queries
//   - IO: bytes per second moved by blob persistence (token bucket)
//
// # Example
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   1 << 30,
//	    MaxWorkers:         8,
//	    IOLimitBytesPerSec: 100 << 20,
//	})
//	idx, err := voyager.New(distance.Cosine, 128, voyager.WithResourceController(rc))
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops. This
// allows optional resource limiting without nil checks everywhere.
package resource
