package voyager

import (
	"log/slog"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/hnsw"
	"github.com/canbakiskan/voyager-go/quantization"
	"github.com/canbakiskan/voyager-go/resource"
)

// Re-exported enum values, so most callers only import this package.
const (
	Euclidean    = distance.Euclidean
	InnerProduct = distance.InnerProduct
	Cosine       = distance.Cosine

	Float8  = quantization.Float8
	Float32 = quantization.Float32
	E4M3    = quantization.E4M3
)

// DefaultEf is the default size of the dynamic candidate list at query time.
const DefaultEf = 10

// Options configures a new Index.
type Options struct {
	// M is the number of bidirectional links per node on layers above 0.
	// Layer 0 keeps up to 2*M links.
	M int
	// EfConstruction is the candidate list size used while inserting.
	EfConstruction int
	// RandomSeed seeds the level generator. Equal seeds and insertion
	// order give identical graphs.
	RandomSeed uint64
	// MaxElements is the initial capacity. It only grows through Resize.
	MaxElements int
	// StorageDataType selects how vectors are encoded in memory.
	StorageDataType quantization.DataType
	// Ef is the default query-time candidate list size.
	Ef int

	Logger   *Logger
	Metrics  MetricsCollector
	Resource *resource.Controller
}

// DefaultOptions contains the default options for an Index.
var DefaultOptions = Options{
	M:               hnsw.DefaultM,
	EfConstruction:  hnsw.DefaultEfConstruction,
	RandomSeed:      1,
	MaxElements:     1,
	StorageDataType: quantization.Float32,
	Ef:              DefaultEf,
}

// WithM sets the graph connectivity.
func WithM(m int) func(*Options) {
	return func(o *Options) { o.M = m }
}

// WithEfConstruction sets the construction-time candidate list size.
func WithEfConstruction(ef int) func(*Options) {
	return func(o *Options) { o.EfConstruction = ef }
}

// WithRandomSeed sets the level generator seed.
func WithRandomSeed(seed uint64) func(*Options) {
	return func(o *Options) { o.RandomSeed = seed }
}

// WithMaxElements sets the initial capacity.
func WithMaxElements(n int) func(*Options) {
	return func(o *Options) { o.MaxElements = n }
}

// WithStorageDataType sets the vector encoding.
func WithStorageDataType(dt quantization.DataType) func(*Options) {
	return func(o *Options) { o.StorageDataType = dt }
}

// WithEf sets the default query-time candidate list size.
func WithEf(ef int) func(*Options) {
	return func(o *Options) { o.Ef = ef }
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := voyager.NewJSONLogger(slog.LevelInfo)
//	idx, _ := voyager.New(voyager.Cosine, 128, voyager.WithLogger(logger))
func WithLogger(logger *Logger) func(*Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) func(*Options) {
	return func(o *Options) { o.Logger = NewTextLogger(level) }
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &voyager.BasicMetricsCollector{}
//	idx, _ := voyager.New(voyager.Euclidean, 3, voyager.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) func(*Options) {
	return func(o *Options) { o.Metrics = mc }
}

// WithResourceController shares a memory, worker and IO budget between
// indexes. A nil controller imposes no limits.
func WithResourceController(rc *resource.Controller) func(*Options) {
	return func(o *Options) { o.Resource = rc }
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = NoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetricsCollector{}
	}
}

// LoadOptions configures LoadIndex and FromBuffer. A nil field is unset.
//
// For files with metadata, every set field must match the stored value.
// Legacy files without metadata need NumDimensions; Space defaults to
// Euclidean and StorageDataType to Float32.
type LoadOptions struct {
	Space           *distance.Space
	NumDimensions   *int
	StorageDataType *quantization.DataType

	// Ef, Logger, Metrics and Resource configure the loaded index as in
	// Options.
	Ef       int
	Logger   *Logger
	Metrics  MetricsCollector
	Resource *resource.Controller
}

// Ptr returns a pointer to v, for filling LoadOptions.
func Ptr[T any](v T) *T { return &v }

// QueryOption configures a single Query or QueryBatch call.
type QueryOption func(*queryOptions)

type queryOptions struct {
	numThreads int
	ef         int
}

// WithNumThreads sets the number of goroutines QueryBatch uses. -1, the
// default, uses one per CPU.
func WithNumThreads(n int) QueryOption {
	return func(o *queryOptions) { o.numThreads = n }
}

// WithQueryEf overrides the index ef for this call. Values below 1 keep
// the index default.
func WithQueryEf(ef int) QueryOption {
	return func(o *queryOptions) { o.ef = ef }
}
