package voyager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/binio"
	"github.com/canbakiskan/voyager-go/internal/fs"
	"github.com/canbakiskan/voyager-go/internal/header"
	"github.com/canbakiskan/voyager-go/internal/hnsw"
	"github.com/canbakiskan/voyager-go/internal/labels"
	"github.com/canbakiskan/voyager-go/internal/stream"
	"github.com/canbakiskan/voyager-go/quantization"
)

// save writes the metadata header followed by the graph.
func (idx *Index) save(s stream.Stream) error {
	w := binio.NewWriter(s)
	if err := header.Write(w, idx.meta); err != nil {
		return err
	}
	return idx.graph.Save(w)
}

func (idx *Index) recordSave(target string, start time.Time, bytes int64, err error) {
	idx.metrics.RecordSave(bytes, time.Since(start), err)
	idx.logger.LogSave(context.Background(), target, bytes, err)
}

// ToBuffer serializes the index into a new byte slice.
func (idx *Index) ToBuffer() ([]byte, error) {
	start := time.Now()
	s := stream.NewMemoryStream(idx.graph.Len()*idx.graph.ElementSize() + 256)
	err := idx.save(s)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	idx.recordSave("buffer", start, s.Position(), err)
	if err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// WriteTo serializes the index to w. It implements io.WriterTo.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	start := time.Now()
	s := stream.NewWriter(w)
	err := idx.save(s)
	if err == nil {
		err = s.Flush()
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	idx.recordSave("writer", start, s.Position(), err)
	return s.Position(), err
}

// SaveIndex writes the index to path. The file is written under a
// temporary name in the same directory and renamed into place, so path
// never holds a partial index.
func (idx *Index) SaveIndex(path string) error {
	return idx.saveIndex(fs.Default, path)
}

func (idx *Index) saveIndex(fsys fs.FileSystem, path string) error {
	start := time.Now()
	n, err := writeAtomic(fsys, path, idx.save)
	if err != nil {
		err = fmt.Errorf("%w: save %s: %w", ErrIOFailure, path, err)
	}
	idx.recordSave(path, start, n, err)
	return err
}

func writeAtomic(fsys fs.FileSystem, path string, write func(stream.Stream) error) (int64, error) {
	var n int64
	err := fs.WriteAtomic(fsys, path, func(f fs.File) error {
		s := stream.NewFileWriter(f)
		if err := write(s); err != nil {
			return err
		}
		n = s.Position()
		return s.Flush()
	})
	return n, err
}

// LoadIndex reads an index saved by SaveIndex, or a legacy index file
// without metadata.
func LoadIndex(path string, opts LoadOptions) (*Index, error) {
	return loadIndex(fs.Default, path, opts)
}

func loadIndex(fsys fs.FileSystem, path string, opts LoadOptions) (*Index, error) {
	s, err := stream.OpenFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIOFailure, path, err)
	}
	defer s.Close()
	return load(s, opts, path, "file")
}

// LoadIndexMapped is LoadIndex reading through a read-only memory mapping
// of path instead of buffered reads. The mapping is released before
// returning; the index does not reference it.
func LoadIndexMapped(path string, opts LoadOptions) (*Index, error) {
	s, err := stream.OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("%w: map %s: %w", ErrIOFailure, path, err)
	}
	defer s.Close()
	return load(s, opts, path, "file")
}

// FromBuffer reads an index from b, as written by ToBuffer or WriteTo.
// b is not retained.
func FromBuffer(b []byte, opts LoadOptions) (*Index, error) {
	return load(stream.NewMemoryReader(b), opts, "buffer", "buffer")
}

// load reads an index from s. kind ("file" or "buffer") only changes error
// messages.
func load(s stream.Stream, opts LoadOptions, source, kind string) (*Index, error) {
	start := time.Now()
	idx, err := readIndex(s, opts, kind)

	logger, metrics := opts.Logger, opts.Metrics
	if logger == nil {
		logger = NoopLogger()
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	elements := 0
	if idx != nil {
		elements = idx.NumElements()
	}
	metrics.RecordLoad(s.Position(), time.Since(start), err)
	logger.LogLoad(context.Background(), source, elements, err)
	return idx, err
}

func readIndex(s stream.Stream, opts LoadOptions, kind string) (*Index, error) {
	r := binio.NewReader(s)

	var meta header.Metadata
	if header.HasMagic(s) {
		var err error
		if meta, err = header.Read(r); err != nil {
			return nil, readError(fmt.Errorf("read metadata: %w", err))
		}
		if err := checkMetadata(meta, opts); err != nil {
			return nil, err
		}
	} else {
		if opts.NumDimensions == nil || *opts.NumDimensions <= 0 {
			return nil, fmt.Errorf("%w: Index %s has no metadata. Please provide space, numDimensions, and storageDataType options.",
				ErrArgument, kind)
		}
		meta = header.Metadata{
			NumDimensions:   *opts.NumDimensions,
			Space:           distance.Euclidean,
			StorageDataType: quantization.Float32,
		}
		if opts.Space != nil {
			meta.Space = *opts.Space
		}
		if opts.StorageDataType != nil {
			meta.StorageDataType = *opts.StorageDataType
		}
		if !meta.Space.Valid() {
			return nil, &ErrUnknownEnumValue{Kind: "Space", Value: int(meta.Space)}
		}
		if !meta.StorageDataType.Valid() {
			return nil, &ErrUnknownEnumValue{Kind: "StorageDataType", Value: int(meta.StorageDataType)}
		}
	}

	g, err := hnsw.Load(r, hnsw.Options{
		Dimension:  meta.NumDimensions,
		RandomSeed: DefaultOptions.RandomSeed,
		Space:      meta.Space,
		DataType:   meta.StorageDataType,
	})
	if err != nil {
		return nil, readError(err)
	}

	lm := labels.New()
	g.Slots(func(id uint32, label uint64, deleted bool) bool {
		lm.Bind(label, id, deleted)
		return true
	})

	ef := opts.Ef
	if ef < 1 {
		ef = DefaultEf
	}
	return newIndex(g, lm, meta, Options{
		Ef:       ef,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Resource: opts.Resource,
	})
}

// checkMetadata compares the set load options against the stored values,
// in the order storage data type, space, dimensions.
func checkMetadata(meta header.Metadata, opts LoadOptions) error {
	if opts.StorageDataType != nil && *opts.StorageDataType != meta.StorageDataType {
		return &ErrMetadataMismatch{
			Field:    "storage data type",
			Provided: opts.StorageDataType.String(),
			Stored:   meta.StorageDataType.String(),
		}
	}
	if opts.Space != nil && *opts.Space != meta.Space {
		return &ErrMetadataMismatch{
			Field:    "space type",
			Provided: opts.Space.String(),
			Stored:   meta.Space.String(),
		}
	}
	if opts.NumDimensions != nil && *opts.NumDimensions != meta.NumDimensions {
		return &ErrMetadataMismatch{
			Field:    "number of dimensions",
			Provided: fmt.Sprint(*opts.NumDimensions),
			Stored:   fmt.Sprint(meta.NumDimensions),
		}
	}
	return nil
}

// readError classifies an error from decoding: malformed input becomes
// ErrCorruptData, anything else is a failure of the underlying reader.
func readError(err error) error {
	t := translateError(err)
	if errors.Is(t, ErrCorruptData) || errors.Is(t, ErrArgument) {
		return t
	}
	return fmt.Errorf("%w: %w", ErrIOFailure, err)
}
