package voyager

import (
	"errors"
	"fmt"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/binio"
	"github.com/canbakiskan/voyager-go/internal/compress"
	"github.com/canbakiskan/voyager-go/internal/header"
	"github.com/canbakiskan/voyager-go/internal/hnsw"
	"github.com/canbakiskan/voyager-go/quantization"
	"github.com/canbakiskan/voyager-go/resource"
)

var (
	// ErrArgument is returned for invalid arguments: bad options, mismatched
	// slice lengths, non-positive k, an empty query batch.
	ErrArgument = errors.New("voyager: invalid argument")

	// ErrCorruptData is returned when a serialized index cannot be decoded.
	// The input is never trusted; a corrupt stream never panics.
	ErrCorruptData = errors.New("voyager: corrupt index data")

	// ErrIOFailure is returned when reading or writing a file or blob fails.
	ErrIOFailure = errors.New("voyager: I/O failure")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("voyager: index is closed")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// Is makes errors.Is(err, &ErrDimensionMismatch{}) match any dimension mismatch.
func (e *ErrDimensionMismatch) Is(target error) bool {
	_, ok := target.(*ErrDimensionMismatch)
	return ok
}

// ErrUnknownEnumValue indicates a space or storage data type code outside
// the known set.
type ErrUnknownEnumValue struct {
	Kind  string
	Value int
}

func (e *ErrUnknownEnumValue) Error() string {
	return fmt.Sprintf("unknown %s value: %d", e.Kind, e.Value)
}

// Is makes errors.Is(err, &ErrUnknownEnumValue{}) match any unknown enum value.
func (e *ErrUnknownEnumValue) Is(target error) bool {
	_, ok := target.(*ErrUnknownEnumValue)
	return ok
}

// ErrLabelNotFound indicates that no element was ever added under Label.
type ErrLabelNotFound struct {
	Label uint64
}

func (e *ErrLabelNotFound) Error() string {
	return fmt.Sprintf("label not found: %d", e.Label)
}

// Is makes errors.Is(err, &ErrLabelNotFound{}) match any missing label.
func (e *ErrLabelNotFound) Is(target error) bool {
	_, ok := target.(*ErrLabelNotFound)
	return ok
}

// ErrDuplicateLabel indicates an insertion under a label that is live.
type ErrDuplicateLabel struct {
	Label uint64
}

func (e *ErrDuplicateLabel) Error() string {
	return fmt.Sprintf("label already exists: %d", e.Label)
}

// Is makes errors.Is(err, &ErrDuplicateLabel{}) match any duplicate label.
func (e *ErrDuplicateLabel) Is(target error) bool {
	_, ok := target.(*ErrDuplicateLabel)
	return ok
}

// ErrCapacityExceeded indicates that an operation needs more slots than
// the index has, or that a resize would drop existing elements.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCapacityExceeded struct {
	Capacity  int
	Requested int
	cause     error
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: capacity %d, requested %d", e.Capacity, e.Requested)
}

func (e *ErrCapacityExceeded) Unwrap() error { return e.cause }

// Is makes errors.Is(err, &ErrCapacityExceeded{}) match any capacity error.
func (e *ErrCapacityExceeded) Is(target error) bool {
	_, ok := target.(*ErrCapacityExceeded)
	return ok
}

// ErrMetadataMismatch indicates that a load option disagrees with the
// metadata stored in the index file.
type ErrMetadataMismatch struct {
	// Field is one of "storage data type", "space type" or
	// "number of dimensions".
	Field    string
	Provided string
	Stored   string
}

func (e *ErrMetadataMismatch) Error() string {
	noun := map[string]string{
		"storage data type":    "data type",
		"space type":           "space type",
		"number of dimensions": "number of dimensions",
	}[e.Field]
	return fmt.Sprintf("Provided %s (%s) does not match the %s used in this file (%s).",
		e.Field, e.Provided, noun, e.Stored)
}

// Is makes errors.Is(err, &ErrMetadataMismatch{}) match any mismatch.
func (e *ErrMetadataMismatch) Is(target error) bool {
	_, ok := target.(*ErrMetadataMismatch)
	return ok
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *hnsw.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var ce *hnsw.ErrCapacityExceeded
	if errors.As(err, &ce) {
		return &ErrCapacityExceeded{Capacity: ce.Capacity, Requested: ce.Required, cause: err}
	}
	var id *hnsw.ErrInvalidDimension
	if errors.As(err, &id) {
		return fmt.Errorf("%w: %w", ErrArgument, err)
	}
	if errors.Is(err, hnsw.ErrInvalidOption) ||
		errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrArgument, err)
	}

	// Anything the decoders reject is corrupt input.
	if errors.Is(err, hnsw.ErrCorrupt) ||
		errors.Is(err, binio.ErrTruncated) ||
		errors.Is(err, header.ErrBadMagic) ||
		errors.Is(err, header.ErrUnsupportedVersion) ||
		errors.Is(err, header.ErrInvalid) ||
		errors.Is(err, distance.ErrUnknownSpace) ||
		errors.Is(err, quantization.ErrUnknownDataType) ||
		errors.Is(err, compress.ErrCorrupt) ||
		errors.Is(err, compress.ErrUnknownType) {
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	return err
}
