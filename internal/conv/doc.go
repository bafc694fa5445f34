// Package conv provides overflow-checked integer conversions.
//
// The loader uses these when turning counts and offsets read from an
// untrusted index stream into Go ints and slice sizes.
package conv
