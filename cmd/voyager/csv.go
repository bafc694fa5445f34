package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readVectors parses one vector per CSV row. With labelColumn the first
// field of each row is a uint64 label.
func readVectors(r io.Reader, labelColumn bool) ([][]float32, []uint64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var (
		vectors [][]float32
		labels  []uint64
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := cr.FieldPos(0)
		if labelColumn {
			if len(rec) < 2 {
				return nil, nil, fmt.Errorf("line %d: expected a label and at least one value", line)
			}
			l, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: label: %w", line, err)
			}
			labels = append(labels, l)
			rec = rec[1:]
		}
		v, err := parseFloats(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, labels, nil
}

// parseVector parses a single comma-separated vector.
func parseVector(s string) ([]float32, error) {
	return parseFloats(strings.Split(s, ","))
}

func parseFloats(fields []string) ([]float32, error) {
	v := make([]float32, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
		v[i] = float32(x)
	}
	return v, nil
}
