package extract

import (
	"bytes"
)

// TableExtractor defines a minimal interface for table extraction strategies.
// Implementations can swap parsing tactics without changing callers.
type TableExtractor interface {
	// Extract returns the rows of the first target table in input, header
	// row first. It errors when no usable table exists.
	Extract(input []byte) ([][]string, error)
}

// StreamTableExtractor runs the event-driven StreamExtractor over the input.
type StreamTableExtractor struct {
	Marker string
}

// Extract returns the rows of the first marker table in input.
func (s StreamTableExtractor) Extract(input []byte) ([][]string, error) {
	return ExtractTable(bytes.NewReader(input), s.Marker)
}
