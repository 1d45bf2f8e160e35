package grapher

import (
	"bytes"
	"fmt"
	"sort"
)

// OffsetTable converts (line, column) positions into absolute byte offsets.
// Entry i of cumulative is the byte offset at which line i+1 starts, counting
// one byte per '\n'. A "\r\n" terminator is not special-cased: the '\r' stays
// part of the preceding line.
type OffsetTable struct {
	cumulative []int
}

// NewOffsetTable builds the prefix-sum table for source.
func NewOffsetTable(source []byte) *OffsetTable {
	lines := bytes.Split(source, []byte{'\n'})
	cumulative := make([]int, 1, len(lines)+1)
	for _, line := range lines {
		cumulative = append(cumulative, cumulative[len(cumulative)-1]+len(line)+1)
	}
	return &OffsetTable{cumulative: cumulative}
}

// Lines returns the number of lines recorded, which is one more than the
// number of newlines in the source.
func (t *OffsetTable) Lines() int {
	return len(t.cumulative) - 1
}

// Offset converts a 1-indexed line and 0-indexed column to a byte offset.
// Columns are not checked against the line length.
func (t *OffsetTable) Offset(line, column int) (int, error) {
	idx := line - 1
	if idx < 0 || idx >= len(t.cumulative) {
		return 0, fmt.Errorf("%w: requested line %d > %d", ErrOutOfBounds, line, t.Lines())
	}
	return t.cumulative[idx] + column, nil
}

// Position is the inverse of Offset for offsets inside the source: it returns
// the 1-indexed line containing offset and the 0-indexed column within it.
func (t *OffsetTable) Position(offset int) (line, column int, err error) {
	end := t.cumulative[len(t.cumulative)-1]
	if offset < 0 || offset >= end {
		return 0, 0, fmt.Errorf("%w: offset %d outside [0, %d)", ErrOutOfBounds, offset, end)
	}
	// First line start strictly greater than offset, minus one.
	idx := sort.Search(len(t.cumulative), func(i int) bool {
		return t.cumulative[i] > offset
	}) - 1
	return idx + 1, offset - t.cumulative[idx], nil
}
