package scraper

import "fmt"

// Range is an inclusive block range.
type Range struct {
	Start uint64
	End   uint64
}

// String returns the range in "start-end" format.
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Size returns the number of blocks in the range.
func (r Range) Size() uint64 {
	return r.End - r.Start + 1
}

// SplitRange splits [start, end] into consecutive, non-overlapping
// inclusive sub-ranges of at most maxSize blocks, so a single log query
// never exceeds the provider's span limit. Degenerate inputs
// (maxSize == 0 or an empty/inverted span) return the original range
// unchanged as a single element.
func SplitRange(start, end, maxSize uint64) []Range {
	r := Range{Start: start, End: end}
	if maxSize == 0 || end < start || r.Size() <= maxSize {
		return []Range{r}
	}

	var chunks []Range
	current := start
	for current <= end {
		chunkEnd := min(current+maxSize-1, end)
		chunks = append(chunks, Range{Start: current, End: chunkEnd})
		current = chunkEnd + 1
	}
	return chunks
}
