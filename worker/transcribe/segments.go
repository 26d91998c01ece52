package transcribe

import (
	"fmt"
	"math"
	"path/filepath"
)

// Segment is one bounded slice of the extracted audio.
type Segment struct {
	Index    int
	Start    float64
	Duration float64
	Path     string
}

// PlanSegments partitions [0, total) into ceil(total/chunk) contiguous
// segments of chunk seconds; the last one carries the remainder.
func PlanSegments(total, chunk float64) []Segment {
	if total <= 0 || chunk <= 0 {
		return nil
	}

	count := int(math.Ceil(total / chunk))
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunk
		segments = append(segments, Segment{
			Index:    i,
			Start:    start,
			Duration: math.Min(chunk, total-start),
		})
	}
	return segments
}

func segmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%03d.wav", index))
}
