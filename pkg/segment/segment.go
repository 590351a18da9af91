// Package segment splits a GPS time span into consecutive fixed-duration
// output frames and resolves their file names.
package segment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDuplicatePath is returned when a destination template maps two segments
// to the same file.
var ErrDuplicatePath = errors.New("segments resolve to the same path")

// Segment represents one output frame of the requested span.
type Segment struct {
	// Start is the GPS start time in seconds
	Start int64

	// Duration is the segment duration in seconds
	// The last segment of a span may be shorter than the nominal duration
	Duration int64

	// Sequence is the position of the segment within the span
	Sequence int
}

// End returns the GPS time just past the segment.
func (s Segment) End() int64 { return s.Start + s.Duration }

// Split returns consecutive segments of frameDuration seconds covering
// [start, stop). The final segment is truncated to end exactly at stop.
func Split(start, stop, frameDuration int64) ([]Segment, error) {
	if frameDuration <= 0 {
		return nil, fmt.Errorf("frame duration must be positive, got %d", frameDuration)
	}
	if stop < start {
		return nil, fmt.Errorf("span end %d is before start %d", stop, start)
	}

	var segments []Segment
	for s := start; s < stop; s += frameDuration {
		d := frameDuration
		if s+d > stop {
			d = stop - s
		}
		segments = append(segments, Segment{Start: s, Duration: d, Sequence: len(segments)})
	}
	return segments, nil
}

// Template is a destination name with {start} and {duration} placeholders.
type Template string

// HasPlaceholders reports whether the template contains at least the
// {start} placeholder, which is what keeps segment names distinct.
func (t Template) HasPlaceholders() bool {
	return strings.Contains(string(t), "{start}")
}

// Resolve substitutes the segment's start and duration.
func (t Template) Resolve(seg Segment) string {
	r := strings.NewReplacer(
		"{start}", strconv.FormatInt(seg.Start, 10),
		"{duration}", strconv.FormatInt(seg.Duration, 10),
	)
	return r.Replace(string(t))
}

// Paths resolves the template for every segment and checks that no two
// segments share a path.
func (t Template) Paths(segments []Segment) ([]string, error) {
	paths := make([]string, len(segments))
	seen := make(map[string]int, len(segments))
	for i, seg := range segments {
		p := t.Resolve(seg)
		if j, dup := seen[p]; dup {
			return nil, fmt.Errorf("%w: segments %d and %d both map to %q", ErrDuplicatePath, j, i, p)
		}
		seen[p] = i
		paths[i] = p
	}
	return paths, nil
}

// TotalDuration sums the durations of segments.
func TotalDuration(segments []Segment) int64 {
	var total int64
	for _, s := range segments {
		total += s.Duration
	}
	return total
}
