// Package output writes a channel set to disk, either as one file for the
// whole span or as one file per frame segment.
package output

import (
	"fmt"
	"log/slog"

	"github.com/agleyzer/fakeframes/internal/framefile"
	"github.com/agleyzer/fakeframes/pkg/segment"
	"github.com/agleyzer/fakeframes/pkg/series"
)

// Written records one file produced by a Writer.
type Written struct {
	Path    string
	Segment segment.Segment
}

// Writer writes channel sets to a destination.
type Writer struct {
	// Dest is the destination file, or a segment.Template when writing
	// segments.
	Dest string
	// Options are passed to the codec.
	Options framefile.Options
	Logger  *slog.Logger
}

// New creates a writer for dest.
func New(dest string, opts framefile.Options, logger *slog.Logger) *Writer {
	return &Writer{Dest: dest, Options: opts, Logger: logger}
}

// WriteAll writes the whole set to Dest as a single file covering span.
func (w *Writer) WriteAll(set *series.Set, span segment.Segment) ([]Written, error) {
	w.Logger.Info("writing output", "path", w.Dest, "channels", set.Names())
	if err := framefile.WriteSet(w.Dest, set, w.Options); err != nil {
		return nil, fmt.Errorf("write %s: %w", w.Dest, err)
	}
	return []Written{{Path: w.Dest, Segment: span}}, nil
}

// WriteSegments slices set to every segment and writes each slice to the
// path the Dest template resolves to. Files are written in order; on error
// the files already written are returned with the error and left on disk.
func (w *Writer) WriteSegments(set *series.Set, segments []segment.Segment) ([]Written, error) {
	tmpl := segment.Template(w.Dest)
	paths, err := tmpl.Paths(segments)
	if err != nil {
		return nil, err
	}

	written := make([]Written, 0, len(segments))
	for i, seg := range segments {
		slice, err := set.TimeSlice(float64(seg.Start), float64(seg.End()))
		if err != nil {
			return written, fmt.Errorf("slice segment %d: %w", seg.Sequence, err)
		}

		w.Logger.Info("writing frame",
			"path", paths[i],
			"start", seg.Start,
			"duration", seg.Duration,
			"sequence", seg.Sequence,
		)
		if err := framefile.WriteSet(paths[i], slice, w.Options); err != nil {
			return written, fmt.Errorf("write %s: %w", paths[i], err)
		}
		written = append(written, Written{Path: paths[i], Segment: seg})
	}
	return written, nil
}
