// Package manifest writes and reads an m3u8 VOD playlist listing the frame
// files of a run in time order.
package manifest

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grafov/m3u8"

	"github.com/agleyzer/fakeframes/internal/output"
)

// ErrMalformed is returned by Load for playlists that do not describe frame
// files.
var ErrMalformed = errors.New("malformed frame manifest")

// Entry is one frame file listed in a manifest.
type Entry struct {
	// Path is the frame file path, resolved against the manifest directory
	Path string

	// Start is the GPS start time of the frame in seconds
	Start int64

	// Duration is the frame duration in seconds
	Duration float64
}

// Write creates a closed VOD playlist at path with one entry per written file.
// URIs are relative to the directory of path; each entry title carries the
// GPS start time of its frame.
func Write(path string, written []output.Written) error {
	if len(written) == 0 {
		return fmt.Errorf("cannot create manifest with zero frames")
	}

	pl, err := m3u8.NewMediaPlaylist(0, uint(len(written)))
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	pl.MediaType = m3u8.VOD

	dir := filepath.Dir(path)
	for _, w := range written {
		uri, err := relativeURI(dir, w.Path)
		if err != nil {
			return err
		}
		title := strconv.FormatInt(w.Segment.Start, 10)
		if err := pl.Append(uri, float64(w.Segment.Duration), title); err != nil {
			return fmt.Errorf("append %s: %w", uri, err)
		}
	}
	pl.TargetDuration = targetDuration(written)
	pl.Close()

	if err := os.WriteFile(path, pl.Encode().Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Write.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	playlist, listType, err := m3u8.DecodeFrom(f, true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("%w: expected media playlist", ErrMalformed)
	}
	mediaPlaylist, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected playlist type", ErrMalformed)
	}

	dir := filepath.Dir(path)
	var entries []Entry
	for i, seg := range mediaPlaylist.Segments {
		if seg == nil {
			break
		}
		start, err := strconv.ParseInt(seg.Title, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d has no GPS start time", ErrMalformed, i)
		}
		p := filepath.FromSlash(seg.URI)
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		entries = append(entries, Entry{Path: p, Start: start, Duration: seg.Duration})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: manifest contains no frames", ErrMalformed)
	}
	return entries, nil
}

// targetDuration is the longest frame duration rounded up to whole seconds.
func targetDuration(written []output.Written) float64 {
	maxDuration := 0.0
	for _, w := range written {
		if d := float64(w.Segment.Duration); d > maxDuration {
			maxDuration = d
		}
	}
	return math.Ceil(maxDuration)
}

func relativeURI(dir, path string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve manifest directory: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path for %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
