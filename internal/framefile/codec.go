// Package framefile writes and reads named channel sets in the two supported
// container formats, selected by file extension.
package framefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/agleyzer/fakeframes/pkg/series"
)

var (
	// ErrUnsupportedFormat is returned for a destination whose extension
	// selects no codec.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrCorrupt is returned when a file fails structural or checksum checks.
	ErrCorrupt = errors.New("corrupt frame file")
)

// Codec serializes channel sets to one container format.
type Codec interface {
	// Write stores list[i] under names[i] in a new file at path.
	Write(path string, names []string, list []series.TimeSeries) error
	// Read loads the named channels, or every channel when names is empty.
	Read(path string, names ...string) (*series.Set, error)
}

// Options carries per-run metadata some codecs embed in their files.
type Options struct {
	// RunID tags frame files with the run that produced them.
	RunID uuid.UUID
}

// New returns the codec selected by the extension of path.
func New(path string, opts Options) (Codec, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gwf":
		return &Frame{RunID: opts.RunID}, nil
	case ".hdf", ".h5":
		return &HDF5{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown extension for %s", ErrUnsupportedFormat, path)
	}
}

// CheckExtension reports whether path names a supported container.
func CheckExtension(path string) error {
	_, err := New(path, Options{})
	return err
}

// Write stores the channels in the container selected by path.
func Write(path string, names []string, list []series.TimeSeries, opts Options) error {
	c, err := New(path, opts)
	if err != nil {
		return err
	}
	return c.Write(path, names, list)
}

// WriteSet stores every channel of set.
func WriteSet(path string, set *series.Set, opts Options) error {
	return Write(path, set.Names(), set.Series(), opts)
}

// Read loads channels from the container selected by path.
func Read(path string, names ...string) (*series.Set, error) {
	c, err := New(path, Options{})
	if err != nil {
		return nil, err
	}
	return c.Read(path, names...)
}

func checkArgs(names []string, list []series.TimeSeries) error {
	if len(names) != len(list) {
		return fmt.Errorf("got %d channel names for %d series", len(names), len(list))
	}
	if len(names) == 0 {
		return fmt.Errorf("no channels to write")
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("channel name must not be empty")
		}
		if seen[n] {
			return fmt.Errorf("duplicate channel name %q", n)
		}
		seen[n] = true
	}
	return nil
}

// selectChannels keeps the requested names from set, in request order.
func selectChannels(path string, set *series.Set, names []string) (*series.Set, error) {
	if len(names) == 0 {
		return set, nil
	}
	out := series.NewSet()
	for _, n := range names {
		ts, ok := set.Get(n)
		if !ok {
			return nil, fmt.Errorf("channel %q not found in %s", n, path)
		}
		if err := out.Add(n, ts); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// removeOnError deletes a partially written file.
func removeOnError(path string, err *error) {
	if *err != nil {
		os.Remove(path)
	}
}
