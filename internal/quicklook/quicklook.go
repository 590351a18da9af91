// Package quicklook renders each channel of a set as a PNG line plot.
package quicklook

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/agleyzer/fakeframes/pkg/series"
)

// MaxPoints bounds the number of points drawn per channel.
const MaxPoints = 4096

// Write saves one PNG per channel of set into dir and returns the file paths
// in channel order.
func Write(dir string, set *series.Set, logger *slog.Logger) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create quicklook dir: %w", err)
	}

	names := set.Names()
	files := FileNames(names)
	var paths []string
	for i, name := range names {
		ts, _ := set.Get(name)
		path := filepath.Join(dir, files[i])
		if err := plotChannel(path, name, ts); err != nil {
			return paths, fmt.Errorf("plot %s: %w", name, err)
		}
		logger.Debug("wrote quicklook", "channel", name, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName maps a channel name to a PNG file name, replacing characters
// outside [A-Za-z0-9_-] with an underscore.
func FileName(channel string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, channel)
	return safe + ".png"
}

// FileNames maps each channel to a distinct PNG file name. A channel whose
// FileName is already taken gets its index appended.
func FileNames(channels []string) []string {
	out := make([]string, len(channels))
	used := make(map[string]bool, len(channels))
	for i, c := range channels {
		name := FileName(c)
		base := strings.TrimSuffix(name, ".png")
		for n := 0; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d.png", base, i)
			if n > 0 {
				name = fmt.Sprintf("%s_%d_%d.png", base, i, n)
			}
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

// Points returns at most MaxPoints samples of ts taken at a fixed stride,
// with X in seconds since the series start.
func Points(ts series.TimeSeries) plotter.XYs {
	values := ts.Float64s()
	stride := (len(values) + MaxPoints - 1) / MaxPoints
	if stride < 1 {
		stride = 1
	}

	pts := make(plotter.XYs, 0, (len(values)+stride-1)/stride)
	for i := 0; i < len(values); i += stride {
		pts = append(pts, plotter.XY{X: float64(i) * ts.DeltaT(), Y: values[i]})
	}
	return pts
}

func plotChannel(path, name string, ts series.TimeSeries) error {
	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = fmt.Sprintf("seconds since GPS %g", ts.StartTime())
	p.Y.Label.Text = ts.DType().String()

	line, err := plotter.NewLine(Points(ts))
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(10*vg.Inch, 3*vg.Inch, path)
}
