package strain

import (
	"io"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// NewHCLogger creates the conditioning logger writing to w at the level
// matching the run's slog level.
func NewHCLogger(w io.Writer, level slog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "strain",
		Level:  hclogLevel(level),
		Output: w,
	})
}

func hclogLevel(level slog.Level) hclog.Level {
	switch {
	case level <= slog.LevelDebug:
		return hclog.Debug
	case level <= slog.LevelInfo:
		return hclog.Info
	case level <= slog.LevelWarn:
		return hclog.Warn
	default:
		return hclog.Error
	}
}
