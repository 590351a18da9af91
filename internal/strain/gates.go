package strain

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/agleyzer/fakeframes/pkg/series"
)

// Gate zeroes the strain within Window seconds of Time and tapers it over a
// further Pad seconds on each side.
type Gate struct {
	Time   float64
	Window float64
	Pad    float64
}

// GateLog records applied gates per gate identifier, in application order.
type GateLog struct {
	ids   []string
	gates map[string][]Gate
}

// NewGateLog creates an empty log.
func NewGateLog() *GateLog {
	return &GateLog{gates: make(map[string][]Gate)}
}

// Add records g under id.
func (l *GateLog) Add(id string, g Gate) {
	if _, ok := l.gates[id]; !ok {
		l.ids = append(l.ids, id)
	}
	l.gates[id] = append(l.gates[id], g)
}

// IDs returns the gate identifiers in first-seen order.
func (l *GateLog) IDs() []string {
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// Gates returns the gates recorded under id.
func (l *GateLog) Gates(id string) []Gate { return l.gates[id] }

// Len returns the total number of gates.
func (l *GateLog) Len() int {
	n := 0
	for _, g := range l.gates {
		n += len(g)
	}
	return n
}

// ApplyGate zeroes and tapers s around g.Time in place.
func ApplyGate(s *series.Series[float64], g Gate) {
	first, last, ok := s.Indices(series.Epoch{Center: g.Time, Pad: g.Window + g.Pad})
	if !ok {
		return
	}
	for i := first; i <= last; i++ {
		d := math.Abs(s.SampleTime(i) - g.Time)
		switch {
		case d < g.Window:
			s.Data[i] = 0
		case g.Pad > 0:
			s.Data[i] *= 0.5 * (1 - math.Cos(math.Pi*(d-g.Window)/g.Pad))
		}
	}
}

// ReadGatingFile parses lines of "time window pad". Blank lines and lines
// starting with # are skipped.
func ReadGatingFile(path string) ([]Gate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gating file: %w", err)
	}
	defer f.Close()

	var gates []Gate
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: expected 3 fields, got %d", path, line, len(fields))
		}
		var v [3]float64
		for i, field := range fields {
			if v[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
		}
		if v[1] < 0 || v[2] < 0 {
			return nil, fmt.Errorf("%s:%d: window and pad must be non-negative", path, line)
		}
		gates = append(gates, Gate{Time: v[0], Window: v[1], Pad: v[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read gating file: %w", err)
	}
	return gates, nil
}

// WriteGateLog writes one "time window pad" line per gate, identifiers in
// recorded order.
func WriteGateLog(path string, log *GateLog) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gate log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	for _, id := range log.IDs() {
		for _, g := range log.Gates(id) {
			if _, err := fmt.Fprintf(w, "%.4f %.2f %.2f\n", g.Time, g.Window, g.Pad); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
