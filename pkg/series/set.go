package series

import "fmt"

// Set is an ordered, name-keyed collection of series written together as one
// snapshot. Names are unique within a set.
type Set struct {
	names  []string
	series []TimeSeries
	index  map[string]int
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Add appends a named series. Empty or duplicate names are rejected.
func (s *Set) Add(name string, ts TimeSeries) error {
	if name == "" {
		return fmt.Errorf("channel name must not be empty")
	}
	if ts == nil {
		return fmt.Errorf("channel %q has no data", name)
	}
	if _, dup := s.index[name]; dup {
		return fmt.Errorf("duplicate channel name %q", name)
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	s.series = append(s.series, ts)
	return nil
}

// Len returns the number of channels.
func (s *Set) Len() int { return len(s.names) }

// Names returns the channel names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Series returns the series in insertion order.
func (s *Set) Series() []TimeSeries {
	out := make([]TimeSeries, len(s.series))
	copy(out, s.series)
	return out
}

// Get returns the series stored under name.
func (s *Set) Get(name string) (TimeSeries, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.series[i], true
}

// TimeSlice slices every channel to [t0, t1). Each channel keeps exactly the
// samples whose time lies in the range, whatever its sample rate.
func (s *Set) TimeSlice(t0, t1 float64) (*Set, error) {
	out := NewSet()
	for i, ts := range s.series {
		sliced, err := ts.TimeSlice(t0, t1)
		if err != nil {
			return nil, fmt.Errorf("slice channel %q: %w", s.names[i], err)
		}
		if err := out.Add(s.names[i], sliced); err != nil {
			return nil, err
		}
	}
	return out, nil
}
