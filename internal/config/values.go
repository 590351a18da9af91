package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agleyzer/fakeframes/pkg/series"
)

// IntervalList is a flag.Value collecting START,STOP pairs. Pairs may be
// given in one value separated by spaces or semicolons, or by repeating the
// flag.
type IntervalList []series.Interval

func (l *IntervalList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, iv := range *l {
		parts[i] = strconv.FormatFloat(iv.Start, 'f', -1, 64) + "," + strconv.FormatFloat(iv.End, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Set implements flag.Value.
func (l *IntervalList) Set(value string) error {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t'
	})
	for _, f := range fields {
		iv, err := ParseInterval(f)
		if err != nil {
			return err
		}
		*l = append(*l, iv)
	}
	return nil
}

// ParseInterval parses a "START,STOP" pair.
func ParseInterval(s string) (series.Interval, error) {
	start, end, ok := strings.Cut(s, ",")
	if !ok {
		return series.Interval{}, fmt.Errorf("segment %q is not of the form START,STOP", s)
	}
	t0, err := strconv.ParseFloat(strings.TrimSpace(start), 64)
	if err != nil {
		return series.Interval{}, fmt.Errorf("segment %q: invalid start: %w", s, err)
	}
	t1, err := strconv.ParseFloat(strings.TrimSpace(end), 64)
	if err != nil {
		return series.Interval{}, fmt.Errorf("segment %q: invalid stop: %w", s, err)
	}
	iv := series.Interval{Start: t0, End: t1}
	if err := iv.Validate(); err != nil {
		return series.Interval{}, err
	}
	return iv, nil
}

// FloatList is a flag.Value collecting numbers separated by spaces or commas,
// or given by repeating the flag.
type FloatList []float64

func (l *FloatList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Set implements flag.Value.
func (l *FloatList) Set(value string) error {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", f, err)
		}
		*l = append(*l, v)
	}
	return nil
}
