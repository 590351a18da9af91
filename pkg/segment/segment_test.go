package segment

import (
	"errors"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		start, stop   int64
		frameDuration int64
		want          []Segment
	}{
		{name: "last frame truncated", stop: 100, frameDuration: 30, want: []Segment{{0, 30, 0}, {30, 30, 1}, {60, 30, 2}, {90, 10, 3}}},
		{name: "exact multiple", start: 1000, stop: 1064, frameDuration: 32, want: []Segment{{1000, 32, 0}, {1032, 32, 1}}},
		{name: "frame longer than span", start: 5, stop: 8, frameDuration: 64, want: []Segment{{5, 3, 0}}},
		{name: "empty span", start: 7, stop: 7, frameDuration: 4, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.start, tt.stop, tt.frameDuration)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d segments, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			if total := TotalDuration(got); total != tt.stop-tt.start {
				t.Errorf("TotalDuration = %d, want %d", total, tt.stop-tt.start)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Start != got[i-1].End() {
					t.Errorf("gap or overlap between segment %d and %d", i-1, i)
				}
			}
		})
	}
}

func TestSplit_Invalid(t *testing.T) {
	for _, d := range []int64{0, -30} {
		if _, err := Split(0, 100, d); err == nil {
			t.Errorf("Expected error for frame duration %d, got nil", d)
		}
	}
	if _, err := Split(100, 0, 10); err == nil {
		t.Error("Expected error for reversed span, got nil")
	}
}

func TestTemplatePaths(t *testing.T) {
	segs, _ := Split(1126259460, 1126259560, 30)

	paths, err := Template("out/H-H1_FAKE-{start}-{duration}.gwf").Paths(segs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := []string{
		"out/H-H1_FAKE-1126259460-30.gwf",
		"out/H-H1_FAKE-1126259490-30.gwf",
		"out/H-H1_FAKE-1126259520-30.gwf",
		"out/H-H1_FAKE-1126259550-10.gwf",
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestTemplatePaths_Duplicate(t *testing.T) {
	segs, _ := Split(0, 100, 30)
	_, err := Template("frame-{duration}.gwf").Paths(segs)
	if !errors.Is(err, ErrDuplicatePath) {
		t.Fatalf("Expected ErrDuplicatePath, got %v", err)
	}
}

func TestTemplate_HasPlaceholders(t *testing.T) {
	if Template("frame.gwf").HasPlaceholders() {
		t.Error("Expected plain name to have no placeholders")
	}
	if !Template("frame-{start}.gwf").HasPlaceholders() {
		t.Error("Expected {start} to be detected")
	}
}
