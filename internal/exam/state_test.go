package exam

import (
	"testing"
	"time"
)

func TestStateAt(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want State
	}{
		{"well before start", start.Add(-24 * time.Hour), StateNotStarted},
		{"one second before start", start.Add(-time.Second), StateNotStarted},
		{"exactly at start", start, StateStarted},
		{"mid window", start.Add(time.Hour), StateStarted},
		{"one second before end", end.Add(-time.Second), StateStarted},
		{"exactly at end", end, StateFinished},
		{"long after end", end.Add(48 * time.Hour), StateFinished},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StateAt(start, end, tc.now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
