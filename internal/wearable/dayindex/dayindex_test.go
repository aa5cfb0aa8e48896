package dayindex

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

// synth builds a timestamp array of n samples at fs Hz starting at t0.
func synth(t0 float64, n int, fs float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = t0 + float64(i)/fs
	}
	return ts
}

func TestCompute_TwoFullDaysSingleWindow(t *testing.T) {
	// Two full days at 50 Hz starting at midnight with a single
	// (base=0, period=24h) window: exactly two contiguous,
	// non-overlapping pairs.
	const fs = 50.0
	n := int(2 * wearable.SecondsPerDay * fs)
	ts := synth(0, n, fs)
	spec := wearable.WindowSpec{{BaseHour: 0, PeriodHours: 24}}

	starts, stops, nDays, err := Compute(ts, fs, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if nDays != 2 {
		t.Fatalf("nDays = %d, want 2", nDays)
	}
	wantStarts := []int64{0, int64(wearable.SecondsPerDay * fs)}
	wantStops := []int64{int64(wearable.SecondsPerDay*fs) - 1, int64(n) - 1}
	if diff := cmp.Diff(wantStarts, starts); diff != "" {
		t.Errorf("starts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantStops, stops); diff != "" {
		t.Errorf("stops mismatch (-want +got):\n%s", diff)
	}
	// Contiguity: day one ends on the sample before day two starts.
	if stops[0] != starts[1]-1 {
		t.Errorf("stops[0] = %d, want starts[1]-1 = %d", stops[0], starts[1]-1)
	}
}

func TestCompute_EmptyStream(t *testing.T) {
	spec := wearable.WindowSpec{{BaseHour: 0, PeriodHours: 24}}
	starts, stops, nDays, err := Compute(nil, 50, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("Compute on empty stream: %v", err)
	}
	if len(starts) != 0 || len(stops) != 0 || nDays != 0 {
		t.Errorf("got %d starts, %d stops, %d days; want all zero", len(starts), len(stops), nDays)
	}
}

func TestCompute_BadInputs(t *testing.T) {
	spec := wearable.WindowSpec{{BaseHour: 0, PeriodHours: 24}}
	if _, _, _, err := Compute(synth(0, 10, 50), 0, spec, 5); err == nil {
		t.Error("zero frequency accepted")
	}
	if _, _, _, err := Compute(synth(0, 10, 50), 50, wearable.WindowSpec{}, 5); err == nil {
		t.Error("empty window spec accepted")
	}
	if _, _, _, err := Compute(synth(0, 10, 50), 50, wearable.WindowSpec{{BaseHour: 24, PeriodHours: 1}}, 5); err == nil {
		t.Error("out-of-range base hour accepted")
	}
}

func TestCompute_SubDayWindows(t *testing.T) {
	// One day at 1 Hz with two windows: (8,4) covers 08:00-12:00,
	// (0,24) covers the whole day.
	const fs = 1.0
	n := int(wearable.SecondsPerDay)
	ts := synth(0, n, fs)
	spec := wearable.WindowSpec{
		{BaseHour: 8, PeriodHours: 4},
		{BaseHour: 0, PeriodHours: 24},
	}

	starts, stops, nDays, err := Compute(ts, fs, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if nDays != 1 {
		t.Fatalf("nDays = %d, want 1", nDays)
	}
	want := len(spec) * nDays
	if len(starts) != want || len(stops) != want {
		t.Fatalf("got %d pairs, want %d", len(starts), want)
	}
	if starts[0] != 8*wearable.SecondsPerHour || stops[0] != 12*wearable.SecondsPerHour-1 {
		t.Errorf("window (8,4) = [%d,%d], want [%d,%d]",
			starts[0], stops[0], 8*wearable.SecondsPerHour, 12*wearable.SecondsPerHour-1)
	}
	if starts[1] != 0 || stops[1] != int64(n)-1 {
		t.Errorf("window (0,24) = [%d,%d], want [0,%d]", starts[1], stops[1], n-1)
	}
}

func TestCompute_WindowWithoutSamples(t *testing.T) {
	// One hour of samples at 13:00-14:00. The (8,4) window covers
	// 08:00-12:00 and holds none of them, but the day still counts, so the
	// result keeps its len(spec)*nDays shape: the empty window degenerates
	// to a single-sample pair at the first sample past its start.
	const fs = 1.0
	n := int(wearable.SecondsPerHour)
	ts := synth(13*wearable.SecondsPerHour, n, fs)
	spec := wearable.WindowSpec{
		{BaseHour: 8, PeriodHours: 4},
		{BaseHour: 0, PeriodHours: 24},
	}

	starts, stops, nDays, err := Compute(ts, fs, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if nDays != 1 {
		t.Fatalf("nDays = %d, want 1", nDays)
	}
	want := len(spec) * nDays
	if len(starts) != want || len(stops) != want {
		t.Fatalf("got %d starts, %d stops; want %d each", len(starts), len(stops), want)
	}
	if starts[0] != 0 || stops[0] != 0 {
		t.Errorf("empty window pair = [%d,%d], want degenerate [0,0]", starts[0], stops[0])
	}
	if starts[1] != 0 || stops[1] != int64(n)-1 {
		t.Errorf("full-day pair = [%d,%d], want [0,%d]", starts[1], stops[1], n-1)
	}
}

func TestCompute_WindowAfterSamples(t *testing.T) {
	// A window entirely after the day's samples clamps its degenerate pair
	// to the day's last sample.
	const fs = 1.0
	n := int(wearable.SecondsPerHour)
	ts := synth(13*wearable.SecondsPerHour, n, fs)
	spec := wearable.WindowSpec{{BaseHour: 20, PeriodHours: 2}}

	starts, stops, nDays, err := Compute(ts, fs, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if nDays != 1 || len(starts) != 1 {
		t.Fatalf("nDays = %d, pairs = %d; want 1, 1", nDays, len(starts))
	}
	if starts[0] != int64(n)-1 || stops[0] != int64(n)-1 {
		t.Errorf("pair = [%d,%d], want [%d,%d]", starts[0], stops[0], n-1, n-1)
	}
}

func TestCompute_MaxDaysBound(t *testing.T) {
	// Three days of data but a two-day bound: the engine stops early and
	// reports how far it got rather than failing.
	const fs = 1.0
	n := int(3 * wearable.SecondsPerDay)
	ts := synth(0, n, fs)
	spec := wearable.WindowSpec{{BaseHour: 0, PeriodHours: 24}}

	starts, _, nDays, err := Compute(ts, fs, spec, 2)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if nDays != 2 {
		t.Errorf("nDays = %d, want 2", nDays)
	}
	if len(starts) != 2 {
		t.Errorf("got %d pairs, want 2", len(starts))
	}
}

func TestCompute_PartialFirstDay(t *testing.T) {
	// Recording starts at noon: the (0,24) window still opens at the
	// first available sample of that day.
	const fs = 1.0
	t0 := 12.0 * wearable.SecondsPerHour
	n := int(wearable.SecondsPerDay) // noon to noon, crosses midnight
	ts := synth(t0, n, fs)
	spec := wearable.WindowSpec{{BaseHour: 0, PeriodHours: 24}}

	starts, stops, nDays, err := Compute(ts, fs, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if nDays != 2 {
		t.Fatalf("nDays = %d, want 2", nDays)
	}
	if starts[0] != 0 {
		t.Errorf("first window starts at %d, want 0", starts[0])
	}
	if stops[1] != int64(n)-1 {
		t.Errorf("last window stops at %d, want %d", stops[1], n-1)
	}
}

func TestComputeFromStart(t *testing.T) {
	spec := wearable.WindowSpec{{BaseHour: 0, PeriodHours: 24}}
	n := int(wearable.SecondsPerDay)
	starts, stops, nDays, err := ComputeFromStart(0, n, 1, spec, wearable.MaxDays)
	if err != nil {
		t.Fatalf("ComputeFromStart: %v", err)
	}
	if nDays != 1 || len(starts) != 1 {
		t.Fatalf("nDays = %d, pairs = %d; want 1, 1", nDays, len(starts))
	}
	if starts[0] != 0 || stops[0] != int64(n)-1 {
		t.Errorf("pair = [%d,%d], want [0,%d]", starts[0], stops[0], n-1)
	}
}
