// Package dayindex locates per-day, per-window sample index ranges in a
// monotonically non-decreasing timestamp stream. It has no device knowledge;
// all three decoders feed it the same epoch-seconds arrays.
package dayindex

import (
	"errors"
	"math"
	"sort"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

var (
	// ErrBadFrequency is returned for a non-positive sampling frequency.
	ErrBadFrequency = errors.New("dayindex: sampling frequency must be positive")
)

// Compute walks the calendar days covered by ts and, for each day and each
// window definition, records the index of the first sample at or after the
// window base hour and the index of the last sample before the window period
// elapses (or before the day ends, whichever comes first).
//
// The returned slices hold exactly len(spec) pairs for every counted day, in
// (day, window) order, so callers may index them as day*len(spec)+w. A day
// counts when it holds at least one sample; a window of a counted day that
// itself holds no samples yields a degenerate single-sample pair at the first
// in-day sample at or after the window start, clamped to the day's last
// sample. Days are bounded by maxDays; nDays reports how many were actually
// indexed so the caller knows when the bound truncated a longer recording.
// An empty timestamp stream yields zero pairs and no error.
func Compute(ts []float64, fs float64, spec wearable.WindowSpec, maxDays int) (starts, stops []int64, nDays int, err error) {
	if fs <= 0 {
		return nil, nil, 0, ErrBadFrequency
	}
	if err := spec.Validate(); err != nil {
		return nil, nil, 0, err
	}
	if len(ts) == 0 {
		return nil, nil, 0, nil
	}
	if maxDays <= 0 || maxDays > wearable.MaxDays {
		maxDays = wearable.MaxDays
	}

	firstDay := math.Floor(ts[0] / wearable.SecondsPerDay)
	lastDay := math.Floor(ts[len(ts)-1] / wearable.SecondsPerDay)

	starts = make([]int64, 0, len(spec)*maxDays)
	stops = make([]int64, 0, len(spec)*maxDays)

	for day := firstDay; day <= lastDay; day++ {
		if nDays >= maxDays {
			break
		}
		dayStart := day * wearable.SecondsPerDay
		dayEnd := dayStart + wearable.SecondsPerDay

		di := sort.SearchFloat64s(ts, dayStart)
		if di >= len(ts) || ts[di] >= dayEnd {
			continue // no samples on this day
		}
		dj := sort.SearchFloat64s(ts, dayEnd) - 1

		for _, w := range spec {
			winStart := dayStart + float64(w.BaseHour)*wearable.SecondsPerHour
			winEnd := winStart + float64(w.PeriodHours)*wearable.SecondsPerHour
			if winEnd > dayEnd {
				winEnd = dayEnd
			}

			i := sort.SearchFloat64s(ts, winStart)
			if i > dj {
				i = dj
			}
			j := sort.SearchFloat64s(ts, winEnd) - 1
			if j < i {
				j = i // window holds no samples: degenerate pair
			}
			starts = append(starts, int64(i))
			stops = append(stops, int64(j))
		}
		nDays++
	}
	return starts, stops, nDays, nil
}

// ComputeFromStart synthesizes the timestamp array from a first-sample epoch
// time and the sampling frequency, then indexes it like Compute. Useful for
// formats whose records carry only a start time and a sample count.
func ComputeFromStart(t0 float64, n int, fs float64, spec wearable.WindowSpec, maxDays int) (starts, stops []int64, nDays int, err error) {
	if fs <= 0 {
		return nil, nil, 0, ErrBadFrequency
	}
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = t0 + float64(i)/fs
	}
	return Compute(ts, fs, spec, maxDays)
}
