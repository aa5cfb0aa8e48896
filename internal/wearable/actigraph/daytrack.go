package actigraph

import (
	"math"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

// dayTracker feeds day start/stop pairs into the stream as records arrive,
// rather than in a batch pass: GT3X records are already naturally streamed,
// so the boundaries fall out of the sample cursor directly. Pairs are
// buffered per day and flushed in window order when the day ends, so for
// sorted timestamps the output matches the shared day-indexing engine:
// len(spec) pairs per counted day, degenerate single-sample pairs for
// windows that saw no samples.
type dayTracker struct {
	spec    wearable.WindowSpec
	maxDays int

	open      []bool
	done      []bool
	startIdx  []int64
	stopIdx   []int64
	limit     []float64
	candidate []int64 // first in-day index at or after the window start

	nDays   int
	lastDay float64
	lastIdx int64
	full    bool // day index arrays exhausted, stop tracking
}

func newDayTracker(spec wearable.WindowSpec, maxDays int) *dayTracker {
	if maxDays <= 0 || maxDays > wearable.MaxDays {
		maxDays = wearable.MaxDays
	}
	return &dayTracker{
		spec:      spec,
		maxDays:   maxDays,
		open:      make([]bool, len(spec)),
		done:      make([]bool, len(spec)),
		startIdx:  make([]int64, len(spec)),
		stopIdx:   make([]int64, len(spec)),
		limit:     make([]float64, len(spec)),
		candidate: make([]int64, len(spec)),
		lastDay:   math.Inf(-1),
	}
}

// observe is called once per appended sample with its index and timestamp.
func (dt *dayTracker) observe(st *wearable.Stream, idx int, t float64) {
	if dt.full {
		return
	}
	day := math.Floor(t / wearable.SecondsPerDay)
	if day != dt.lastDay {
		if !math.IsInf(dt.lastDay, -1) {
			dt.flushDay(st, dt.lastIdx)
		}
		dt.lastDay = day
		dt.nDays++
		for w := range dt.spec {
			dt.open[w], dt.done[w] = false, false
			dt.candidate[w] = -1
		}
	}
	dt.lastIdx = int64(idx)
	if dt.full || dt.nDays > dt.maxDays {
		return
	}

	dayStart := day * wearable.SecondsPerDay
	dayEnd := dayStart + wearable.SecondsPerDay

	for w, win := range dt.spec {
		if dt.done[w] {
			continue
		}
		if dt.open[w] {
			if t >= dt.limit[w] {
				dt.stopIdx[w] = int64(idx - 1)
				dt.open[w], dt.done[w] = false, true
			}
			continue
		}
		winStart := dayStart + float64(win.BaseHour)*wearable.SecondsPerHour
		winEnd := winStart + float64(win.PeriodHours)*wearable.SecondsPerHour
		if winEnd > dayEnd {
			winEnd = dayEnd
		}
		switch {
		case t >= winStart && t < winEnd:
			dt.open[w] = true
			dt.startIdx[w] = int64(idx)
			dt.limit[w] = winEnd
		case t >= winStart && dt.candidate[w] < 0:
			dt.candidate[w] = int64(idx)
		}
	}
}

// flushDay emits the finished day's pairs in window order. last is the index
// of the day's final sample: still-open windows close there, and windows
// that never saw a sample get a degenerate single-sample pair at their
// candidate index, clamped to last.
func (dt *dayTracker) flushDay(st *wearable.Stream, last int64) {
	if dt.nDays > dt.maxDays {
		return
	}
	for w := range dt.spec {
		start, stop := dt.startIdx[w], dt.stopIdx[w]
		switch {
		case dt.open[w]:
			stop = last
		case !dt.done[w]:
			start = dt.candidate[w]
			if start < 0 || start > last {
				start = last
			}
			stop = start
		}
		if err := st.PushDayPair(start, stop); err != nil {
			dt.full = true
			return
		}
	}
}

// finalize flushes the last open day and returns the number of days seen
// (capped by maxDays).
func (dt *dayTracker) finalize(st *wearable.Stream) int {
	if !dt.full && st.Len() > 0 && !math.IsInf(dt.lastDay, -1) {
		dt.flushDay(st, int64(st.Len()-1))
	}
	if dt.nDays > dt.maxDays {
		return dt.maxDays
	}
	return dt.nDays
}
