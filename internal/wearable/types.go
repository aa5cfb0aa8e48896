// Package wearable holds the domain types shared by the device decoders:
// wall-clock time fragments, windowing specifications and the caller-owned
// output stream buffers that every decoder writes into.
package wearable

import (
	"errors"
	"fmt"
	"time"
)

// Time constants shared by the decoders and the day-indexing engine.
const (
	SecondsPerMinute = 60
	SecondsPerHour   = 3600
	SecondsPerDay    = 86400.0

	// MaxDays bounds the pre-allocated day index arrays. Recordings longer
	// than this are decoded in full but only the first MaxDays days are
	// indexed; the engine reports the number of days actually found.
	MaxDays = 25
)

// ClockTime is a decomposed wall-clock time used transiently while parsing
// headers and per-block timestamps, before conversion to epoch seconds.
// Msec is an integer millisecond count (0.500s -> 500).
type ClockTime struct {
	Hour int
	Min  int
	Sec  int
	Msec int
}

// SecondsOfDay returns the time of day in seconds since midnight.
func (c ClockTime) SecondsOfDay() float64 {
	return float64(c.Hour)*SecondsPerHour + float64(c.Min)*SecondsPerMinute +
		float64(c.Sec) + float64(c.Msec)/1000.0
}

// Epoch combines a calendar date with the clock time into UTC epoch seconds.
func Epoch(year, month, day int, c ClockTime) float64 {
	t := time.Date(year, time.Month(month), day, c.Hour, c.Min, c.Sec, 0, time.UTC)
	return float64(t.Unix()) + float64(c.Msec)/1000.0
}

// Window is one recurring window definition: a window starting at BaseHour
// o'clock recurring every PeriodHours.
type Window struct {
	BaseHour    int
	PeriodHours int
}

// WindowSpec is the ordered list of window definitions applied to each
// calendar day of a recording.
type WindowSpec []Window

var (
	errEmptyWindowSpec = errors.New("wearable: empty window spec")
)

// Validate checks the window invariants: 0 <= BaseHour < 24 and
// PeriodHours > 0 for every definition, and at least one definition.
func (w WindowSpec) Validate() error {
	if len(w) == 0 {
		return errEmptyWindowSpec
	}
	for i, win := range w {
		if win.BaseHour < 0 || win.BaseHour >= 24 {
			return fmt.Errorf("wearable: window %d: base hour %d out of range [0,24)", i, win.BaseHour)
		}
		if win.PeriodHours <= 0 {
			return fmt.Errorf("wearable: window %d: period %d must be positive", i, win.PeriodHours)
		}
	}
	return nil
}
