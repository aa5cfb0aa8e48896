package wearable

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamFull is returned when a push would exceed the sample
	// capacity the caller sized the stream with.
	ErrStreamFull = errors.New("wearable: stream buffers full")

	// ErrDayIndexFull is returned when a day pair push would exceed the
	// Nwin*MaxDays index capacity.
	ErrDayIndexFull = errors.New("wearable: day index buffers full")
)

// Stream is the uniform decoder output: a timestamp array, an interleaved
// sample array of Axes channels per frame, optional temperature/light/lux
// channels, and paired day start/stop sample indices.
//
// The caller allocates a Stream once per file via NewStream, the decoder
// appends through the internal write cursor, and the caller calls Truncate
// when decoding finishes. A Stream is owned by a single decode session and
// must not be shared across goroutines.
type Stream struct {
	Axes int

	TS    []float64
	Accel []float64 // interleaved, Axes values per sample
	Temp  []float64 // nil when the format has no temperature channel
	Light []float64 // nil when the format has no light channel
	Lux   []float64 // nil when the format has no lux channel

	DayStarts []int64
	DayStops  []int64

	n      int // samples written
	nPairs int // day pairs written
}

// Channel selection for NewStream.
const (
	WithTemp = 1 << iota
	WithLight
	WithLux
)

// NewStream allocates output buffers for at most maxN samples of axes
// channels each, with day index arrays sized for nWin windows over MaxDays
// days. The channels bitmask selects the optional per-sample channels.
func NewStream(maxN int, axes int, nWin int, channels int) *Stream {
	s := &Stream{
		Axes:      axes,
		TS:        make([]float64, maxN),
		Accel:     make([]float64, maxN*axes),
		DayStarts: make([]int64, nWin*MaxDays),
		DayStops:  make([]int64, nWin*MaxDays),
	}
	if channels&WithTemp != 0 {
		s.Temp = make([]float64, maxN)
	}
	if channels&WithLight != 0 {
		s.Light = make([]float64, maxN)
	}
	if channels&WithLux != 0 {
		s.Lux = make([]float64, maxN)
	}
	return s
}

// Len returns the number of samples written so far.
func (s *Stream) Len() int { return s.n }

// DayPairs returns the number of day start/stop pairs written so far.
func (s *Stream) DayPairs() int { return s.nPairs }

// Push appends one sample frame. frame must hold exactly Axes values.
// The temp/light/lux values are stored only when the corresponding channel
// was allocated. Timestamps must be pushed in non-decreasing order; the
// decoders enforce that before calling.
func (s *Stream) Push(ts float64, frame []float64, temp, light, lux float64) error {
	if len(frame) != s.Axes {
		return fmt.Errorf("wearable: frame has %d values, stream has %d axes", len(frame), s.Axes)
	}
	if s.n >= len(s.TS) {
		return ErrStreamFull
	}
	s.TS[s.n] = ts
	copy(s.Accel[s.n*s.Axes:], frame)
	if s.Temp != nil {
		s.Temp[s.n] = temp
	}
	if s.Light != nil {
		s.Light[s.n] = light
	}
	if s.Lux != nil {
		s.Lux[s.n] = lux
	}
	s.n++
	return nil
}

// Frame returns the i-th sample frame as a subslice of the accel buffer.
func (s *Stream) Frame(i int) []float64 {
	return s.Accel[i*s.Axes : (i+1)*s.Axes]
}

// PushDayPair appends one (start, stop) day index pair.
func (s *Stream) PushDayPair(start, stop int64) error {
	if s.nPairs >= len(s.DayStarts) {
		return ErrDayIndexFull
	}
	if stop < start {
		return fmt.Errorf("wearable: day pair stop %d before start %d", stop, start)
	}
	s.DayStarts[s.nPairs] = start
	s.DayStops[s.nPairs] = stop
	s.nPairs++
	return nil
}

// SetDayPairs replaces the day index contents with a batch computed by the
// day-indexing engine. Pairs beyond the array capacity are dropped; the
// engine already bounds its output by MaxDays so this only guards misuse.
func (s *Stream) SetDayPairs(starts, stops []int64) {
	n := len(starts)
	if n > len(s.DayStarts) {
		n = len(s.DayStarts)
	}
	copy(s.DayStarts, starts[:n])
	copy(s.DayStops, stops[:n])
	s.nPairs = n
}

// Truncate trims every buffer to the written length. Call once after the
// last successful read; the slices remain valid and well-formed even when
// decoding stopped early.
func (s *Stream) Truncate() {
	s.TS = s.TS[:s.n]
	s.Accel = s.Accel[:s.n*s.Axes]
	if s.Temp != nil {
		s.Temp = s.Temp[:s.n]
	}
	if s.Light != nil {
		s.Light = s.Light[:s.n]
	}
	if s.Lux != nil {
		s.Lux = s.Lux[:s.n]
	}
	s.DayStarts = s.DayStarts[:s.nPairs]
	s.DayStops = s.DayStops[:s.nPairs]
}
