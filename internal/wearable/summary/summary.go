// Package summary reduces a decoded stream's day windows to per-window
// activity statistics over the acceleration vector magnitude.
package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

// WindowSummary is one day window reduced to its magnitude statistics.
// Units are g.
type WindowSummary struct {
	Pair  int // index into the stream's day pair arrays
	Start int64
	Stop  int64
	N     int
	Mean  float64
	Std   float64
	P95   float64
}

// Magnitude returns the Euclidean norm of the i-th sample's acceleration.
// Six-axis streams store gyro in the first three channels, so the last
// three channels are always the accelerometer.
func Magnitude(st *wearable.Stream, i int) float64 {
	frame := st.Frame(i)
	if len(frame) > 3 {
		frame = frame[len(frame)-3:]
	}
	var sq float64
	for _, v := range frame {
		sq += v * v
	}
	return math.Sqrt(sq)
}

// Summarize computes one WindowSummary per day pair in the stream.
func Summarize(st *wearable.Stream) []WindowSummary {
	out := make([]WindowSummary, 0, st.DayPairs())
	for p := 0; p < st.DayPairs(); p++ {
		start, stop := st.DayStarts[p], st.DayStops[p]
		mags := make([]float64, 0, stop-start+1)
		for i := start; i <= stop && i < int64(st.Len()); i++ {
			mags = append(mags, Magnitude(st, int(i)))
		}
		ws := WindowSummary{Pair: p, Start: start, Stop: stop, N: len(mags)}
		if len(mags) > 0 {
			ws.Mean = stat.Mean(mags, nil)
			ws.Std = stat.StdDev(mags, nil)
			sort.Float64s(mags)
			ws.P95 = stat.Quantile(0.95, stat.Empirical, mags, nil)
		}
		if math.IsNaN(ws.Std) {
			ws.Std = 0 // single-sample window
		}
		out = append(out, ws)
	}
	return out
}
