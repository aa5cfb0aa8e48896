// Package geneactiv decodes GeneActiv BIN recordings: a line-oriented text
// header carrying the per-axis calibration, followed by fixed-size pages of
// exactly 300 samples encoded as hexadecimal text, each page preceded by a
// small textual page header with its own timestamp and frequency.
package geneactiv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/wearlab-data/motion.report/internal/wearable"
	"github.com/wearlab-data/motion.report/internal/wearable/dayindex"
)

// Page geometry. Every page carries exactly 300 samples; each sample is 12
// hex characters (12-bit x/y/z, 10-bit light, button and reserved bits), so
// the payload line is exactly 3600 characters.
const (
	SamplesPerPage = 300
	hexPerSample   = 12
	pageDataChars  = SamplesPerPage * hexPerSample

	headerLines     = 59 // fixed-size text header
	pageHeaderLines = 9  // lines before each page's data payload
)

// Fixed character offsets of the date fields within a
// "Page Time:YYYY-MM-DD hh:mm:ss:mmm" line.
const (
	dateYearOffset  = 10
	dateMonthOffset = 15
	dateDayOffset   = 18
	dateHourOffset  = 21
	dateMinOffset   = 24
	dateSecOffset   = 27
	dateMsecOffset  = 30
)

// Closed error set for BIN decoding. Header errors and a frequency mismatch
// on the first page are fatal; ErrBlockFSWarn marks a later-page mismatch
// that is recorded and tolerated (sensor clock drift), the page still
// decodes. The data errors skip the page.
var (
	ErrBadHeader       = errors.New("geneactiv: bad header")
	ErrBlockTimestamp  = errors.New("geneactiv: cannot read page timestamp")
	ErrBlockFS         = errors.New("geneactiv: page frequency does not match header")
	ErrBlockFSWarn     = errors.New("geneactiv: page frequency drift")
	ErrBlockData       = errors.New("geneactiv: cannot read page data")
	ErrBlockData3600   = errors.New("geneactiv: page data shorter than 3600 characters")
)

// Info holds the header calibration and bookkeeping for one decode session.
type Info struct {
	Frequency float64
	Gain      [3]float64
	Offset    [3]float64
	Volts     float64
	Lux       float64
	NPages    int

	// FSErrCount counts pages whose declared frequency differed from the
	// header after the first page.
	FSErrCount int

	pagesSeen int
	tLast     float64
}

// MaxSamples bounds the output buffer size for this file.
func (info *Info) MaxSamples() int { return info.NPages * SamplesPerPage }

// ReadHeader consumes the fixed 59-line text header and extracts the
// calibration coefficients, conversion constants, sampling frequency and
// declared page count. There is no header checksum; any missing or
// malformed field is fatal.
func ReadHeader(r *bufio.Reader) (*Info, error) {
	info := &Info{}
	seen := make(map[string]bool)

	for i := 0; i < headerLines; i++ {
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("%w: header truncated at line %d: %v", ErrBadHeader, i+1, err)
		}
		line = strings.TrimRight(line, "\r\n")

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch key {
		case "x gain", "y gain", "z gain":
			axis := int(key[0] - 'x')
			if info.Gain[axis], err = parseHeaderFloat(value); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBadHeader, key, err)
			}
			seen[key] = true
		case "x offset", "y offset", "z offset":
			axis := int(key[0] - 'x')
			if info.Offset[axis], err = parseHeaderFloat(value); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBadHeader, key, err)
			}
			seen[key] = true
		case "Volts":
			if info.Volts, err = parseHeaderFloat(value); err != nil {
				return nil, fmt.Errorf("%w: Volts: %v", ErrBadHeader, err)
			}
			seen[key] = true
		case "Lux":
			if info.Lux, err = parseHeaderFloat(value); err != nil {
				return nil, fmt.Errorf("%w: Lux: %v", ErrBadHeader, err)
			}
			seen[key] = true
		case "Measurement Frequency":
			if info.Frequency, err = parseHeaderFloat(value); err != nil {
				return nil, fmt.Errorf("%w: Measurement Frequency: %v", ErrBadHeader, err)
			}
			seen[key] = true
		case "Number of Pages":
			if info.NPages, err = strconv.Atoi(strings.TrimSpace(value)); err != nil {
				return nil, fmt.Errorf("%w: Number of Pages: %v", ErrBadHeader, err)
			}
			seen[key] = true
		}
	}

	for _, key := range []string{
		"x gain", "y gain", "z gain", "x offset", "y offset", "z offset",
		"Volts", "Lux", "Measurement Frequency", "Number of Pages",
	} {
		if !seen[key] {
			return nil, fmt.Errorf("%w: missing %q field", ErrBadHeader, key)
		}
	}
	if info.Frequency <= 0 {
		return nil, fmt.Errorf("%w: non-positive frequency", ErrBadHeader)
	}
	if info.Volts == 0 {
		return nil, fmt.Errorf("%w: zero volts constant", ErrBadHeader)
	}
	for axis, g := range info.Gain {
		if g == 0 {
			return nil, fmt.Errorf("%w: zero gain for axis %d", ErrBadHeader, axis)
		}
	}
	return info, nil
}

// parseHeaderFloat parses the leading float of a header value, tolerating
// trailing units such as "100 Hz".
func parseHeaderFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}
	return strconv.ParseFloat(value, 64)
}

// ReadPage decodes one page: nine header lines then the 3600-character data
// payload. A frequency mismatch on the first page is fatal (ErrBlockFS); on
// later pages it is recorded, the page still decodes, and ErrBlockFSWarn is
// returned so the caller can log the drift.
func ReadPage(r *bufio.Reader, info *Info, st *wearable.Stream) error {
	var pageTimeLine, freqLine string
	tempC := 0.0

	for i := 0; i < pageHeaderLines; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && i == 0 && line == "" {
				return io.EOF
			}
			return fmt.Errorf("%w: page header truncated: %v", ErrBlockData, err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "Page Time:"):
			pageTimeLine = line
		case strings.HasPrefix(line, "Measurement Frequency:"):
			freqLine = line
		case strings.HasPrefix(line, "Temperature:"):
			if v, err := parseHeaderFloat(line[len("Temperature:"):]); err == nil {
				tempC = v
			}
		}
	}
	info.pagesSeen++

	t0, err := parsePageTime(pageTimeLine)
	if err != nil {
		// Drain the payload line so the reader stays page-aligned for the
		// next ReadPage.
		_, _ = r.ReadString('\n')
		return fmt.Errorf("%w: %v", ErrBlockTimestamp, err)
	}

	fsWarn := false
	if freqLine != "" {
		fs, err := parseHeaderFloat(freqLine[len("Measurement Frequency:"):])
		if err == nil && fs != info.Frequency {
			// Fatal only on the file's first page; a skipped earlier page
			// must not re-arm the fatal path.
			if info.pagesSeen == 1 {
				return fmt.Errorf("%w: page %g Hz, header %g Hz", ErrBlockFS, fs, info.Frequency)
			}
			info.FSErrCount++
			fsWarn = true
		}
	}

	data, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", ErrBlockData, err)
	}
	data = strings.TrimRight(data, "\r\n")
	if len(data) < pageDataChars {
		return fmt.Errorf("%w: got %d characters", ErrBlockData3600, len(data))
	}

	frame := make([]float64, 3)
	for i := 0; i < SamplesPerPage; i++ {
		chunk := data[i*hexPerSample : (i+1)*hexPerSample]
		for a := 0; a < 3; a++ {
			raw, err := strconv.ParseUint(chunk[a*3:a*3+3], 16, 16)
			if err != nil {
				return fmt.Errorf("%w: sample %d axis %d: %v", ErrBlockData, i, a, err)
			}
			frame[a] = (float64(signed12(uint16(raw)))*100.0 - info.Offset[a]) / info.Gain[a]
		}
		tail, err := strconv.ParseUint(chunk[9:12], 16, 16)
		if err != nil {
			return fmt.Errorf("%w: sample %d light: %v", ErrBlockData, i, err)
		}
		light := float64(tail>>2) * info.Lux / info.Volts

		t := t0 + float64(i)/info.Frequency
		if t < info.tLast {
			t = info.tLast
		}
		info.tLast = t

		if err := st.Push(t, frame, tempC, light, 0); err != nil {
			return err
		}
	}
	if fsWarn {
		return ErrBlockFSWarn
	}
	return nil
}

// parsePageTime extracts the page timestamp from its fixed-offset fields.
func parsePageTime(line string) (float64, error) {
	if len(line) < dateMsecOffset+3 {
		return 0, fmt.Errorf("page time line too short (%d chars)", len(line))
	}
	fields := [...]struct {
		off, width int
	}{
		{dateYearOffset, 4}, {dateMonthOffset, 2}, {dateDayOffset, 2},
		{dateHourOffset, 2}, {dateMinOffset, 2}, {dateSecOffset, 2},
		{dateMsecOffset, 3},
	}
	var v [7]int
	for i, f := range fields {
		n, err := strconv.Atoi(line[f.off : f.off+f.width])
		if err != nil {
			return 0, fmt.Errorf("date field at offset %d: %w", f.off, err)
		}
		v[i] = n
	}
	clock := wearable.ClockTime{Hour: v[3], Min: v[4], Sec: v[5], Msec: v[6]}
	t := wearable.Epoch(v[0], v[1], v[2], clock)
	if math.IsNaN(t) {
		return 0, fmt.Errorf("invalid page time %q", line)
	}
	return t, nil
}

// signed12 sign-extends a 12-bit two's complement value.
func signed12(v uint16) int16 {
	if v&0x0800 != 0 {
		return int16(v) - 4096
	}
	return int16(v)
}

// Finalize runs the day-indexing engine over the accumulated timestamps.
func Finalize(info *Info, st *wearable.Stream, spec wearable.WindowSpec, maxDays int) (int, error) {
	starts, stops, nDays, err := dayindex.Compute(st.TS[:st.Len()], info.Frequency, spec, maxDays)
	if err != nil {
		return 0, err
	}
	st.SetDayPairs(starts, stops)
	return nDays, nil
}
