package actigraph

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

// Log record layout (current format): a one-byte separator, record type,
// 32-bit unix timestamp, 16-bit payload size, payload, one-byte checksum.
const (
	recordSeparator = 0x1E

	recordTypeActivity  = 0x00 // 12-bit packed y/x/z triples
	recordTypeLux       = 0x10 // 16-bit lux values
	recordTypeActivity2 = 0x1A // 16-bit x/y/z triples

	recordHeaderSize = 8 // separator + type + u32 timestamp + u16 size
)

// Decoder is a single-file GT3X decode session. It owns the archive handle
// and the per-session counters; nothing else may mutate them concurrently.
type Decoder struct {
	Info *SensorInfo

	// BadRecords counts log records dropped for checksum mismatches or
	// truncated payloads.
	BadRecords int

	ar      Archive
	tracker *dayTracker

	// current-format state
	log          *bufio.Reader
	logCloser    io.Closer
	activityType byte
	currentLux   float64

	// old-format state
	activity   *bitReader
	actCloser  io.Closer
	lux        *bufio.Reader
	luxCloser  io.Closer
	nextSample int
}

// NewDecoder reads the info entry and prepares the decode session.
// The caller keeps ownership of the archive but the decoder's Close must
// still run on every exit path to release the entry readers.
func NewDecoder(ar Archive, spec wearable.WindowSpec, maxDays int) (*Decoder, error) {
	si, err := ReadInfo(ar)
	if err != nil {
		return nil, err
	}
	d := &Decoder{Info: si, ar: ar, tracker: newDayTracker(spec, maxDays)}

	if si.IsOldVersion() {
		act, err := ar.Open("activity.bin")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOldActivityOpen, err)
		}
		lux, err := ar.Open("lux.bin")
		if err != nil {
			act.Close()
			return nil, fmt.Errorf("%w: %v", ErrOldLuxOpen, err)
		}
		d.activity = newBitReader(bufio.NewReader(act))
		d.actCloser = act
		d.lux = bufio.NewReader(lux)
		d.luxCloser = lux
		return d, nil
	}

	// A log mixing activity record types has no defined decoding policy;
	// reject it before any sample is written.
	if err := d.scanActivityTypes(); err != nil {
		return nil, err
	}
	rc, err := ar.Open("log.bin")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogOpen, err)
	}
	d.log = bufio.NewReader(rc)
	d.logCloser = rc
	return d, nil
}

// Close releases the entry readers. Safe on every exit path.
func (d *Decoder) Close() error {
	var err error
	for _, c := range []io.Closer{d.logCloser, d.actCloser, d.luxCloser} {
		if c != nil {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}

// scanActivityTypes walks the record headers of the log entry and collects
// the set of activity record types it declares.
func (d *Decoder) scanActivityTypes() error {
	rc, err := d.ar.Open("log.bin")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogOpen, err)
	}
	defer rc.Close()

	r := bufio.NewReader(rc)
	var header [recordHeaderSize]byte
	seen := byte(0)
	haveSeen := false
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			break
		}
		recType := header[1]
		size := int(binary.LittleEndian.Uint16(header[6:]))
		if _, err := r.Discard(size + 1); err != nil {
			break
		}
		if recType != recordTypeActivity && recType != recordTypeActivity2 {
			continue
		}
		if haveSeen && recType != seen {
			return ErrLogMultipleActivityTypes
		}
		seen, haveSeen = recType, true
	}
	if haveSeen {
		d.activityType = seen
	}
	return nil
}

// ReadRecord decodes the next unit of samples into st: one log record for
// current-format files, one second of the activity/lux streams for
// old-format files. Returns io.EOF when the data is exhausted. Records with
// bad checksums or truncated payloads are counted in BadRecords, skipped,
// and reading continues with the next record.
func (d *Decoder) ReadRecord(st *wearable.Stream) error {
	if d.Info.IsOldVersion() {
		return d.readOldSecond(st)
	}
	return d.readLogRecord(st)
}

func (d *Decoder) readLogRecord(st *wearable.Stream) error {
	var header [recordHeaderSize]byte
	for {
		if _, err := io.ReadFull(d.log, header[:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return io.EOF
			}
			return err
		}
		if header[0] != recordSeparator {
			// Resync on the next separator byte.
			d.BadRecords++
			if err := d.resync(); err != nil {
				return err
			}
			continue
		}
		recType := header[1]
		ts := float64(binary.LittleEndian.Uint32(header[2:]))
		size := int(binary.LittleEndian.Uint16(header[6:]))

		payload := make([]byte, size)
		if _, err := io.ReadFull(d.log, payload); err != nil {
			d.BadRecords++
			return io.EOF
		}
		stored, err := d.log.ReadByte()
		if err != nil {
			d.BadRecords++
			return io.EOF
		}
		if recordChecksum(header[:], payload) != stored {
			d.BadRecords++
			continue
		}

		switch recType {
		case recordTypeLux:
			if size >= 2 {
				d.currentLux = float64(binary.LittleEndian.Uint16(payload))
			}
			continue
		case recordTypeActivity:
			return d.pushActivity12(st, ts, payload)
		case recordTypeActivity2:
			return d.pushActivity16(st, ts, payload)
		default:
			continue // metadata, battery, events: not sample-bearing
		}
	}
}

// resync skips forward to the byte after the next separator candidate so a
// corrupt record does not poison the rest of the file.
func (d *Decoder) resync() error {
	for {
		b, err := d.log.ReadByte()
		if err != nil {
			return io.EOF
		}
		if b == recordSeparator {
			return d.log.UnreadByte()
		}
	}
}

// pushActivity12 decodes a 12-bit packed record: per sample, y then x then
// z, big-endian bit order.
func (d *Decoder) pushActivity12(st *wearable.Stream, ts float64, payload []byte) error {
	n := len(payload) * 8 / 36
	br := newBitReader(bytes.NewReader(payload))
	frame := make([]float64, 3)
	for i := 0; i < n; i++ {
		y, err1 := br.take12()
		x, err2 := br.take12()
		z, err3 := br.take12()
		if err1 != nil || err2 != nil || err3 != nil {
			d.BadRecords++
			return nil
		}
		frame[0] = float64(signed12(x)) / d.Info.AccelScale
		frame[1] = float64(signed12(y)) / d.Info.AccelScale
		frame[2] = float64(signed12(z)) / d.Info.AccelScale
		if err := d.push(st, ts+float64(i)/float64(d.Info.SampleRate), frame); err != nil {
			return err
		}
	}
	return nil
}

// pushActivity16 decodes an ACTIVITY2 record: little-endian int16 x/y/z.
func (d *Decoder) pushActivity16(st *wearable.Stream, ts float64, payload []byte) error {
	n := len(payload) / 6
	frame := make([]float64, 3)
	for i := 0; i < n; i++ {
		for a := 0; a < 3; a++ {
			v := int16(binary.LittleEndian.Uint16(payload[i*6+a*2:]))
			frame[a] = float64(v) / d.Info.AccelScale
		}
		if err := d.push(st, ts+float64(i)/float64(d.Info.SampleRate), frame); err != nil {
			return err
		}
	}
	return nil
}

// readOldSecond decodes one second of the split activity/lux streams.
func (d *Decoder) readOldSecond(st *wearable.Stream) error {
	rate := d.Info.SampleRate
	frame := make([]float64, 3)
	for i := 0; i < rate; i++ {
		y, err := d.activity.take12()
		if err != nil {
			if i == 0 {
				return io.EOF
			}
			return nil // trailing partial second
		}
		x, err1 := d.activity.take12()
		z, err2 := d.activity.take12()
		if err1 != nil || err2 != nil {
			return nil
		}
		frame[0] = float64(signed12(x)) / d.Info.AccelScale
		frame[1] = float64(signed12(y)) / d.Info.AccelScale
		frame[2] = float64(signed12(z)) / d.Info.AccelScale

		var luxBuf [2]byte
		if _, err := io.ReadFull(d.lux, luxBuf[:]); err == nil {
			d.currentLux = float64(binary.LittleEndian.Uint16(luxBuf[:]))
		}

		ts := d.Info.StartTime + float64(d.nextSample)/float64(rate)
		d.nextSample++
		if err := d.push(st, ts, frame); err != nil {
			return err
		}
	}
	return nil
}

// push appends one sample, feeding the incremental day tracker, and maps a
// full stream to the fatal allocation error.
func (d *Decoder) push(st *wearable.Stream, ts float64, frame []float64) error {
	idx := st.Len()
	if err := st.Push(ts, frame, 0, 0, d.currentLux); err != nil {
		if errors.Is(err, wearable.ErrStreamFull) {
			return fmt.Errorf("%w: %v", ErrAlloc, err)
		}
		return err
	}
	d.tracker.observe(st, idx, ts)
	return nil
}

// Finalize closes any still-open day windows and reports the number of days
// the tracker saw.
func (d *Decoder) Finalize(st *wearable.Stream) int {
	return d.tracker.finalize(st)
}

// recordChecksum is the log record checksum: the XOR of every header and
// payload byte, complemented.
func recordChecksum(header, payload []byte) byte {
	var sum byte
	for _, b := range header {
		sum ^= b
	}
	for _, b := range payload {
		sum ^= b
	}
	return ^sum
}

// signed12 sign-extends a 12-bit two's complement value.
func signed12(v uint16) int16 {
	if v&0x0800 != 0 {
		return int16(v) - 4096
	}
	return int16(v)
}
