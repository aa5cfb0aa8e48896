// Package axivity decodes Axivity AX3/AX6 CWA container files: a fixed
// 1024-byte binary header followed by self-describing 512-byte data blocks.
// Each block carries its own axis count, sample packing code, timestamp and
// trailing additive checksum; corrupt blocks are skipped and counted rather
// than aborting the file.
package axivity

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/wearlab-data/motion.report/internal/wearable"
	"github.com/wearlab-data/motion.report/internal/wearable/dayindex"
)

// CWA container layout constants. Offsets are into the raw header or block
// bytes; all multi-byte fields are little-endian.
const (
	HeaderSize = 1024 // fixed binary header size in bytes
	BlockSize  = 512  // fixed data block size in bytes

	headerMagic = 0x444D // "MD" read as little-endian uint16

	headerLengthOffset     = 2  // uint16, must be HeaderSize-4
	headerHardwareOffset   = 4  // uint8 hardware type
	headerDeviceIDOffset   = 5  // uint16 device id (lower word)
	headerSessionIDOffset  = 7  // uint32 session id
	headerUpperIDOffset    = 11 // uint16 device id (upper word, 0xFFFF if unset)
	headerRateCodeOffset   = 36 // uint8 encoded sampling rate
	headerExpectedLength   = HeaderSize - 4
	hardwareTypeAX6        = 0x17 // AX6 devices record 6 axes (gyro + accel)
	hardwareTypeAX3        = 0x00
	hardwareTypeAX3Legacy  = 0xFF

	blockTimestampOffset   = 14 // uint32 packed calendar timestamp
	blockLightOffset       = 18 // uint16 light field; top bits carry scale codes
	blockTempOffset        = 20 // uint16 raw temperature (lower 10 bits)
	blockRateCodeOffset    = 24 // uint8 encoded sampling rate
	blockAxesPackingOffset = 25 // uint8: top nibble axes, bottom nibble packing
	blockTSIndexOffset     = 26 // int16 sample index the timestamp applies to
	blockSampleCountOffset = 28 // uint16 samples in this block
	blockDataOffset        = 30
	blockDataSize          = 480
	blockChecksumWords     = BlockSize / 2

	// Packing codes historically emitted by the device firmware.
	packingPacked   = 0 // 3 axes packed into one 32-bit word per sample
	packingUnpacked = 2 // one signed 16-bit value per axis per sample
)

// Closed error set for CWA decoding. ErrBadHeader is fatal; every block
// level error is recoverable: the block is skipped, Info.BadBlocks is
// incremented and reading continues.
var (
	ErrBadHeader           = errors.New("axivity: bad header")
	ErrMismatchNAxes       = errors.New("axivity: block axis count does not match header")
	ErrInvalidBlockSamples = errors.New("axivity: block sample count exceeds capacity")
	ErrBadAxesPacked       = errors.New("axivity: unsupported axes/packing combination")
	ErrBadPackingCode      = errors.New("axivity: unrecognised packing code")
	ErrBadChecksum         = errors.New("axivity: block checksum mismatch")
)

// Info is the immutable-after-header device metadata plus the per-session
// counters the block reader maintains.
type Info struct {
	DeviceID  uint32
	SessionID uint32
	NBlocks   int
	Axes      int
	Frequency float64

	// BadBlocks counts blocks rejected by validation and skipped.
	BadBlocks int

	tLast float64 // last emitted timestamp, for the monotonic guarantee
}

// MaxSamples bounds the number of samples the file can hold, used by the
// caller to size the output stream. Packed blocks hold the most samples per
// block (120), so that is the bound regardless of the per-block packing.
func (info *Info) MaxSamples() int {
	return info.NBlocks * (blockDataSize / 4)
}

// decodeRate converts the encoded sampling rate byte to Hz. The low nibble
// selects a power-of-two divisor of 3200 Hz.
func decodeRate(code byte) float64 {
	return 3200.0 / float64(int(1)<<(15-(int(code)&0x0F)))
}

// ReadHeader validates the fixed CWA header and extracts the device
// metadata. nBlocks is the data block count the caller derives from the
// file size ((size - HeaderSize) / BlockSize). A bad magic or structural
// length is fatal: no usable frequency or axis metadata exists to proceed.
func ReadHeader(raw []byte, nBlocks int) (*Info, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes, want %d", ErrBadHeader, len(raw), HeaderSize)
	}
	if binary.LittleEndian.Uint16(raw[0:2]) != headerMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadHeader)
	}
	if binary.LittleEndian.Uint16(raw[headerLengthOffset:]) != headerExpectedLength {
		return nil, fmt.Errorf("%w: bad structural length", ErrBadHeader)
	}

	hardware := raw[headerHardwareOffset]
	axes := 3
	if hardware == hardwareTypeAX6 {
		axes = 6
	}

	deviceID := uint32(binary.LittleEndian.Uint16(raw[headerDeviceIDOffset:]))
	if upper := binary.LittleEndian.Uint16(raw[headerUpperIDOffset:]); upper != 0xFFFF {
		deviceID |= uint32(upper) << 16
	}

	info := &Info{
		DeviceID:  deviceID,
		SessionID: binary.LittleEndian.Uint32(raw[headerSessionIDOffset:]),
		NBlocks:   nBlocks,
		Axes:      axes,
		Frequency: decodeRate(raw[headerRateCodeOffset]),
	}
	if info.Frequency <= 0 {
		return nil, fmt.Errorf("%w: zero sampling frequency", ErrBadHeader)
	}
	return info, nil
}

// packedTimestamp unpacks the 32-bit calendar timestamp
// (YYYYYYMM MMDDDDDh hhhhmmmm mmssssss) into UTC epoch seconds.
func packedTimestamp(t uint32) float64 {
	year := 2000 + int(t>>26&0x3F)
	month := int(t >> 22 & 0x0F)
	day := int(t >> 17 & 0x1F)
	clock := wearable.ClockTime{
		Hour: int(t >> 12 & 0x1F),
		Min:  int(t >> 6 & 0x3F),
		Sec:  int(t & 0x3F),
	}
	if month < 1 || month > 12 {
		return 0
	}
	return wearable.Epoch(year, month, day, clock)
}

// Finalize runs the day-indexing engine over the accumulated timestamps and
// stores the resulting pairs on the stream. Returns the number of days
// indexed.
func Finalize(info *Info, st *wearable.Stream, spec wearable.WindowSpec, maxDays int) (int, error) {
	starts, stops, nDays, err := dayindex.Compute(st.TS[:st.Len()], info.Frequency, spec, maxDays)
	if err != nil {
		return 0, err
	}
	st.SetDayPairs(starts, stops)
	return nDays, nil
}
