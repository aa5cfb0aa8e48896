package axivity

import (
	"encoding/binary"
	"fmt"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

// ReadBlock validates and decodes one 512-byte data block, appending its
// samples to st. Validation failures return one of the package sentinels,
// increment info.BadBlocks and leave the stream untouched; callers should
// log recoverable errors and move to the next block. Only a full stream is
// fatal: that means the caller under-sized its buffers.
func ReadBlock(info *Info, raw []byte, st *wearable.Stream) error {
	if len(raw) < BlockSize {
		info.BadBlocks++
		return fmt.Errorf("%w: short block (%d bytes)", ErrInvalidBlockSamples, len(raw))
	}
	raw = raw[:BlockSize]

	axesPacking := raw[blockAxesPackingOffset]
	axes := int(axesPacking >> 4)
	packing := int(axesPacking & 0x0F)
	count := int(binary.LittleEndian.Uint16(raw[blockSampleCountOffset:]))

	// Fail-fast validation order: axes, capacity, pairing, packing code,
	// checksum.
	if axes != info.Axes {
		info.BadBlocks++
		return fmt.Errorf("%w: block has %d, header has %d", ErrMismatchNAxes, axes, info.Axes)
	}
	if capacity := blockCapacity(axes, packing); count > capacity {
		info.BadBlocks++
		return fmt.Errorf("%w: %d samples, capacity %d", ErrInvalidBlockSamples, count, capacity)
	}
	if axes != 3 && axes != 6 || (axes == 6 && packing == packingPacked) {
		info.BadBlocks++
		return fmt.Errorf("%w: %d axes with packing %d", ErrBadAxesPacked, axes, packing)
	}
	if packing != packingPacked && packing != packingUnpacked {
		info.BadBlocks++
		return fmt.Errorf("%w: packing %d", ErrBadPackingCode, packing)
	}
	if sum := checksum(raw); sum != 0 {
		info.BadBlocks++
		return fmt.Errorf("%w: residual 0x%04x", ErrBadChecksum, sum)
	}

	light := binary.LittleEndian.Uint16(raw[blockLightOffset:])
	tempRaw := binary.LittleEndian.Uint16(raw[blockTempOffset:]) & 0x03FF
	tempC := (float64(tempRaw)*150.0 - 20500.0) / 1000.0

	fs := decodeRate(raw[blockRateCodeOffset])
	if fs <= 0 {
		fs = info.Frequency
	}
	blockTime := packedTimestamp(binary.LittleEndian.Uint32(raw[blockTimestampOffset:]))
	tsIndex := int(int16(binary.LittleEndian.Uint16(raw[blockTSIndexOffset:])))

	accelScale := 256.0
	if s := light >> 13 & 0x07; s != 0 {
		accelScale = float64(int(1) << (8 + s))
	}
	gyroRange := 0.0
	if axes == 6 {
		gyroRange = float64(int(8000) >> (light >> 10 & 0x07))
	}

	frame := make([]float64, axes)
	data := raw[blockDataOffset : blockDataOffset+blockDataSize]
	for i := 0; i < count; i++ {
		switch packing {
		case packingPacked:
			w := binary.LittleEndian.Uint32(data[i*4:])
			e := uint(w >> 30)
			frame[0] = unpack10(w, e) / accelScale
			frame[1] = unpack10(w>>10, e) / accelScale
			frame[2] = unpack10(w>>20, e) / accelScale
		case packingUnpacked:
			for a := 0; a < axes; a++ {
				v := float64(int16(binary.LittleEndian.Uint16(data[(i*axes+a)*2:])))
				if axes == 6 && a < 3 {
					// AX6 layout is gyro x/y/z then accel x/y/z.
					frame[a] = v * gyroRange / 32768.0
				} else {
					frame[a] = v / accelScale
				}
			}
		}

		t := blockTime + float64(i-tsIndex)/fs
		if t < info.tLast {
			t = info.tLast
		}
		info.tLast = t

		if err := st.Push(t, frame, tempC, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// blockCapacity is the physical sample capacity of the 480-byte payload for
// the given axis count and packing width.
func blockCapacity(axes, packing int) int {
	if packing == packingPacked {
		return blockDataSize / 4
	}
	if axes <= 0 {
		return 0
	}
	return blockDataSize / (2 * axes)
}

// checksum is the 16-bit additive checksum over the whole block: the
// little-endian word sum, including the stored checksum word, must be zero.
func checksum(raw []byte) uint16 {
	var sum uint16
	for i := 0; i < blockChecksumWords; i++ {
		sum += binary.LittleEndian.Uint16(raw[i*2:])
	}
	return sum
}

// unpack10 sign-extends a 10-bit packed field and applies the block's 2-bit
// binary exponent, reproducing the firmware encoding
// value = (int16)(field << 6) >> (6 - exponent).
func unpack10(w uint32, e uint) float64 {
	return float64(int16(uint16(w&0x03FF)<<6) >> (6 - e))
}
