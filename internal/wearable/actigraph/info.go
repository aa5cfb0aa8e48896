package actigraph

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// .NET DateTime ticks are 100ns intervals since 0001-01-01T00:00:00; this
// is the tick count at the Unix epoch.
const epochTicks = 621355968000000000

// Version is the firmware version triple from the info entry.
type Version struct {
	Major int
	Minor int
	Build int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// atMost reports whether v <= other.
func (v Version) atMost(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Build <= other.Build
}

// SensorInfo is the immutable-after-header device metadata from the "info"
// entry: identifiers, sampling rate, session time bounds, the raw-count to
// g conversion scale and the firmware version that selects the record
// layout.
type SensorInfo struct {
	Serial         string
	SampleRate     int
	StartTime      float64 // epoch seconds
	StopTime       float64
	LastSampleTime float64
	DownloadTime   float64
	AccelScale     float64
	Firmware       Version
}

// lastVersionOldFormat is the newest firmware that still wrote the split
// activity/lux layout on NEO/MRA serials.
var lastVersionOldFormat = Version{Major: 2, Minor: 5, Build: 0}

// IsOldVersion reports whether the file uses the old on-disk record layout.
func (si *SensorInfo) IsOldVersion() bool {
	old := strings.HasPrefix(si.Serial, "NEO") || strings.HasPrefix(si.Serial, "MRA")
	return old && si.Firmware.atMost(lastVersionOldFormat)
}

// MaxSamples bounds the output buffers from the declared session time span.
// One extra second of samples covers a trailing partial record.
func (si *SensorInfo) MaxSamples() int {
	end := si.LastSampleTime
	if end <= si.StartTime {
		end = si.StopTime
	}
	if end <= si.StartTime {
		end = si.DownloadTime
	}
	if end <= si.StartTime {
		return si.SampleRate
	}
	return int(end-si.StartTime)*si.SampleRate + si.SampleRate
}

// ReadInfo reads and parses the "info.txt" entry.
func ReadInfo(ar Archive) (*SensorInfo, error) {
	rc, err := ar.Open("info.txt")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfoOpen, err)
	}
	defer rc.Close()

	si := &SensorInfo{AccelScale: 256.0}
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Serial Number":
			si.Serial = value
		case "Sample Rate":
			if si.SampleRate, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("%w: sample rate %q", ErrInfoOpen, value)
			}
		case "Start Date":
			si.StartTime = ticksToEpoch(value)
		case "Stop Date":
			si.StopTime = ticksToEpoch(value)
		case "Last Sample Time":
			si.LastSampleTime = ticksToEpoch(value)
		case "Download Date":
			si.DownloadTime = ticksToEpoch(value)
		case "Acceleration Scale":
			if v, err := strconv.ParseFloat(value, 64); err == nil && v > 0 {
				si.AccelScale = v
			}
		case "Firmware":
			fmt.Sscanf(value, "%d.%d.%d", &si.Firmware.Major, &si.Firmware.Minor, &si.Firmware.Build)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfoOpen, err)
	}
	if si.Serial == "" || si.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing serial or sample rate", ErrInfoOpen)
	}

	// Old NEO/MRA devices never wrote an acceleration scale; theirs is a
	// fixed 341 counts/g.
	if si.IsOldVersion() && si.AccelScale == 256.0 {
		si.AccelScale = 341.0
	}
	return si, nil
}

func ticksToEpoch(value string) float64 {
	ticks, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ticks == 0 {
		return 0
	}
	return float64(ticks-epochTicks) / 1e7
}
