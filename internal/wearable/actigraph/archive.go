// Package actigraph decodes ActiGraph GT3X containers: a zip-style archive
// of named entries ("info.txt" plus either a unified "log.bin" or, for old
// firmware, separate "activity.bin" and "lux.bin" files). The firmware
// version selects between the two mutually incompatible record layouts.
package actigraph

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Archive is the minimal capability the decoder needs from a container:
// opening a named entry as a byte stream. The concrete zip implementation
// is supplied by the caller so the decoder itself carries no archive
// library dependency.
type Archive interface {
	// Open returns a reader over the named entry. Entry names are matched
	// by base name, case-insensitively.
	Open(name string) (io.ReadCloser, error)
	Close() error
}

// Closed error set for GT3X decoding. All of these are fatal: without the
// archive, the info entry or the per-format data entries there is nothing
// to decode.
var (
	ErrInfoStat                 = errors.New("actigraph: cannot stat archive")
	ErrInfoOpen                 = errors.New("actigraph: cannot open info entry")
	ErrLogOpen                  = errors.New("actigraph: cannot open log entry")
	ErrLogMultipleActivityTypes = errors.New("actigraph: log declares multiple activity types")
	ErrOldActivityOpen          = errors.New("actigraph: cannot open old-format activity entry")
	ErrOldLuxOpen               = errors.New("actigraph: cannot open old-format lux entry")
	ErrAlloc                    = errors.New("actigraph: output buffers exhausted")
)

// ZipArchive adapts a standard zip file to the Archive interface.
type ZipArchive struct {
	zr     *zip.Reader
	closer io.Closer
}

// OpenZip opens a GT3X container on disk.
func OpenZip(zipPath string) (*ZipArchive, error) {
	if _, err := os.Stat(zipPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfoStat, err)
	}
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfoOpen, err)
	}
	return &ZipArchive{zr: &rc.Reader, closer: rc}, nil
}

// NewZipArchive wraps an in-memory or already-open zip byte source.
func NewZipArchive(r io.ReaderAt, size int64) (*ZipArchive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfoOpen, err)
	}
	return &ZipArchive{zr: zr}, nil
}

// Open implements Archive. GT3X writers disagree on entry casing and
// leading directories, so match on the lowercased base name.
func (z *ZipArchive) Open(name string) (io.ReadCloser, error) {
	want := strings.ToLower(name)
	for _, f := range z.zr.File {
		if strings.ToLower(path.Base(f.Name)) == want {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("entry %q not found in archive", name)
}

// Close implements Archive.
func (z *ZipArchive) Close() error {
	if z.closer != nil {
		return z.closer.Close()
	}
	return nil
}
