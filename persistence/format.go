// Package persistence serializes built datasets to a single binary file and
// loads them back with zero-copy section views.
//
// # Layout
//
//	[64-byte FileHeader][body]
//
// The body holds the packed index sections (8-byte aligned little-endian
// arrays) followed by a JSON descriptor that records the dataset metadata
// and the offset of every section. The header points at the descriptor and
// carries a CRC32-C checksum of the whole body.
//
// Loading validates magic, version and checksum, decodes the descriptor,
// and then views each section in place. The views alias the input buffer:
// when the buffer is a memory mapping it must stay open for as long as the
// dataset is in use.
package persistence

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/space"
)

const (
	// MagicNumber identifies dataset files (ASCII: "SVI1").
	MagicNumber = 0x53564931
	// FormatVersion is the current file format version (v1.0.0).
	FormatVersion = 0x00010000

	headerSize = 64
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported format version")
	ErrTruncated      = errors.New("truncated file")
)

// FormatError wraps any defect found while decoding a dataset file.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset format: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("dataset format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(reason string, err error) error {
	return &FormatError{Reason: reason, Err: err}
}

func formatErrf(err error, format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// FileHeader is the 64-byte header at the start of every dataset file.
// Layout is fixed little-endian for mmap compatibility.
type FileHeader struct {
	Magic      uint32
	Version    uint32
	DescOffset uint64 // Body-relative offset of the JSON descriptor
	DescLen    uint64 // Length of the JSON descriptor in bytes
	Checksum   uint32 // CRC32-C of the body (everything after the header)
	Reserved   [36]byte
}

// Section locates one packed array inside the body.
type Section struct {
	Offset uint64 `json:"offset"`
	Len    uint64 `json:"len"` // In bytes
}

// ResolutionDesc describes one serialized index resolution.
type ResolutionDesc struct {
	Threshold float64  `json:"threshold"`
	Scale     []uint32 `json:"scale"`
	Dims      int      `json:"dims"`
	Bits      int      `json:"bits"`
	Shift     uint32   `json:"shift"`
	Count     uint64   `json:"count"`
	Codes     Section  `json:"codes"`
	Values    Section  `json:"values"`
	Positions Section  `json:"positions"`
	ByValue   Section  `json:"by_value"`
}

// StoreDesc describes the serialized multi-resolution store of one space.
type StoreDesc struct {
	Space       string           `json:"space"`
	Resolutions []ResolutionDesc `json:"resolutions"`
}

// Descriptor is the JSON trailer of a dataset file.
//
// It is written with the configured codec and read with the standard JSON
// codec; all built-in codecs share the JSON wire format.
type Descriptor struct {
	Title       string        `json:"title"`
	Version     string        `json:"version"`
	Codec       string        `json:"codec"`
	Spaces      []space.Space `json:"spaces"`
	Properties  uint64        `json:"properties"` // Row count of the property table
	PropOffsets Section       `json:"prop_offsets"`
	PropBlob    Section       `json:"prop_blob"`
	Stores      []StoreDesc   `json:"stores"`
}
