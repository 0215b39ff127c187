package persistence

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// Checksum utilities for dataset integrity verification.
//
// CRC32 with the Castagnoli polynomial is hardware-accelerated on modern
// CPUs and detects storage corruption well. It is NOT cryptographically
// secure and must not be relied on for tamper detection.

// crcTable is the Castagnoli polynomial table used for all dataset checksums.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the CRC32-C checksum of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is or wraps a checksum mismatch.
func IsChecksumMismatch(err error) bool {
	var mismatch *ChecksumMismatchError
	return errors.As(err, &mismatch)
}
