package persistence

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrUnalignedAccess is returned when a section view would require an
// unaligned typed load.
var ErrUnalignedAccess = errors.New("unaligned memory access detected")

// The zero-copy section views reinterpret mapped bytes as typed slices and
// therefore require a little-endian host. amd64 and arm64 both qualify.
func init() {
	if !isLittleEndian() {
		panic("spatialgo/persistence: big-endian systems are not supported")
	}
}

func isLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}

// viewUint32 reinterprets b as a []uint32 without copying.
func viewUint32(b []byte) ([]uint32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("uint32 view: length %d is not a multiple of 4", len(b))
	}
	if uintptr(unsafe.Pointer(&b[0]))%4 != 0 {
		return nil, fmt.Errorf("%w: uint32 view at 0x%x", ErrUnalignedAccess, uintptr(unsafe.Pointer(&b[0])))
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}

// viewUint64 reinterprets b as a []uint64 without copying.
func viewUint64(b []byte) ([]uint64, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("uint64 view: length %d is not a multiple of 8", len(b))
	}
	if uintptr(unsafe.Pointer(&b[0]))%8 != 0 {
		return nil, fmt.Errorf("%w: uint64 view at 0x%x", ErrUnalignedAccess, uintptr(unsafe.Pointer(&b[0])))
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8), nil
}

// bytesOfUint32 views a uint32 slice as raw little-endian bytes for writing.
func bytesOfUint32(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

// bytesOfUint64 views a uint64 slice as raw little-endian bytes for writing.
func bytesOfUint64(s []uint64) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
}
