package blobstore

import (
	"io"
	"os"

	"github.com/hupe1980/spatialgo/internal/mmap"
)

// OpenStaged memory-maps a temp file that was staged from a remote store
// and removes it when the blob is closed. Used by the object-store backends.
func OpenStaged(path string) (Blob, error) {
	m, err := mmap.Open(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return &stagedBlob{m: m, path: path}, nil
}

type stagedBlob struct {
	m    *mmap.Mapping
	path string
}

func (b *stagedBlob) ReadAt(p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	data := b.m.Bytes()
	if off < 0 || off >= int64(len(data)) {
		return 0, io.EOF
	}
	n = copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *stagedBlob) Close() error {
	err := b.m.Close()
	if rmErr := os.Remove(b.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func (b *stagedBlob) Size() int64 {
	return int64(len(b.m.Bytes()))
}

func (b *stagedBlob) Bytes() ([]byte, error) {
	return b.m.Bytes(), nil
}
