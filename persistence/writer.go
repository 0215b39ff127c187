package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/space"
	"github.com/hupe1980/spatialgo/spacedb"
)

// Image is the fully-materialized content of a dataset file.
type Image struct {
	Title   string
	Version string
	Spaces  []space.Space
	Table   *PropertyTable
	Stores  []*spacedb.DB
}

// Encode serializes the image into a single dataset file buffer.
// A nil codec selects codec.Default for the descriptor.
func Encode(img *Image, c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	var body bytes.Buffer

	section := func(data []byte) Section {
		// Sections stay 8-byte aligned relative to the body. The header is
		// 64 bytes, so they are also aligned in the file and in a mapping.
		if pad := (8 - body.Len()%8) % 8; pad > 0 {
			body.Write(make([]byte, pad))
		}
		s := Section{Offset: uint64(body.Len()), Len: uint64(len(data))}
		body.Write(data)
		return s
	}

	desc := Descriptor{
		Title:      img.Title,
		Version:    img.Version,
		Codec:      c.Name(),
		Spaces:     img.Spaces,
		Properties: uint64(img.Table.Len()),
	}

	for _, store := range img.Stores {
		sd := StoreDesc{Space: store.Space()}
		for _, res := range store.Resolutions() {
			idx := res.Index
			cfg := idx.Config()
			sd.Resolutions = append(sd.Resolutions, ResolutionDesc{
				Threshold: res.Threshold,
				Scale:     res.Scale,
				Dims:      cfg.Dims,
				Bits:      cfg.Bits,
				Shift:     cfg.Shift,
				Count:     uint64(idx.Len()),
				Codes:     section(bytesOfUint64(idx.Codes())),
				Values:    section(bytesOfUint32(idx.Values())),
				Positions: section(bytesOfUint64(idx.Positions())),
				ByValue:   section(bytesOfUint32(idx.ByValue())),
			})
		}
		desc.Stores = append(desc.Stores, sd)
	}

	desc.PropOffsets = section(bytesOfUint32(img.Table.Offsets()))
	desc.PropBlob = section(img.Table.Blob())

	descBytes, err := c.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	descSection := section(descBytes)

	out := make([]byte, headerSize+body.Len())
	binary.LittleEndian.PutUint32(out[0:], MagicNumber)
	binary.LittleEndian.PutUint32(out[4:], FormatVersion)
	binary.LittleEndian.PutUint64(out[8:], descSection.Offset)
	binary.LittleEndian.PutUint64(out[16:], descSection.Len)
	copy(out[headerSize:], body.Bytes())
	binary.LittleEndian.PutUint32(out[24:], Checksum(out[headerSize:]))

	return out, nil
}
