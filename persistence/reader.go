package persistence

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/index/sfc"
	"github.com/hupe1980/spatialgo/spacedb"
)

// Decode reassembles a dataset image from a file buffer.
//
// The returned image aliases data: index sections and the property table
// view it in place. When data comes from a memory mapping, the mapping must
// outlive the image.
func Decode(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, formatErr("header", ErrTruncated)
	}

	magic := binary.LittleEndian.Uint32(data[0:])
	if magic != MagicNumber {
		return nil, formatErrf(ErrInvalidMagic, "got 0x%08x", magic)
	}
	version := binary.LittleEndian.Uint32(data[4:])
	if version != FormatVersion {
		return nil, formatErrf(ErrInvalidVersion, "got 0x%08x", version)
	}

	body := data[headerSize:]
	wantSum := binary.LittleEndian.Uint32(data[24:])
	if gotSum := Checksum(body); gotSum != wantSum {
		return nil, formatErr("body", &ChecksumMismatchError{Expected: wantSum, Actual: gotSum})
	}

	section := func(s Section) ([]byte, error) {
		end := s.Offset + s.Len
		if end < s.Offset || end > uint64(len(body)) {
			return nil, formatErrf(ErrTruncated, "section [%d, %d) exceeds body of %d bytes", s.Offset, end, len(body))
		}
		return body[s.Offset:end], nil
	}

	descBytes, err := section(Section{
		Offset: binary.LittleEndian.Uint64(data[8:]),
		Len:    binary.LittleEndian.Uint64(data[16:]),
	})
	if err != nil {
		return nil, err
	}

	var desc Descriptor
	if err := (codec.JSON{}).Unmarshal(descBytes, &desc); err != nil {
		return nil, formatErr("descriptor", err)
	}

	u32Section := func(s Section, what string) ([]uint32, error) {
		b, err := section(s)
		if err != nil {
			return nil, err
		}
		v, err := viewUint32(b)
		if err != nil {
			return nil, formatErr(what, err)
		}
		return v, nil
	}
	u64Section := func(s Section, what string) ([]uint64, error) {
		b, err := section(s)
		if err != nil {
			return nil, err
		}
		v, err := viewUint64(b)
		if err != nil {
			return nil, formatErr(what, err)
		}
		return v, nil
	}

	propOffsets, err := u32Section(desc.PropOffsets, "property offsets")
	if err != nil {
		return nil, err
	}
	propBlob, err := section(desc.PropBlob)
	if err != nil {
		return nil, err
	}
	if uint64(len(propOffsets)) != desc.Properties {
		return nil, formatErrf(nil, "property table has %d offsets, descriptor says %d", len(propOffsets), desc.Properties)
	}

	img := &Image{
		Title:   desc.Title,
		Version: desc.Version,
		Spaces:  desc.Spaces,
		Table:   TableFromParts(propOffsets, propBlob),
	}

	for _, sd := range desc.Stores {
		resolutions := make([]spacedb.Resolution, 0, len(sd.Resolutions))
		for i, rd := range sd.Resolutions {
			what := fmt.Sprintf("store %s resolution %d", sd.Space, i)

			codes, err := u64Section(rd.Codes, what)
			if err != nil {
				return nil, err
			}
			values, err := u32Section(rd.Values, what)
			if err != nil {
				return nil, err
			}
			positions, err := u64Section(rd.Positions, what)
			if err != nil {
				return nil, err
			}
			byValue, err := u32Section(rd.ByValue, what)
			if err != nil {
				return nil, err
			}
			if uint64(len(codes)) != rd.Count {
				return nil, formatErrf(nil, "%s: %d codes, descriptor says %d", what, len(codes), rd.Count)
			}

			idx, err := sfc.FromParts(sfc.Config{
				Dims:  rd.Dims,
				Bits:  rd.Bits,
				Shift: rd.Shift,
			}, codes, values, positions, byValue)
			if err != nil {
				return nil, formatErr(what, err)
			}

			resolutions = append(resolutions, spacedb.Resolution{
				Threshold: rd.Threshold,
				Scale:     rd.Scale,
				Index:     idx,
			})
		}
		img.Stores = append(img.Stores, spacedb.FromParts(sd.Space, resolutions))
	}

	return img, nil
}
