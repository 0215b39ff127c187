package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/spatialgo"
	"github.com/hupe1980/spatialgo/codec"
	"github.com/hupe1980/spatialgo/model"
	"github.com/hupe1980/spatialgo/space"
)

// Batch is the intermediate binary representation between JSON import and
// dataset build. It holds everything a dataset build needs and serializes
// to a compact compressed file, so large imports can be converted once and
// indexed many times.
type Batch struct {
	Title   string        `json:"title"`
	Version string        `json:"version"`
	Spaces  []space.Space `json:"spaces"`
	Records []Record      `json:"records"`
}

const (
	// batchMagic identifies batch files (ASCII: "SVB1").
	batchMagic   = 0x53564231
	batchVersion = 1
)

// Convert assembles a batch from parsed space definitions and records.
func Convert(title, version string, spaces []space.Space, records []Record) *Batch {
	return &Batch{
		Title:   title,
		Version: version,
		Spaces:  spaces,
		Records: records,
	}
}

// Encode serializes the batch. The payload is codec-encoded and block
// compressed; header records both so Decode is self-describing.
// A nil codec selects codec.Default.
func (b *Batch) Encode(c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	payload, err := c.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	block, err := compressBlock(payload, comp)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	name := c.Name()
	out := make([]byte, 0, 10+len(name)+len(block))
	out = binary.LittleEndian.AppendUint32(out, batchMagic)
	out = binary.LittleEndian.AppendUint32(out, batchVersion)
	out = append(out, byte(comp), byte(len(name)))
	out = append(out, name...)
	out = append(out, block...)
	return out, nil
}

// DecodeBatch deserializes a batch file.
func DecodeBatch(data []byte) (*Batch, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("decode batch: truncated header")
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != batchMagic {
		return nil, fmt.Errorf("decode batch: invalid magic 0x%08x", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != batchVersion {
		return nil, fmt.Errorf("decode batch: unsupported version %d", version)
	}
	comp := Compression(data[8])
	nameLen := int(data[9])
	if len(data) < 10+nameLen {
		return nil, fmt.Errorf("decode batch: truncated codec name")
	}
	name := string(data[10 : 10+nameLen])

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("decode batch: unknown codec %q", name)
	}

	payload, err := decompressBlock(data[10+nameLen:], comp)
	if err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	var b Batch
	if err := c.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return &b, nil
}

// Build indexes the batch into a dataset.
func (b *Batch) Build(ctx context.Context, optFns ...spatialgo.Option) (*spatialgo.Core, error) {
	builder := spatialgo.NewBuilder(b.Title, b.Version, optFns...)
	for _, sp := range b.Spaces {
		builder.AddSpace(sp)
	}
	for _, r := range b.Records {
		builder.AddObject(model.Unknown(r.ID, r.Kind), r.Space, r.Position)
	}
	return builder.Build(ctx)
}
