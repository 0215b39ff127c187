package persistence

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Property is one row of the property table: the identity of an indexed
// object and the kind of thing it is.
type Property struct {
	ID   string
	Kind string
}

// PropertyTable is the packed, ID-sorted table of object properties.
//
// Index values stored in the spatial indexes are row numbers of this table.
// The packed layout serializes as two sections (offsets and blob) and can be
// viewed in place when loaded from a mapping:
//
//	offsets[i] -> position of row i in blob
//	row        =  [u16 idLen][id][u16 kindLen][kind]
type PropertyTable struct {
	offsets []uint32
	blob    []byte
}

const maxPropertyField = 1<<16 - 1

// BuildPropertyTable packs rows into a table, sorted by ID.
// Rows must have unique IDs.
func BuildPropertyTable(rows []Property) (*PropertyTable, error) {
	sorted := make([]Property, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	t := &PropertyTable{
		offsets: make([]uint32, 0, len(sorted)),
	}
	for i, r := range sorted {
		if i > 0 && r.ID == sorted[i-1].ID {
			return nil, fmt.Errorf("duplicate property id %q", r.ID)
		}
		if len(r.ID) > maxPropertyField || len(r.Kind) > maxPropertyField {
			return nil, fmt.Errorf("property %q: field exceeds %d bytes", r.ID, maxPropertyField)
		}
		t.offsets = append(t.offsets, uint32(len(t.blob)))
		t.blob = binary.LittleEndian.AppendUint16(t.blob, uint16(len(r.ID)))
		t.blob = append(t.blob, r.ID...)
		t.blob = binary.LittleEndian.AppendUint16(t.blob, uint16(len(r.Kind)))
		t.blob = append(t.blob, r.Kind...)
	}
	return t, nil
}

// TableFromParts reassembles a table from its serialized sections.
// The slices are aliased, not copied.
func TableFromParts(offsets []uint32, blob []byte) *PropertyTable {
	return &PropertyTable{offsets: offsets, blob: blob}
}

// Len returns the number of rows.
func (t *PropertyTable) Len() int { return len(t.offsets) }

// Row returns the ID and kind of row i.
func (t *PropertyTable) Row(i uint32) (id, kind string, err error) {
	if int(i) >= len(t.offsets) {
		return "", "", fmt.Errorf("property row %d out of range (%d rows)", i, len(t.offsets))
	}
	off := int(t.offsets[i])

	id, off, err = t.field(off)
	if err != nil {
		return "", "", fmt.Errorf("property row %d: %w", i, err)
	}
	kind, _, err = t.field(off)
	if err != nil {
		return "", "", fmt.Errorf("property row %d: %w", i, err)
	}
	return id, kind, nil
}

func (t *PropertyTable) field(off int) (string, int, error) {
	if off+2 > len(t.blob) {
		return "", 0, fmt.Errorf("truncated field at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint16(t.blob[off:]))
	off += 2
	if off+n > len(t.blob) {
		return "", 0, fmt.Errorf("truncated field at offset %d", off)
	}
	return string(t.blob[off : off+n]), off + n, nil
}

// Find returns the row number of the given ID.
func (t *PropertyTable) Find(id string) (uint32, bool) {
	i := sort.Search(len(t.offsets), func(i int) bool {
		rowID, _, err := t.Row(uint32(i))
		return err != nil || rowID >= id
	})
	if i >= len(t.offsets) {
		return 0, false
	}
	rowID, _, err := t.Row(uint32(i))
	if err != nil || rowID != id {
		return 0, false
	}
	return uint32(i), true
}

// Offsets exposes the packed offsets section for serialization.
func (t *PropertyTable) Offsets() []uint32 { return t.offsets }

// Blob exposes the packed row section for serialization.
func (t *PropertyTable) Blob() []byte { return t.blob }
