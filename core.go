package spatialgo

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/spatialgo/index"
	"github.com/hupe1980/spatialgo/index/hashmap"
	"github.com/hupe1980/spatialgo/persistence"
	"github.com/hupe1980/spatialgo/space"
	"github.com/hupe1980/spatialgo/spacedb"
)

// Core is one immutable dataset: its reference spaces, its property table
// and one multi-resolution spatial store per space.
//
// The catalogs only need the exact-match brick contract; the concrete
// hashmap brick is an assembly detail of newCore.
//
// All query methods are safe for concurrent use.
type Core struct {
	img      *persistence.Image
	spaceIdx index.Exact[string, uint32]
	storeIdx index.Exact[string, uint32]
	logger   *Logger
}

func newCore(img *persistence.Image, logger *Logger) (*Core, error) {
	type entry struct {
		name string
		pos  uint32
	}

	spaceRecs := make([]entry, len(img.Spaces))
	for i, s := range img.Spaces {
		if s.Name == space.UniverseName {
			return nil, buildErr(nil, "space name %q is reserved", s.Name)
		}
		spaceRecs[i] = entry{name: s.Name, pos: uint32(i)}
	}
	spaceIdx, err := hashmap.Build(spaceRecs,
		func(e entry) string { return e.name },
		func(e entry) uint32 { return e.pos },
	)
	if err != nil {
		return nil, translateError(err)
	}
	for _, name := range spaceIdx.Keys() {
		if n := len(spaceIdx.Lookup(name)); n > 1 {
			return nil, buildErr(nil, "space %q defined %d times", name, n)
		}
	}

	storeRecs := make([]entry, len(img.Stores))
	for i, st := range img.Stores {
		if !spaceIdx.Contains(st.Space()) {
			return nil, buildErr(nil, "store references undefined space %q", st.Space())
		}
		storeRecs[i] = entry{name: st.Space(), pos: uint32(i)}
	}

	c := &Core{
		img:      img,
		spaceIdx: spaceIdx,
		logger:   logger.WithDataset(img.Title),
	}
	if len(storeRecs) > 0 {
		storeIdx, err := hashmap.Build(storeRecs,
			func(e entry) string { return e.name },
			func(e entry) uint32 { return e.pos },
		)
		if err != nil {
			return nil, translateError(err)
		}
		c.storeIdx = storeIdx
	}
	return c, nil
}

// Title returns the dataset title.
func (c *Core) Title() string { return c.img.Title }

// Version returns the dataset version string.
func (c *Core) Version() string { return c.img.Version }

// Spaces returns the reference space definitions of the dataset.
func (c *Core) Spaces() []space.Space { return c.img.Spaces }

// Space returns a reference space by name. The Universe frame is always
// known.
func (c *Core) Space(name string) (*space.Space, error) {
	if name == space.UniverseName {
		return space.Universe(), nil
	}
	rows := c.spaceIdx.Lookup(name)
	if len(rows) == 0 {
		return nil, fmt.Errorf("space %q: %w", name, ErrNotFound)
	}
	return &c.img.Spaces[rows[0]], nil
}

// Properties returns the identity stored at a property table row.
func (c *Core) Properties(value uint32) (id, kind string, err error) {
	return c.img.Table.Row(value)
}

// GetByShape returns all objects whose position lies within the shape.
// The shape is expressed in the named space; naming the Universe frame
// queries every space of the dataset.
func (c *Core) GetByShape(ctx context.Context, params QueryParams, spaceName string, sh space.Shape) ([]Item, error) {
	items, err := c.getByShape(params, spaceName, sh)
	c.logger.LogQuery(ctx, "shape", len(items), err)
	return items, err
}

func (c *Core) getByShape(params QueryParams, spaceName string, sh space.Shape) ([]Item, error) {
	if sh.Empty() {
		return nil, nil
	}
	if err := sh.Validate(); err != nil {
		return nil, translateError(err)
	}

	qsp, err := c.Space(spaceName)
	if err != nil {
		return nil, queryErr(err, "unknown query space %q", spaceName)
	}
	out, err := c.outputSpace(params)
	if err != nil {
		return nil, err
	}
	if err := c.validViewPort(params); err != nil {
		return nil, err
	}
	bm, err := params.Filter.bitmap(c.img.Table)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, store := range c.targets(qsp) {
		sp, err := c.Space(store.Space())
		if err != nil {
			return nil, err
		}
		local := sh
		if sp.Name != qsp.Name {
			local, err = sh.Rebase(qsp, sp)
			if err != nil {
				return nil, queryErr(err, "shape cannot be expressed in space %q", sp.Name)
			}
		}
		if err := c.scanStore(store, sp, local, params, bm, out, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (c *Core) scanStore(store *spacedb.DB, sp *space.Space, local space.Shape, params QueryParams, bm *roaring.Bitmap, out *space.Space, items *[]Item) error {
	lo, hi := local.MBB()
	blo, bhi := sp.BoundingBox()
	clo, chi, ok := clampBox(lo, hi, blo, bhi)
	if !ok {
		return nil
	}

	glo, err := sp.Encode(clo)
	if err != nil {
		return err
	}
	ghi, err := sp.Encode(chi)
	if err != nil {
		return err
	}

	res := c.selectResolution(store, params, local.Volume())

	var innerErr error
	res.Index.Scan(res.Shift(glo), res.Shift(ghi), func(pos space.Grid, value uint32) bool {
		p, err := sp.Decode(res.Unshift(pos))
		if err != nil {
			innerErr = err
			return false
		}
		if !local.Contains(p) {
			return true
		}
		if bm != nil && !bm.Contains(value) {
			return true
		}
		keep, err := c.inViewPort(params, sp, p)
		if err != nil {
			innerErr = err
			return false
		}
		if !keep {
			return true
		}
		if err := c.emit(items, sp, p, value, out); err != nil {
			innerErr = err
			return false
		}
		return true
	})
	return innerErr
}

// GetByPositions returns the objects stored exactly at the given positions,
// expressed in the named space.
func (c *Core) GetByPositions(ctx context.Context, params QueryParams, spaceName string, positions []space.Point) ([]Item, error) {
	items, err := c.getByPositions(params, spaceName, positions)
	c.logger.LogQuery(ctx, "positions", len(items), err)
	return items, err
}

func (c *Core) getByPositions(params QueryParams, spaceName string, positions []space.Point) ([]Item, error) {
	qsp, err := c.Space(spaceName)
	if err != nil {
		return nil, queryErr(err, "unknown query space %q", spaceName)
	}
	out, err := c.outputSpace(params)
	if err != nil {
		return nil, err
	}
	bm, err := params.Filter.bitmap(c.img.Table)
	if err != nil {
		return nil, err
	}
	for _, q := range positions {
		if q.HasNaN() {
			return nil, queryErr(nil, "position %v contains NaN", q)
		}
	}

	var items []Item
	for _, store := range c.targets(qsp) {
		sp, err := c.Space(store.Space())
		if err != nil {
			return nil, err
		}
		res := c.selectResolution(store, params, 0)
		// Point probes only need the volumetric brick contract.
		probe := index.Spatial[uint32](res.Index)

		for _, q := range positions {
			local := q
			if sp.Name != qsp.Name {
				local, err = space.ChangeBase(q, qsp, sp)
				if err != nil {
					return nil, queryErr(err, "position cannot be expressed in space %q", sp.Name)
				}
			}
			g, err := sp.Encode(local)
			if err != nil {
				// Outside the space, nothing stored there.
				continue
			}
			shifted := res.Shift(g)
			p, err := sp.Decode(res.Unshift(shifted))
			if err != nil {
				return nil, err
			}
			for _, value := range probe.Lookup(shifted) {
				if bm != nil && !bm.Contains(value) {
					continue
				}
				if err := c.emit(&items, sp, p, value, out); err != nil {
					return nil, err
				}
			}
		}
	}
	return items, nil
}

// GetByID returns all positions of the object with the given identifier.
func (c *Core) GetByID(ctx context.Context, params QueryParams, id string) ([]Item, error) {
	items, err := c.getByID(params, id)
	c.logger.LogQuery(ctx, "id", len(items), err)
	return items, err
}

func (c *Core) getByID(params QueryParams, id string) ([]Item, error) {
	out, err := c.outputSpace(params)
	if err != nil {
		return nil, err
	}
	if err := c.validViewPort(params); err != nil {
		return nil, err
	}
	bm, err := params.Filter.bitmap(c.img.Table)
	if err != nil {
		return nil, err
	}
	row, ok := c.img.Table.Find(id)
	if !ok {
		return nil, nil
	}
	if bm != nil && !bm.Contains(row) {
		return nil, nil
	}

	var items []Item
	for _, store := range c.img.Stores {
		sp, err := c.Space(store.Space())
		if err != nil {
			return nil, err
		}
		res := c.selectResolution(store, params, 0)
		for _, g := range res.Index.LookupValue(row) {
			p, err := sp.Decode(res.Unshift(g))
			if err != nil {
				return nil, err
			}
			keep, err := c.inViewPort(params, sp, p)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
			if err := c.emit(&items, sp, p, row, out); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

// GetByLabel uses one identifier's own positions as the search volume:
// every object stored at any of those positions is returned, except the
// label itself.
func (c *Core) GetByLabel(ctx context.Context, params QueryParams, id string) ([]Item, error) {
	items, err := c.getByLabel(params, id)
	c.logger.LogQuery(ctx, "label", len(items), err)
	return items, err
}

func (c *Core) getByLabel(params QueryParams, id string) ([]Item, error) {
	out, err := c.outputSpace(params)
	if err != nil {
		return nil, err
	}
	if err := c.validViewPort(params); err != nil {
		return nil, err
	}
	bm, err := params.Filter.bitmap(c.img.Table)
	if err != nil {
		return nil, err
	}
	row, ok := c.img.Table.Find(id)
	if !ok {
		return nil, nil
	}

	// The label's positions, lifted into the Universe frame, form the
	// search volume. The view port clips the volume, not the results.
	var volume []space.Point
	for _, store := range c.img.Stores {
		sp, err := c.Space(store.Space())
		if err != nil {
			return nil, err
		}
		res := c.selectResolution(store, params, 0)
		for _, g := range res.Index.LookupValue(row) {
			p, err := sp.Decode(res.Unshift(g))
			if err != nil {
				return nil, err
			}
			u, err := sp.Absolute(p)
			if err != nil {
				return nil, err
			}
			if params.ViewPort != nil && !params.ViewPort.Contains(u) {
				continue
			}
			volume = append(volume, u)
		}
	}

	var items []Item
	for _, store := range c.img.Stores {
		sp, err := c.Space(store.Space())
		if err != nil {
			return nil, err
		}
		res := c.selectResolution(store, params, 0)
		probe := index.Spatial[uint32](res.Index)
		for _, u := range volume {
			local, err := sp.FromAbsolute(u)
			if err != nil {
				continue
			}
			g, err := sp.Encode(local)
			if err != nil {
				// Outside the space, nothing stored there.
				continue
			}
			shifted := res.Shift(g)
			p, err := sp.Decode(res.Unshift(shifted))
			if err != nil {
				return nil, err
			}
			for _, value := range probe.Lookup(shifted) {
				if value == row {
					continue
				}
				if bm != nil && !bm.Contains(value) {
					continue
				}
				if err := c.emit(&items, sp, p, value, out); err != nil {
					return nil, err
				}
			}
		}
	}
	return items, nil
}

// targets returns the stores a query in the given space touches.
func (c *Core) targets(qsp *space.Space) []*spacedb.DB {
	if qsp.IsUniverse() {
		return c.img.Stores
	}
	if c.storeIdx == nil {
		return nil
	}
	rows := c.storeIdx.Lookup(qsp.Name)
	if len(rows) == 0 {
		return nil
	}
	return []*spacedb.DB{c.img.Stores[rows[0]]}
}

// selectResolution picks the index resolution for a query. With no explicit
// parameters, shape queries auto-select by their volume and lookups use the
// finest resolution.
func (c *Core) selectResolution(store *spacedb.DB, params QueryParams, queryVolume float64) *spacedb.Resolution {
	if params.Resolution == nil && params.ThresholdVolume == 0 {
		if queryVolume > 0 {
			return store.Select(queryVolume, nil)
		}
		return &store.Resolutions()[0]
	}
	return store.Select(params.ThresholdVolume, params.Resolution)
}

func (c *Core) outputSpace(params QueryParams) (*space.Space, error) {
	if params.OutputSpace == "" {
		return nil, nil
	}
	out, err := c.Space(params.OutputSpace)
	if err != nil {
		return nil, queryErr(err, "unknown output space %q", params.OutputSpace)
	}
	return out, nil
}

func (c *Core) validViewPort(params QueryParams) error {
	if params.ViewPort == nil {
		return nil
	}
	if err := params.ViewPort.Validate(); err != nil {
		return translateError(fmt.Errorf("view port: %w", err))
	}
	return nil
}

func (c *Core) inViewPort(params QueryParams, sp *space.Space, p space.Point) (bool, error) {
	if params.ViewPort == nil {
		return true, nil
	}
	u, err := sp.Absolute(p)
	if err != nil {
		return false, err
	}
	return params.ViewPort.Contains(u), nil
}

func (c *Core) emit(items *[]Item, sp *space.Space, p space.Point, value uint32, out *space.Space) error {
	id, kind, err := c.img.Table.Row(value)
	if err != nil {
		return err
	}
	name := sp.Name
	if out != nil && out.Name != sp.Name {
		p, err = space.ChangeBase(p, sp, out)
		if err != nil {
			return err
		}
		name = out.Name
	}
	*items = append(*items, Item{
		Space:    name,
		ID:       id,
		Kind:     kind,
		Position: p,
	})
	return nil
}

// clampBox intersects [lo, hi] with the bounds [blo, bhi]. ok is false when
// the boxes are disjoint.
func clampBox(lo, hi, blo, bhi space.Point) (clo, chi space.Point, ok bool) {
	clo = lo.Clone()
	chi = hi.Clone()
	for i := range clo {
		if clo[i] < blo[i] {
			clo[i] = blo[i]
		}
		if chi[i] > bhi[i] {
			chi[i] = bhi[i]
		}
		if clo[i] > chi[i] {
			return nil, nil, false
		}
	}
	return clo, chi, true
}
