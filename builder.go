package spatialgo

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/index"
	"github.com/hupe1980/spatialgo/model"
	"github.com/hupe1980/spatialgo/persistence"
	"github.com/hupe1980/spatialgo/space"
	"github.com/hupe1980/spatialgo/spacedb"
)

// Builder accumulates reference spaces and positioned objects and builds an
// immutable dataset from them.
//
// Builders are single-use and not safe for concurrent use; Build itself
// indexes the spaces concurrently.
type Builder struct {
	title   string
	version string
	opts    options

	spaces []space.Space
	props  []model.Properties
	points []builderPoint
}

type builderPoint struct {
	spaceName string
	id        string
	pos       space.Point
}

// NewBuilder creates a dataset builder.
func NewBuilder(title, version string, optFns ...Option) *Builder {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return &Builder{
		title:   title,
		version: version,
		opts:    o,
	}
}

// AddSpace registers a reference space definition.
func (b *Builder) AddSpace(s space.Space) *Builder {
	b.spaces = append(b.spaces, s)
	return b
}

// AddFeature adds a spatial feature at one position. The same identifier
// may be added at several positions; they all resolve to the same object.
func (b *Builder) AddFeature(id, spaceName string, pos space.Point) *Builder {
	return b.AddObject(model.Feature(id), spaceName, pos)
}

// AddObject adds an object of arbitrary kind at one position.
func (b *Builder) AddObject(p model.Properties, spaceName string, pos space.Point) *Builder {
	b.props = append(b.props, p)
	b.points = append(b.points, builderPoint{spaceName: spaceName, id: p.ID, pos: pos})
	return b
}

// AddProperties registers object properties without a position. Useful for
// objects whose positions arrive through AddFeature with the same ID.
func (b *Builder) AddProperties(p model.Properties) *Builder {
	b.props = append(b.props, p)
	return b
}

// Build indexes everything added so far into a dataset.
func (b *Builder) Build(ctx context.Context) (*Core, error) {
	start := time.Now()
	core, err := b.build(ctx)
	b.opts.logger.WithDataset(b.title).LogBuild(ctx, len(b.points), len(b.spaces), time.Since(start), err)
	return core, err
}

func (b *Builder) build(ctx context.Context) (*Core, error) {
	if len(b.points) == 0 {
		return nil, translateError(index.ErrEmptyBuild)
	}

	table, err := b.buildTable()
	if err != nil {
		return nil, err
	}

	grouped, err := b.groupBySpace(table)
	if err != nil {
		return nil, err
	}

	// Deterministic store order regardless of insertion order.
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	stores := make([]*spacedb.DB, len(names))
	g, _ := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		sp, err := b.space(name)
		if err != nil {
			return nil, err
		}
		entries := grouped[name]
		g.Go(func() error {
			store, err := spacedb.Build(name, entries, sp.Dims(), spacedb.Options{
				CurveBits:   b.opts.curveBits,
				Scales:      b.opts.scales,
				MaxElements: b.opts.maxElements,
				SpaceVolume: sp.Volume(),
				MaxSteps:    sp.System.MaxSteps(),
			})
			if err != nil {
				return translateError(err)
			}
			stores[i] = store
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	img := &persistence.Image{
		Title:   b.title,
		Version: b.version,
		Spaces:  b.spaces,
		Table:   table,
		Stores:  stores,
	}
	return newCore(img, b.opts.logger)
}

// buildTable deduplicates the accumulated properties and packs them.
// The same ID may appear many times, but always with the same kind.
func (b *Builder) buildTable() (*persistence.PropertyTable, error) {
	kinds := make(map[string]string, len(b.props))
	rows := make([]persistence.Property, 0, len(b.props))
	for _, p := range b.props {
		if prev, ok := kinds[p.ID]; ok {
			if prev != p.Kind {
				return nil, buildErr(nil, "object %q registered as both %q and %q", p.ID, prev, p.Kind)
			}
			continue
		}
		kinds[p.ID] = p.Kind
		rows = append(rows, persistence.Property{ID: p.ID, Kind: p.Kind})
	}

	table, err := persistence.BuildPropertyTable(rows)
	if err != nil {
		return nil, buildErr(err, "property table: %v", err)
	}
	return table, nil
}

// groupBySpace encodes every point into its space's grid and groups the
// entries per space.
func (b *Builder) groupBySpace(table *persistence.PropertyTable) (map[string][]spacedb.Entry, error) {
	grouped := make(map[string][]spacedb.Entry)
	for _, pt := range b.points {
		sp, err := b.space(pt.spaceName)
		if err != nil {
			return nil, err
		}
		if pt.pos.Dims() != sp.Dims() {
			return nil, &ErrDimensionMismatch{Expected: sp.Dims(), Actual: pt.pos.Dims()}
		}
		g, err := sp.Encode(pt.pos)
		if err != nil {
			return nil, buildErr(err, "object %q: position %v outside space %q", pt.id, pt.pos, pt.spaceName)
		}
		row, ok := table.Find(pt.id)
		if !ok {
			return nil, buildErr(nil, "object %q has no properties", pt.id)
		}
		grouped[pt.spaceName] = append(grouped[pt.spaceName], spacedb.Entry{Pos: g, Value: row})
	}
	return grouped, nil
}

func (b *Builder) space(name string) (*space.Space, error) {
	for i := range b.spaces {
		if b.spaces[i].Name == name {
			return &b.spaces[i], nil
		}
	}
	return nil, buildErr(nil, "unknown space %q", name)
}

// Save serializes the dataset and writes it to the blob store under name.
func (c *Core) Save(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) error {
	o := defaultOptions()
	o.logger = c.logger
	for _, fn := range optFns {
		fn(&o)
	}

	data, err := persistence.Encode(c.img, o.codec)
	if err != nil {
		o.logger.LogSave(ctx, name, 0, err)
		return err
	}
	err = store.Put(ctx, name, data)
	o.logger.LogSave(ctx, name, len(data), err)
	return err
}
