package spatialgo

import (
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spatialgo/blobstore"
	"github.com/hupe1980/spatialgo/index"
	"github.com/hupe1980/spatialgo/index/hashmap"
	"github.com/hupe1980/spatialgo/persistence"
	"github.com/hupe1980/spatialgo/space"
)

// Database is a queryable set of datasets sharing one space catalog.
//
// Datasets loaded together may define the same reference space, but the
// definitions must be identical; conflicting definitions are a load error.
type Database struct {
	cores   []*Core
	coreIdx index.Exact[string, uint32]
	logger  *Logger
	closers []io.Closer
}

// NewDatabase assembles a database from in-memory datasets, typically fresh
// builder output.
func NewDatabase(cores []*Core, optFns ...Option) (*Database, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return newDatabase(cores, nil, o.logger)
}

func newDatabase(cores []*Core, closers []io.Closer, logger *Logger) (*Database, error) {
	if err := checkSpaceConflicts(cores); err != nil {
		return nil, err
	}

	idx, err := hashmap.Build(indexed(cores),
		func(e indexedCore) string { return e.title },
		func(e indexedCore) uint32 { return e.pos },
	)
	if err != nil {
		return nil, translateError(err)
	}
	for _, title := range idx.Keys() {
		if n := len(idx.Lookup(title)); n > 1 {
			return nil, buildErr(nil, "dataset %q loaded %d times", title, n)
		}
	}

	return &Database{
		cores:   cores,
		coreIdx: idx,
		logger:  logger,
		closers: closers,
	}, nil
}

type indexedCore struct {
	title string
	pos   uint32
}

func indexed(cores []*Core) []indexedCore {
	out := make([]indexedCore, len(cores))
	for i, c := range cores {
		out[i] = indexedCore{title: c.Title(), pos: uint32(i)}
	}
	return out
}

func checkSpaceConflicts(cores []*Core) error {
	seen := make(map[string]*space.Space)
	for _, c := range cores {
		for i := range c.img.Spaces {
			s := &c.img.Spaces[i]
			if prev, ok := seen[s.Name]; ok {
				if !prev.Equal(s) {
					return buildErr(nil, "space %q has conflicting definitions across datasets", s.Name)
				}
				continue
			}
			seen[s.Name] = s
		}
	}
	return nil
}

// Load opens the named dataset blobs from the store and assembles them into
// a database. The datasets are fetched and decoded concurrently.
//
// Mappable blobs stay open for the lifetime of the database: the decoded
// indexes view the mapped bytes in place. Close releases them.
func Load(ctx context.Context, store blobstore.BlobStore, names []string, optFns ...Option) (*Database, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if len(names) == 0 {
		return nil, buildErr(nil, "no datasets named")
	}

	imgs := make([]*persistence.Image, len(names))
	closers := make([]io.Closer, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			img, closer, size, err := loadImage(gctx, store, name)
			o.logger.LogLoad(gctx, name, size, err)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, translateError(err))
			}
			imgs[i] = img
			closers[i] = closer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, cl := range closers {
			if cl != nil {
				cl.Close()
			}
		}
		return nil, err
	}

	cores := make([]*Core, len(imgs))
	for i, img := range imgs {
		core, err := newCore(img, o.logger)
		if err != nil {
			for _, cl := range closers {
				if cl != nil {
					cl.Close()
				}
			}
			return nil, fmt.Errorf("load %s: %w", names[i], err)
		}
		cores[i] = core
	}

	liveClosers := closers[:0]
	for _, cl := range closers {
		if cl != nil {
			liveClosers = append(liveClosers, cl)
		}
	}

	db, err := newDatabase(cores, liveClosers, o.logger)
	if err != nil {
		for _, cl := range liveClosers {
			cl.Close()
		}
		return nil, err
	}
	return db, nil
}

// loadImage opens one dataset blob and decodes it. Mappable blobs are
// decoded in place and returned with their closer; others are read into
// memory and closed immediately.
func loadImage(ctx context.Context, store blobstore.BlobStore, name string) (*persistence.Image, io.Closer, int64, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, nil, 0, err
	}

	var data []byte
	if m, ok := blob.(blobstore.Mappable); ok {
		data, err = m.Bytes()
		if err != nil {
			blob.Close()
			return nil, nil, 0, err
		}
	} else {
		data = make([]byte, blob.Size())
		if _, err := io.ReadFull(io.NewSectionReader(blob, 0, blob.Size()), data); err != nil {
			blob.Close()
			return nil, nil, 0, err
		}
		blob.Close()
		blob = nil
	}

	img, err := persistence.Decode(data)
	if err != nil {
		if blob != nil {
			blob.Close()
		}
		return nil, nil, 0, err
	}
	if blob != nil {
		return img, blob, blob.Size(), nil
	}
	return img, nil, int64(len(data)), nil
}

// Close releases the blob mappings backing the loaded datasets. The
// database must not be queried afterwards.
func (db *Database) Close() error {
	var err error
	for _, cl := range db.closers {
		if closeErr := cl.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	db.closers = nil
	return err
}

// Core returns a dataset by title.
func (db *Database) Core(title string) (*Core, error) {
	rows := db.coreIdx.Lookup(title)
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %q: %w", title, ErrNotFound)
	}
	return db.cores[rows[0]], nil
}

// Cores returns all datasets.
func (db *Database) Cores() []*Core { return db.cores }

// SpaceNames returns the names of all reference spaces across the loaded
// datasets, sorted.
func (db *Database) SpaceNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range db.cores {
		for _, s := range c.img.Spaces {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Space returns a reference space definition by name, searching all loaded
// datasets.
func (db *Database) Space(name string) (*space.Space, error) {
	if name == space.UniverseName {
		return space.Universe(), nil
	}
	for _, c := range db.cores {
		if sp, err := c.Space(name); err == nil {
			return sp, nil
		}
	}
	return nil, fmt.Errorf("space %q: %w", name, ErrNotFound)
}
