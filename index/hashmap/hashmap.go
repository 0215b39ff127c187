// Package hashmap implements the exact-match index brick: a hash table from
// extracted keys to record identifiers, built once from a complete record
// set.
package hashmap

import (
	"fmt"
	"sort"

	"github.com/hupe1980/spatialgo/index"
)

// Index is an immutable exact-match index. It is safe for concurrent
// lookups.
type Index[K comparable, V comparable] struct {
	m    map[K][]V
	keys []K
}

var _ index.Exact[string, uint32] = (*Index[string, uint32])(nil)

// Build constructs the index from a full record set. keyOf derives the
// lookup key of a record, idOf its identifier. Duplicate identifiers are a
// build failure, never a silent overwrite.
func Build[R any, K comparable, V comparable](
	records []R,
	keyOf index.KeyFunc[R, K],
	idOf index.ValueFunc[R, V],
) (*Index[K, V], error) {
	if len(records) == 0 {
		return nil, index.ErrEmptyBuild
	}

	m := make(map[K][]V, len(records))
	seen := make(map[V]struct{}, len(records))

	for _, r := range records {
		id := idOf(r)
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %v", index.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		k := keyOf(r)
		m[k] = append(m[k], id)
	}

	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return &Index[K, V]{m: m, keys: keys}, nil
}

// Lookup returns the identifiers stored under key, or nil when the key is
// absent.
func (x *Index[K, V]) Lookup(key K) []V {
	return x.m[key]
}

// Contains reports whether key is present.
func (x *Index[K, V]) Contains(key K) bool {
	_, ok := x.m[key]
	return ok
}

// Keys returns all distinct keys in unspecified order.
func (x *Index[K, V]) Keys() []K {
	return x.keys
}

// Len returns the number of distinct keys.
func (x *Index[K, V]) Len() int {
	return len(x.m)
}

// SortKeys sorts the key enumeration in place using less. Lookup behavior is
// unaffected.
func (x *Index[K, V]) SortKeys(less func(a, b K) bool) {
	sort.Slice(x.keys, func(i, j int) bool { return less(x.keys[i], x.keys[j]) })
}
