package cindex

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// memoTable caches derived handle properties for one unit generation.
// Concurrent first reads of the same property share one computation.
type memoTable struct {
	values sync.Map
	group  singleflight.Group
}

func newMemoTable() *memoTable { return &memoTable{} }

type memoKey struct {
	node uint32
	prop string
}

func (k memoKey) String() string {
	return strconv.FormatUint(uint64(k.node), 10) + "/" + k.prop
}

// memoized returns the cached value for key or computes it at most once.
// Errors are not cached.
func memoized[T any](mt *memoTable, key memoKey, compute func() (T, error)) (T, error) {
	if v, ok := mt.values.Load(key); ok {
		return v.(T), nil
	}
	v, err, _ := mt.group.Do(key.String(), func() (any, error) {
		if v, ok := mt.values.Load(key); ok {
			return v, nil
		}
		r, err := compute()
		if err != nil {
			return nil, err
		}
		mt.values.Store(key, r)
		return r, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
