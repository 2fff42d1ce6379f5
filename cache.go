package qmap

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
)

// Cache retains compiled read statements keyed by a structural hash of
// their inputs. Only exact repeats hit, values included, so a cached
// statement replays with the same parameter bindings it was compiled with.
type Cache struct {
	cache *lru.TwoQueueCache[string, compiled]
}

func newCache(size int) (*Cache, error) {
	c, err := lru.New2Q[string, compiled](size)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c}, nil
}

type cacheKeyInput struct {
	Kind    OpKind
	Table   string
	Joins   any
	Columns any
	Where   any
	Limit1  bool
	AggCol  string
}

func (gm *qmapEngine) cacheLookup(kind OpKind, table string, joins, columns, where any,
	limit1 bool, aggCol string,
) (string, compiled, bool) {
	if gm.cache == nil {
		return "", compiled{}, false
	}

	h, err := hashstructure.Hash(cacheKeyInput{
		Kind:    kind,
		Table:   table,
		Joins:   joins,
		Columns: columns,
		Where:   where,
		Limit1:  limit1,
		AggCol:  aggCol,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		// unhashable input just skips the cache
		return "", compiled{}, false
	}

	key := strconv.FormatUint(h, 16)
	if cp, ok := gm.cache.cache.Get(key); ok {
		return key, cp, true
	}
	return key, compiled{}, false
}

func (gm *qmapEngine) cacheStore(key string, cp compiled) {
	if gm.cache == nil || key == "" {
		return
	}
	gm.cache.cache.Add(key, cp)
}
