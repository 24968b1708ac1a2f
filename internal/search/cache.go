package search

import (
	"fmt"
	"hash/fnv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoizes search results. The key folds in the corpus
// version, so any committed index mutation makes prior entries
// unreachable and they age out of the LRU naturally.
type resultCache struct {
	lru *lru.Cache[uint64, []Result]
}

func newResultCache(capacity int) (*resultCache, error) {
	if capacity <= 0 {
		capacity = 256
	}
	c, err := lru.New[uint64, []Result](capacity)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

func cacheKey(mode Mode, tokens []string, filters Filters, limit int, corpusVersion uint64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d",
		mode, strings.Join(tokens, " "), filters.cacheKey(), limit, corpusVersion)
	return h.Sum64()
}

func (c *resultCache) get(key uint64) ([]Result, bool) {
	return c.lru.Get(key)
}

func (c *resultCache) put(key uint64, results []Result) {
	c.lru.Add(key, results)
}

func (c *resultCache) purge() {
	c.lru.Purge()
}
