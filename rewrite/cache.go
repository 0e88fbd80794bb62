package rewrite

import (
	"github.com/cespare/xxhash/v2"
	ristretto "github.com/dgraph-io/ristretto/v2"

	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax"
	"github.com/wippyai/noasync/syntax/ast"
)

// DefaultCacheSize bounds the parse cache by total source bytes.
const DefaultCacheSize = 64 << 20

// Cache holds parsed trees keyed by file name and content. Trees handed
// out are shared and must be treated as read-only.
type Cache struct {
	trees *ristretto.Cache[uint64, *ast.File]
}

// NewCache creates a cache holding up to maxBytes of source.
func NewCache(maxBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheSize
	}
	trees, err := ristretto.NewCache(&ristretto.Config[uint64, *ast.File]{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "create parse cache")
	}
	return &Cache{trees: trees}, nil
}

func cacheKey(file, source string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(file)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(source)
	return d.Sum64()
}

// Parse returns the tree for source, parsing it on a miss. A nil Cache
// always parses.
func (c *Cache) Parse(source, file string) (*ast.File, error) {
	if c == nil {
		return syntax.Parse(source, file)
	}
	key := cacheKey(file, source)
	if tree, ok := c.trees.Get(key); ok {
		debugf("parse cache hit %s", file)
		return tree, nil
	}
	tree, err := syntax.Parse(source, file)
	if err != nil {
		return nil, err
	}
	c.trees.Set(key, tree, int64(len(source))+1)
	return tree, nil
}

// Wait blocks until pending writes are visible.
func (c *Cache) Wait() {
	if c != nil {
		c.trees.Wait()
	}
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	if c != nil {
		c.trees.Close()
	}
}
