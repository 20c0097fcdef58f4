package features

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"

	"github.com/tphakala/voiceid/internal/myaudio"
)

// vectorCache memoizes feature vectors by content hash. Extraction is
// deterministic, so a hit is identical to a recomputation.
type vectorCache struct {
	store *cache.Cache
}

func newVectorCache(ttl time.Duration) *vectorCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &vectorCache{store: cache.New(ttl, 2*ttl)}
}

func cacheKey(data []byte, format myaudio.Format) string {
	return strconv.FormatUint(xxh3.Hash(data), 16) + string(format)
}

func (c *vectorCache) get(key string) ([]float64, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float64)
	if !ok {
		return nil, false
	}
	return append([]float64(nil), vec...), true
}

func (c *vectorCache) set(key string, vec []float64) {
	if c == nil {
		return
	}
	c.store.SetDefault(key, append([]float64(nil), vec...))
}

// Len returns the number of cached vectors, including expired ones not yet
// evicted.
func (c *vectorCache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.ItemCount()
}
