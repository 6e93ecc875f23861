// Package cache keeps recently used file metadata in an expiring LRU so
// repeated downloads and previews skip the database.
package cache

import (
	"time"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type FileCache struct {
	lru    *expirable.LRU[string, *models.File]
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewFileCache registers its hit/miss counters on reg.
func NewFileCache(size int, ttl time.Duration, reg prometheus.Registerer) *FileCache {
	factory := promauto.With(reg)
	return &FileCache{
		lru: expirable.NewLRU[string, *models.File](size, nil, ttl),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "gophshare_file_cache_hits_total",
			Help: "File metadata cache hits.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gophshare_file_cache_misses_total",
			Help: "File metadata cache misses.",
		}),
	}
}

func (c *FileCache) Get(id string) (*models.File, bool) {
	f, ok := c.lru.Get(id)
	if ok {
		c.hits.Inc()
		return f, true
	}
	c.misses.Inc()
	return nil, false
}

func (c *FileCache) Set(f *models.File) {
	c.lru.Add(f.ID, f)
}

func (c *FileCache) Delete(id string) {
	c.lru.Remove(id)
}

func (c *FileCache) Len() int {
	return c.lru.Len()
}
