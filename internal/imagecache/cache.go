// Package imagecache keeps encoded variant bytes in process memory, bounded
// by a pair of byte watermarks.
//
// Entries are kept in a list ordered by last access, least recent first.
// When an insert pushes the total above MaxSize, entries are removed from the
// old end until the total is at or below TargetSize. Every entry is smaller
// than TargetSize, so eviction always terminates.
package imagecache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xbanchon/image-variant-service/internal/store"
	"go.uber.org/zap"
)

var ErrTooLarge = errors.New("entry does not fit below the cache target size")

const (
	DefaultMaxSize      = 256 * 1024 * 1024
	DefaultTargetSize   = 128 * 1024 * 1024
	DefaultRefreshAfter = 5 * time.Minute
)

type Config struct {
	// MaxSize is the high watermark that triggers eviction.
	MaxSize int64 `validate:"gtefield=TargetSize"`
	// TargetSize is the low watermark eviction shrinks to. It is also the
	// exclusive upper bound on a single entry.
	TargetSize int64 `validate:"gt=0"`
	// RefreshAfter is how stale an entry's access time may get before a hit
	// schedules a refresh.
	RefreshAfter time.Duration `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		MaxSize:      DefaultMaxSize,
		TargetSize:   DefaultTargetSize,
		RefreshAfter: DefaultRefreshAfter,
	}
}

// Scheduler runs fire-and-forget work. *tasks.Runner satisfies it.
type Scheduler interface {
	Go(name string, fn func(ctx context.Context) error)
}

type goScheduler struct {
	logger *zap.SugaredLogger
}

func (s goScheduler) Go(name string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			s.logger.Warnw("background task failed", "task", name, "error", err)
		}
	}()
}

type entry struct {
	id         store.ImageID
	data       []byte
	lastAccess time.Time
}

type content struct {
	totalBytes int64
	index      map[store.ImageID]*list.Element
	order      *list.List
}

type Stats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Refreshes  int64 `json:"refreshes"`
}

type Cache struct {
	cfg    Config
	logger *zap.SugaredLogger
	sched  Scheduler
	now    func() time.Time

	mu      sync.RWMutex
	content content

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	refreshes atomic.Int64
}

type Option func(*Cache)

// WithScheduler routes access-time refreshes through s.
func WithScheduler(s Scheduler) Option {
	return func(c *Cache) {
		c.sched = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(cfg Config, logger *zap.SugaredLogger, opts ...Option) (*Cache, error) {
	if cfg.TargetSize <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %d", cfg.TargetSize)
	}
	if cfg.MaxSize < cfg.TargetSize {
		return nil, fmt.Errorf("max size %d is below target size %d", cfg.MaxSize, cfg.TargetSize)
	}

	c := &Cache{
		cfg:    cfg,
		logger: logger,
		sched:  goScheduler{logger: logger},
		now:    time.Now,
		content: content{
			index: make(map[store.ImageID]*list.Element),
			order: list.New(),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get returns the cached bytes for id. The slice is shared with the cache
// and every other reader and must not be modified.
func (c *Cache) Get(id store.ImageID) ([]byte, bool) {
	c.mu.RLock()
	el, ok := c.content.index[id]
	if !ok {
		c.mu.RUnlock()
		c.misses.Add(1)
		return nil, false
	}

	e := el.Value.(*entry)
	data := e.data
	stale := c.now().Sub(e.lastAccess) > c.cfg.RefreshAfter
	c.mu.RUnlock()

	c.hits.Add(1)

	if stale {
		c.sched.Go("imagecache.refresh", func(ctx context.Context) error {
			c.touch(id)
			return nil
		})
	}

	return data, true
}

// touch marks id as just accessed. Entries evicted in the meantime are
// ignored.
func (c *Cache) touch(id store.ImageID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.content.index[id]
	if !ok {
		return
	}

	el.Value.(*entry).lastAccess = c.now()
	c.content.order.MoveToBack(el)
	c.refreshes.Add(1)
}

// Fits reports whether an entry of n bytes would be accepted by Put.
func (c *Cache) Fits(n int) bool {
	return int64(n) < c.cfg.TargetSize
}

// Put stores data under id, replacing any previous entry. The cache takes
// ownership of data. Entries of TargetSize bytes or more are rejected with
// ErrTooLarge.
func (c *Cache) Put(id store.ImageID, data []byte) error {
	size := int64(len(data))
	if size >= c.cfg.TargetSize {
		return fmt.Errorf("%w: %s is %d bytes, target size %d", ErrTooLarge, id, size, c.cfg.TargetSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.content.index[id]; ok {
		e := el.Value.(*entry)
		c.content.totalBytes += size - int64(len(e.data))
		e.data = data
		e.lastAccess = now
		c.content.order.MoveToBack(el)
	} else {
		el := c.content.order.PushBack(&entry{id: id, data: data, lastAccess: now})
		c.content.index[id] = el
		c.content.totalBytes += size
	}

	if c.content.totalBytes > c.cfg.MaxSize {
		c.evict()
	}

	return nil
}

// evict must be called with the write lock held.
func (c *Cache) evict() {
	c.logger.Infow("image cache limit hit",
		"bytes", c.content.totalBytes,
		"entries", len(c.content.index),
	)

	removed := 0
	for c.content.totalBytes > c.cfg.TargetSize {
		el := c.content.order.Front()
		if el == nil {
			break
		}

		e := c.content.order.Remove(el).(*entry)
		delete(c.content.index, e.id)
		c.content.totalBytes -= int64(len(e.data))
		removed++
	}

	c.evictions.Add(int64(removed))
	c.logger.Infow("image cache evicted",
		"removed", removed,
		"bytes", c.content.totalBytes,
		"entries", len(c.content.index),
	)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.content.index)
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries, total := len(c.content.index), c.content.totalBytes
	c.mu.RUnlock()

	return Stats{
		Entries:    entries,
		TotalBytes: total,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Refreshes:  c.refreshes.Load(),
	}
}
