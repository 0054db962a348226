// Package cache memoises parsed source files by content hash. A Cache
// backs the Compiler handle and is consulted only by lazy compilations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/wesl/wgsl"
)

// DefaultMaxEntries bounds the number of parsed files a Cache keeps.
const DefaultMaxEntries = 1024

// Key identifies a file by name and content. The name is part of the key
// because parsed spans record it.
type Key [sha256.Size]byte

// KeyOf returns the key of a file.
func KeyOf(file, source string) Key {
	h := sha256.New()
	h.Write([]byte(file))
	h.Write([]byte{0})
	h.Write([]byte(source))
	var k Key
	h.Sum(k[:0])
	return k
}

func (k Key) String() string { return hex.EncodeToString(k[:]) }

type entry struct {
	module *wgsl.Module
	err    error
}

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the cache; the oldest entries are evicted first.
	// Zero means DefaultMaxEntries.
	MaxEntries int
	// Metrics, when set, records lookups and parse times.
	Metrics *Metrics
	// Parse replaces wgsl.ParseFile.
	Parse func(file, source string) (*wgsl.Module, error)
}

// Cache is safe for concurrent use. Concurrent misses on the same key
// parse once.
type Cache struct {
	opts Options

	mu      sync.RWMutex
	entries map[Key]entry
	order   []Key
	closed  bool

	group singleflight.Group
}

// New creates a cache.
func New(opts Options) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Parse == nil {
		opts.Parse = wgsl.ParseFile
	}
	return &Cache{opts: opts, entries: make(map[Key]entry)}
}

// Parse returns the parsed file, parsing it on a miss. Parse errors are
// cached like results. The returned module is shared and must not be
// modified.
func (c *Cache) Parse(file, source string) (*wgsl.Module, error) {
	key := KeyOf(file, source)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.opts.Metrics.lookup("hit")
		return e.module, e.err
	}

	v, _, shared := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		if e, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return e, nil
		}
		c.mu.RUnlock()

		start := time.Now()
		m, err := c.opts.Parse(file, source)
		c.opts.Metrics.observeParse(time.Since(start).Seconds(), err)
		e := entry{module: m, err: err}
		c.store(key, e)
		return e, nil
	})
	if shared {
		c.opts.Metrics.lookup("shared")
	} else {
		c.opts.Metrics.lookup("miss")
	}
	e = v.(entry)
	return e.module, e.err
}

func (c *Cache) store(key Key, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) >= c.opts.MaxEntries {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = e
	c.order = append(c.order, key)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close drops every entry. Later calls to Parse still work but no longer
// store results.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = make(map[Key]entry)
	c.order = nil
}
