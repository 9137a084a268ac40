package injector

import (
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	nasc "github.com/toutaio/toutago-nasc-testkit"
)

// BuildFunc builds the container for a module set.
type BuildFunc func(nasc.ModuleSet) (*nasc.Container, error)

// Cache maps module sets to containers. Lookups are lock-free once an entry
// exists; concurrent misses for the same set share a single build.
// Failed builds are not stored. Entries live until Close.
type Cache struct {
	entries sync.Map // ModuleSet.Key() -> *nasc.Container
	group   singleflight.Group
	build   BuildFunc
}

// NewCache returns an empty cache that builds missing entries with build.
func NewCache(build BuildFunc) *Cache {
	return &Cache{build: build}
}

// Get returns the cached container for set. hit reports whether it was
// already present when Get was called.
func (c *Cache) Get(set nasc.ModuleSet) (container *nasc.Container, hit bool, err error) {
	key := set.Key()

	if v, ok := c.entries.Load(key); ok {
		return v.(*nasc.Container), true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have finished the build between Load and Do.
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}

		built, err := c.build(set)
		if err != nil {
			return nil, err
		}
		c.entries.Store(key, built)
		return built, nil
	})
	if err != nil {
		return nil, false, err
	}

	return v.(*nasc.Container), false, nil
}

// Peek returns the cached container for set without building.
func (c *Cache) Peek(set nasc.ModuleSet) (*nasc.Container, bool) {
	v, ok := c.entries.Load(set.Key())
	if !ok {
		return nil, false
	}
	return v.(*nasc.Container), true
}

// Len returns the number of cached containers.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Close closes and forgets every cached container.
func (c *Cache) Close() error {
	var errs []error
	c.entries.Range(func(key, v interface{}) bool {
		if err := v.(*nasc.Container).Close(); err != nil {
			errs = append(errs, err)
		}
		c.entries.Delete(key)
		return true
	})
	return errors.Join(errs...)
}
