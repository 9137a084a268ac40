package nasc

import (
	"sync"
)

// singletonInstance holds a singleton value and ensures it's created only once.
type singletonInstance struct {
	value interface{}
	err   error
	once  sync.Once
}

// singletonCache manages singleton instances with thread-safe lazy initialization.
// It remembers creation order so Close can dispose dependents before dependencies.
type singletonCache struct {
	instances map[Key]*singletonInstance
	created   []interface{}
	mu        sync.RWMutex
}

// newSingletonCache creates a new singleton cache.
func newSingletonCache() *singletonCache {
	return &singletonCache{
		instances: make(map[Key]*singletonInstance),
	}
}

// getOrCreate retrieves an existing singleton or creates it using the provided factory.
// The factory is called exactly once per key, even under concurrent access.
// A failed creation is remembered; later calls return the same error.
//
// This method is goroutine-safe.
func (sc *singletonCache) getOrCreate(key Key, factory func() (interface{}, error)) (interface{}, error) {
	// Fast path: check if instance exists (read lock)
	sc.mu.RLock()
	instance, exists := sc.instances[key]
	sc.mu.RUnlock()

	if !exists {
		sc.mu.Lock()
		// Double-check after acquiring write lock
		instance, exists = sc.instances[key]
		if !exists {
			instance = &singletonInstance{}
			sc.instances[key] = instance
		}
		sc.mu.Unlock()
	}

	instance.once.Do(func() {
		instance.value, instance.err = factory()
		if instance.err == nil && instance.value != nil {
			sc.mu.Lock()
			sc.created = append(sc.created, instance.value)
			sc.mu.Unlock()
		}
	})

	return instance.value, instance.err
}

// drain returns created singletons in creation order and forgets them.
func (sc *singletonCache) drain() []interface{} {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	created := sc.created
	sc.created = nil
	sc.instances = make(map[Key]*singletonInstance)
	return created
}
