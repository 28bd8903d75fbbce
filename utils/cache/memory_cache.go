/*
 * Copyright 2025 The AspectGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/aspectgo/aspectgo/api/types"
)

// DefaultCache is the shared process-wide cache instance.
var DefaultCache = NewMemoryCache(time.Minute * 5)

type item struct {
	value      interface{}
	expiration int64 // UnixNano, 0 means no expiration
}

func (i item) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// MemoryCache is an in-memory key-value store with optional per-entry TTL.
// Expired entries are dropped lazily on read and swept by a background GC
// goroutine that only runs while expirable entries exist.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	gcInterval time.Duration
	gcRunning  bool
	stopChan   chan struct{}
}

// NewMemoryCache creates a cache whose GC sweeps at the given interval.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	if gcInterval <= 0 {
		gcInterval = time.Minute * 5
	}
	return &MemoryCache{
		items:      make(map[string]item),
		gcInterval: gcInterval,
	}
}

// Set stores value under key. ttl is a duration string such as "10m";
// empty or "0" means the entry never expires. The first expirable entry
// starts the GC goroutine.
func (c *MemoryCache) Set(key string, value interface{}, ttl string) error {
	var expiration int64
	if ttl != "" && ttl != "0" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return err
		}
		if d > 0 {
			expiration = time.Now().Add(d).UnixNano()
		}
	}
	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	startGC := expiration > 0 && !c.gcRunning
	if startGC {
		c.gcRunning = true
		c.stopChan = make(chan struct{})
	}
	stop := c.stopChan
	c.mu.Unlock()
	if startGC {
		go c.gcLoop(stop)
	}
	return nil
}

// Get returns the value under key, or nil when absent or expired.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()
	if !found {
		return nil
	}
	if it.expired(time.Now().UnixNano()) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil
	}
	return it.value
}

// Has reports whether key exists and has not expired.
func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()
	return found && !it.expired(time.Now().UnixNano())
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// DeleteByPrefix removes every key with the given prefix.
func (c *MemoryCache) DeleteByPrefix(prefix string) error {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// GetByPrefix returns all live entries whose keys have the given prefix.
func (c *MemoryCache) GetByPrefix(prefix string) map[string]interface{} {
	now := time.Now().UnixNano()
	result := make(map[string]interface{})
	c.mu.RLock()
	for k, it := range c.items {
		if strings.HasPrefix(k, prefix) && !it.expired(now) {
			result[k] = it.value
		}
	}
	c.mu.RUnlock()
	return result
}

// StopGC stops the background sweeper if it is running.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	if c.gcRunning {
		close(c.stopChan)
		c.gcRunning = false
	}
	c.mu.Unlock()
}

func (c *MemoryCache) gcLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !c.deleteExpired() {
				return
			}
		case <-stop:
			return
		}
	}
}

// deleteExpired sweeps expired entries and reports whether expirable
// entries remain. When none remain the GC shuts itself down and is
// restarted by the next expirable Set.
func (c *MemoryCache) deleteExpired() bool {
	now := time.Now().UnixNano()
	remaining := false
	c.mu.Lock()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		} else if it.expiration > 0 {
			remaining = true
		}
	}
	if !remaining {
		c.gcRunning = false
	}
	c.mu.Unlock()
	return remaining
}

// NamespaceCache prefixes every key with a fixed namespace so that callers
// sharing one backing cache cannot collide.
type NamespaceCache struct {
	cache     *MemoryCache
	namespace string
}

// NewNamespaceCache wraps cache, prefixing all keys with namespace.
func NewNamespaceCache(cache *MemoryCache, namespace string) *NamespaceCache {
	return &NamespaceCache{cache: cache, namespace: namespace}
}

func (c *NamespaceCache) buildKey(key string) string {
	return c.namespace + key
}

func (c *NamespaceCache) Set(key string, value interface{}, ttl string) error {
	if c.cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.cache.Set(c.buildKey(key), value, ttl)
}

func (c *NamespaceCache) Get(key string) interface{} {
	if c.cache == nil {
		return nil
	}
	return c.cache.Get(c.buildKey(key))
}

func (c *NamespaceCache) Has(key string) bool {
	if c.cache == nil {
		return false
	}
	return c.cache.Has(c.buildKey(key))
}

func (c *NamespaceCache) Delete(key string) error {
	if c.cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.cache.Delete(c.buildKey(key))
}

func (c *NamespaceCache) DeleteByPrefix(prefix string) error {
	if c.cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.cache.DeleteByPrefix(c.buildKey(prefix))
}

// GetByPrefix returns live entries under the namespace with the namespace
// prefix stripped from the returned keys.
func (c *NamespaceCache) GetByPrefix(prefix string) map[string]interface{} {
	if c.cache == nil {
		return nil
	}
	values := c.cache.GetByPrefix(c.buildKey(prefix))
	result := make(map[string]interface{}, len(values))
	for k, v := range values {
		result[strings.TrimPrefix(k, c.namespace)] = v
	}
	return result
}

var _ types.Cache = (*MemoryCache)(nil)
var _ types.Cache = (*NamespaceCache)(nil)
