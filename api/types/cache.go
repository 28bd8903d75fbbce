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

package types

import "errors"

// ErrCacheNotInitialized is returned by cache wrappers operating on a nil
// backing cache.
var ErrCacheNotInitialized = errors.New("cache not initialized")

// Cache is the key-value store behind the cache aspect. Implementations
// must be safe for concurrent use.
type Cache interface {
	// Set stores a value under key. ttl is a duration string such as "10m";
	// empty or zero means no expiration. Returns an error when ttl cannot
	// be parsed.
	Set(key string, value interface{}, ttl string) error
	// Get returns the value under key, or nil when absent or expired.
	Get(key string) interface{}
	// Has reports whether key exists and has not expired.
	Has(key string) bool
	// Delete removes key.
	Delete(key string) error
	// DeleteByPrefix removes every key with the given prefix.
	DeleteByPrefix(prefix string) error
	// GetByPrefix returns all live entries whose keys have the given
	// prefix.
	GetByPrefix(prefix string) map[string]interface{}
}
