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

package aspect

import (
	"time"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/cache"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&CacheAspect{})
}

// CacheAspectConfig holds the weave-plan settings of the cache aspect.
type CacheAspectConfig struct {
	// TTL is the lifetime of cached results as a duration string such as
	// "10m". Empty means entries never expire.
	TTL string
	// KeyPrefix namespaces the cache keys when the aspect owns its
	// backend or was handed a MemoryCache. Ignored for other backends.
	KeyPrefix string
}

// CacheAspect memoizes the results of matched invocations under their
// qualified function name. On a hit the continuation is dropped unconsumed,
// so the wrapped function does not run. Only successful non-nil results are
// stored; errors are never cached.
//
// CacheAspect 以限定函数名为键缓存匹配调用的结果。
// 命中时续延不被消费，被包装的函数不会运行。只缓存成功且非 nil 的结果。
type CacheAspect struct {
	Config CacheAspectConfig
	// Cache is the backend. Set it for direct use; when nil it is filled
	// during Init from types.Config.Cache or an owned MemoryCache.
	Cache types.Cache

	owned *cache.MemoryCache
}

var _ types.AroundAdvice = (*CacheAspect)(nil)
var _ types.ConfigurableAspect = (*CacheAspect)(nil)

// NewCacheAspect creates a cache aspect over the given backend. A nil
// backend means an owned in-memory cache.
func NewCacheAspect(backend types.Cache, ttl string) *CacheAspect {
	a := &CacheAspect{
		Config: CacheAspectConfig{TTL: ttl},
		Cache:  backend,
	}
	if a.Cache == nil {
		a.owned = cache.NewMemoryCache(time.Minute * 5)
		a.Cache = a.owned
	}
	return a
}

func (a *CacheAspect) Type() string {
	return "cache"
}

func (a *CacheAspect) New() types.Aspect {
	return &CacheAspect{
		Config: a.Config,
		Cache:  a.Cache,
	}
}

func (a *CacheAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.Cache == nil {
		a.Cache = config.Cache
	}
	if a.Cache == nil {
		a.owned = cache.NewMemoryCache(time.Minute * 5)
		a.Cache = a.owned
	}
	if a.Config.KeyPrefix != "" {
		if mc, ok := a.Cache.(*cache.MemoryCache); ok {
			a.Cache = cache.NewNamespaceCache(mc, a.Config.KeyPrefix)
		}
	}
	return nil
}

func (a *CacheAspect) Destroy() {
	if a.owned != nil {
		a.owned.StopGC()
	}
}

func (a *CacheAspect) Around(pjp *types.Continuation) (types.Value, error) {
	if a.Cache == nil {
		return pjp.Proceed()
	}
	key := pjp.JoinPoint().QualifiedName()
	if v := a.Cache.Get(key); v != nil {
		// hit: the continuation is dropped unconsumed and the wrapped
		// call is skipped
		return v, nil
	}
	result, err := pjp.Proceed()
	if err == nil && result != nil {
		_ = a.Cache.Set(key, result, a.Config.TTL)
	}
	return result, err
}
