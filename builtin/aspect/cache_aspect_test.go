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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/cache"
)

func TestCacheAspectHitSkipsCall(t *testing.T) {
	a := NewCacheAspect(cache.NewMemoryCache(time.Minute), "")
	assert.Equal(t, "cache", a.Type())
	jp := testJoinPoint("load_user", "app::db")

	var calls int32
	compute := func() *types.Continuation {
		return types.NewContinuation(jp, func() (types.Value, error) {
			atomic.AddInt32(&calls, 1)
			return "alice", nil
		})
	}

	result, err := a.Around(compute())
	assert.Nil(t, err)
	assert.Equal(t, "alice", result)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// second call is served from the cache, the continuation stays
	// unconsumed
	cont := compute()
	result, err = a.Around(cont)
	assert.Nil(t, err)
	assert.Equal(t, "alice", result)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, cont.Consumed())
}

func TestCacheAspectErrorsNotCached(t *testing.T) {
	a := NewCacheAspect(cache.NewMemoryCache(time.Minute), "")
	jp := testJoinPoint("load_user", "app::db")

	var calls int32
	failing := func() *types.Continuation {
		return types.NewContinuation(jp, func() (types.Value, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("boom")
		})
	}

	_, err := a.Around(failing())
	assert.NotNil(t, err)
	_, err = a.Around(failing())
	assert.NotNil(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheAspectNilResultNotCached(t *testing.T) {
	a := NewCacheAspect(cache.NewMemoryCache(time.Minute), "")
	jp := testJoinPoint("load_user", "app::db")

	var calls int32
	nilResult := func() *types.Continuation {
		return types.NewContinuation(jp, func() (types.Value, error) {
			atomic.AddInt32(&calls, 1)
			return nil, nil
		})
	}

	_, _ = a.Around(nilResult())
	_, _ = a.Around(nilResult())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheAspectTTL(t *testing.T) {
	a := NewCacheAspect(cache.NewMemoryCache(time.Minute), "10ms")
	jp := testJoinPoint("load_user", "app::db")

	var calls int32
	compute := func() *types.Continuation {
		return types.NewContinuation(jp, func() (types.Value, error) {
			atomic.AddInt32(&calls, 1)
			return "alice", nil
		})
	}

	_, _ = a.Around(compute())
	_, _ = a.Around(compute())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	time.Sleep(time.Millisecond * 30)
	_, _ = a.Around(compute())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheAspectInitSharedBackend(t *testing.T) {
	backend := cache.NewMemoryCache(time.Minute)
	config := types.NewConfig(types.WithCache(backend))

	prototype := &CacheAspect{}
	instance := prototype.New().(*CacheAspect)
	err := instance.Init(config, types.Configuration{"ttl": "1h"})
	assert.Nil(t, err)
	assert.Equal(t, "1h", instance.Config.TTL)

	jp := testJoinPoint("load_user", "app::db")
	_, _ = instance.Around(testContinuation(jp, "alice", nil))
	// the shared backend holds the entry under the qualified name
	assert.Equal(t, "alice", backend.Get("app::db::load_user"))
	instance.Destroy()
}

func TestCacheAspectInitOwnedWithPrefix(t *testing.T) {
	instance := (&CacheAspect{}).New().(*CacheAspect)
	err := instance.Init(types.NewConfig(), types.Configuration{"keyPrefix": "memo:"})
	assert.Nil(t, err)

	_, ok := instance.Cache.(*cache.NamespaceCache)
	assert.True(t, ok)

	jp := testJoinPoint("load_user", "app::db")
	var calls int32
	compute := func() *types.Continuation {
		return types.NewContinuation(jp, func() (types.Value, error) {
			atomic.AddInt32(&calls, 1)
			return "alice", nil
		})
	}
	_, _ = instance.Around(compute())
	_, _ = instance.Around(compute())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	instance.Destroy()
}
