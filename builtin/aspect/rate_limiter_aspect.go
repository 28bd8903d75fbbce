/*
 * Copyright 2024 The AspectGo Authors.
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
	"sync"
	"time"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&RateLimiterAspect{})
}

// ErrRateLimitExceeded is returned instead of proceeding when the token
// bucket is empty.
var ErrRateLimitExceeded = types.NewExecutionError("Rate limit exceeded")

// RateLimiterAspectConfig holds the weave-plan settings of the rate
// limiter.
type RateLimiterAspectConfig struct {
	// Capacity is the bucket size, i.e. the maximum burst. <=0 disables
	// the limiter.
	Capacity float64
	// RefillRate is the number of tokens added per second.
	RefillRate float64
	// PerFunction gives every qualified function name its own bucket
	// instead of one shared bucket.
	PerFunction bool
}

// RateLimiterAspect throttles matched invocations with a token bucket.
// Each invocation consumes one token; tokens refill continuously at
// RefillRate per second up to Capacity. The continuation of a rejected
// call is dropped unconsumed.
//
// RateLimiterAspect 使用令牌桶对匹配的调用进行限流。
// 每次调用消耗一个令牌；令牌以每秒 RefillRate 的速度持续补充，最多到 Capacity。
type RateLimiterAspect struct {
	Config RateLimiterAspectConfig

	mu      sync.Mutex
	buckets map[string]*tokenBucket
	now     func() time.Time
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

var _ types.AroundAdvice = (*RateLimiterAspect)(nil)
var _ types.ConfigurableAspect = (*RateLimiterAspect)(nil)

// NewRateLimiterAspect creates a shared-bucket limiter with the given
// burst capacity and per-second refill rate.
func NewRateLimiterAspect(capacity, refillRate float64) *RateLimiterAspect {
	return &RateLimiterAspect{
		Config: RateLimiterAspectConfig{
			Capacity:   capacity,
			RefillRate: refillRate,
		},
		buckets: make(map[string]*tokenBucket),
	}
}

func (a *RateLimiterAspect) Type() string {
	return "rateLimiter"
}

func (a *RateLimiterAspect) New() types.Aspect {
	return &RateLimiterAspect{
		Config:  a.Config,
		buckets: make(map[string]*tokenBucket),
	}
}

func (a *RateLimiterAspect) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &a.Config)
}

func (a *RateLimiterAspect) Destroy() {
}

func (a *RateLimiterAspect) Around(pjp *types.Continuation) (types.Value, error) {
	if a.Config.Capacity <= 0 {
		return pjp.Proceed()
	}
	key := ""
	if a.Config.PerFunction {
		key = pjp.JoinPoint().QualifiedName()
	}
	if !a.allow(key) {
		return nil, ErrRateLimitExceeded
	}
	return pjp.Proceed()
}

func (a *RateLimiterAspect) allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.timeNow()
	if a.buckets == nil {
		a.buckets = make(map[string]*tokenBucket)
	}
	b, ok := a.buckets[key]
	if !ok {
		// a fresh bucket starts full
		b = &tokenBucket{tokens: a.Config.Capacity, last: now}
		a.buckets[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * a.Config.RefillRate
		if b.tokens > a.Config.Capacity {
			b.tokens = a.Config.Capacity
		}
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (a *RateLimiterAspect) timeNow() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}
