/*
 * Copyright 2023 The AspectGo Authors.
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
	"sync/atomic"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&ConcurrencyLimiterAspect{})
}

// ErrConcurrencyLimitReached is returned instead of proceeding when the
// number of in-flight invocations has reached Max.
var ErrConcurrencyLimitReached = types.NewExecutionError("Concurrency limit reached")

// ConcurrencyLimiterAspect caps the number of concurrent invocations of the
// matched functions using atomic operations. The continuation of a rejected
// call is dropped unconsumed, so the wrapped function never runs.
//
// ConcurrencyLimiterAspect 使用原子操作限制匹配函数的并发调用数量。
// 被拒绝调用的续延不会被消费，因此被包装的函数不会运行。
type ConcurrencyLimiterAspect struct {
	Max          int64 // Maximum number of concurrent invocations, <=0 means unlimited  最大并发调用数量，<=0 表示不限制
	currentCount int64 // Current number of concurrent invocations  当前并发调用数量
}

var _ types.AroundAdvice = (*ConcurrencyLimiterAspect)(nil)
var _ types.ConfigurableAspect = (*ConcurrencyLimiterAspect)(nil)

// NewConcurrencyLimiterAspect creates a limiter allowing at most max
// concurrent invocations.
func NewConcurrencyLimiterAspect(max int) *ConcurrencyLimiterAspect {
	return &ConcurrencyLimiterAspect{
		Max: int64(max),
	}
}

func (a *ConcurrencyLimiterAspect) Type() string {
	return "concurrencyLimiter"
}

func (a *ConcurrencyLimiterAspect) New() types.Aspect {
	return &ConcurrencyLimiterAspect{
		Max:          a.Max,
		currentCount: 0,
	}
}

func (a *ConcurrencyLimiterAspect) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, a)
}

func (a *ConcurrencyLimiterAspect) Destroy() {
}

// Around acquires a slot before proceeding and releases it afterwards.
// The check-and-increment is a CAS loop so concurrent callers cannot
// overshoot Max.
func (a *ConcurrencyLimiterAspect) Around(pjp *types.Continuation) (types.Value, error) {
	if a.Max <= 0 {
		return pjp.Proceed()
	}
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return nil, ErrConcurrencyLimitReached
		}
		// 尝试原子地增加计数器，如果成功则退出循环
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			break
		}
		// CAS失败说明有其他goroutine修改了计数器，重试
	}
	defer atomic.AddInt64(&a.currentCount, -1)
	return pjp.Proceed()
}

// incrementCurrent atomically increments the in-flight count.
// Internal helper for tests.
func (a *ConcurrencyLimiterAspect) incrementCurrent() {
	atomic.AddInt64(&a.currentCount, 1)
}

// decrementCurrent atomically decrements the in-flight count.
// Internal helper for tests.
func (a *ConcurrencyLimiterAspect) decrementCurrent() {
	atomic.AddInt64(&a.currentCount, -1)
}
