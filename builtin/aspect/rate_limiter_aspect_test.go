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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aspectgo/aspectgo/api/types"
)

func TestRateLimiterAspect(t *testing.T) {
	base := time.Unix(1700000000, 0)
	current := base
	a := NewRateLimiterAspect(2, 1)
	a.now = func() time.Time { return current }
	assert.Equal(t, "rateLimiter", a.Type())
	jp := testJoinPoint("save_user", "app::db")

	// burst of two allowed, third rejected without proceeding
	_, err := a.Around(testContinuation(jp, nil, nil))
	assert.Nil(t, err)
	_, err = a.Around(testContinuation(jp, nil, nil))
	assert.Nil(t, err)

	var calls int32
	_, err = a.Around(types.NewContinuation(jp, func() (types.Value, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}))
	assert.Equal(t, ErrRateLimitExceeded, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	// one second refills one token
	current = base.Add(time.Second)
	_, err = a.Around(testContinuation(jp, nil, nil))
	assert.Nil(t, err)
	_, err = a.Around(testContinuation(jp, nil, nil))
	assert.Equal(t, ErrRateLimitExceeded, err)

	// refill is capped at capacity
	current = base.Add(time.Minute)
	_, err = a.Around(testContinuation(jp, nil, nil))
	assert.Nil(t, err)
	_, err = a.Around(testContinuation(jp, nil, nil))
	assert.Nil(t, err)
	_, err = a.Around(testContinuation(jp, nil, nil))
	assert.Equal(t, ErrRateLimitExceeded, err)
}

func TestRateLimiterAspectPerFunction(t *testing.T) {
	base := time.Unix(1700000000, 0)
	a := NewRateLimiterAspect(1, 1)
	a.Config.PerFunction = true
	a.now = func() time.Time { return base }

	jpSave := testJoinPoint("save_user", "app::db")
	jpLoad := testJoinPoint("load_user", "app::db")

	_, err := a.Around(testContinuation(jpSave, nil, nil))
	assert.Nil(t, err)
	_, err = a.Around(testContinuation(jpSave, nil, nil))
	assert.Equal(t, ErrRateLimitExceeded, err)

	// a different function has its own bucket
	_, err = a.Around(testContinuation(jpLoad, nil, nil))
	assert.Nil(t, err)
}

func TestRateLimiterAspectDisabled(t *testing.T) {
	a := NewRateLimiterAspect(0, 0)
	jp := testJoinPoint("save_user", "app::db")
	for i := 0; i < 10; i++ {
		_, err := a.Around(testContinuation(jp, nil, nil))
		assert.Nil(t, err)
	}
}

func TestRateLimiterAspectInit(t *testing.T) {
	prototype := &RateLimiterAspect{}
	instance := prototype.New().(*RateLimiterAspect)
	err := instance.Init(types.NewConfig(), types.Configuration{
		"capacity":    float64(5),
		"refillRate":  0.5,
		"perFunction": true,
	})
	assert.Nil(t, err)
	assert.Equal(t, float64(5), instance.Config.Capacity)
	assert.Equal(t, 0.5, instance.Config.RefillRate)
	assert.True(t, instance.Config.PerFunction)
	instance.Destroy()
}
