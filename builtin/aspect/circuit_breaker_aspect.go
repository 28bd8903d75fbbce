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
	Registry.Add(&CircuitBreakerAspect{})
}

// ErrCircuitBreakerOpen is returned instead of proceeding while a
// function's breaker is open.
var ErrCircuitBreakerOpen = types.NewExecutionError("Circuit breaker open")

// CircuitBreakerAspectConfig holds the weave-plan settings of the circuit
// breaker.
type CircuitBreakerAspectConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker. Default 5.
	FailureThreshold int64
	// ResetTimeout is how long an open breaker rejects calls before
	// letting a probe through. Default 30 seconds.
	ResetTimeout time.Duration
	// SuccessThreshold is the number of half-open successes required to
	// close the breaker again. Default 1.
	SuccessThreshold int64
}

// CircuitBreakerAspect trips per function after repeated failures and
// recovers over time, preventing cascade failures.
//
// CircuitBreakerAspect 在函数重复失败后按函数熔断，并随时间恢复，防止级联故障。
//
// State machine per qualified function name:
// 每个限定函数名的状态机：
//  1. Closed: calls pass through, consecutive failures are counted
//     Closed：调用正常通过，统计连续失败次数
//  2. Open: calls are rejected with ErrCircuitBreakerOpen until
//     ResetTimeout elapses
//     Open：调用被拒绝，直到 ResetTimeout 过期
//  3. HalfOpen: probe calls pass through; SuccessThreshold successes close
//     the breaker, any failure reopens it
//     HalfOpen：探测调用通过；达到 SuccessThreshold 次成功后关闭，任何失败重新打开
type CircuitBreakerAspect struct {
	Config CircuitBreakerAspectConfig

	mu       sync.Mutex
	breakers map[string]*functionBreaker
	now      func() time.Time
}

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "halfOpen"
	default:
		return "closed"
	}
}

type functionBreaker struct {
	state     breakerState
	failures  int64
	successes int64
	openUntil time.Time
}

func (b *functionBreaker) trip(until time.Time) {
	b.state = stateOpen
	b.openUntil = until
	b.failures = 0
	b.successes = 0
}

var _ types.AroundAdvice = (*CircuitBreakerAspect)(nil)
var _ types.ConfigurableAspect = (*CircuitBreakerAspect)(nil)

// NewCircuitBreakerAspect creates a breaker with the given consecutive
// failure threshold and open duration.
func NewCircuitBreakerAspect(failureThreshold int64, resetTimeout time.Duration) *CircuitBreakerAspect {
	return &CircuitBreakerAspect{
		Config: CircuitBreakerAspectConfig{
			FailureThreshold: failureThreshold,
			ResetTimeout:     resetTimeout,
		},
		breakers: make(map[string]*functionBreaker),
	}
}

func (a *CircuitBreakerAspect) Type() string {
	return "circuitBreaker"
}

func (a *CircuitBreakerAspect) New() types.Aspect {
	return &CircuitBreakerAspect{
		Config:   a.Config,
		breakers: make(map[string]*functionBreaker),
	}
}

func (a *CircuitBreakerAspect) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &a.Config)
}

func (a *CircuitBreakerAspect) Destroy() {
}

func (a *CircuitBreakerAspect) Around(pjp *types.Continuation) (types.Value, error) {
	name := pjp.JoinPoint().QualifiedName()
	if !a.allowRequest(name) {
		return nil, ErrCircuitBreakerOpen
	}
	result, err := pjp.Proceed()
	a.record(name, err == nil)
	return result, err
}

// StateFor returns the breaker state of one qualified function name as
// "closed", "open" or "halfOpen".
func (a *CircuitBreakerAspect) StateFor(name string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.breakers[name]
	if !ok {
		return stateClosed.String()
	}
	return b.state.String()
}

func (a *CircuitBreakerAspect) allowRequest(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.breaker(name)
	if b.state == stateOpen {
		if a.timeNow().After(b.openUntil) {
			// 超时已过，进入半开状态放行探测调用
			b.state = stateHalfOpen
			b.successes = 0
			return true
		}
		return false
	}
	return true
}

func (a *CircuitBreakerAspect) record(name string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.breaker(name)
	switch b.state {
	case stateClosed:
		if success {
			b.failures = 0
		} else {
			b.failures++
			if b.failures >= a.failureThreshold() {
				b.trip(a.timeNow().Add(a.resetTimeout()))
			}
		}
	case stateHalfOpen:
		if success {
			b.successes++
			if b.successes >= a.successThreshold() {
				b.state = stateClosed
				b.failures = 0
			}
		} else {
			b.trip(a.timeNow().Add(a.resetTimeout()))
		}
	case stateOpen:
		// call admitted just before the breaker tripped, nothing to record
	}
}

func (a *CircuitBreakerAspect) breaker(name string) *functionBreaker {
	if a.breakers == nil {
		a.breakers = make(map[string]*functionBreaker)
	}
	b, ok := a.breakers[name]
	if !ok {
		b = &functionBreaker{}
		a.breakers[name] = b
	}
	return b
}

func (a *CircuitBreakerAspect) failureThreshold() int64 {
	if a.Config.FailureThreshold <= 0 {
		return 5
	}
	return a.Config.FailureThreshold
}

func (a *CircuitBreakerAspect) resetTimeout() time.Duration {
	if a.Config.ResetTimeout <= 0 {
		return time.Second * 30
	}
	return a.Config.ResetTimeout
}

func (a *CircuitBreakerAspect) successThreshold() int64 {
	if a.Config.SuccessThreshold <= 0 {
		return 1
	}
	return a.Config.SuccessThreshold
}

func (a *CircuitBreakerAspect) timeNow() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}
