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

// Package metrics provides lock-free counters for advised invocations.
package metrics

import (
	"sync/atomic"
)

// InvocationMetrics counts advised invocations flowing through one
// registry. All fields are updated atomically and safe for concurrent use.
type InvocationMetrics struct {
	// Current is the number of invocations executing right now.
	Current int64 `json:"current"`
	// Total is the number of invocations started since the last reset.
	Total int64 `json:"total"`
	// Failed is the number of invocations that returned an error.
	Failed int64 `json:"failed"`
	// Success is the number of invocations that completed without error.
	Success int64 `json:"success"`
}

// NewInvocationMetrics creates a zeroed metrics instance.
func NewInvocationMetrics() *InvocationMetrics {
	return &InvocationMetrics{}
}

// IncrementCurrent increases the count of in-flight invocations.
func (m *InvocationMetrics) IncrementCurrent() {
	atomic.AddInt64(&m.Current, 1)
}

// DecrementCurrent decreases the count of in-flight invocations.
func (m *InvocationMetrics) DecrementCurrent() {
	atomic.AddInt64(&m.Current, -1)
}

// IncrementTotal increases the total invocation count.
func (m *InvocationMetrics) IncrementTotal() {
	atomic.AddInt64(&m.Total, 1)
}

// IncrementFailed increases the failed invocation count.
func (m *InvocationMetrics) IncrementFailed() {
	atomic.AddInt64(&m.Failed, 1)
}

// IncrementSuccess increases the successful invocation count.
func (m *InvocationMetrics) IncrementSuccess() {
	atomic.AddInt64(&m.Success, 1)
}

// Get returns a consistent copy of the counters.
func (m *InvocationMetrics) Get() InvocationMetrics {
	return InvocationMetrics{
		Current: atomic.LoadInt64(&m.Current),
		Total:   atomic.LoadInt64(&m.Total),
		Failed:  atomic.LoadInt64(&m.Failed),
		Success: atomic.LoadInt64(&m.Success),
	}
}

// Reset zeroes all counters.
func (m *InvocationMetrics) Reset() {
	atomic.StoreInt64(&m.Current, 0)
	atomic.StoreInt64(&m.Total, 0)
	atomic.StoreInt64(&m.Failed, 0)
	atomic.StoreInt64(&m.Success, 0)
}
