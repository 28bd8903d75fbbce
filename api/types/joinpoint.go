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

package types

import (
	"fmt"
	"sync/atomic"
)

// Location points at the source position of an advised function.
type Location struct {
	// File is the source file path, "unknown" when the call site did not
	// supply one.
	File string `json:"file"`
	// Line is the line number, 0 when unknown.
	Line int `json:"line"`
	// Column is the column number, 0 when unknown.
	Column int `json:"column,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// JoinPoint is the per-invocation context of one advised call: which
// function is running, where it lives and where it was declared. A fresh
// JoinPoint is created at call entry and shared by pointer through every
// aspect layer of that call; it is discarded when the call returns.
//
// The advice chain of one invocation runs nested on a single goroutine, so
// the Values scratch map needs no locking. One JoinPoint must not be reused
// across invocations.
type JoinPoint struct {
	// InvocationID uniquely identifies this call, assigned by the engine.
	InvocationID string `json:"invocationId"`
	// FunctionName is the simple name of the advised function.
	FunctionName string `json:"functionName"`
	// ModulePath is the "::" separated module path containing the function.
	ModulePath string `json:"modulePath"`
	// Location is the source position of the function.
	Location Location `json:"location"`

	values map[string]interface{}
}

// NewJoinPoint creates a joinpoint context for one call.
func NewJoinPoint(functionName, modulePath string, location Location) *JoinPoint {
	return &JoinPoint{
		FunctionName: functionName,
		ModulePath:   modulePath,
		Location:     location,
	}
}

// QualifiedName returns the fully qualified function name,
// e.g. "app::service::create_user".
func (jp *JoinPoint) QualifiedName() string {
	return jp.ModulePath + "::" + jp.FunctionName
}

// SetValue stashes a scratch value on the joinpoint, visible to every
// aspect layer of the same invocation. Used e.g. by the transaction aspect
// to hand the open transaction to the wrapped function.
func (jp *JoinPoint) SetValue(key string, value interface{}) {
	if jp.values == nil {
		jp.values = make(map[string]interface{})
	}
	jp.values[key] = value
}

// GetValue reads a scratch value stashed by SetValue.
func (jp *JoinPoint) GetValue(key string) (interface{}, bool) {
	v, ok := jp.values[key]
	return v, ok
}

func (jp *JoinPoint) String() string {
	return fmt.Sprintf("%s::%s@%s:%d", jp.ModulePath, jp.FunctionName, jp.Location.File, jp.Location.Line)
}

// Continuation represents the deferred "rest of the call" handed to around
// advice: either the real computation or the next inner aspect layer. It is
// consumable exactly once. Proceeding a second time is a programming error
// and panics; Go cannot express the transfer of ownership in the type
// system, so the contract is enforced with a runtime flag. Dropping a
// continuation without proceeding silently skips the wrapped call.
type Continuation struct {
	jp       *JoinPoint
	fn       func() (Value, error)
	consumed int32
}

// NewContinuation wraps a deferred computation together with its joinpoint
// context.
func NewContinuation(jp *JoinPoint, fn func() (Value, error)) *Continuation {
	return &Continuation{jp: jp, fn: fn}
}

// JoinPoint returns the context of the call this continuation belongs to.
func (c *Continuation) JoinPoint() *JoinPoint {
	return c.jp
}

// Consumed reports whether Proceed has already been called.
func (c *Continuation) Consumed() bool {
	return atomic.LoadInt32(&c.consumed) == 1
}

// Proceed runs the deferred computation and consumes the continuation.
// It panics if called twice; the double-invocation-is-a-bug contract is
// deliberate and not a recoverable condition.
func (c *Continuation) Proceed() (Value, error) {
	if !atomic.CompareAndSwapInt32(&c.consumed, 0, 1) {
		panic("aspectgo: continuation of " + c.jp.QualifiedName() + " consumed twice")
	}
	return c.fn()
}
