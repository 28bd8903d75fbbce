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

// Package types defines the shared contracts of the AspectGo weaving engine:
// the aspect and advice interfaces, the joinpoint and continuation model,
// function descriptors, the engine configuration and the error surface.
//
// Package types 定义 AspectGo 织入引擎的公共契约：
// 切面和通知接口、连接点和续延模型、函数描述符、引擎配置以及错误类型。
package types

import (
	"time"
)

// Configuration holds the raw, untyped settings of one aspect component,
// usually decoded from a weave-plan document. Components turn it into their
// typed config struct via utils/maps.Map2Struct during Init.
type Configuration map[string]interface{}

// Aspect is the base contract every unit of cross-cutting behavior
// implements. The advice hooks themselves are optional capabilities: an
// aspect declares the ones it needs by additionally implementing
// BeforeAdvice, AfterAdvice, AfterErrorAdvice or AroundAdvice. The engine
// inspects the capability set at weave time.
type Aspect interface {
	// Type returns the component type of the aspect, e.g. "log" or
	// "circuitBreaker". Used as the lookup key in the component registry
	// and as the default display name in events.
	Type() string
}

// BeforeAdvice runs before the wrapped computation.
type BeforeAdvice interface {
	Aspect
	// Before is invoked with the joinpoint context prior to the call.
	// It cannot veto the call; use AroundAdvice for that.
	Before(jp *JoinPoint)
}

// AfterAdvice runs after the wrapped computation completed successfully.
type AfterAdvice interface {
	Aspect
	// After receives the joinpoint context and the (possibly replaced)
	// result value. Invoked only on success.
	After(jp *JoinPoint, result Value)
}

// AfterErrorAdvice runs after the wrapped computation failed.
type AfterErrorAdvice interface {
	Aspect
	// AfterError receives the joinpoint context and the error.
	// Invoked only on failure.
	AfterError(jp *JoinPoint, err error)
}

// AroundAdvice takes full control of the wrapped computation. The aspect
// decides whether, and when, to consume the continuation; dropping it
// unconsumed silently skips the wrapped call. An aspect implementing
// AroundAdvice does not receive automatic Before/After/AfterError dispatch;
// it must call its own hooks if it wants them.
//
// Aspects without AroundAdvice get the default composition synthesized by
// the engine: Before, proceed, then After or AfterError depending on the
// outcome, with the result returned unchanged.
type AroundAdvice interface {
	Aspect
	Around(pjp *Continuation) (Value, error)
}

// ConfigurableAspect is implemented by aspects that can be instantiated
// from a declarative weave plan. The lifecycle mirrors component nodes:
// the registry holds one prototype per Type, New produces a fresh instance
// and Init applies the raw Configuration to it.
type ConfigurableAspect interface {
	Aspect
	// New creates a new instance of the component, leaving the prototype
	// untouched.
	New() Aspect
	// Init applies the engine config and the component configuration.
	// Called once, before the aspect is registered.
	Init(config Config, configuration Configuration) error
	// Destroy releases resources held by the instance, e.g. pooled
	// connections. Safe to call on a never-initialized instance.
	Destroy()
}

// AdvicePhase labels the lifecycle stage an AdviceEvent was emitted at.
type AdvicePhase string

const (
	// PhaseStart marks the entry of an advised invocation, before any
	// aspect has run.
	PhaseStart AdvicePhase = "start"
	// PhaseEnd marks the completion of an advised invocation, after all
	// aspects have unwound.
	PhaseEnd AdvicePhase = "end"
	// PhaseAspectEnter marks the entry into one aspect layer.
	PhaseAspectEnter AdvicePhase = "aspectEnter"
	// PhaseAspectExit marks the exit out of one aspect layer.
	PhaseAspectExit AdvicePhase = "aspectExit"
)

// AdviceEvent describes one observable step of an advised invocation.
// Events are emitted through Config.OnAdviceEvent and consumed by the
// websocket endpoint, the audit aspect and tests.
type AdviceEvent struct {
	// InvocationID is the uuid assigned to the advised call.
	InvocationID string `json:"invocationId"`
	// Phase is the lifecycle stage, see the Phase* constants.
	Phase AdvicePhase `json:"phase"`
	// AspectName is the registration name of the aspect layer, empty for
	// invocation-level events.
	AspectName string `json:"aspectName,omitempty"`
	// AspectType is the component type of the aspect layer.
	AspectType string `json:"aspectType,omitempty"`
	// Function is the simple name of the advised function.
	Function string `json:"function"`
	// Module is the module path of the advised function.
	Module string `json:"module"`
	// Timestamp is the emission time.
	Timestamp time.Time `json:"timestamp"`
	// Err carries the error text of a failed layer or invocation.
	Err string `json:"error,omitempty"`
}
