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

// Package engine implements the weaving core: the aspect registry that
// binds aspects to pointcuts, composes the advice chain around advised
// calls, and loads declarative weave plans through the component registry.
//
// Package engine 实现织入核心：切面注册表将切面绑定到切入点，
// 围绕被增强的调用组合通知链，并通过组件注册表加载声明式织入计划。
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/api/types/metrics"
	"github.com/aspectgo/aspectgo/pointcut"
)

// RegisteredAspect binds one aspect to a pointcut under a priority order.
// Lower order means outer layer: entered first, exited last. The binding is
// immutable after registration.
type RegisteredAspect struct {
	// Aspect is the advice implementation.
	Aspect types.Aspect
	// Pointcut selects the functions this aspect applies to.
	Pointcut pointcut.Pointcut
	// Order is the priority; lower runs as the outer layer. Ties keep
	// registration order.
	Order int
	// Name is the display name, defaulting to the aspect type.
	Name string
}

// RegistrationInfo is the read-only introspection view of one registration,
// served by the rest endpoint.
type RegistrationInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Order    int    `json:"order"`
	Pointcut string `json:"pointcut"`
}

// AspectRegistry owns the aspect bindings of one engine instance and
// composes the advice chain per advised call. There is no process-global
// registry: callers create instances with New and share them explicitly.
//
// Locking: Register and Clear take the write lock; the invocation path
// takes read locks only and composes the chain on a snapshot, so aspects
// may register concurrently with running invocations.
type AspectRegistry struct {
	// Config holds the engine-wide settings shared with every aspect.
	Config  types.Config
	aspects []*RegisteredAspect
	metrics *metrics.InvocationMetrics
	sync.RWMutex
}

// New creates an empty aspect registry with the given configuration.
func New(config types.Config) *AspectRegistry {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	return &AspectRegistry{
		Config:  config,
		metrics: metrics.NewInvocationMetrics(),
	}
}

// Register binds an aspect to a pointcut under the given order. The
// registration list is kept sorted ascending by order; registrations with
// equal order keep their registration sequence. An empty name defaults to
// the aspect type.
func (r *AspectRegistry) Register(aspect types.Aspect, pc pointcut.Pointcut, order int, name string) {
	if name == "" {
		name = aspect.Type()
	}
	r.Lock()
	defer r.Unlock()
	r.aspects = append(r.aspects, &RegisteredAspect{
		Aspect:   aspect,
		Pointcut: pc,
		Order:    order,
		Name:     name,
	})
	sort.SliceStable(r.aspects, func(i, j int) bool {
		return r.aspects[i].Order < r.aspects[j].Order
	})
}

// RegisterExpr parses a pointcut expression and registers the aspect under
// it. A malformed expression is a weaving error.
func (r *AspectRegistry) RegisterExpr(aspect types.Aspect, expression string, order int, name string) error {
	pc, err := pointcut.Parse(expression)
	if err != nil {
		return types.NewWeavingError(err.Error())
	}
	r.Register(aspect, pc, order, name)
	return nil
}

// FindMatching returns the registrations whose pointcuts match the
// descriptor, in ascending order. The returned slice is a snapshot owned
// by the caller.
func (r *AspectRegistry) FindMatching(d types.FunctionDescriptor) []*RegisteredAspect {
	r.RLock()
	defer r.RUnlock()
	var matching []*RegisteredAspect
	for _, ra := range r.aspects {
		if ra.Pointcut != nil && ra.Pointcut.Matches(d) {
			matching = append(matching, ra)
		}
	}
	return matching
}

// Apply runs fn advised by every registered aspect matching the
// descriptor. With no matching aspect, fn runs directly with no further
// overhead. Otherwise the matches are folded in reverse so that the lowest
// order ends up as the outermost layer, and that outermost continuation is
// consumed exactly once.
//
// The joinpoint is shared by pointer through every layer of this call. An
// empty InvocationID is filled in. Invocation metrics and advice events
// cover advised calls only.
func (r *AspectRegistry) Apply(d types.FunctionDescriptor, jp *types.JoinPoint, fn func() (types.Value, error)) (types.Value, error) {
	matching := r.FindMatching(d)
	if len(matching) == 0 {
		return fn()
	}
	if jp == nil {
		jp = newJoinPoint(d)
	}
	if jp.InvocationID == "" {
		jp.InvocationID = newInvocationID()
	}

	r.metrics.IncrementCurrent()
	r.metrics.IncrementTotal()
	defer r.metrics.DecrementCurrent()

	r.emit(types.PhaseStart, jp, "", "", nil)

	// Wrap back to front: the last (highest order, innermost) aspect wraps
	// fn first, each earlier aspect wraps the result, and the first (lowest
	// order) aspect ends up outermost.
	current := fn
	for i := len(matching) - 1; i >= 0; i-- {
		ra := matching[i]
		inner := current
		current = func() (types.Value, error) {
			return r.invokeAspect(ra, jp, inner)
		}
	}
	result, err := current()

	if err != nil {
		r.metrics.IncrementFailed()
	} else {
		r.metrics.IncrementSuccess()
	}
	r.emit(types.PhaseEnd, jp, "", "", err)
	return result, err
}

// Invoke builds a fresh joinpoint for the descriptor, assigns an
// invocation id and applies the advice chain to fn. The usual entry point
// at call boundaries.
func (r *AspectRegistry) Invoke(d types.FunctionDescriptor, fn func() (types.Value, error)) (types.Value, error) {
	jp := newJoinPoint(d)
	jp.InvocationID = newInvocationID()
	return r.Apply(d, jp, fn)
}

// invokeAspect runs one aspect layer: hands the inner continuation to the
// aspect's around advice, synthesizing the default composition for aspects
// without one.
func (r *AspectRegistry) invokeAspect(ra *RegisteredAspect, jp *types.JoinPoint, inner func() (types.Value, error)) (types.Value, error) {
	r.emit(types.PhaseAspectEnter, jp, ra.Name, ra.Aspect.Type(), nil)

	c := types.NewContinuation(jp, inner)
	var result types.Value
	var err error
	if around, ok := ra.Aspect.(types.AroundAdvice); ok {
		result, err = around.Around(c)
	} else {
		result, err = invokeDefault(ra.Aspect, c)
	}

	r.emit(types.PhaseAspectExit, jp, ra.Name, ra.Aspect.Type(), err)
	return result, err
}

// invokeDefault is the composition synthesized for aspects without around
// advice: before, proceed, then after or after-error depending on the
// outcome. The result passes through unchanged.
func invokeDefault(a types.Aspect, c *types.Continuation) (types.Value, error) {
	jp := c.JoinPoint()
	if before, ok := a.(types.BeforeAdvice); ok {
		before.Before(jp)
	}
	result, err := c.Proceed()
	if err != nil {
		if afterError, ok := a.(types.AfterErrorAdvice); ok {
			afterError.AfterError(jp, err)
		}
		return result, err
	}
	if after, ok := a.(types.AfterAdvice); ok {
		after.After(jp, result)
	}
	return result, nil
}

// Count returns the number of registrations.
func (r *AspectRegistry) Count() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.aspects)
}

// Clear drops every registration without destroying the aspects. Meant for
// tests; use Destroy for shutdown.
func (r *AspectRegistry) Clear() {
	r.Lock()
	defer r.Unlock()
	r.aspects = nil
}

// Destroy releases every registered configurable aspect and clears the
// registry.
func (r *AspectRegistry) Destroy() {
	r.Lock()
	aspects := r.aspects
	r.aspects = nil
	r.Unlock()
	for _, ra := range aspects {
		if configurable, ok := ra.Aspect.(types.ConfigurableAspect); ok {
			configurable.Destroy()
		}
	}
}

// List returns the introspection view of all registrations, ascending by
// order.
func (r *AspectRegistry) List() []RegistrationInfo {
	r.RLock()
	defer r.RUnlock()
	infos := make([]RegistrationInfo, 0, len(r.aspects))
	for _, ra := range r.aspects {
		info := RegistrationInfo{
			Name:  ra.Name,
			Type:  ra.Aspect.Type(),
			Order: ra.Order,
		}
		if ra.Pointcut != nil {
			info.Pointcut = ra.Pointcut.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// Metrics returns a consistent snapshot of the invocation counters.
func (r *AspectRegistry) Metrics() metrics.InvocationMetrics {
	return r.metrics.Get()
}

func (r *AspectRegistry) emit(phase types.AdvicePhase, jp *types.JoinPoint, aspectName, aspectType string, err error) {
	handler := r.Config.OnAdviceEvent
	if handler == nil {
		return
	}
	event := types.AdviceEvent{
		InvocationID: jp.InvocationID,
		Phase:        phase,
		AspectName:   aspectName,
		AspectType:   aspectType,
		Function:     jp.FunctionName,
		Module:       jp.ModulePath,
		Timestamp:    time.Now(),
	}
	if err != nil {
		event.Err = err.Error()
	}
	handler(event)
}

// newJoinPoint builds the invocation context from a descriptor, defaulting
// an absent source location to "unknown".
func newJoinPoint(d types.FunctionDescriptor) *types.JoinPoint {
	location := d.Location
	if location.File == "" {
		location.File = "unknown"
	}
	return types.NewJoinPoint(d.SimpleName, d.ModulePath, location)
}

func newInvocationID() string {
	uuId, _ := uuid.NewV4()
	return uuId.String()
}
