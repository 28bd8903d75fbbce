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

package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aspectgo/aspectgo/api/types"
	builtinaspect "github.com/aspectgo/aspectgo/builtin/aspect"
)

func TestLoadPlan(t *testing.T) {
	dsl := []byte(`{
	  "plan": {"id": "demo", "name": "demo plan"},
	  "aspects": [
	    {
	      "type": "log",
	      "name": "entryLog",
	      "order": 10,
	      "pointcut": "execution(pub fn *(..))",
	      "configuration": {"level": "debug"}
	    },
	    {
	      "type": "concurrencyLimiter",
	      "order": 20,
	      "pointcut": "within(app::db)",
	      "configuration": {"max": 3}
	    }
	  ]
	}`)

	r := New(types.NewConfig())
	err := r.LoadPlan(dsl)
	assert.Nil(t, err)
	assert.Equal(t, 2, r.Count())

	infos := r.List()
	assert.Equal(t, "entryLog", infos[0].Name)
	assert.Equal(t, "log", infos[0].Type)
	assert.Equal(t, 10, infos[0].Order)
	// unnamed bindings fall back to the component type
	assert.Equal(t, "concurrencyLimiter", infos[1].Name)
	assert.Equal(t, "within(app::db)", infos[1].Pointcut)

	// configuration reached the instantiated aspect
	matching := r.FindMatching(makeDescriptor("save_user", "app::db", "pub"))
	assert.Equal(t, 2, len(matching))
	limiter, ok := matching[1].Aspect.(*builtinaspect.ConcurrencyLimiterAspect)
	assert.True(t, ok)
	assert.Equal(t, int64(3), limiter.Max)
}

func TestLoadPlanDecodesDurations(t *testing.T) {
	dsl := []byte(`{
	  "aspects": [
	    {
	      "type": "metrics",
	      "order": 10,
	      "pointcut": "execution(fn *(..))",
	      "configuration": {"slowThreshold": "500ms"}
	    }
	  ]
	}`)

	r := New(types.NewConfig())
	assert.Nil(t, r.LoadPlan(dsl))

	matching := r.FindMatching(makeDescriptor("save_user", "app::db", "pub"))
	assert.Equal(t, 1, len(matching))
	m, ok := matching[0].Aspect.(*builtinaspect.MetricsAspect)
	assert.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, m.Config.SlowThreshold)
}

func TestLoadPlanInstantiatesFreshAspects(t *testing.T) {
	dsl := []byte(`{
	  "aspects": [
	    {"type": "log", "order": 10, "pointcut": "execution(fn *(..))"}
	  ]
	}`)

	r := New(types.NewConfig())
	assert.Nil(t, r.LoadPlan(dsl))
	assert.Nil(t, r.LoadPlan(dsl))
	assert.Equal(t, 2, r.Count())

	infos := r.List()
	assert.NotSame(t, r.FindMatching(makeDescriptor("f", "m", ""))[0].Aspect,
		r.FindMatching(makeDescriptor("f", "m", ""))[1].Aspect)
	assert.Equal(t, infos[0].Type, infos[1].Type)
}

func TestLoadPlanMissingType(t *testing.T) {
	dsl := []byte(`{"aspects": [{"order": 10, "pointcut": "execution(fn *(..))"}]}`)
	r := New(types.NewConfig())
	err := r.LoadPlan(dsl)
	assert.NotNil(t, err)
	assert.True(t, types.IsWeavingError(err))
	assert.Contains(t, err.Error(), "aspect definition missing type")
	assert.Equal(t, 0, r.Count())
}

func TestLoadPlanUnknownType(t *testing.T) {
	dsl := []byte(`{"aspects": [{"type": "nope", "pointcut": "execution(fn *(..))"}]}`)
	r := New(types.NewConfig())
	err := r.LoadPlan(dsl)
	assert.NotNil(t, err)
	assert.True(t, types.IsWeavingError(err))
	assert.Contains(t, err.Error(), "component not found. aspectType=nope")
	assert.Equal(t, 0, r.Count())
}

func TestLoadPlanBadPointcut(t *testing.T) {
	dsl := []byte(`{"aspects": [{"type": "log", "pointcut": "garbage("}]}`)
	r := New(types.NewConfig())
	err := r.LoadPlan(dsl)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "invalid pointcut. expression=garbage(")
	assert.Equal(t, 0, r.Count())
}

func TestLoadPlanBadConfiguration(t *testing.T) {
	dsl := []byte(`{
	  "aspects": [
	    {
	      "type": "log",
	      "pointcut": "execution(fn *(..))",
	      "configuration": {"level": "nope"}
	    }
	  ]
	}`)
	r := New(types.NewConfig())
	err := r.LoadPlan(dsl)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "aspect init failed. aspectType=log")
	assert.Equal(t, 0, r.Count())
}

func TestLoadPlanInvalidJson(t *testing.T) {
	r := New(types.NewConfig())
	err := r.LoadPlan([]byte("not json"))
	assert.NotNil(t, err)
	assert.True(t, types.IsWeavingError(err))
	assert.Contains(t, err.Error(), "invalid weave plan")
	assert.Equal(t, 0, r.Count())
}

// planTracker is a test component whose instances share a destroy counter
// with the prototype, making teardown observable across LoadPlan.
type planTracker struct {
	destroyed *int32
}

func (a *planTracker) Type() string { return "planTracker" }
func (a *planTracker) New() types.Aspect {
	return &planTracker{destroyed: a.destroyed}
}
func (a *planTracker) Init(config types.Config, configuration types.Configuration) error {
	return nil
}
func (a *planTracker) Destroy() {
	atomic.AddInt32(a.destroyed, 1)
}
func (a *planTracker) Before(jp *types.JoinPoint) {}

func TestLoadPlanIsAtomic(t *testing.T) {
	var destroyed int32
	assert.Nil(t, Registry.Register(&planTracker{destroyed: &destroyed}))
	defer func() {
		assert.Nil(t, Registry.Unregister("planTracker"))
	}()

	dsl := []byte(`{
	  "aspects": [
	    {"type": "planTracker", "order": 10, "pointcut": "execution(fn *(..))"},
	    {"type": "nope", "order": 20, "pointcut": "execution(fn *(..))"}
	  ]
	}`)

	r := New(types.NewConfig())
	err := r.LoadPlan(dsl)
	assert.NotNil(t, err)
	// nothing registered, and the already-initialized tracker was torn down
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, int32(1), atomic.LoadInt32(&destroyed))
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan([]byte(`{
	  "plan": {"id": "p1", "name": "demo", "description": "desc"},
	  "aspects": [{"type": "log", "order": 5, "pointcut": "within(app)"}]
	}`))
	assert.Nil(t, err)
	assert.Equal(t, "p1", plan.Plan.ID)
	assert.Equal(t, "demo", plan.Plan.Name)
	assert.Equal(t, "desc", plan.Plan.Description)
	assert.Equal(t, 1, len(plan.Aspects))
	assert.Equal(t, "log", plan.Aspects[0].Type)
	assert.Equal(t, 5, plan.Aspects[0].Order)
}

func TestComponentRegistry(t *testing.T) {
	// the builtin components arrive through init
	registeredTypes := Registry.Types()
	for _, aspectType := range []string{
		"audit", "auth", "cache", "circuitBreaker", "concurrencyLimiter",
		"log", "metrics", "rateLimiter", "script", "transaction",
	} {
		assert.Contains(t, registeredTypes, aspectType)
	}

	// duplicate registration is rejected
	err := Registry.Register(&builtinaspect.LogAspect{})
	assert.NotNil(t, err)
	assert.Equal(t, "the component already exists. aspectType=log", err.Error())

	// instances are fresh, prototypes untouched
	first, err := Registry.NewAspect("log")
	assert.Nil(t, err)
	second, err := Registry.NewAspect("log")
	assert.Nil(t, err)
	assert.NotSame(t, first, second)

	_, err = Registry.NewAspect("nope")
	assert.NotNil(t, err)

	err = Registry.Unregister("nope")
	assert.NotNil(t, err)

	components := Registry.GetComponents()
	assert.Contains(t, components, "log")
	// mutating the copy leaves the registry untouched
	delete(components, "log")
	_, err = Registry.NewAspect("log")
	assert.Nil(t, err)
}
