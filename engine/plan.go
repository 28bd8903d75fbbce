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
	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/pointcut"
	"github.com/aspectgo/aspectgo/utils/json"
)

// ParsePlan decodes a weave-plan JSON document.
func ParsePlan(dsl []byte) (types.WeavePlan, error) {
	var plan types.WeavePlan
	if err := json.Unmarshal(dsl, &plan); err != nil {
		return plan, types.NewWeavingError("invalid weave plan: " + err.Error())
	}
	return plan, nil
}

// LoadPlan instantiates every aspect of a weave-plan document through the
// default component registry and registers it with the aspect registry.
// The plan is applied atomically: nothing is registered until every aspect
// instantiated, initialized and its pointcut parsed; on failure the
// already-initialized instances are destroyed again. All failures are
// weaving errors.
func LoadPlan(registry *AspectRegistry, dsl []byte) error {
	plan, err := ParsePlan(dsl)
	if err != nil {
		return err
	}

	type binding struct {
		aspect types.ConfigurableAspect
		pc     pointcut.Pointcut
		def    types.AspectDef
	}
	var bindings []binding

	destroyAll := func() {
		for _, b := range bindings {
			b.aspect.Destroy()
		}
	}

	for _, def := range plan.Aspects {
		if def.Type == "" {
			destroyAll()
			return types.NewWeavingError("aspect definition missing type")
		}
		instance, err := Registry.NewAspect(def.Type)
		if err != nil {
			destroyAll()
			return types.NewWeavingError(err.Error())
		}
		configurable, ok := instance.(types.ConfigurableAspect)
		if !ok {
			destroyAll()
			return types.NewWeavingError("component is not configurable. aspectType=" + def.Type)
		}
		if err := configurable.Init(registry.Config, def.Configuration); err != nil {
			destroyAll()
			return types.NewWeavingError("aspect init failed. aspectType=" + def.Type + ": " + err.Error())
		}
		pc, err := pointcut.Parse(def.Pointcut)
		if err != nil {
			configurable.Destroy()
			destroyAll()
			return types.NewWeavingError("invalid pointcut. expression=" + def.Pointcut + ": " + err.Error())
		}
		bindings = append(bindings, binding{aspect: configurable, pc: pc, def: def})
	}

	for _, b := range bindings {
		registry.Register(b.aspect, b.pc, b.def.Order, b.def.Name)
	}
	return nil
}

// LoadPlan applies a weave-plan document to this registry.
func (r *AspectRegistry) LoadPlan(dsl []byte) error {
	return LoadPlan(r, dsl)
}
