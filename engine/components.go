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

package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	builtinaspect "github.com/aspectgo/aspectgo/builtin/aspect"

	"github.com/aspectgo/aspectgo/api/types"
)

// Registry is the default registry for aspect components.
var Registry = new(AspectComponentRegistry)

// init registers the builtin aspect components to the default component
// registry.
func init() {
	for _, component := range builtinaspect.Registry.Components() {
		_ = Registry.Register(component)
	}
}

// AspectComponentRegistry maps component types to aspect prototypes so
// weave plans can instantiate aspects by type name.
type AspectComponentRegistry struct {
	components map[string]types.ConfigurableAspect
	sync.RWMutex
}

// Register adds an aspect component prototype to the registry.
func (r *AspectComponentRegistry) Register(component types.ConfigurableAspect) error {
	r.Lock()
	defer r.Unlock()
	if r.components == nil {
		r.components = make(map[string]types.ConfigurableAspect)
	}
	if _, ok := r.components[component.Type()]; ok {
		return errors.New("the component already exists. aspectType=" + component.Type())
	}
	r.components[component.Type()] = component
	return nil
}

// Unregister removes a component from the registry by its type.
func (r *AspectComponentRegistry) Unregister(aspectType string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.components[aspectType]; !ok {
		return fmt.Errorf("component not found. aspectType=%s", aspectType)
	}
	delete(r.components, aspectType)
	return nil
}

// NewAspect creates a new instance of an aspect component by its type,
// leaving the prototype untouched.
func (r *AspectComponentRegistry) NewAspect(aspectType string) (types.Aspect, error) {
	r.RLock()
	defer r.RUnlock()
	if component, ok := r.components[aspectType]; !ok {
		return nil, fmt.Errorf("component not found. aspectType=%s", aspectType)
	} else {
		return component.New(), nil
	}
}

// GetComponents returns a copy of the registered prototypes keyed by type.
func (r *AspectComponentRegistry) GetComponents() map[string]types.ConfigurableAspect {
	r.RLock()
	defer r.RUnlock()
	var components = map[string]types.ConfigurableAspect{}
	for k, v := range r.components {
		components[k] = v
	}
	return components
}

// Types returns the registered component types in lexical order.
func (r *AspectComponentRegistry) Types() []string {
	r.RLock()
	defer r.RUnlock()
	var values []string
	for k := range r.components {
		values = append(values, k)
	}
	sort.Strings(values)
	return values
}
