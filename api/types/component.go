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
	"sync"
)

// SafeAspectSlice collects aspect component prototypes, usually from init
// functions of a component package. The engine drains it into its component
// registry at startup.
type SafeAspectSlice struct {
	components []ConfigurableAspect
	sync.Mutex
}

// Add appends prototypes thread-safely.
func (p *SafeAspectSlice) Add(aspects ...ConfigurableAspect) {
	p.Lock()
	defer p.Unlock()
	p.components = append(p.components, aspects...)
}

// Components returns the collected prototypes.
func (p *SafeAspectSlice) Components() []ConfigurableAspect {
	p.Lock()
	defer p.Unlock()
	return p.components
}
