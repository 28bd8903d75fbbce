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

// Package funcs holds user-defined functions shared by every script VM.
// Embedders register Go helpers or JavaScript sources here once, process
// wide; per-registry functions belong in types.Config.Udf, which overrides
// entries of the same name.
package funcs

import (
	"sync"
)

// UdfMap 全局Js用户函数
var UdfMap FuncMap

// FuncMap is a thread-safe name-to-function registry. Values may be Go
// functions, exposed to scripts directly, or JavaScript source strings,
// compiled into every VM.
type FuncMap struct {
	v map[string]interface{}
	sync.RWMutex
}

// Register adds one function under the given name, replacing any previous
// entry.
func (x *FuncMap) Register(name string, value interface{}) {
	x.Lock()
	defer x.Unlock()
	if x.v == nil {
		x.v = make(map[string]interface{})
	}
	x.v[name] = value
}

// RegisterAll adds all entries of values.
func (x *FuncMap) RegisterAll(values map[string]interface{}) {
	x.Lock()
	defer x.Unlock()
	if x.v == nil {
		x.v = make(map[string]interface{})
	}
	for k, v := range values {
		x.v[k] = v
	}
}

// UnRegister removes the named function.
func (x *FuncMap) UnRegister(name string) {
	x.Lock()
	defer x.Unlock()
	if x.v != nil {
		delete(x.v, name)
	}
}

// Get returns the named function.
func (x *FuncMap) Get(name string) (interface{}, bool) {
	x.RLock()
	defer x.RUnlock()
	if x.v != nil {
		f, ok := x.v[name]
		return f, ok
	}
	return nil, false
}

// GetAll returns a copy of all registered functions.
func (x *FuncMap) GetAll() map[string]interface{} {
	x.RLock()
	defer x.RUnlock()
	if x.v == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(x.v))
	for k, v := range x.v {
		cp[k] = v
	}
	return cp
}

// Names returns the registered function names.
func (x *FuncMap) Names() []string {
	x.RLock()
	defer x.RUnlock()
	var keys = make([]string, 0, len(x.v))
	for k := range x.v {
		keys = append(keys, k)
	}
	return keys
}
