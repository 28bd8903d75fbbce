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

// Package js executes the JavaScript hooks of the script aspect.
//
// It wraps the goja interpreter with a pool of reusable VMs, precompiles
// the hook script and any user-defined functions once, and bounds each
// execution with the configured timeout. User functions come from the
// process-wide funcs.UdfMap overlaid with the Udf entries of types.Config;
// either may hold JavaScript source strings (compiled and loaded into
// every VM) or Go values (set directly as globals).
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/funcs"
)

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool            sync.Pool
	config            types.Config
	jsScript          *goja.Program
	udf               map[string]interface{}
	jsUdfProgramCache map[string]*goja.Program
}

// NewGojaJsEngine creates a js engine for the given hook script. fromVars
// are set as globals on every VM.
func NewGojaJsEngine(config types.Config, jsScript string, fromVars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	udf := funcs.UdfMap.GetAll()
	if udf == nil {
		udf = make(map[string]interface{})
	}
	for k, v := range config.Udf {
		udf[k] = v
	}
	jsEngine := &GojaJsEngine{
		config:   config,
		jsScript: program,
		udf:      udf,
	}
	if err = jsEngine.PreCompileJs(); err != nil {
		return nil, err
	}
	jsEngine.vmPool = sync.Pool{
		New: func() interface{} {
			return jsEngine.NewVm(config, fromVars)
		},
	}
	return jsEngine, nil
}

// PreCompileJs precompiles the JavaScript user-defined functions.
func (g *GojaJsEngine) PreCompileJs() error {
	var jsUdfProgramCache = make(map[string]*goja.Program)
	for k, v := range g.udf {
		if jsFuncStr, ok := v.(string); ok {
			if p, err := goja.Compile(k, jsFuncStr, true); err != nil {
				return err
			} else {
				jsUdfProgramCache[k] = p
			}
		}
	}
	g.jsUdfProgramCache = jsUdfProgramCache
	return nil
}

// NewVm new a js VM
func (g *GojaJsEngine) NewVm(config types.Config, fromVars map[string]interface{}) *goja.Runtime {
	vm := goja.New()

	if fromVars != nil {
		for k, v := range fromVars {
			if err := vm.Set(k, v); err != nil {
				config.Logger.Printf("set fromVar %s error: %s", k, err.Error())
			}
		}
	}

	for k, v := range g.udf {
		var err error
		if _, ok := v.(string); ok {
			if p, exists := g.jsUdfProgramCache[k]; exists {
				_, err = vm.RunProgram(p)
			}
		} else {
			// direct Go function
			err = vm.Set(k, v)
		}
		if err != nil {
			config.Logger.Printf("parse js script=%s error: %s", k, err.Error())
		}
	}

	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.jsScript)
	g.stopTimeout(timer)

	if err != nil {
		config.Logger.Printf("js vm error: %s", err.Error())
	}
	return vm
}

// Execute runs the named hook function with the given arguments.
func (g *GojaJsEngine) Execute(functionName string, argumentList ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	defer g.vmPool.Put(vm)

	var timer *time.Timer
	if g.config.ScriptMaxExecutionTime > 0 {
		timer = g.startTimeout(vm)
		defer g.stopTimeout(timer)
	}

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}

	var params []goja.Value
	if len(argumentList) > 0 {
		params = make([]goja.Value, len(argumentList))
		for i, v := range argumentList {
			params[i] = vm.ToValue(v)
		}
	}

	res, err := f(goja.Undefined(), params...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

// HasFunction reports whether the hook script defines the named function.
func (g *GojaJsEngine) HasFunction(functionName string) bool {
	vm := g.vmPool.Get().(*goja.Runtime)
	defer g.vmPool.Put(vm)
	_, ok := goja.AssertFunction(vm.Get(functionName))
	return ok
}

func (g *GojaJsEngine) Stop() {
}

// startTimeout arms an interrupt for the configured execution bound.
// Returns nil if no bound is configured.
func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

func (g *GojaJsEngine) stopTimeout(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
