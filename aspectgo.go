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

// Package aspectgo provides a lightweight, embeddable aspect engine: register
// advice against pointcut expressions and run functions through the woven
// pipeline, without code generation or source rewriting.
//
// # Usage
//
// Create a registry, register an aspect under a pointcut, and route calls
// through it:
//
//	reg := aspectgo.New()
//	defer reg.Destroy()
//
//	err := reg.RegisterExpr(&TimingAspect{}, "execution(pub fn *(..)) && within(app::db)", 10, "timing")
//
//	descriptor := types.FunctionDescriptor{
//		QualifiedName: "app::db::save_user",
//		SimpleName:    "save_user",
//		ModulePath:    "app::db",
//		Visibility:    "pub",
//	}
//	result, err := reg.Invoke(descriptor, func() (types.Value, error) {
//		return saveUser(u)
//	})
//
// Aspects opt into lifecycle stages by implementing the advice interfaces
// from api/types: BeforeAdvice, AfterAdvice, AfterErrorAdvice or
// AroundAdvice. Around advice receives a single-use continuation:
//
//	func (a *TimingAspect) Around(pjp *types.Continuation) (types.Value, error) {
//		start := time.Now()
//		result, err := pjp.Proceed()
//		log.Printf("%s took %s", pjp.JoinPoint().FunctionName, time.Since(start))
//		return result, err
//	}
//
// Registered aspects run ordered ascending; the lowest order is the
// outermost ring around the call.
//
// Configured aspects can also be woven from a JSON plan. Plan definition
// format:
//
//	{
//	  "plan": {
//	    "id": "plan01",
//	    "name": "db hardening"
//	  },
//	  "aspects": [
//	    {
//	      "type": "log",
//	      "order": 10,
//	      "pointcut": "within(app::db)",
//	      "configuration": {
//	        "level": "debug"
//	      }
//	    },
//	    {
//	      "type": "concurrencyLimiter",
//	      "order": 20,
//	      "pointcut": "execution(pub fn *(..)) && within(app::db)",
//	      "configuration": {
//	        "max": 8
//	      }
//	    }
//	  ]
//	}
//
// Load it with:
//
//	err := aspectgo.LoadPlan(reg, []byte(planFile))
//
// Plans load atomically: either every definition registers or none does.
// The builtin aspect types from builtin/aspect are available in
// engine.Registry by default; custom ConfigurableAspect components can be
// added there under their own type names.
package aspectgo

import (
	"fmt"
	"strings"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/pointcut"
	"github.com/aspectgo/aspectgo/utils/fs"
)

// Aliases for the names nearly every caller touches, so simple embedders
// only import this package and api/types.
type (
	Aspect       = types.Aspect
	JoinPoint    = types.JoinPoint
	Continuation = types.Continuation
	Value        = types.Value
)

// New creates an aspect registry with default config values, modified by the
// provided options. Every registry is an owned instance; there is no
// package-level default.
func New(opts ...types.Option) *engine.AspectRegistry {
	return engine.New(types.NewConfig(opts...))
}

// LoadPlan parses the JSON weave plan and registers its aspect definitions
// on the registry. Loading is atomic; on error the registry is unchanged.
func LoadPlan(registry *engine.AspectRegistry, dsl []byte) error {
	return engine.LoadPlan(registry, dsl)
}

// LoadPlans loads every weave-plan JSON file under folderPath, including
// subfolders. folderPath may name a directory, carry a *.json pattern, or
// be empty for the working directory. Each file loads atomically; loading
// stops at the first failing file and plans loaded before it stay
// registered.
func LoadPlans(registry *engine.AspectRegistry, folderPath string) error {
	if !strings.HasSuffix(folderPath, "*.json") && !strings.HasSuffix(folderPath, "*.JSON") {
		if strings.HasSuffix(folderPath, "/") || strings.HasSuffix(folderPath, "\\") {
			folderPath = folderPath + "*.json"
		} else if folderPath == "" {
			folderPath = "./*.json"
		} else {
			folderPath = folderPath + "/*.json"
		}
	}
	paths, err := fs.GetFilePaths(folderPath)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if b := fs.LoadFile(path); b != nil {
			if err = engine.LoadPlan(registry, b); err != nil {
				return fmt.Errorf("load plan %s: %w", path, err)
			}
		}
	}
	return nil
}

// ParsePointcut parses a pointcut expression.
func ParsePointcut(expr string) (pointcut.Pointcut, error) {
	return pointcut.Parse(expr)
}

// MustParsePointcut parses a pointcut expression and panics on invalid
// input. For expressions known at compile time.
func MustParsePointcut(expr string) pointcut.Pointcut {
	return pointcut.MustParse(expr)
}
