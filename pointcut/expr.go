/*
 * Copyright 2025 The AspectGo Authors.
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

package pointcut

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aspectgo/aspectgo/api/types"
)

// ExprPointcut selects functions with a compiled expr-lang predicate over
// the descriptor fields instead of the pointcut grammar. It is constructed
// through the API only and composes freely with parsed pointcuts via
// And/Or/Not.
//
// The expression environment:
//
//	name          simple function name
//	qualifiedName module path + "::" + name
//	module        module path
//	visibility    literal visibility tag
//	isPublic      any visibility except private
//	isAsync       async flag
//	returnType    textual return signature
//
// Example: `hasPrefix(name, "save") && module startsWith "app::db"`.
type ExprPointcut struct {
	source  string
	program *vm.Program
}

// NewExprPointcut compiles the predicate. The expression must evaluate to
// a boolean; unknown variables evaluate to nil rather than failing the
// compile.
func NewExprPointcut(expression string) (*ExprPointcut, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &ExprPointcut{source: expression, program: program}, nil
}

// Matches evaluates the predicate against the descriptor. Evaluation
// errors count as no match: matching must be total.
func (p *ExprPointcut) Matches(d types.FunctionDescriptor) bool {
	env := map[string]interface{}{
		"name":          d.SimpleName,
		"qualifiedName": d.QualifiedName,
		"module":        d.ModulePath,
		"visibility":    d.Visibility,
		"isPublic":      d.IsPublic(),
		"isAsync":       d.IsAsync,
		"returnType":    d.ReturnType,
	}
	out, err := vm.Run(p.program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

func (p *ExprPointcut) String() string {
	return "expr(" + p.source + ")"
}
