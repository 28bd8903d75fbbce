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

package pointcut

import (
	"github.com/aspectgo/aspectgo/api/types"
)

// Pointcut is one node of the boolean expression tree selecting functions.
// Trees are pure data: built by the parser or the combinator constructors,
// immutable afterwards, cheap to share between registrations.
type Pointcut interface {
	// Matches evaluates the subtree against one function descriptor.
	Matches(d types.FunctionDescriptor) bool
	// String renders the subtree in expression syntax. Compound nodes
	// parenthesize themselves, so the output parses back to an equivalent
	// tree.
	String() string
}

// ExecutionPointcut matches function signatures: `execution(pub fn save(..))`.
type ExecutionPointcut struct {
	Pattern ExecutionPattern
}

// WithinPointcut matches functions by enclosing module: `within(app::api)`.
type WithinPointcut struct {
	Pattern ModulePattern
}

// AndPointcut matches when both operands match.
type AndPointcut struct {
	Left, Right Pointcut
}

// OrPointcut matches when either operand matches.
type OrPointcut struct {
	Left, Right Pointcut
}

// NotPointcut inverts its operand.
type NotPointcut struct {
	Inner Pointcut
}

// Execution wraps an execution pattern into a pointcut node.
func Execution(pattern ExecutionPattern) *ExecutionPointcut {
	return &ExecutionPointcut{Pattern: pattern}
}

// Within creates a module pointcut for path.
func Within(path string) *WithinPointcut {
	return &WithinPointcut{Pattern: NewModulePattern(path)}
}

// And combines two pointcuts conjunctively.
func And(left, right Pointcut) *AndPointcut {
	return &AndPointcut{Left: left, Right: right}
}

// Or combines two pointcuts disjunctively.
func Or(left, right Pointcut) *OrPointcut {
	return &OrPointcut{Left: left, Right: right}
}

// Not inverts a pointcut.
func Not(inner Pointcut) *NotPointcut {
	return &NotPointcut{Inner: inner}
}

// PublicFunctions selects all public functions, equivalent to parsing
// "execution(pub fn *(..))".
func PublicFunctions() Pointcut {
	return Execution(PublicFunction())
}

// AllFunctions selects every function regardless of visibility.
func AllFunctions() Pointcut {
	return Execution(AnyFunction())
}

// WithinModule selects every function under a module path.
func WithinModule(path string) Pointcut {
	return Within(path)
}

func (p *ExecutionPointcut) String() string {
	return "execution(" + p.Pattern.String() + ")"
}

func (p *WithinPointcut) String() string {
	return "within(" + p.Pattern.String() + ")"
}

func (p *AndPointcut) String() string {
	return "(" + p.Left.String() + " && " + p.Right.String() + ")"
}

func (p *OrPointcut) String() string {
	return "(" + p.Left.String() + " || " + p.Right.String() + ")"
}

func (p *NotPointcut) String() string {
	return "!" + p.Inner.String()
}
