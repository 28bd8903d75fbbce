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

// Package pointcut implements the pointcut expression engine: the pattern
// primitives, the immutable expression tree, the recursive-descent parser
// and the structural matcher evaluating expressions against function
// descriptors.
//
// Package pointcut 实现切入点表达式引擎：模式原语、不可变表达式树、
// 递归下降解析器，以及针对函数描述符求值的结构匹配器。
//
// Expression syntax:
//
//	execution(pub fn *(..))                     all public functions
//	execution(fn save_user(..))                 one function by name
//	within(app::api)                            a module and its submodules
//	execution(fn save*(..)) && within(app::db)  boolean composition
//	!within(app::internal)                      negation
package pointcut

import (
	"strings"

	"github.com/aspectgo/aspectgo/api/types"
)

// Visibility is the pattern-side visibility class. Each class matches
// exactly one literal descriptor tag; no class ever matches another's tag.
type Visibility int

const (
	// VisibilityPublic matches the "pub" tag.
	VisibilityPublic Visibility = iota
	// VisibilityCrate matches the "pub(crate)" tag.
	VisibilityCrate
	// VisibilitySuper matches the "pub(super)" tag.
	VisibilitySuper
	// VisibilityPrivate matches the empty tag.
	VisibilityPrivate
)

// Tag returns the literal descriptor tag of the class.
func (v Visibility) Tag() string {
	switch v {
	case VisibilityPublic:
		return types.VisibilityPublic
	case VisibilityCrate:
		return types.VisibilityCrate
	case VisibilitySuper:
		return types.VisibilitySuper
	default:
		return types.VisibilityPrivate
	}
}

// Matches reports whether the descriptor tag satisfies this class.
func (v Visibility) Matches(tag string) bool {
	return v.Tag() == tag
}

func (v Visibility) String() string {
	if v == VisibilityPrivate {
		return "private"
	}
	return v.Tag()
}

// NameKind discriminates the NamePattern variants.
type NameKind int

const (
	// NameWildcard matches any name: `*`.
	NameWildcard NameKind = iota
	// NameExact matches by equality: `save_user`.
	NameExact
	// NamePrefix matches a leading fragment: `save*`.
	NamePrefix
	// NameSuffix matches a trailing fragment: `*_user`.
	NameSuffix
	// NameContains matches a substring: `*save*`.
	NameContains
)

// NamePattern is the name-matching rule of an execution pattern. Built once
// by the parser or a constructor and immutable afterwards. No case folding,
// no escaping.
type NamePattern struct {
	kind  NameKind
	value string
}

// WildcardName matches every function name.
func WildcardName() NamePattern { return NamePattern{kind: NameWildcard} }

// ExactName matches name by equality.
func ExactName(name string) NamePattern { return NamePattern{kind: NameExact, value: name} }

// PrefixName matches names starting with prefix.
func PrefixName(prefix string) NamePattern { return NamePattern{kind: NamePrefix, value: prefix} }

// SuffixName matches names ending with suffix.
func SuffixName(suffix string) NamePattern { return NamePattern{kind: NameSuffix, value: suffix} }

// ContainsName matches names containing substring.
func ContainsName(substring string) NamePattern {
	return NamePattern{kind: NameContains, value: substring}
}

// Kind returns the pattern variant.
func (p NamePattern) Kind() NameKind { return p.kind }

// Value returns the string payload, empty for wildcard.
func (p NamePattern) Value() string { return p.value }

// Matches reports whether a function name satisfies the pattern.
func (p NamePattern) Matches(name string) bool {
	switch p.kind {
	case NameWildcard:
		return true
	case NameExact:
		return name == p.value
	case NamePrefix:
		return strings.HasPrefix(name, p.value)
	case NameSuffix:
		return strings.HasSuffix(name, p.value)
	case NameContains:
		return strings.Contains(name, p.value)
	default:
		return false
	}
}

func (p NamePattern) String() string {
	switch p.kind {
	case NameWildcard:
		return "*"
	case NamePrefix:
		return p.value + "*"
	case NameSuffix:
		return "*" + p.value
	case NameContains:
		return "*" + p.value + "*"
	default:
		return p.value
	}
}

// ModulePattern selects functions by module path: an exact match or any
// path extending it below a "::" boundary, so "a::b" covers "a::b::c" but
// never "a::bc".
type ModulePattern struct {
	// Path is the module path to match, e.g. "app::api".
	Path string
}

// NewModulePattern creates a module pattern.
func NewModulePattern(path string) ModulePattern {
	return ModulePattern{Path: path}
}

// MatchesPath reports whether modulePath equals the pattern path or lives
// underneath it.
func (p ModulePattern) MatchesPath(modulePath string) bool {
	return modulePath == p.Path || strings.HasPrefix(modulePath, p.Path+"::")
}

func (p ModulePattern) String() string { return p.Path }

// ExecutionPattern is the full function-signature rule of an execution
// pointcut: an optional visibility class, a name pattern and an optional
// return-type fragment. The parser never sets the return type (the arrow
// tail is accepted but reserved); API construction can.
type ExecutionPattern struct {
	// Visibility constrains the descriptor tag when non-nil; nil means
	// any visibility, not private.
	Visibility *Visibility
	// Name is the name rule, matched against the simple name.
	Name NamePattern
	// ReturnType, when non-empty, must occur as a substring of the
	// descriptor's return-type signature.
	ReturnType string
}

// NewExecutionPattern creates a pattern matching by name only.
func NewExecutionPattern(name NamePattern) ExecutionPattern {
	return ExecutionPattern{Name: name}
}

// AnyFunction matches every function.
func AnyFunction() ExecutionPattern {
	return ExecutionPattern{Name: WildcardName()}
}

// PublicFunction matches every public function.
func PublicFunction() ExecutionPattern {
	v := VisibilityPublic
	return ExecutionPattern{Visibility: &v, Name: WildcardName()}
}

// NamedFunction matches one function by exact name.
func NamedFunction(name string) ExecutionPattern {
	return ExecutionPattern{Name: ExactName(name)}
}

// WithVisibility returns a copy of the pattern constrained to a visibility
// class.
func (p ExecutionPattern) WithVisibility(v Visibility) ExecutionPattern {
	p.Visibility = &v
	return p
}

// WithReturnType returns a copy of the pattern constrained to a return-type
// fragment.
func (p ExecutionPattern) WithReturnType(returnType string) ExecutionPattern {
	p.ReturnType = returnType
	return p
}

// Matches reports whether a descriptor satisfies visibility, name and
// return-type constraints.
func (p ExecutionPattern) Matches(d types.FunctionDescriptor) bool {
	if p.Visibility != nil && !p.Visibility.Matches(d.Visibility) {
		return false
	}
	if !p.Name.Matches(d.SimpleName) {
		return false
	}
	if p.ReturnType != "" {
		if d.ReturnType == "" || !strings.Contains(d.ReturnType, p.ReturnType) {
			return false
		}
	}
	return true
}

func (p ExecutionPattern) String() string {
	var b strings.Builder
	if p.Visibility != nil && *p.Visibility != VisibilityPrivate {
		b.WriteString(p.Visibility.Tag())
		b.WriteByte(' ')
	}
	b.WriteString("fn ")
	b.WriteString(p.Name.String())
	b.WriteString("(..)")
	if p.ReturnType != "" {
		b.WriteString(" -> ")
		b.WriteString(p.ReturnType)
	}
	return b.String()
}
