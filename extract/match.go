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

package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/str"
)

// This is the looser expression matcher for tooling call sites. It is kept
// deliberately separate from the pointcut package: it accepts a third
// name(...) primitive, tokenizes execution patterns by whitespace instead
// of parsing them, and swallows invalid expressions as "no match" instead
// of failing. Do not fold the two together; registry pointcuts and tooling
// match expressions have different contracts.

// Binding ties an aspect type name to a match expression, the tooling-side
// mirror of a registry registration.
type Binding struct {
	//切面类型名
	Aspect string
	//匹配表达式
	Expr string
	//优先级，越大越先返回
	Priority int
}

// MatchExpr reports whether the descriptor matches the expression.
// Supported forms: execution(...), within(...), name(...), combined with
// !, && and || where && binds first. Invalid expressions match nothing.
func MatchExpr(expr string, d types.FunctionDescriptor) bool {
	parsed, err := parseMatchExpr(expr)
	if err != nil {
		return false
	}
	return parsed.matches(d)
}

// SelectBindings returns the bindings whose expression matches the
// descriptor, highest priority first. Ties keep binding order.
func SelectBindings(bindings []Binding, d types.FunctionDescriptor) []Binding {
	var matched []Binding
	for _, b := range bindings {
		if MatchExpr(b.Expr, d) {
			matched = append(matched, b)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
	return matched
}

type matchNode interface {
	matches(d types.FunctionDescriptor) bool
}

type execNode struct{ pattern string }
type withinNode struct{ path string }
type nameNode struct{ pattern string }
type andNode struct{ left, right matchNode }
type orNode struct{ left, right matchNode }
type notNode struct{ inner matchNode }

func parseMatchExpr(input string) (matchNode, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty match expression")
	}

	if strings.HasPrefix(input, "!") {
		inner, err := parseMatchExpr(input[1:])
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}

	// && binds tighter than ||: split on the first top-level && so the
	// whole right side, including any ||, becomes the right operand
	if pos := findOperator(input, "&&"); pos >= 0 {
		return parseBinary(input, pos, true)
	}
	if pos := findOperator(input, "||"); pos >= 0 {
		return parseBinary(input, pos, false)
	}

	if strings.HasPrefix(input, "(") && strings.HasSuffix(input, ")") {
		return parseMatchExpr(input[1 : len(input)-1])
	}

	switch {
	case strings.HasPrefix(input, "execution("):
		pattern, err := patternArg(input, "execution")
		if err != nil {
			return nil, err
		}
		return execNode{pattern: pattern}, nil
	case strings.HasPrefix(input, "within("):
		pattern, err := patternArg(input, "within")
		if err != nil {
			return nil, err
		}
		return withinNode{path: pattern}, nil
	case strings.HasPrefix(input, "name("):
		pattern, err := patternArg(input, "name")
		if err != nil {
			return nil, err
		}
		return nameNode{pattern: pattern}, nil
	}
	return nil, fmt.Errorf("unknown match pattern: %s", input)
}

func parseBinary(input string, pos int, and bool) (matchNode, error) {
	left, err := parseMatchExpr(input[:pos])
	if err != nil {
		return nil, err
	}
	right, err := parseMatchExpr(input[pos+2:])
	if err != nil {
		return nil, err
	}
	if and {
		return andNode{left: left, right: right}, nil
	}
	return orNode{left: left, right: right}, nil
}

// findOperator returns the first occurrence of operator outside
// parentheses, -1 if absent.
func findOperator(input, operator string) int {
	depth := 0
	for i := 0; i+len(operator) <= len(input); i++ {
		switch input[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(input[i:], operator) {
				return i
			}
		}
	}
	return -1
}

// patternArg pulls the argument out of prefix(...) syntax and trims one
// level of quotes, so name("fetch_*") and name(fetch_*) are equivalent.
func patternArg(input, prefix string) (string, error) {
	start := strings.Index(input, "(")
	end := strings.LastIndex(input, ")")
	if start < 0 || end < 0 || start+1 >= end {
		return "", fmt.Errorf("invalid %s pattern", prefix)
	}
	return str.TrimQuotes(strings.TrimSpace(input[start+1 : end])), nil
}

// matches tokenizes the pattern by whitespace: a pub token requires any
// public visibility, a fn token must be present, and the first token that
// looks like a name (contains a paren or ends with *) is matched against
// the function name with the (..) suffix stripped.
func (n execNode) matches(d types.FunctionDescriptor) bool {
	parts := strings.Fields(n.pattern)

	hasFn := false
	hasPub := false
	for _, part := range parts {
		if part == "fn" {
			hasFn = true
		}
		if part == "pub" {
			hasPub = true
		}
	}
	if hasPub && d.Visibility == "" {
		return false
	}
	if !hasFn {
		return false
	}
	for _, part := range parts {
		if strings.Contains(part, "(") || strings.HasSuffix(part, "*") {
			return matchesNamePattern(d, strings.TrimSuffix(part, "(..)"))
		}
	}
	return true
}

func (n withinNode) matches(d types.FunctionDescriptor) bool {
	return d.ModulePath == n.path || strings.HasPrefix(d.ModulePath, n.path+"::")
}

func (n nameNode) matches(d types.FunctionDescriptor) bool {
	return matchesNamePattern(d, n.pattern)
}

func (n andNode) matches(d types.FunctionDescriptor) bool {
	return n.left.matches(d) && n.right.matches(d)
}

func (n orNode) matches(d types.FunctionDescriptor) bool {
	return n.left.matches(d) || n.right.matches(d)
}

func (n notNode) matches(d types.FunctionDescriptor) bool {
	return !n.inner.matches(d)
}

// matchesNamePattern supports a trailing-star prefix form: "fetch_*"
// matches a simple name starting with fetch_ or any path segment starting
// with fetch_. Exact patterns match the simple name or the qualified-name
// tail.
func matchesNamePattern(d types.FunctionDescriptor, pattern string) bool {
	if pattern == "*" {
		return true
	}
	simple := d.SimpleName
	if simple == "" {
		simple = d.QualifiedName
		if i := strings.LastIndex(simple, "::"); i >= 0 {
			simple = simple[i+2:]
		}
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(simple, prefix) ||
			strings.Contains(d.QualifiedName, "::"+prefix)
	}
	return simple == pattern || strings.HasSuffix(d.QualifiedName, "::"+pattern)
}
