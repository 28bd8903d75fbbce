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

// Package el renders ${} expression templates in aspect configurations.
// Placeholders are expr-lang expressions evaluated against per-invocation
// variables, so "entering ${module}::${function}" and "${function + '!'}"
// both work. Templates compile once and are safe for concurrent Execute.
package el

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aspectgo/aspectgo/utils/str"
)

// Template is a compiled configuration value.
type Template interface {
	// Execute renders the template against the variables.
	Execute(data map[string]interface{}) (interface{}, error)
	// HasVar reports whether the template references any variable.
	HasVar() bool
}

// NewTemplate compiles a configuration value. Strings consisting of a
// single ${...} placeholder evaluate to the expression result itself;
// strings mixing literals and placeholders render to a string; strings
// without placeholders and non-string values pass through untouched.
func NewTemplate(tmpl interface{}) (Template, error) {
	v, ok := tmpl.(string)
	if !ok {
		return &AnyTemplate{Tmpl: tmpl}, nil
	}
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") &&
		strings.Count(trimmed, "${") == 1 {
		return NewExprTemplate(trimmed[2 : len(trimmed)-1])
	}
	if str.CheckHasVar(v) {
		return NewMixedTemplate(v)
	}
	return &NotTemplate{Tmpl: v}, nil
}

// ExprTemplate evaluates one expression and yields its raw result, so a
// template like ${invocationId} keeps the value's type.
type ExprTemplate struct {
	Tmpl    string
	program *vm.Program
}

// NewExprTemplate compiles the expression. Unknown variables evaluate to
// nil instead of failing, matching how plan configurations tolerate
// variables an invocation does not carry.
func NewExprTemplate(expression string) (*ExprTemplate, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid template expression %q: %w", expression, err)
	}
	return &ExprTemplate{Tmpl: expression, program: program}, nil
}

func (t *ExprTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	machine := vm.VM{}
	return machine.Run(t.program, data)
}

func (t *ExprTemplate) HasVar() bool {
	return true
}

// MixedTemplate interleaves literal text with ${} placeholders and renders
// to a string.
type MixedTemplate struct {
	Tmpl     string
	segments []segment
}

type segment struct {
	literal string
	program *vm.Program
}

// NewMixedTemplate compiles every placeholder in order. Repeated
// placeholders compile once each, so "${a}-${a}" renders both.
func NewMixedTemplate(tmpl string) (*MixedTemplate, error) {
	t := &MixedTemplate{Tmpl: tmpl}
	rest := tmpl
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			break
		}
		expression := rest[start+2 : start+end]
		program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("invalid template expression %q: %w", expression, err)
		}
		t.segments = append(t.segments, segment{literal: rest[:start], program: program})
		rest = rest[start+end+1:]
	}
	t.segments = append(t.segments, segment{literal: rest})
	return t, nil
}

func (t *MixedTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	if !t.HasVar() {
		return t.Tmpl, nil
	}
	var sb strings.Builder
	machine := vm.VM{}
	for _, seg := range t.segments {
		sb.WriteString(seg.literal)
		if seg.program == nil {
			continue
		}
		value, err := machine.Run(seg.program, data)
		if err != nil {
			return nil, err
		}
		sb.WriteString(str.ToString(value))
	}
	return sb.String(), nil
}

func (t *MixedTemplate) HasVar() bool {
	return len(t.segments) > 1
}

// NotTemplate passes a placeholder-free string through.
type NotTemplate struct {
	Tmpl string
}

func (t *NotTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	return t.Tmpl, nil
}

func (t *NotTemplate) HasVar() bool {
	return false
}

// AnyTemplate passes a non-string configuration value through.
type AnyTemplate struct {
	Tmpl interface{}
}

func (t *AnyTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	return t.Tmpl, nil
}

func (t *AnyTemplate) HasVar() bool {
	return false
}
