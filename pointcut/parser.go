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
	"errors"
	"fmt"
	"strings"
)

// Parse converts a pointcut expression into its tree form.
//
// The grammar is case-sensitive and whitespace-sensitive around operators;
// the operator tokens are the exact literals " && " and " || ". AND binds
// tighter than OR. A leading "!" negates everything to its right, which
// gives NOT the lowest effective precedence: "!within(a) && within(b)"
// parses as Not(And(...)). That mirrors the established behavior of the
// expression syntax and is asserted by the tests; parenthesize to negate a
// single term inside a conjunction.
//
// Parse returns a descriptive error for malformed input and never panics,
// whatever the input.
func Parse(input string) (Pointcut, error) {
	s := strings.TrimSpace(input)

	// A balanced outer parenthesis pair is grouping; strip and restart.
	if inner, ok := stripOuterParens(s); ok {
		return Parse(inner)
	}

	if strings.HasPrefix(s, "!") {
		inner, err := Parse(strings.TrimSpace(s[1:]))
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}

	// OR splits first: lowest precedence.
	if pos, ok := findOperator(s, " || "); ok {
		left, err := Parse(s[:pos])
		if err != nil {
			return nil, err
		}
		right, err := Parse(s[pos+4:])
		if err != nil {
			return nil, err
		}
		return Or(left, right), nil
	}

	if pos, ok := findOperator(s, " && "); ok {
		left, err := Parse(s[:pos])
		if err != nil {
			return nil, err
		}
		right, err := Parse(s[pos+4:])
		if err != nil {
			return nil, err
		}
		return And(left, right), nil
	}

	if strings.HasPrefix(s, "execution(") {
		return parseExecution(s)
	}
	if strings.HasPrefix(s, "within(") {
		return parseWithin(s)
	}
	return nil, fmt.Errorf("Unknown pointcut type: %s", s)
}

// MustParse is like Parse but panics on malformed input. For expressions
// known at compile time.
func MustParse(input string) Pointcut {
	pc, err := Parse(input)
	if err != nil {
		panic("pointcut: " + err.Error())
	}
	return pc
}

// stripOuterParens removes one outer parenthesis pair when it wraps the
// whole expression. "(a) && (b)" keeps its parens: the first ")" closes
// before the end, which shows up as a negative depth in the inner scan.
func stripOuterParens(s string) (string, bool) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	inner := s[1 : len(s)-1]
	depth := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", false
			}
		}
	}
	if depth != 0 {
		return "", false
	}
	return inner, true
}

// findOperator locates the first occurrence of operator at parenthesis
// depth zero, scanning byte positions left to right.
func findOperator(s, operator string) (int, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(s[i:], operator) {
				return i, true
			}
		}
	}
	return 0, false
}

// parseExecution parses `execution(pub fn save(..))`. The parameter list
// and an optional return arrow are accepted syntactically; return-type
// extraction stays unset.
func parseExecution(input string) (Pointcut, error) {
	if !strings.HasPrefix(input, "execution(") || !strings.HasSuffix(input, ")") {
		return nil, errors.New("Invalid execution syntax")
	}
	content := strings.TrimSpace(input[len("execution(") : len(input)-1])

	visibility, rest := parseVisibility(content)

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "fn ") {
		return nil, errors.New("Expected 'fn' keyword")
	}
	rest = strings.TrimSpace(rest[3:])

	parenPos := strings.IndexByte(rest, '(')
	if parenPos < 0 {
		return nil, errors.New("Expected function signature")
	}
	name := strings.TrimSpace(rest[:parenPos])

	return Execution(ExecutionPattern{
		Visibility: visibility,
		Name:       parseNamePattern(name),
	}), nil
}

// parseWithin parses `within(app::api)`: the parenthesized content, trimmed,
// is the module path verbatim.
func parseWithin(input string) (Pointcut, error) {
	if !strings.HasPrefix(input, "within(") || !strings.HasSuffix(input, ")") {
		return nil, errors.New("Invalid within syntax")
	}
	path := strings.TrimSpace(input[len("within(") : len(input)-1])
	return Within(path), nil
}

// parseVisibility reads an optional leading visibility keyword. Absence
// means "no constraint", not private.
func parseVisibility(s string) (*Visibility, string) {
	switch {
	case strings.HasPrefix(s, "pub(crate) "):
		v := VisibilityCrate
		return &v, s[len("pub(crate) "):]
	case strings.HasPrefix(s, "pub(super) "):
		v := VisibilitySuper
		return &v, s[len("pub(super) "):]
	case strings.HasPrefix(s, "pub "):
		v := VisibilityPublic
		return &v, s[len("pub "):]
	default:
		return nil, s
	}
}

// parseNamePattern classifies a raw name by its leading and trailing "*".
func parseNamePattern(name string) NamePattern {
	switch {
	case name == "*":
		return WildcardName()
	case strings.HasPrefix(name, "*") && strings.HasSuffix(name, "*") && len(name) > 2:
		return ContainsName(name[1 : len(name)-1])
	case strings.HasPrefix(name, "*"):
		return SuffixName(name[1:])
	case strings.HasSuffix(name, "*"):
		return PrefixName(name[:len(name)-1])
	default:
		return ExactName(name)
	}
}
