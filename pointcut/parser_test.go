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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspectgo/aspectgo/api/types"
)

func TestParseExecutionWildcard(t *testing.T) {
	pc, err := Parse("execution(pub fn *(..))")
	require.NoError(t, err)

	exec, ok := pc.(*ExecutionPointcut)
	require.True(t, ok)
	require.NotNil(t, exec.Pattern.Visibility)
	assert.Equal(t, VisibilityPublic, *exec.Pattern.Visibility)
	assert.Equal(t, NameWildcard, exec.Pattern.Name.Kind())
}

func TestParseExecutionNames(t *testing.T) {
	tests := []struct {
		input string
		kind  NameKind
		value string
	}{
		{"execution(fn save_user(..))", NameExact, "save_user"},
		{"execution(fn save*(..))", NamePrefix, "save"},
		{"execution(fn *_user(..))", NameSuffix, "_user"},
		{"execution(fn *save*(..))", NameContains, "save"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pc, err := Parse(tt.input)
			require.NoError(t, err)

			exec, ok := pc.(*ExecutionPointcut)
			require.True(t, ok)
			assert.Nil(t, exec.Pattern.Visibility)
			assert.Equal(t, tt.kind, exec.Pattern.Name.Kind())
			assert.Equal(t, tt.value, exec.Pattern.Name.Value())
		})
	}
}

func TestParseExecutionVisibility(t *testing.T) {
	tests := []struct {
		input      string
		visibility *Visibility
	}{
		{"execution(pub fn run(..))", visibilityPtr(VisibilityPublic)},
		{"execution(pub(crate) fn run(..))", visibilityPtr(VisibilityCrate)},
		{"execution(pub(super) fn run(..))", visibilityPtr(VisibilitySuper)},
		{"execution(fn run(..))", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pc, err := Parse(tt.input)
			require.NoError(t, err)

			exec, ok := pc.(*ExecutionPointcut)
			require.True(t, ok)
			if tt.visibility == nil {
				assert.Nil(t, exec.Pattern.Visibility)
			} else {
				require.NotNil(t, exec.Pattern.Visibility)
				assert.Equal(t, *tt.visibility, *exec.Pattern.Visibility)
			}
		})
	}
}

func visibilityPtr(v Visibility) *Visibility { return &v }

func TestParseWithin(t *testing.T) {
	pc, err := Parse("within(app::api)")
	require.NoError(t, err)

	within, ok := pc.(*WithinPointcut)
	require.True(t, ok)
	assert.Equal(t, "app::api", within.Pattern.Path)
}

func TestParseTrimsWhitespace(t *testing.T) {
	pc, err := Parse("   within( app::api )   ")
	require.NoError(t, err)

	within, ok := pc.(*WithinPointcut)
	require.True(t, ok)
	assert.Equal(t, "app::api", within.Pattern.Path)
}

func TestParseAnd(t *testing.T) {
	pc, err := Parse("execution(pub fn *(..)) && within(app::api)")
	require.NoError(t, err)

	and, ok := pc.(*AndPointcut)
	require.True(t, ok)
	_, ok = and.Left.(*ExecutionPointcut)
	assert.True(t, ok)
	_, ok = and.Right.(*WithinPointcut)
	assert.True(t, ok)
}

func TestParseOr(t *testing.T) {
	pc, err := Parse("within(app::api) || within(app::db)")
	require.NoError(t, err)

	or, ok := pc.(*OrPointcut)
	require.True(t, ok)
	_, ok = or.Left.(*WithinPointcut)
	assert.True(t, ok)
	_, ok = or.Right.(*WithinPointcut)
	assert.True(t, ok)
}

// AND binds tighter than OR: "a || b && c" is "a || (b && c)".
func TestParsePrecedence(t *testing.T) {
	pc, err := Parse("execution(fn a(..)) || execution(fn b(..)) && within(m)")
	require.NoError(t, err)

	or, ok := pc.(*OrPointcut)
	require.True(t, ok)
	_, ok = or.Left.(*ExecutionPointcut)
	assert.True(t, ok)
	and, ok := or.Right.(*AndPointcut)
	require.True(t, ok)
	_, ok = and.Left.(*ExecutionPointcut)
	assert.True(t, ok)
	_, ok = and.Right.(*WithinPointcut)
	assert.True(t, ok)
}

func TestParseGrouping(t *testing.T) {
	pc, err := Parse("(execution(fn a(..)) || within(m)) && within(n)")
	require.NoError(t, err)

	and, ok := pc.(*AndPointcut)
	require.True(t, ok)
	_, ok = and.Left.(*OrPointcut)
	assert.True(t, ok)
	_, ok = and.Right.(*WithinPointcut)
	assert.True(t, ok)
}

func TestParseOuterParens(t *testing.T) {
	pc, err := Parse("(((within(app))))")
	require.NoError(t, err)
	within, ok := pc.(*WithinPointcut)
	require.True(t, ok)
	assert.Equal(t, "app", within.Pattern.Path)

	// "(a) && (b)" keeps its groups: the outer pair does not span the
	// whole expression.
	pc, err = Parse("(within(a)) && (within(b))")
	require.NoError(t, err)
	_, ok = pc.(*AndPointcut)
	assert.True(t, ok)
}

func TestParseNot(t *testing.T) {
	pc, err := Parse("!within(app::internal)")
	require.NoError(t, err)

	not, ok := pc.(*NotPointcut)
	require.True(t, ok)
	_, ok = not.Inner.(*WithinPointcut)
	assert.True(t, ok)
}

// A leading "!" negates everything to its right: "!a && b" parses as
// !(a && b), not (!a) && b. Parenthesize to negate a single term.
func TestParseNotConsumesRemainder(t *testing.T) {
	pc, err := Parse("!within(a) && within(b)")
	require.NoError(t, err)

	not, ok := pc.(*NotPointcut)
	require.True(t, ok)
	_, ok = not.Inner.(*AndPointcut)
	assert.True(t, ok)

	// A function in module "a" fails the inner conjunction, so the
	// negation matches it.
	assert.True(t, pc.Matches(newDescriptor("run", "a", "pub")))

	// The parenthesized form negates only the first term.
	pc, err = Parse("(!within(a)) && within(b)")
	require.NoError(t, err)
	and, ok := pc.(*AndPointcut)
	require.True(t, ok)
	_, ok = and.Left.(*NotPointcut)
	assert.True(t, ok)
	assert.False(t, pc.Matches(newDescriptor("run", "a", "pub")))
	assert.True(t, pc.Matches(newDescriptor("run", "b", "pub")))
}

// The signature form with no name yields an exact match on the empty
// name, which selects nothing in practice.
func TestParseExecutionNoName(t *testing.T) {
	pc, err := Parse("execution(fn (..))")
	require.NoError(t, err)

	exec, ok := pc.(*ExecutionPointcut)
	require.True(t, ok)
	assert.Equal(t, NameExact, exec.Pattern.Name.Kind())
	assert.Equal(t, "", exec.Pattern.Name.Value())
	assert.False(t, pc.Matches(newDescriptor("run", "app", "pub")))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "Unknown pointcut type: "},
		{"foo", "Unknown pointcut type: foo"},
		{"call(fn x(..))", "Unknown pointcut type: call(fn x(..))"},
		{"within", "Unknown pointcut type: within"},
		{"execution(save_user)", "Expected 'fn' keyword"},
		{"execution()", "Expected 'fn' keyword"},
		{"execution(pubfn x(..))", "Expected 'fn' keyword"},
		{"execution(fn save_user)", "Expected function signature"},
		{"within(a) && foo", "Unknown pointcut type: foo"},
		{"foo || within(a)", "Unknown pointcut type: foo"},
		{"!foo", "Unknown pointcut type: foo"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestMustParse(t *testing.T) {
	pc := MustParse("execution(pub fn *(..))")
	assert.NotNil(t, pc)

	assert.Panics(t, func() {
		MustParse("not a pointcut")
	})
}

func TestParseStringRoundTrip(t *testing.T) {
	descriptors := []types.FunctionDescriptor{
		newDescriptor("save_user", "app::api", "pub"),
		newDescriptor("load_user", "app::db", ""),
		newDescriptor("validate", "app::internal", "pub(crate)"),
		newDescriptor("run", "other", "pub(super)"),
	}
	exprs := []string{
		"execution(pub fn *(..))",
		"execution(fn save*(..))",
		"within(app::db)",
		"execution(pub fn *(..)) && within(app::api)",
		"within(app::api) || within(app::db)",
		"!within(app::internal)",
		"(execution(fn *_user(..)) || within(other)) && !within(app::internal)",
	}
	for _, source := range exprs {
		t.Run(source, func(t *testing.T) {
			first, err := Parse(source)
			require.NoError(t, err)
			second, err := Parse(first.String())
			require.NoError(t, err)
			for _, d := range descriptors {
				assert.Equal(t, first.Matches(d), second.Matches(d), "descriptor %s", d.QualifiedName)
			}
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"!",
		"!!",
		"!!!within(a)",
		"(",
		")",
		"()",
		"(()",
		"())",
		")(",
		"!()",
		" && ",
		" || ",
		"within(a) && ",
		" || within(a)",
		"execution(",
		"execution()",
		"execution((..))",
		"execution(fn (..)",
		"within(",
		"within()",
		"within())",
		"école || within(a)",
		"execution(fn héllo(..))",
		"日本語",
		strings.Repeat("(", 100),
		strings.Repeat("(", 50) + "within(a)" + strings.Repeat(")", 50),
		strings.Repeat("!", 200) + "within(a)",
		strings.Repeat("within(a) && ", 50) + "within(b)",
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_, _ = Parse(input)
		}, "input %q", input)
	}
}

func FuzzParse(f *testing.F) {
	seeds := []string{
		"execution(pub fn *(..))",
		"execution(fn save_user(..))",
		"execution(pub(crate) fn *save*(..))",
		"within(app::api)",
		"execution(pub fn *(..)) && within(app::api)",
		"within(a) || within(b)",
		"!within(app::internal)",
		"((within(a)))",
		"execution(fn (..)",
		"!",
		"(()",
		"école && 日本語",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		// Must never panic, whatever the input. When it parses, the
		// rendered form must parse too.
		pc, err := Parse(input)
		if err != nil {
			return
		}
		if _, err := Parse(pc.String()); err != nil {
			t.Errorf("round trip of %q failed: %v", input, err)
		}
	})
}
