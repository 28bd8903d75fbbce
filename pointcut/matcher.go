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

// Matcher evaluation. Pure and recursive: no state, no side effects, safe
// for concurrent use on shared trees.

func (p *ExecutionPointcut) Matches(d types.FunctionDescriptor) bool {
	return p.Pattern.Matches(d)
}

func (p *WithinPointcut) Matches(d types.FunctionDescriptor) bool {
	return p.Pattern.MatchesPath(d.ModulePath)
}

func (p *AndPointcut) Matches(d types.FunctionDescriptor) bool {
	return p.Left.Matches(d) && p.Right.Matches(d)
}

func (p *OrPointcut) Matches(d types.FunctionDescriptor) bool {
	return p.Left.Matches(d) || p.Right.Matches(d)
}

func (p *NotPointcut) Matches(d types.FunctionDescriptor) bool {
	return !p.Inner.Matches(d)
}
