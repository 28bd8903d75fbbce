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

package types

// Visibility tags carried by FunctionDescriptor. The pattern side of the
// engine (pointcut.Visibility) matches these literal values; no tag ever
// matches another class.
const (
	// VisibilityPublic marks an exported function.
	VisibilityPublic = "pub"
	// VisibilityCrate marks a function visible across its own module tree
	// only, e.g. exported from a package under internal/.
	VisibilityCrate = "pub(crate)"
	// VisibilitySuper marks a function visible to its parent module.
	VisibilitySuper = "pub(super)"
	// VisibilityPrivate marks an unexported function. The empty string is
	// deliberate: an absent tag means private.
	VisibilityPrivate = ""
)

// GenericParam describes one type parameter of a generic function.
type GenericParam struct {
	// Name is the parameter name, e.g. "T".
	Name string `json:"name"`
	// Bounds lists the constraints of the parameter, e.g. "comparable".
	Bounds []string `json:"bounds,omitempty"`
}

// FunctionDescriptor is the read-only record describing one function of the
// target program: the unit pointcuts are matched against. Descriptors are
// produced by the extract package (or built by hand at call sites) and never
// modified by the engine. QualifiedName is unique per program snapshot.
type FunctionDescriptor struct {
	// QualifiedName is the module path joined to the simple name,
	// e.g. "app::service::create_user".
	QualifiedName string `json:"qualifiedName"`
	// SimpleName is the bare function name; name patterns match against it.
	SimpleName string `json:"simpleName"`
	// ModulePath is the "::" separated module path, matched by within().
	ModulePath string `json:"modulePath"`
	// Visibility is one of the Visibility* literal tags.
	Visibility string `json:"visibility"`
	// IsAsync marks functions with asynchronous result delivery. Metadata
	// only: the engine always composes advice synchronously.
	IsAsync bool `json:"isAsync,omitempty"`
	// Generics lists the type parameters of a generic function.
	Generics []GenericParam `json:"generics,omitempty"`
	// ReturnType is the textual return signature, e.g. "(*User, error)".
	ReturnType string `json:"returnType,omitempty"`
	// Location is the declaration site.
	Location Location `json:"location"`
}

// IsPublic reports whether the function is visible outside its immediate
// module: every class except private counts.
func (d FunctionDescriptor) IsPublic() bool {
	return d.Visibility != VisibilityPrivate
}
