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

import (
	"fmt"
	"reflect"
)

// Value is the type-erased result flowing through the advice chain. The
// call boundary knows the concrete return type; only the engine's waist is
// untyped. An aspect that replaces the result must supply the same concrete
// type it received, or the unwrap at the boundary fails loudly.
type Value = interface{}

// MustValue unwraps a Value to its concrete type. It panics with the
// expected and actual types on mismatch; a silent wrong-type result would
// hide an aspect bug, so the failure is deliberately loud.
func MustValue[T any](v Value) T {
	t, ok := v.(T)
	if !ok {
		want := reflect.TypeOf((*T)(nil)).Elem()
		panic(fmt.Sprintf("aspectgo: value type mismatch: have %T, want %s", v, want))
	}
	return t
}

// ValueAs unwraps a Value to its concrete type, reporting success instead
// of panicking.
func ValueAs[T any](v Value) (T, bool) {
	t, ok := v.(T)
	return t, ok
}
