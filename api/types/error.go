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
	"errors"
)

type errorKind int

const (
	kindExecution errorKind = iota
	kindWeaving
	kindCustom
)

// AspectError is the engine's error surface, a tagged union of three kinds:
//
//   - execution: the wrapped computation itself failed; carries a message
//     and an optional chained cause.
//   - weaving: the engine could not compose advice, e.g. a malformed
//     pointcut where parsing is mandatory.
//   - custom: an opaque external error adapted into the engine's type.
//
// Advice-chain errors propagate through every layer via ordinary error
// returns; no layer swallows one unless it explicitly chooses to.
type AspectError struct {
	kind    errorKind
	message string
	cause   error
}

// NewExecutionError creates an execution-kind error.
func NewExecutionError(message string) *AspectError {
	return &AspectError{kind: kindExecution, message: message}
}

// NewExecutionErrorWithCause creates an execution-kind error chaining an
// underlying cause, reachable through errors.Unwrap.
func NewExecutionErrorWithCause(message string, cause error) *AspectError {
	return &AspectError{kind: kindExecution, message: message, cause: cause}
}

// NewWeavingError creates a weaving-kind error.
func NewWeavingError(message string) *AspectError {
	return &AspectError{kind: kindWeaving, message: message}
}

// NewCustomError wraps an external error value unchanged.
func NewCustomError(err error) *AspectError {
	return &AspectError{kind: kindCustom, cause: err}
}

func (e *AspectError) Error() string {
	switch e.kind {
	case kindWeaving:
		return "Weaving error: " + e.message
	case kindCustom:
		if e.cause != nil {
			return "Custom error: " + e.cause.Error()
		}
		return "Custom error"
	default:
		return "Execution error: " + e.message
	}
}

// Message returns the bare message without the kind prefix. For custom
// errors it is the wrapped error's text.
func (e *AspectError) Message() string {
	if e.kind == kindCustom && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

// Unwrap exposes the chained cause, if any.
func (e *AspectError) Unwrap() error {
	return e.cause
}

func isKind(err error, kind errorKind) bool {
	var ae *AspectError
	if errors.As(err, &ae) {
		return ae.kind == kind
	}
	return false
}

// IsExecutionError reports whether err is (or wraps) an execution-kind
// AspectError.
func IsExecutionError(err error) bool { return isKind(err, kindExecution) }

// IsWeavingError reports whether err is (or wraps) a weaving-kind
// AspectError.
func IsWeavingError(err error) bool { return isKind(err, kindWeaving) }

// IsCustomError reports whether err is (or wraps) a custom-kind
// AspectError.
func IsCustomError(err error) bool { return isKind(err, kindCustom) }
