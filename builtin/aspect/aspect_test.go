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

package aspect

import (
	"github.com/aspectgo/aspectgo/api/types"
)

// helpers shared by the aspect tests

func testJoinPoint(function, module string) *types.JoinPoint {
	jp := types.NewJoinPoint(function, module, types.Location{File: "service.go", Line: 42})
	jp.InvocationID = "inv-1"
	return jp
}

func testContinuation(jp *types.JoinPoint, result types.Value, err error) *types.Continuation {
	return types.NewContinuation(jp, func() (types.Value, error) {
		return result, err
	})
}
