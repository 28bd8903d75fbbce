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

// Package runtime renders goroutine stack traces for recover handlers.
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// Stack returns the file:line frames of the calling goroutine, skipping
// the frames of Stack itself and the recover handler invoking it.
func Stack() string {
	var pc = make([]uintptr, 20)
	n := runtime.Callers(3, pc)

	var build strings.Builder
	for i := 0; i < n; i++ {
		f := runtime.FuncForPC(pc[i] - 1)
		if f == nil {
			continue
		}
		file, line := f.FileLine(pc[i] - 1)
		build.WriteString(fmt.Sprintf(" %s:%d \n", file, line))
	}
	return build.String()
}
