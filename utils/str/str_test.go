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

package str

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSprintfDict(t *testing.T) {
	dict := map[string]string{
		"function": "save_user",
		"module":   "app::db",
	}
	assert.Equal(t, "entering app::db::save_user", SprintfDict("entering ${module}::${function}", dict))
	assert.Equal(t, "entering ${unknown}", SprintfDict("entering ${unknown}", dict))
	assert.Equal(t, "no placeholders", SprintfDict("no placeholders", dict))
	assert.Equal(t, "save_user", SprintfDict("${ function }", dict))
}

func TestCheckHasVar(t *testing.T) {
	assert.True(t, CheckHasVar("entering ${function}"))
	assert.False(t, CheckHasVar("entering function"))
	assert.False(t, CheckHasVar("entering ${function"))
}

func TestRandomStr(t *testing.T) {
	s1 := RandomStr(16)
	s2 := RandomStr(16)
	assert.Equal(t, 16, len(s1))
	assert.Equal(t, 16, len(s2))
	assert.NotEqual(t, s1, s2)
	assert.Equal(t, "", RandomStr(0))
}

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "save", TrimQuotes(`"save"`))
	assert.Equal(t, "save", TrimQuotes(`'save'`))
	assert.Equal(t, `"save`, TrimQuotes(`"save`))
	assert.Equal(t, "save", TrimQuotes("save"))
	assert.Equal(t, "", TrimQuotes(`""`))
	assert.Equal(t, "x", TrimQuotes("x"))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "save", ToString("save"))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "42", ToString(42))
	assert.Equal(t, "42", ToString(int64(42)))
	assert.Equal(t, "42", ToString(uint8(42)))
	assert.Equal(t, "3.14", ToString(3.14))
	assert.Equal(t, "1000000", ToString(float64(1000000)))
	assert.Equal(t, "bytes", ToString([]byte("bytes")))
	assert.Equal(t, "boom", ToString(errInput{}))
	assert.Equal(t, "[1 2]", ToString([]int{1, 2}))
}

type errInput struct{}

func (errInput) Error() string { return "boom" }
