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

package js

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/funcs"
)

func TestExecute(t *testing.T) {
	script := `
	function add(a, b) {
		return a + b;
	}
	function greet(name) {
		return "hello " + name;
	}
	`
	engine, err := NewGojaJsEngine(types.NewConfig(), script, nil)
	assert.Nil(t, err)

	out, err := engine.Execute("add", 2, 3)
	assert.Nil(t, err)
	assert.Equal(t, int64(5), out)

	out, err = engine.Execute("greet", "world")
	assert.Nil(t, err)
	assert.Equal(t, "hello world", out)

	engine.Stop()
}

func TestExecuteNotAFunction(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), `var x = 1;`, nil)
	assert.Nil(t, err)

	_, err = engine.Execute("missing")
	assert.NotNil(t, err)
	assert.Equal(t, "missing is not a function", err.Error())

	assert.False(t, engine.HasFunction("missing"))
	assert.False(t, engine.HasFunction("x"))
}

func TestHasFunction(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), `function onBefore(fn) { return true; }`, nil)
	assert.Nil(t, err)
	assert.True(t, engine.HasFunction("onBefore"))
	assert.False(t, engine.HasFunction("onAfter"))
}

func TestCompileError(t *testing.T) {
	_, err := NewGojaJsEngine(types.NewConfig(), `function broken( {`, nil)
	assert.NotNil(t, err)
}

func TestUdf(t *testing.T) {
	config := types.NewConfig()
	config.RegisterUdf("double", `function double(x) { return x * 2; }`)
	config.RegisterUdf("fromGo", func(s string) string {
		return strings.ToUpper(s)
	})

	script := `
	function hook(x) {
		return double(x) + 1;
	}
	function callGo(s) {
		return fromGo(s);
	}
	`
	engine, err := NewGojaJsEngine(config, script, nil)
	assert.Nil(t, err)

	out, err := engine.Execute("hook", 10)
	assert.Nil(t, err)
	assert.Equal(t, int64(21), out)

	out, err = engine.Execute("callGo", "abc")
	assert.Nil(t, err)
	assert.Equal(t, "ABC", out)
}

func TestUdfCompileError(t *testing.T) {
	config := types.NewConfig()
	config.RegisterUdf("broken", `function broken( {`)
	_, err := NewGojaJsEngine(config, `function hook() { return 1; }`, nil)
	assert.NotNil(t, err)
}

func TestFromVars(t *testing.T) {
	vars := map[string]interface{}{
		"limit": 42,
	}
	engine, err := NewGojaJsEngine(types.NewConfig(), `function getLimit() { return limit; }`, vars)
	assert.Nil(t, err)

	out, err := engine.Execute("getLimit")
	assert.Nil(t, err)
	assert.Equal(t, int64(42), out)
}

func TestExecutionTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(time.Millisecond * 100))
	engine, err := NewGojaJsEngine(config, `function spin() { while (true) {} }`, nil)
	assert.Nil(t, err)

	_, err = engine.Execute("spin")
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "execution timeout"))
}

func TestExecuteConcurrent(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), `function inc(x) { return x + 1; }`, nil)
	assert.Nil(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, err := engine.Execute("inc", n)
			assert.Nil(t, err)
			assert.Equal(t, int64(n+1), out)
		}(i)
	}
	wg.Wait()
}

func TestGlobalUdfMerge(t *testing.T) {
	funcs.UdfMap.Register("triple", `function triple(x) { return x * 3; }`)
	funcs.UdfMap.Register("tag", `function tag() { return "global"; }`)
	defer funcs.UdfMap.UnRegister("triple")
	defer funcs.UdfMap.UnRegister("tag")

	// config entries override global ones of the same name
	config := types.NewConfig()
	config.RegisterUdf("tag", `function tag() { return "local"; }`)

	script := `function hook(x) { return triple(x) + "-" + tag(); }`
	engine, err := NewGojaJsEngine(config, script, nil)
	assert.Nil(t, err)
	defer engine.Stop()

	out, err := engine.Execute("hook", 2)
	assert.Nil(t, err)
	assert.Equal(t, "6-local", out)
}
