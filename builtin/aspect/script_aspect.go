/*
 * Copyright 2025 The AspectGo Authors.
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
	"errors"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/js"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&ScriptAspect{})
}

// ScriptAspectConfig holds the weave-plan settings of the script aspect.
type ScriptAspectConfig struct {
	// Script is JavaScript source defining any of the hook functions
	// onBefore(jp), onAfter(jp, result) and onAfterError(jp, error).
	Script string
}

// ScriptAspect runs JavaScript hooks around matched invocations.
//
// onBefore runs before the call; a script error prevents the call and
// surfaces as an execution error. onAfter runs after a successful call and
// may replace the result by returning a value; returning undefined keeps
// the original. onAfterError is notified of failures best-effort. Hooks the
// script does not define are skipped.
//
// ScriptAspect 在匹配的调用周围运行 JavaScript 钩子。
// onBefore 在调用前运行，脚本错误会阻止调用；onAfter 在成功后运行并可替换结果；
// onAfterError 在失败时收到通知。脚本未定义的钩子将被跳过。
type ScriptAspect struct {
	Config ScriptAspectConfig

	jsEngine      *js.GojaJsEngine
	hasBefore     bool
	hasAfter      bool
	hasAfterError bool
}

var _ types.AroundAdvice = (*ScriptAspect)(nil)
var _ types.ConfigurableAspect = (*ScriptAspect)(nil)

// NewScriptAspect creates a script aspect from the given hook source.
func NewScriptAspect(config types.Config, script string) (*ScriptAspect, error) {
	a := &ScriptAspect{}
	if err := a.Init(config, types.Configuration{"script": script}); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ScriptAspect) Type() string {
	return "script"
}

func (a *ScriptAspect) New() types.Aspect {
	return &ScriptAspect{Config: a.Config}
}

func (a *ScriptAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.Config.Script == "" {
		return errors.New("script aspect requires a script")
	}
	jsEngine, err := js.NewGojaJsEngine(config, a.Config.Script, nil)
	if err != nil {
		return err
	}
	a.jsEngine = jsEngine
	a.hasBefore = jsEngine.HasFunction("onBefore")
	a.hasAfter = jsEngine.HasFunction("onAfter")
	a.hasAfterError = jsEngine.HasFunction("onAfterError")
	return nil
}

func (a *ScriptAspect) Destroy() {
	if a.jsEngine != nil {
		a.jsEngine.Stop()
	}
}

func (a *ScriptAspect) Around(pjp *types.Continuation) (types.Value, error) {
	if a.jsEngine == nil {
		return pjp.Proceed()
	}
	jp := pjp.JoinPoint()
	env := map[string]interface{}{
		"function":      jp.FunctionName,
		"module":        jp.ModulePath,
		"qualifiedName": jp.QualifiedName(),
		"invocationId":  jp.InvocationID,
	}
	if a.hasBefore {
		if _, err := a.jsEngine.Execute("onBefore", env); err != nil {
			return nil, types.NewExecutionErrorWithCause("script onBefore failed", err)
		}
	}
	result, err := pjp.Proceed()
	if err != nil {
		if a.hasAfterError {
			// best-effort notification, hook failures are swallowed
			_, _ = a.jsEngine.Execute("onAfterError", env, err.Error())
		}
		return result, err
	}
	if a.hasAfter {
		out, aerr := a.jsEngine.Execute("onAfter", env, result)
		if aerr != nil {
			return nil, types.NewExecutionErrorWithCause("script onAfter failed", aerr)
		}
		if out != nil {
			// the hook replaced the result, undefined keeps the original
			result = out
		}
	}
	return result, nil
}
