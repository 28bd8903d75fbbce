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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/el"
	"github.com/aspectgo/aspectgo/utils/maps"
	"github.com/aspectgo/aspectgo/utils/str"
)

func init() {
	Registry.Add(&LogAspect{})
}

// LogAspectConfig holds the weave-plan settings of the log aspect.
type LogAspectConfig struct {
	// Level is the logrus level name of entry and exit lines, e.g. "debug"
	// or "info". Defaults to "info". Failure lines always log at error
	// level.
	Level string
	// LogResult includes the result value in the exit line.
	LogResult bool
	// Message overrides the entry message. Rendered as an expression
	// template with the function, module, qualifiedName and invocationId
	// variables, e.g. "hit ${module}::${function}".
	Message string
}

// LogAspect emits structured entry/exit/failure lines around every matched
// invocation, carrying the function name, module path and invocation id as
// fields.
//
// LogAspect 在每个匹配的调用周围输出结构化的进入/退出/失败日志，
// 携带函数名、模块路径和调用 ID 字段。
type LogAspect struct {
	// Logger is the sink. Tests inject a hooked instance; when nil the
	// logrus standard logger is used.
	Logger *logrus.Logger
	Config LogAspectConfig

	level    logrus.Level
	template el.Template
}

var _ types.BeforeAdvice = (*LogAspect)(nil)
var _ types.AfterAdvice = (*LogAspect)(nil)
var _ types.AfterErrorAdvice = (*LogAspect)(nil)
var _ types.ConfigurableAspect = (*LogAspect)(nil)

// NewLogAspect creates a log aspect logging entry/exit lines at the given
// level, falling back to info when the level is unknown.
func NewLogAspect(level string) *LogAspect {
	a := &LogAspect{
		Logger: logrus.New(),
		Config: LogAspectConfig{Level: level},
		level:  logrus.InfoLevel,
	}
	if parsed, err := logrus.ParseLevel(level); err == nil {
		a.level = parsed
	}
	return a
}

func (a *LogAspect) Type() string {
	return "log"
}

func (a *LogAspect) New() types.Aspect {
	return &LogAspect{Logger: a.Logger, level: logrus.InfoLevel}
}

func (a *LogAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	a.level = logrus.InfoLevel
	if a.Config.Level != "" {
		parsed, err := logrus.ParseLevel(a.Config.Level)
		if err != nil {
			return err
		}
		a.level = parsed
	}
	a.template = nil
	if a.Config.Message != "" {
		tmpl, err := el.NewTemplate(a.Config.Message)
		if err != nil {
			return err
		}
		a.template = tmpl
	}
	if a.Logger == nil {
		a.Logger = logrus.New()
	}
	return nil
}

func (a *LogAspect) Destroy() {
}

func (a *LogAspect) Before(jp *types.JoinPoint) {
	entry := a.entry(jp)
	entry.Log(a.entryLevel(), a.entryMessage(jp))
}

// entryMessage renders the configured message. Template rendering follows
// Init; aspects built in code without Init fall back to the lighter ${}
// dictionary substitution.
func (a *LogAspect) entryMessage(jp *types.JoinPoint) string {
	if a.Config.Message == "" {
		return "entering function"
	}
	if a.template != nil {
		rendered, err := a.template.Execute(map[string]interface{}{
			"function":      jp.FunctionName,
			"module":        jp.ModulePath,
			"qualifiedName": jp.QualifiedName(),
			"invocationId":  jp.InvocationID,
		})
		if err == nil {
			return str.ToString(rendered)
		}
		return a.Config.Message
	}
	message := a.Config.Message
	if str.CheckHasVar(message) {
		message = str.SprintfDict(message, map[string]string{
			"function":     jp.FunctionName,
			"module":       jp.ModulePath,
			"invocationId": jp.InvocationID,
		})
	}
	return message
}

func (a *LogAspect) After(jp *types.JoinPoint, result types.Value) {
	entry := a.entry(jp)
	if a.Config.LogResult {
		entry = entry.WithField("result", fmt.Sprintf("%v", result))
	}
	entry.Log(a.entryLevel(), "function completed")
}

func (a *LogAspect) AfterError(jp *types.JoinPoint, err error) {
	a.entry(jp).WithError(err).Error("function failed")
}

func (a *LogAspect) entry(jp *types.JoinPoint) *logrus.Entry {
	logger := a.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(logrus.Fields{
		"function":     jp.FunctionName,
		"module":       jp.ModulePath,
		"invocationId": jp.InvocationID,
	})
}

func (a *LogAspect) entryLevel() logrus.Level {
	if a.level == 0 {
		return logrus.InfoLevel
	}
	return a.level
}
