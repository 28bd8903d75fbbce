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
	"time"
)

// Config carries the engine-wide settings shared by the registry, the
// builtin aspects and the control endpoints. Component-level settings live
// in Configuration maps instead.
type Config struct {
	// Logger is the logging sink, defaulting to DefaultLogger().
	Logger Logger
	// OnAdviceEvent, when set, receives one AdviceEvent per lifecycle step
	// of every advised invocation. Runs synchronously on the invoking
	// goroutine; keep it cheap and hand off to channels for slow consumers.
	OnAdviceEvent func(event AdviceEvent)
	// Cache is the shared cache instance used by the cache aspect when a
	// component does not bring its own.
	Cache Cache
	// ScriptMaxExecutionTime bounds one script-hook execution, defaulting
	// to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Udf registers custom Golang functions callable from script hooks by
	// name.
	Udf map[string]interface{}
}

// RegisterUdf registers a custom function for script hooks.
func (c *Config) RegisterUdf(name string, value interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	c.Udf[name] = value
}

// NewConfig creates a Config with default values and applies the provided
// options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
