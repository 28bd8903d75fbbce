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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithOnAdviceEvent is an option that sets the advice-event callback of the
// Config.
func WithOnAdviceEvent(onAdviceEvent func(event AdviceEvent)) Option {
	return func(c *Config) error {
		c.OnAdviceEvent = onAdviceEvent
		return nil
	}
}

// WithCache is an option that sets the shared cache of the Config.
func WithCache(cache Cache) Option {
	return func(c *Config) error {
		c.Cache = cache
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the script execution
// bound of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithUdf is an option that registers a custom function for script hooks.
func WithUdf(name string, value interface{}) Option {
	return func(c *Config) error {
		c.RegisterUdf(name, value)
		return nil
	}
}
