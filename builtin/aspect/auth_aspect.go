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
	"fmt"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&AuthAspect{})
}

// AuthAspectConfig holds the weave-plan settings of the auth aspect.
type AuthAspectConfig struct {
	// RequiredRoles lists the roles needed to invoke the function. Empty
	// means every caller is allowed.
	RequiredRoles []string
	// Mode is "requireAny" (default) or "requireAll".
	Mode string
	// AbortOnDeny panics on denial instead of returning an error. Off by
	// default; strict enforcement setups turn it on so a denied call can
	// never be mistaken for an ordinary failure.
	AbortOnDeny bool
}

// AuthAspect checks the caller's roles before letting the invocation
// proceed. Roles come from the RoleProvider callback when set, otherwise
// from the joinpoint scratch value "roles". The continuation of a denied
// call is dropped unconsumed.
//
// AuthAspect 在调用继续之前检查调用者的角色。
// 角色来自 RoleProvider 回调，未设置时读取连接点暂存值 "roles"。
type AuthAspect struct {
	Config AuthAspectConfig
	// RoleProvider supplies the caller's roles for one invocation.
	RoleProvider func(jp *types.JoinPoint) []string
}

var _ types.AroundAdvice = (*AuthAspect)(nil)
var _ types.ConfigurableAspect = (*AuthAspect)(nil)

// NewAuthAspect creates an auth aspect requiring any of the given roles.
func NewAuthAspect(requiredRoles ...string) *AuthAspect {
	return &AuthAspect{
		Config: AuthAspectConfig{RequiredRoles: requiredRoles},
	}
}

func (a *AuthAspect) Type() string {
	return "auth"
}

func (a *AuthAspect) New() types.Aspect {
	return &AuthAspect{
		Config:       a.Config,
		RoleProvider: a.RoleProvider,
	}
}

func (a *AuthAspect) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &a.Config)
}

func (a *AuthAspect) Destroy() {
}

func (a *AuthAspect) Around(pjp *types.Continuation) (types.Value, error) {
	if len(a.Config.RequiredRoles) == 0 {
		return pjp.Proceed()
	}
	roles := a.roles(pjp.JoinPoint())
	if a.allowed(roles) {
		return pjp.Proceed()
	}
	message := fmt.Sprintf("Access denied: requires %s of roles %v", a.modeWord(), a.Config.RequiredRoles)
	if a.Config.AbortOnDeny {
		panic(message)
	}
	return nil, types.NewExecutionError(message)
}

func (a *AuthAspect) roles(jp *types.JoinPoint) []string {
	if a.RoleProvider != nil {
		return a.RoleProvider(jp)
	}
	v, ok := jp.GetValue("roles")
	if !ok {
		return nil
	}
	switch roles := v.(type) {
	case []string:
		return roles
	case []interface{}:
		var result []string
		for _, r := range roles {
			if s, ok := r.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

func (a *AuthAspect) allowed(roles []string) bool {
	have := make(map[string]bool, len(roles))
	for _, r := range roles {
		have[r] = true
	}
	if a.Config.Mode == "requireAll" {
		for _, required := range a.Config.RequiredRoles {
			if !have[required] {
				return false
			}
		}
		return true
	}
	for _, required := range a.Config.RequiredRoles {
		if have[required] {
			return true
		}
	}
	return false
}

func (a *AuthAspect) modeWord() string {
	if a.Config.Mode == "requireAll" {
		return "all"
	}
	return "any"
}
