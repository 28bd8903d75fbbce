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

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/utils/json"
)

func TestApplyPlan(t *testing.T) {
	registry := engine.New(types.NewConfig())
	x := New(types.NewConfig(), registry, Config{})

	body := x.applyPlan([]byte(`{
	  "plan": {"id": "remote"},
	  "aspects": [
	    {"type": "log", "order": 10, "pointcut": "execution(pub fn *(..))"}
	  ]
	}`))

	var reply planReply
	assert.Nil(t, json.Unmarshal(body, &reply))
	assert.True(t, reply.Success)
	assert.Equal(t, "", reply.Error)
	assert.Equal(t, 1, reply.Registrations)
	assert.Equal(t, 1, registry.Count())
}

func TestApplyPlanRejected(t *testing.T) {
	registry := engine.New(types.NewConfig())
	x := New(types.NewConfig(), registry, Config{})

	body := x.applyPlan([]byte(`{
	  "aspects": [
	    {"type": "log", "order": 10, "pointcut": "execution(pub fn *(..))"},
	    {"type": "nope", "order": 20, "pointcut": "within(app)"}
	  ]
	}`))

	var reply planReply
	assert.Nil(t, json.Unmarshal(body, &reply))
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Error, "component not found")
	// the rejected document left the registry untouched
	assert.Equal(t, 0, reply.Registrations)
	assert.Equal(t, 0, registry.Count())
}

func TestDefaults(t *testing.T) {
	x := New(types.NewConfig(), engine.New(types.NewConfig()), Config{})
	assert.Equal(t, "127.0.0.1:1883", x.Config.Server)
	assert.Equal(t, DefaultTopic, x.topic())
	assert.Equal(t, "mqtt", x.Type())
}

func TestInit(t *testing.T) {
	x := &Mqtt{}
	err := x.Init(types.NewConfig(), types.Configuration{
		"server":     "tcp://broker:1883",
		"topic":      "control/plan",
		"replyTopic": "control/plan/reply",
		"qos":        uint8(1),
	})
	assert.Nil(t, err)
	assert.Equal(t, "tcp://broker:1883", x.Config.Server)
	assert.Equal(t, "control/plan", x.topic())
	assert.Equal(t, "control/plan/reply", x.Config.ReplyTopic)
	assert.Equal(t, uint8(1), x.Config.QOS)
}
