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

// Package mqtt is the remote weave-plan control endpoint: it subscribes to
// a broker topic, applies each received plan document to the registry and
// optionally publishes an ack to a reply topic. Plans apply atomically, so
// a rejected document leaves the registry unchanged.
package mqtt

import (
	"context"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/utils/json"
	"github.com/aspectgo/aspectgo/utils/maps"
	"github.com/aspectgo/aspectgo/utils/mqtt"
	"github.com/aspectgo/aspectgo/utils/runtime"
)

// Type 组件类型
const Type = "mqtt"

// DefaultTopic is the plan-document topic used when none is configured.
const DefaultTopic = "aspectgo/plan"

// Config Mqtt 控制端点配置
type Config struct {
	//mqtt broker 地址
	Server string
	//用户名
	Username string
	//密码
	Password string
	//订阅Qos
	QOS uint8
	//client Id，为空则随机生成
	ClientID    string
	CAFile      string
	CertFile    string
	CertKeyFile string
	//接收weave plan文档的主题
	Topic string
	//回执主题，为空不发送回执
	ReplyTopic string
}

// Mqtt applies weave plans received from a broker to one registry.
type Mqtt struct {
	sync.Mutex
	//配置
	Config   Config
	config   types.Config
	registry *engine.AspectRegistry
	client   *mqtt.Client
	started  bool
}

// planReply is the ack document published to the reply topic.
type planReply struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	Registrations int    `json:"registrations"`
}

// New creates an mqtt control endpoint over the given registry.
func New(config types.Config, registry *engine.AspectRegistry, conf Config) *Mqtt {
	if conf.Server == "" {
		conf.Server = "127.0.0.1:1883"
	}
	return &Mqtt{Config: conf, config: config, registry: registry}
}

// Type 组件类型
func (x *Mqtt) Type() string {
	return Type
}

// Init 初始化，从配置映射解码服务配置
func (x *Mqtt) Init(config types.Config, configuration types.Configuration) error {
	x.config = config
	return maps.Map2Struct(configuration, &x.Config)
}

// Start connects to the broker and subscribes the plan topic.
func (x *Mqtt) Start() error {
	x.Lock()
	defer x.Unlock()
	if x.started {
		return nil
	}
	client, err := x.initClient()
	if err != nil {
		return err
	}
	client.RegisterHandler(mqtt.Handler{
		Topic:  x.topic(),
		Qos:    x.Config.QOS,
		Handle: x.handler(),
	})
	x.Printf("mqtt control endpoint subscribed to %s", x.topic())
	x.started = true
	return nil
}

// Destroy 销毁
func (x *Mqtt) Destroy() {
	_ = x.Close()
}

func (x *Mqtt) Close() error {
	x.Lock()
	defer x.Unlock()
	x.started = false
	if x.client != nil {
		client := x.client
		x.client = nil
		return client.Close()
	}
	return nil
}

func (x *Mqtt) Printf(format string, v ...interface{}) {
	if x.config.Logger != nil {
		x.config.Logger.Printf(format, v...)
	}
}

func (x *Mqtt) topic() string {
	if x.Config.Topic == "" {
		return DefaultTopic
	}
	return x.Config.Topic
}

// handler feeds received documents through applyPlan and publishes the
// ack when a reply topic is configured.
func (x *Mqtt) handler() func(c paho.Client, data paho.Message) {
	return func(c paho.Client, data paho.Message) {
		defer func() {
			//捕捉异常
			if e := recover(); e != nil {
				x.Printf("mqtt handler err :%v\n%v", e, runtime.Stack())
			}
		}()
		reply := x.applyPlan(data.Payload())
		if x.Config.ReplyTopic != "" {
			if err := x.client.Publish(x.Config.ReplyTopic, x.Config.QOS, reply); err != nil {
				x.Printf("publish reply err :%v", err)
			}
		}
	}
}

// applyPlan loads one plan document into the registry and renders the ack.
func (x *Mqtt) applyPlan(payload []byte) []byte {
	reply := planReply{Success: true}
	if err := engine.LoadPlan(x.registry, payload); err != nil {
		x.Printf("apply weave plan err :%v", err)
		reply.Success = false
		reply.Error = err.Error()
	}
	reply.Registrations = x.registry.Count()
	body, err := json.Marshal(reply)
	if err != nil {
		return []byte(`{"success":false,"error":"marshal reply failed"}`)
	}
	return body
}

// initClient 初始化客户端
func (x *Mqtt) initClient() (*mqtt.Client, error) {
	if x.client != nil {
		return x.client, nil
	}
	ctx, cancel := context.WithTimeout(context.TODO(), 4*time.Second)
	defer cancel()
	client, err := mqtt.NewClient(ctx, mqtt.Config{
		Server:      x.Config.Server,
		Username:    x.Config.Username,
		Password:    x.Config.Password,
		QOS:         x.Config.QOS,
		ClientID:    x.Config.ClientID,
		CAFile:      x.Config.CAFile,
		CertFile:    x.Config.CertFile,
		CertKeyFile: x.Config.CertKeyFile,
	})
	if err != nil {
		return nil, err
	}
	x.client = client
	return client, nil
}
