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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTLSConfig(t *testing.T) {
	config, err := newTLSConfig("", "", "")
	assert.Nil(t, err)
	assert.Nil(t, config)

	_, err = newTLSConfig("no-such-ca.pem", "", "")
	assert.NotNil(t, err)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	assert.Nil(t, os.WriteFile(caFile, []byte("not a cert"), 0o644))
	config, err = newTLSConfig(caFile, "", "")
	assert.Nil(t, err)
	assert.NotNil(t, config)
	assert.NotNil(t, config.RootCAs)
}

func TestHandlerMap(t *testing.T) {
	c := &Client{msgHandlerMap: make(map[string]Handler)}

	assert.Equal(t, "", c.HandlerFor("aspectgo/plan").Topic)
	// unknown topics unregister without touching the connection
	assert.Nil(t, c.UnregisterHandler("aspectgo/plan"))

	c.msgHandlerMap["aspectgo/plan"] = Handler{Topic: "aspectgo/plan", Qos: 1}
	assert.Equal(t, byte(1), c.HandlerFor("aspectgo/plan").Qos)
}

// needs a live broker, e.g. mosquitto on localhost
func TestClientConnect(t *testing.T) {
	server := os.Getenv("ASPECTGO_TEST_MQTT_SERVER")
	if server == "" {
		t.Skip("ASPECTGO_TEST_MQTT_SERVER not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := NewClient(ctx, Config{Server: server})
	assert.Nil(t, err)
	defer func() { _ = client.Close() }()

	assert.Nil(t, client.Publish("aspectgo/test", 0, []byte("hello")))
}
