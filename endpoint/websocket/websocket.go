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

// Package websocket streams advice events to subscribed clients. Wire
// OnAdviceEvent into the engine config and every advised invocation fans
// out as JSON frames; clients that stop reading are dropped instead of
// stalling the broadcast.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/json"
	"github.com/aspectgo/aspectgo/utils/maps"
)

// Type 组件类型
const Type = "ws"

// Endpoint 别名
type Endpoint = Websocket

const (
	defaultPath         = "/api/v1/events"
	defaultPingInterval = time.Second * 30
	defaultSendBuffer   = 64
	writeWait           = time.Second * 10
)

// Config Websocket 服务配置
type Config struct {
	//监听地址
	Server string
	//事件流路径，默认 /api/v1/events
	Path        string
	CertFile    string
	CertKeyFile string
	//ping周期
	PingInterval time.Duration
	//每个客户端的发送缓冲，写满则断开该客户端
	SendBufferSize int
}

// Websocket 推送advice事件的端点
type Websocket struct {
	//配置
	Config   Config
	config   types.Config
	Upgrader websocket.Upgrader
	server   *http.Server
	//http路由器
	router *httprouter.Router

	sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a websocket endpoint. Pass OnAdviceEvent to the engine
// config to connect it to a registry.
func New(config types.Config, conf Config) *Websocket {
	return &Websocket{Config: conf, config: config, clients: make(map[*client]struct{})}
}

// Init 初始化，从配置映射解码服务配置
func (ws *Websocket) Init(config types.Config, configuration types.Configuration) error {
	ws.config = config
	if ws.clients == nil {
		ws.clients = make(map[*client]struct{})
	}
	return maps.Map2Struct(configuration, &ws.Config)
}

// Type 组件类型
func (ws *Websocket) Type() string {
	return Type
}

// OnAdviceEvent broadcasts one event to every subscriber. Safe to hand to
// types.WithOnAdviceEvent; it never blocks the advised invocation.
func (ws *Websocket) OnAdviceEvent(event types.AdviceEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		ws.Printf("marshal advice event err :%v", err)
		return
	}
	var slow []*client
	ws.RLock()
	for c := range ws.clients {
		select {
		case c.send <- payload:
		default:
			//发送缓冲已满，记下并断开
			slow = append(slow, c)
		}
	}
	ws.RUnlock()
	for _, c := range slow {
		ws.unregister(c)
	}
}

// ClientCount returns the number of connected subscribers.
func (ws *Websocket) ClientCount() int {
	ws.RLock()
	defer ws.RUnlock()
	return len(ws.clients)
}

// Router returns the http router, building the event route on first use.
func (ws *Websocket) Router() *httprouter.Router {
	if ws.router == nil {
		ws.router = httprouter.New()
		path := ws.Config.Path
		if path == "" {
			path = defaultPath
		}
		ws.router.GET(path, ws.handler)
	}
	return ws.router
}

// Start listens and serves in the background.
func (ws *Websocket) Start() error {
	addr := ws.Config.Server
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ws.server = &http.Server{Addr: addr, Handler: ws.Router()}
	isTls := ws.Config.CertKeyFile != "" && ws.Config.CertFile != ""
	if isTls {
		ws.Printf("started ws server with TLS on %s", addr)
		go func() {
			defer ln.Close()
			_ = ws.server.ServeTLS(ln, ws.Config.CertFile, ws.Config.CertKeyFile)
		}()
	} else {
		ws.Printf("started ws server on %s", addr)
		go func() {
			defer ln.Close()
			_ = ws.server.Serve(ln)
		}()
	}
	return nil
}

// Destroy 销毁
func (ws *Websocket) Destroy() {
	_ = ws.Close()
}

func (ws *Websocket) Close() error {
	ws.Lock()
	clients := ws.clients
	ws.clients = make(map[*client]struct{})
	ws.Unlock()
	for c := range clients {
		close(c.send)
	}
	if ws.server != nil {
		return ws.server.Shutdown(context.Background())
	}
	return nil
}

func (ws *Websocket) Printf(format string, v ...interface{}) {
	if ws.config.Logger != nil {
		ws.config.Logger.Printf(format, v...)
	}
}

func (ws *Websocket) handler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.Printf("upgrade err :%v", err)
		return
	}
	bufferSize := ws.Config.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultSendBuffer
	}
	c := &client{conn: conn, send: make(chan []byte, bufferSize)}
	ws.Lock()
	ws.clients[c] = struct{}{}
	ws.Unlock()

	go ws.writePump(c)
	ws.readPump(c)
}

// register is the test seam for injecting clients without a live socket.
func (ws *Websocket) register(c *client) {
	ws.Lock()
	ws.clients[c] = struct{}{}
	ws.Unlock()
}

// unregister removes the client; the closed send channel stops its write
// pump. Idempotent under the registry lock.
func (ws *Websocket) unregister(c *client) {
	ws.Lock()
	_, ok := ws.clients[c]
	if ok {
		delete(ws.clients, c)
	}
	ws.Unlock()
	if ok {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// writePump pushes broadcast frames and pings until the send channel
// closes.
func (ws *Websocket) writePump(c *client) {
	pingInterval := ws.Config.PingInterval
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so close frames and pongs are processed;
// inbound payloads are ignored. Returns when the peer goes away.
func (ws *Websocket) readPump(c *client) {
	defer ws.unregister(c)
	pingInterval := ws.Config.PingInterval
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	pongWait := pingInterval * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
