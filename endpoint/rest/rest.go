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

// Package rest exposes the introspection HTTP API of one aspect registry:
// listing registrations, invocation counters, and validating or testing
// pointcut expressions against a function descriptor.
package rest

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/net/netutil"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/pointcut"
	"github.com/aspectgo/aspectgo/utils/json"
	"github.com/aspectgo/aspectgo/utils/maps"
	"github.com/aspectgo/aspectgo/utils/runtime"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContextType = "application/json"

	// the introspection API lives under a versioned prefix
	BasePath = "/api/v1"
)

// Config Rest 服务配置
type Config struct {
	//监听地址
	Server string
	//最大并发连接数，<=0 不限制
	MaxConnections int
	CertFile       string
	CertKeyFile    string
}

// Rest serves the introspection API for one registry.
type Rest struct {
	//配置
	Config   Config
	config   types.Config
	registry *engine.AspectRegistry
	//路由器
	router *httprouter.Router
	server *http.Server
}

// New creates a rest endpoint over the given registry.
func New(config types.Config, registry *engine.AspectRegistry, conf Config) *Rest {
	return &Rest{Config: conf, config: config, registry: registry}
}

// Init 初始化，从配置映射解码服务配置
func (x *Rest) Init(config types.Config, configuration types.Configuration) error {
	x.config = config
	return maps.Map2Struct(configuration, &x.Config)
}

// Router returns the http router, building the routes on first use. Useful
// for mounting the API into an existing server instead of Start.
func (x *Rest) Router() *httprouter.Router {
	if x.router == nil {
		x.router = httprouter.New()
		x.router.GET(BasePath+"/aspects", x.handler(x.listAspects))
		x.router.GET(BasePath+"/stats", x.handler(x.stats))
		x.router.POST(BasePath+"/pointcut/validate", x.handler(x.validatePointcut))
		x.router.POST(BasePath+"/pointcut/test", x.handler(x.testPointcut))
	}
	return x.router
}

// Start listens and serves in the background. Connections beyond
// MaxConnections wait in the accept queue.
func (x *Rest) Start() error {
	ln, err := x.Listen()
	if err != nil {
		return err
	}
	x.server = &http.Server{Addr: x.Config.Server, Handler: x.Router()}
	isTls := x.Config.CertKeyFile != "" && x.Config.CertFile != ""
	if isTls {
		x.Printf("started rest server with TLS on %s", x.Config.Server)
		go func() {
			defer ln.Close()
			_ = x.server.ServeTLS(ln, x.Config.CertFile, x.Config.CertKeyFile)
		}()
	} else {
		x.Printf("started rest server on %s", x.Config.Server)
		go func() {
			defer ln.Close()
			_ = x.server.Serve(ln)
		}()
	}
	return nil
}

func (x *Rest) Listen() (net.Listener, error) {
	addr := x.Config.Server
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if x.Config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, x.Config.MaxConnections)
	}
	return ln, nil
}

// Destroy 销毁
func (x *Rest) Destroy() {
	_ = x.Close()
}

func (x *Rest) Close() error {
	if x.server != nil {
		return x.server.Shutdown(context.Background())
	}
	return nil
}

func (x *Rest) Printf(format string, v ...interface{}) {
	if x.config.Logger != nil {
		x.config.Logger.Printf(format, v...)
	}
}

// handler 包装路由，捕捉异常
func (x *Rest) handler(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		defer func() {
			if e := recover(); e != nil {
				x.Printf("rest handler err :%v\n%v", e, runtime.Stack())
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		h(w, r, params)
	}
}

func (x *Rest) listAspects(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	x.writeJson(w, http.StatusOK, x.registry.List())
}

func (x *Rest) stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	x.writeJson(w, http.StatusOK, map[string]interface{}{
		"metrics":       x.registry.Metrics(),
		"registrations": x.registry.Count(),
	})
}

type pointcutRequest struct {
	Expression string                    `json:"expression"`
	Function   *types.FunctionDescriptor `json:"function,omitempty"`
}

func (x *Rest) validatePointcut(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req pointcutRequest
	if !x.readJson(w, r, &req) {
		return
	}
	pc, err := pointcut.Parse(req.Expression)
	if err != nil {
		x.writeJson(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	x.writeJson(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"pointcut": pc.String(),
	})
}

func (x *Rest) testPointcut(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req pointcutRequest
	if !x.readJson(w, r, &req) {
		return
	}
	if req.Function == nil {
		x.writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"error": "missing function descriptor",
		})
		return
	}
	pc, err := pointcut.Parse(req.Expression)
	if err != nil {
		x.writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	x.writeJson(w, http.StatusOK, map[string]interface{}{
		"matches": pc.Matches(*req.Function),
	})
}

func (x *Rest) readJson(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer func() {
		if r.Body != nil {
			_ = r.Body.Close()
		}
	}()
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		x.writeJson(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return true
}

func (x *Rest) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(ContentTypeKey, JsonContextType)
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
