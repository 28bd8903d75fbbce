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

package aspect

import (
	"sync"
	"time"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&MetricsAspect{})
}

// FunctionStats 单个函数的调用统计
type FunctionStats struct {
	Count  int64         `json:"count"`
	Errors int64         `json:"errors"`
	Total  time.Duration `json:"total"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
}

// Avg returns the mean duration per call.
func (s FunctionStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type MetricsAspectConfig struct {
	// SlowThreshold logs calls slower than this duration, 0 disables.
	SlowThreshold time.Duration
}

// MetricsAspect 实现了按函数统计调用次数、错误数和耗时的功能
type MetricsAspect struct {
	Config MetricsAspectConfig

	logger types.Logger
	mu     sync.Mutex
	stats  map[string]*FunctionStats
}

var _ types.AroundAdvice = (*MetricsAspect)(nil)
var _ types.ConfigurableAspect = (*MetricsAspect)(nil)

// NewMetricsAspect creates a metrics aspect. slowThreshold of 0 disables
// slow-call logging.
func NewMetricsAspect(slowThreshold time.Duration) *MetricsAspect {
	return &MetricsAspect{
		Config: MetricsAspectConfig{SlowThreshold: slowThreshold},
		stats:  make(map[string]*FunctionStats),
	}
}

func (a *MetricsAspect) Type() string {
	return "metrics"
}

func (a *MetricsAspect) New() types.Aspect {
	return &MetricsAspect{
		Config: a.Config,
		stats:  make(map[string]*FunctionStats),
	}
}

func (a *MetricsAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	a.logger = config.Logger
	return nil
}

func (a *MetricsAspect) Destroy() {
}

func (a *MetricsAspect) Around(pjp *types.Continuation) (types.Value, error) {
	name := pjp.JoinPoint().QualifiedName()
	start := time.Now()
	result, err := pjp.Proceed()
	elapsed := time.Since(start)

	a.record(name, elapsed, err)

	if a.Config.SlowThreshold > 0 && elapsed > a.Config.SlowThreshold && a.logger != nil {
		a.logger.Printf("slow function detected. function=%s, elapsed=%s", name, elapsed)
	}
	return result, err
}

func (a *MetricsAspect) record(name string, elapsed time.Duration, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stats == nil {
		a.stats = make(map[string]*FunctionStats)
	}
	st, ok := a.stats[name]
	if !ok {
		st = &FunctionStats{Min: elapsed}
		a.stats[name] = st
	}
	st.Count++
	if err != nil {
		st.Errors++
	}
	st.Total += elapsed
	if elapsed < st.Min {
		st.Min = elapsed
	}
	if elapsed > st.Max {
		st.Max = elapsed
	}
}

// Snapshot returns a copy of the per-function statistics.
func (a *MetricsAspect) Snapshot() map[string]FunctionStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot := make(map[string]FunctionStats, len(a.stats))
	for name, st := range a.stats {
		snapshot[name] = *st
	}
	return snapshot
}

// StatsFor returns the statistics of one qualified function name.
func (a *MetricsAspect) StatsFor(name string) (FunctionStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.stats[name]
	if !ok {
		return FunctionStats{}, false
	}
	return *st, true
}

// Reset drops all collected statistics.
func (a *MetricsAspect) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = make(map[string]*FunctionStats)
}
