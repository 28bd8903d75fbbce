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

// Package schedule runs periodic jobs against a registry, most commonly
// logging stats snapshots.
//
// Job expressions are cron with a seconds field:
//
//	Field name   | Mandatory? | Allowed values  | Allowed special characters
//	----------   | ---------- | --------------  | --------------------------
//	Seconds      | Yes        | 0-59            | * / , -
//	Minutes      | Yes        | 0-59            | * / , -
//	Hours        | Yes        | 0-23            | * / , -
//	Day of month | Yes        | 1-31            | * / , - ?
//	Month        | Yes        | 1-12 or JAN-DEC | * / , -
//	Day of week  | Yes        | 0-6 or SUN-SAT  | * / , - ?
//
// The descriptors @yearly, @monthly, @weekly, @daily, @hourly and
// @every <duration> work as well.
package schedule

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofrs/uuid/v5"
	"github.com/robfig/cron/v3"

	"github.com/aspectgo/aspectgo/api/types"
	builtinaspect "github.com/aspectgo/aspectgo/builtin/aspect"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/utils/runtime"
)

// Type 组件类型
const Type = "schedule"

// Schedule 定时任务端点
type Schedule struct {
	id     string
	config types.Config
	cron   *cron.Cron
}

// New 创建一个新的Schedule实例
func New(config types.Config) *Schedule {
	uuId, _ := uuid.NewV4()
	return &Schedule{config: config, cron: cron.New(cron.WithSeconds()), id: uuId.String()}
}

// Type 组件类型
func (schedule *Schedule) Type() string {
	return Type
}

func (schedule *Schedule) Id() string {
	return schedule.id
}

// AddJob schedules fn under a seconds-granularity cron expression and
// returns the job id used for removal. Panics inside fn are contained.
func (schedule *Schedule) AddJob(cronExpr string, fn func()) (string, error) {
	if schedule.cron == nil {
		schedule.cron = cron.New(cron.WithSeconds())
	}
	id, err := schedule.cron.AddFunc(cronExpr, func() {
		defer func() {
			//捕捉异常
			if e := recover(); e != nil {
				schedule.Printf("schedule job err :%v\n%v", e, runtime.Stack())
			}
		}()
		fn()
	})
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(id)), nil
}

// RemoveJob 删除任务
func (schedule *Schedule) RemoveJob(jobId string) error {
	entryID, err := strconv.Atoi(jobId)
	if err != nil {
		return fmt.Errorf("%s it is an illegal job id", jobId)
	}
	if schedule.cron != nil {
		schedule.cron.Remove(cron.EntryID(entryID))
	}
	return nil
}

// JobCount returns the number of scheduled jobs.
func (schedule *Schedule) JobCount() int {
	if schedule.cron == nil {
		return 0
	}
	return len(schedule.cron.Entries())
}

func (schedule *Schedule) Start() error {
	if schedule.cron == nil {
		return errors.New("cron has not been initialized yet")
	}
	schedule.cron.Start()
	return nil
}

// Destroy 销毁
func (schedule *Schedule) Destroy() {
	_ = schedule.Close()
}

func (schedule *Schedule) Close() error {
	if schedule.cron != nil {
		schedule.cron.Stop()
		schedule.cron = nil
	}
	return nil
}

func (schedule *Schedule) Printf(format string, v ...interface{}) {
	if schedule.config.Logger != nil {
		schedule.config.Logger.Printf(format, v...)
	}
}

// ReportStats schedules a job that logs the registry invocation counters
// and, when a metrics aspect is given, its per-function timings.
func (schedule *Schedule) ReportStats(cronExpr string, registry *engine.AspectRegistry, metricsAspect *builtinaspect.MetricsAspect) (string, error) {
	return schedule.AddJob(cronExpr, schedule.statsJob(registry, metricsAspect))
}

func (schedule *Schedule) statsJob(registry *engine.AspectRegistry, metricsAspect *builtinaspect.MetricsAspect) func() {
	return func() {
		if registry != nil {
			m := registry.Metrics()
			schedule.Printf("invocation stats: total=%d, success=%d, failed=%d, current=%d",
				m.Total, m.Success, m.Failed, m.Current)
		}
		if metricsAspect != nil {
			for name, st := range metricsAspect.Snapshot() {
				schedule.Printf("function stats: function=%s, count=%d, errors=%d, avg=%s, max=%s",
					name, st.Count, st.Errors, st.Avg(), st.Max)
			}
		}
	}
}
