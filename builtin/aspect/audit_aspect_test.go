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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aspectgo/aspectgo/api/types"
)

func TestAuditAspectChain(t *testing.T) {
	a := NewAuditAspect(0)
	assert.Equal(t, "audit", a.Type())
	jp := testJoinPoint("save_user", "app::db")

	a.Before(jp)
	a.After(jp, "ok")
	a.AfterError(jp, errors.New("boom"))

	records := a.Records()
	assert.Equal(t, 3, len(records))
	assert.Equal(t, "enter", records[0].Phase)
	assert.Equal(t, "ok", records[1].Phase)
	assert.Equal(t, "error", records[2].Phase)
	assert.Equal(t, "boom", records[2].Err)

	// genesis record has no predecessor
	assert.Equal(t, "", records[0].PrevHash)
	assert.Equal(t, records[0].Hash, records[1].PrevHash)
	assert.Equal(t, records[1].Hash, records[2].PrevHash)

	assert.Nil(t, a.VerifyChain())
}

func TestAuditAspectDetectsTampering(t *testing.T) {
	a := NewAuditAspect(0)
	jp := testJoinPoint("save_user", "app::db")
	a.Before(jp)
	a.After(jp, nil)
	a.Before(jp)

	records := a.Records()

	forged := append([]AuditRecord(nil), records...)
	forged[1].Err = "forged"
	err := VerifyChain(forged)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")

	relinked := append([]AuditRecord(nil), records...)
	relinked[2].PrevHash = relinked[0].Hash
	err = VerifyChain(relinked)
	assert.NotNil(t, err)
}

func TestAuditAspectTrimsAndStillVerifies(t *testing.T) {
	a := NewAuditAspect(5)
	jp := testJoinPoint("save_user", "app::db")
	for i := 0; i < 20; i++ {
		a.Before(jp)
	}

	records := a.Records()
	assert.Equal(t, 5, len(records))
	assert.Equal(t, uint64(19), records[4].Seq)
	assert.Nil(t, a.VerifyChain())
}

func TestAuditAspectRecordEvent(t *testing.T) {
	a := NewAuditAspect(0)
	a.Record(types.AdviceEvent{
		InvocationID: "inv-9",
		Phase:        types.PhaseStart,
		Function:     "save_user",
		Module:       "app::db",
	})
	a.Record(types.AdviceEvent{
		InvocationID: "inv-9",
		Phase:        types.PhaseEnd,
		Function:     "save_user",
		Module:       "app::db",
		Err:          "boom",
	})

	records := a.Records()
	assert.Equal(t, 2, len(records))
	assert.Equal(t, "start", records[0].Phase)
	assert.Equal(t, "end", records[1].Phase)
	assert.Equal(t, "boom", records[1].Err)
	assert.Nil(t, a.VerifyChain())
}

func TestAuditAspectConcurrent(t *testing.T) {
	a := NewAuditAspect(0)
	jp := testJoinPoint("save_user", "app::db")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				a.Before(jp)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, len(a.Records()))
	assert.Nil(t, a.VerifyChain())
}

func TestAuditAspectInit(t *testing.T) {
	prototype := &AuditAspect{}
	instance := prototype.New().(*AuditAspect)
	err := instance.Init(types.NewConfig(), types.Configuration{"maxRecords": 100})
	assert.Nil(t, err)
	assert.Equal(t, 100, instance.Config.MaxRecords)
	instance.Destroy()
}
