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
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&AuditAspect{})
}

// AuditRecord is one entry of the tamper-evident audit trail. Each record
// carries the blake2b hash of its own fields chained with the previous
// record's hash.
type AuditRecord struct {
	Seq          uint64 `json:"seq"`
	InvocationID string `json:"invocationId"`
	Function     string `json:"function"`
	Module       string `json:"module"`
	Phase        string `json:"phase"`
	Err          string `json:"error,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	PrevHash     string `json:"prevHash"`
	Hash         string `json:"hash"`
}

// AuditAspectConfig holds the weave-plan settings of the audit aspect.
type AuditAspectConfig struct {
	// MaxRecords bounds the in-memory trail, oldest entries are dropped
	// first. 0 keeps everything.
	MaxRecords int
}

// AuditAspect appends one hash-linked record per advice step of every
// matched invocation, producing a tamper-evident trail. It can also ingest
// engine advice events through Record.
//
// AuditAspect 为每个匹配调用的通知步骤追加一条哈希链接的记录，形成防篡改的审计跟踪。
type AuditAspect struct {
	Config AuditAspectConfig

	mu      sync.Mutex
	records []AuditRecord
	seq     uint64
	// lastHash of the most recent record, "" before the first one
	lastHash string
}

var _ types.BeforeAdvice = (*AuditAspect)(nil)
var _ types.AfterAdvice = (*AuditAspect)(nil)
var _ types.AfterErrorAdvice = (*AuditAspect)(nil)
var _ types.ConfigurableAspect = (*AuditAspect)(nil)

// NewAuditAspect creates an audit aspect keeping at most maxRecords
// entries, 0 for unlimited.
func NewAuditAspect(maxRecords int) *AuditAspect {
	return &AuditAspect{
		Config: AuditAspectConfig{MaxRecords: maxRecords},
	}
}

func (a *AuditAspect) Type() string {
	return "audit"
}

func (a *AuditAspect) New() types.Aspect {
	return &AuditAspect{Config: a.Config}
}

func (a *AuditAspect) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &a.Config)
}

func (a *AuditAspect) Destroy() {
}

func (a *AuditAspect) Before(jp *types.JoinPoint) {
	a.append(jp.InvocationID, jp.FunctionName, jp.ModulePath, "enter", "")
}

func (a *AuditAspect) After(jp *types.JoinPoint, result types.Value) {
	a.append(jp.InvocationID, jp.FunctionName, jp.ModulePath, "ok", "")
}

func (a *AuditAspect) AfterError(jp *types.JoinPoint, err error) {
	a.append(jp.InvocationID, jp.FunctionName, jp.ModulePath, "error", err.Error())
}

// Record ingests an engine advice event into the trail, for use as a
// Config.OnAdviceEvent sink.
func (a *AuditAspect) Record(event types.AdviceEvent) {
	a.append(event.InvocationID, event.Function, event.Module, string(event.Phase), event.Err)
}

func (a *AuditAspect) append(invocationID, function, module, phase, errText string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	record := AuditRecord{
		Seq:          a.seq,
		InvocationID: invocationID,
		Function:     function,
		Module:       module,
		Phase:        phase,
		Err:          errText,
		Timestamp:    time.Now().UnixNano(),
		PrevHash:     a.lastHash,
	}
	record.Hash = hashRecord(record)
	a.records = append(a.records, record)
	a.seq++
	a.lastHash = record.Hash
	if a.Config.MaxRecords > 0 && len(a.records) > a.Config.MaxRecords {
		a.records = a.records[len(a.records)-a.Config.MaxRecords:]
	}
}

// Records returns a copy of the current trail, oldest first.
func (a *AuditAspect) Records() []AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditRecord(nil), a.records...)
}

// VerifyChain checks the aspect's own trail with the package-level
// VerifyChain.
func (a *AuditAspect) VerifyChain() error {
	return VerifyChain(a.Records())
}

// VerifyChain recomputes every record hash and checks the links between
// consecutive records. It returns nil for an untampered trail. The first
// record's PrevHash is not checked, so a trimmed trail still verifies.
func VerifyChain(records []AuditRecord) error {
	for i, record := range records {
		if hashRecord(record) != record.Hash {
			return fmt.Errorf("audit record %d hash mismatch", record.Seq)
		}
		if i > 0 && record.PrevHash != records[i-1].Hash {
			return fmt.Errorf("audit record %d broken link", record.Seq)
		}
	}
	return nil
}

func hashRecord(r AuditRecord) string {
	payload := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%d|%s",
		r.Seq, r.InvocationID, r.Function, r.Module, r.Phase, r.Err, r.Timestamp, r.PrevHash)
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
