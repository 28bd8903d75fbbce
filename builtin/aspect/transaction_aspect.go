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
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
)

func init() {
	Registry.Add(&TransactionAspect{})
}

// TxKey is the joinpoint scratch key under which the open transaction is
// stored for the wrapped function.
const TxKey = "tx"

// TransactionAspectConfig holds the weave-plan settings of the transaction
// aspect.
type TransactionAspectConfig struct {
	// DriverName 数据库驱动名称，mysql或postgres
	DriverName string
	// Dsn 数据库连接配置，参考sql.Open参数
	Dsn string
	// PoolSize caps the open connections; half of it is kept idle.
	PoolSize int
}

// TransactionAspect opens one database transaction per matched invocation.
// The transaction is stashed on the joinpoint under TxKey before the call
// proceeds, committed when the call succeeds and rolled back when it fails.
//
// TransactionAspect 为每个匹配的调用打开一个数据库事务。
// 事务在调用前以 TxKey 存入连接点，成功时提交，失败时回滚。
type TransactionAspect struct {
	Config TransactionAspectConfig

	db     *sql.DB
	ownsDB bool
}

var _ types.AroundAdvice = (*TransactionAspect)(nil)
var _ types.ConfigurableAspect = (*TransactionAspect)(nil)

// NewTransactionAspectWithDB creates a transaction aspect over an existing
// pool. The caller keeps ownership of db.
func NewTransactionAspectWithDB(db *sql.DB) *TransactionAspect {
	return &TransactionAspect{db: db}
}

// TxFromJoinPoint returns the transaction opened for this invocation.
func TxFromJoinPoint(jp *types.JoinPoint) (*sql.Tx, bool) {
	v, ok := jp.GetValue(TxKey)
	if !ok {
		return nil, false
	}
	tx, ok := v.(*sql.Tx)
	return tx, ok
}

func (a *TransactionAspect) Type() string {
	return "transaction"
}

func (a *TransactionAspect) New() types.Aspect {
	return &TransactionAspect{
		Config: a.Config,
		db:     a.db,
	}
}

func (a *TransactionAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.db != nil {
		return nil
	}
	if a.Config.DriverName == "" {
		a.Config.DriverName = "mysql"
	}
	if a.Config.DriverName != "mysql" && a.Config.DriverName != "postgres" {
		return fmt.Errorf("unsupported driver: %s", a.Config.DriverName)
	}
	if a.Config.Dsn == "" {
		return errors.New("transaction aspect requires a dsn")
	}
	// connections are dialed lazily, a dead database surfaces at Begin
	db, err := sql.Open(a.Config.DriverName, a.Config.Dsn)
	if err != nil {
		return err
	}
	if a.Config.PoolSize > 0 {
		db.SetMaxOpenConns(a.Config.PoolSize)
		db.SetMaxIdleConns(a.Config.PoolSize / 2)
	}
	a.db = db
	a.ownsDB = true
	return nil
}

func (a *TransactionAspect) Destroy() {
	if a.ownsDB && a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *TransactionAspect) Around(pjp *types.Continuation) (types.Value, error) {
	if a.db == nil {
		return nil, types.NewExecutionError("transaction aspect not initialized")
	}
	tx, err := a.db.Begin()
	if err != nil {
		return nil, types.NewExecutionErrorWithCause("begin transaction failed", err)
	}
	jp := pjp.JoinPoint()
	jp.SetValue(TxKey, tx)

	result, err := pjp.Proceed()
	if err != nil {
		_ = tx.Rollback()
		return result, err
	}
	if err := tx.Commit(); err != nil {
		return nil, types.NewExecutionErrorWithCause("commit transaction failed", err)
	}
	return result, nil
}
