/*
 * Copyright 2024 The AspectGo Authors.
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

// Package aspect provides the built-in aspect library of AspectGo.
// Each aspect addresses one cross-cutting concern and can be attached to
// functions either programmatically or from a declarative weave plan.
//
// Package aspect 提供 AspectGo 的内置切面库。
// 每个切面处理一个横切关注点，可以通过编程方式或声明式织入计划附加到函数上。
//
// Available built-in aspects:
// 可用的内置切面：
//
//   - LogAspect ("log"): structured entry/exit/failure logging
//     LogAspect：结构化的进入/退出/失败日志
//
//   - MetricsAspect ("metrics"): per-function latency and error statistics
//     MetricsAspect：每个函数的延迟和错误统计
//
//   - ConcurrencyLimiterAspect ("concurrencyLimiter"): caps concurrent
//     invocations with an atomic counter
//     ConcurrencyLimiterAspect：使用原子计数器限制并发调用
//
//   - RateLimiterAspect ("rateLimiter"): token-bucket request throttling
//     RateLimiterAspect：令牌桶请求限流
//
//   - CircuitBreakerAspect ("circuitBreaker"): per-function failure
//     tripping with timed recovery
//     CircuitBreakerAspect：按函数熔断并定时恢复
//
//   - CacheAspect ("cache"): result caching, hits skip the wrapped call
//     CacheAspect：结果缓存，命中时跳过被包装的调用
//
//   - AuthAspect ("auth"): role-based access checks before the call
//     AuthAspect：调用前的基于角色的访问检查
//
//   - ScriptAspect ("script"): JavaScript onBefore/onAfter/onAfterError
//     hooks
//     ScriptAspect：JavaScript onBefore/onAfter/onAfterError 钩子
//
//   - TransactionAspect ("transaction"): database transaction per
//     invocation, commit on success and rollback on error
//     TransactionAspect：每次调用一个数据库事务，成功提交，出错回滚
//
//   - AuditAspect ("audit"): hash-linked append-only invocation audit
//     trail
//     AuditAspect：哈希链接的仅追加调用审计记录
//
// Aspects are registered into an engine.AspectRegistry together with a
// pointcut and an order; lower orders run as outer layers. For example:
// 切面与切入点和顺序一起注册到 engine.AspectRegistry；顺序值越低，越在外层运行。例如：
//
//	registry := engine.New(types.NewConfig())
//	_ = registry.RegisterExpr(aspect.NewLogAspect("info"), "execution(pub fn *(..))", 10, "entryLog")
//	_ = registry.RegisterExpr(aspect.NewMetricsAspect(0), "within(app::service)", 20, "stats")
//
// For detailed documentation on individual aspects, see their respective
// source files.
// 有关各个切面的详细文档，请参见其各自的源文件。
package aspect
