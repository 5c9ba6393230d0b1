// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tsl is a foundation for latency-sensitive multi-threaded services.
//
// Three subsystems form a lock-free dataplane:
//
//   - [code.hybscloud.com/tsl/logalloc] — a log-structured, reference-counted
//     region allocator for variable-size objects.
//   - [code.hybscloud.com/tsl/megaqueue] — a single-producer / multi-consumer
//     bounded ring in POSIX shared memory, addressed by 64-bit indices.
//   - [code.hybscloud.com/tsl/workerpool] — CPU-pinned worker threads running
//     cooperative poll loops over a dynamic set of endpoints.
//
// [code.hybscloud.com/tsl/lfq] is the in-process lock-free SPSC queue the
// worker pool's endpoint handoff ring is built on (an
// [code.hybscloud.com/tsl/lfq.SPSC] instance).
//
// This root package holds only the shared result-code taxonomy (errors.go).
package tsl
