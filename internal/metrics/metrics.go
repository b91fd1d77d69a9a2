/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
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

/*
Package metrics holds the gateway's process-wide counters, served as a
JSON snapshot at /metrics. Counters are plain atomics rather than a
registry abstraction, the same low-ceremony approach the teacher's buffer
pool uses for its hit/miss counters.
*/
package metrics

import "sync/atomic"

// Metrics aggregates counters across the dispatcher and index coordinator.
type Metrics struct {
	invocations       atomic.Int64
	failures          atomic.Int64
	handshakes        atomic.Int64
	watchdogConflicts atomic.Int64
	indexQueries      atomic.Int64
	indexTimeouts     atomic.Int64
}

// New returns a zeroed Metrics.
func New() *Metrics { return &Metrics{} }

func (m *Metrics) IncInvocations()       { m.invocations.Add(1) }
func (m *Metrics) IncFailures()          { m.failures.Add(1) }
func (m *Metrics) IncHandshakes()        { m.handshakes.Add(1) }
func (m *Metrics) IncWatchdogConflicts() { m.watchdogConflicts.Add(1) }
func (m *Metrics) IncIndexQueries()      { m.indexQueries.Add(1) }
func (m *Metrics) IncIndexTimeouts()     { m.indexTimeouts.Add(1) }

// Snapshot is the JSON-serializable view served at /metrics.
type Snapshot struct {
	Invocations       int64 `json:"invocations"`
	Failures          int64 `json:"failures"`
	Handshakes        int64 `json:"handshakes"`
	WatchdogConflicts int64 `json:"watchdog_conflicts"`
	IndexQueries      int64 `json:"index_queries"`
	IndexTimeouts     int64 `json:"index_timeouts"`
}

// Snapshot reads all counters into a single consistent-enough struct
// (individual counters are atomic; the snapshot as a whole is not a
// single atomic read, which is acceptable for a diagnostics endpoint).
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Invocations:       m.invocations.Load(),
		Failures:          m.failures.Load(),
		Handshakes:        m.handshakes.Load(),
		WatchdogConflicts: m.watchdogConflicts.Load(),
		IndexQueries:      m.indexQueries.Load(),
		IndexTimeouts:     m.indexTimeouts.Load(),
	}
}
