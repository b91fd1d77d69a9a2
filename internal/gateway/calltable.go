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

package gateway

import (
	"sync"

	"github.com/firefly-research/gatewayd/internal/sharedmem"
	"github.com/firefly-research/gatewayd/internal/wire"
)

// Responder delivers a terminal result to whatever originated an external
// call (an HTTP request or a gRPC call). Finish is safe to call exactly
// once; a cancelled responder's Finish is a no-op but callers must still
// perform their own cleanup (spec §5, cancellation).
type Responder interface {
	Finish(status int, body []byte)
}

// ExternalCall is the in-flight record for one external invocation, kept
// in the ExternalCallTable from INVOKE_FUNC until completion (spec §3).
type ExternalCall struct {
	Call        wire.FuncCall
	Responder   Responder
	InputRegion *sharedmem.Region
}

// ExternalCallTable tracks in-flight external calls keyed by full_call_id,
// guarded by its own mutex separate from the watchdog/client registry
// (spec §5: "two tables... guarded by mutexes... separate mutex" for the
// external-call table).
type ExternalCallTable struct {
	mu    sync.Mutex
	calls map[uint64]*ExternalCall
}

// NewExternalCallTable returns an empty table.
func NewExternalCallTable() *ExternalCallTable {
	return &ExternalCallTable{calls: make(map[uint64]*ExternalCall)}
}

// Insert adds call under its full_call_id. The id must be unique over the
// table's lifetime (spec §3's ExternalCall invariant); Insert panics on a
// collision since a colliding call_id indicates a broken id generator,
// not a recoverable client-facing condition.
func (t *ExternalCallTable) Insert(call *ExternalCall) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := call.Call.FullCallID()
	if _, exists := t.calls[id]; exists {
		panic("gateway: duplicate full_call_id inserted into external call table")
	}
	t.calls[id] = call
}

// Lookup returns the in-flight call for fullCallID, if any.
func (t *ExternalCallTable) Lookup(fullCallID uint64) (*ExternalCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[fullCallID]
	return call, ok
}

// Remove erases fullCallID from the table, returning the call if present
// so the caller can finish cleaning up its shared-memory regions.
func (t *ExternalCallTable) Remove(fullCallID uint64) (*ExternalCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[fullCallID]
	if ok {
		delete(t.calls, fullCallID)
	}
	return call, ok
}

// Len reports the number of in-flight calls, for metrics.
func (t *ExternalCallTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
