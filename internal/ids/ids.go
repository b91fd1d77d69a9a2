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

// Package ids encapsulates the gateway's process-wide identifier counters
// in a single service rather than module-level globals (spec §9's
// "Global counters" design note): next_call_id_, next_client_id_, and
// next_connection_id_.
package ids

import "sync/atomic"

// Generator hands out monotonically increasing identifiers.
type Generator struct {
	nextCallID       atomic.Uint32
	nextClientID     atomic.Uint32
	nextConnectionID atomic.Uint64
}

// NewGenerator returns a Generator with client_id starting at 1 — 0 is
// reserved for "external" (spec §3, ClientTable).
func NewGenerator() *Generator {
	g := &Generator{}
	g.nextClientID.Store(1)
	return g
}

// NextCallID returns the next call_id for a new FuncCall.
func (g *Generator) NextCallID() uint32 {
	return g.nextCallID.Add(1) - 1
}

// NextClientID returns the next client_id, starting at 1.
func (g *Generator) NextClientID() uint16 {
	return uint16(g.nextClientID.Add(1) - 1)
}

// NextConnectionID returns the next internal connection identifier, used
// by the transfer bus to name a handoff independent of the OS file
// descriptor number.
func (g *Generator) NextConnectionID() uint64 {
	return g.nextConnectionID.Add(1) - 1
}
