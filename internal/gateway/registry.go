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

	"github.com/firefly-research/gatewayd/internal/gwerrors"
)

// MessageConnection is the gateway's view of one IPC peer: a watchdog or a
// co-located engine worker that speaks the framed wire protocol.
type MessageConnection interface {
	// Send writes a message to the peer. Implementations must be safe to
	// call from any goroutine; the dispatcher and workers both send to
	// connections they do not own.
	Send(msg interface{}) error
	// ClientID is the id assigned to this connection at handshake time.
	ClientID() uint16
	// Close tears down the underlying transport.
	Close() error
}

// Registry holds the watchdog registry (func_id -> connection) and the
// client table (client_id -> connection) behind a single mutex, matching
// spec §5's "shared state between dispatcher and workers" guidance: the
// two tables that cross thread/goroutine boundaries share one lock. Each
// method takes the lock on its own, so a handshake's RegisterClient and
// RegisterWatchdog calls are two separate critical sections.
type Registry struct {
	mu sync.Mutex

	watchdogs map[uint16]MessageConnection // func_id -> connection
	clients   map[uint16]MessageConnection // client_id -> connection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		watchdogs: make(map[uint16]MessageConnection),
		clients:   make(map[uint16]MessageConnection),
	}
}

// RegisterClient adds a newly handshaken connection to the client table.
func (r *Registry) RegisterClient(clientID uint16, conn MessageConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[clientID] = conn
}

// RegisterWatchdog attempts to claim func_id for conn. It fails with
// HandshakeCollision if a different connection already holds it; spec
// §4.4 requires the caller still reply WATCHDOG_EXISTS and keep the
// connection alive rather than drop it.
func (r *Registry) RegisterWatchdog(funcID uint16, conn MessageConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.watchdogs[funcID]; ok && existing != conn {
		return gwerrors.HandshakeCollision(funcID)
	}
	r.watchdogs[funcID] = conn
	return nil
}

// Watchdog looks up the watchdog connection for func_id.
func (r *Registry) Watchdog(funcID uint16) (MessageConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.watchdogs[funcID]
	return conn, ok
}

// Client looks up a connection by client_id.
func (r *Registry) Client(clientID uint16) (MessageConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.clients[clientID]
	return conn, ok
}

// RemoveConnection erases conn from the client table and, only if it is
// still the registered owner, from the watchdog registry — a connection
// that lost a handshake race for func_id must not evict the winner.
func (r *Registry) RemoveConnection(clientID uint16, conn MessageConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[clientID]; ok && existing == conn {
		delete(r.clients, clientID)
	}
	for funcID, existing := range r.watchdogs {
		if existing == conn {
			delete(r.watchdogs, funcID)
		}
	}
}
