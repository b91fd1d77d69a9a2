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
	"net"
	"sync"

	"github.com/firefly-research/gatewayd/internal/wire"
)

// ipcConnection wraps one Unix-domain stream to a watchdog or co-located
// engine worker, framing messages with the wire package's fixed-size
// format (spec §6, watchdog control protocol).
type ipcConnection struct {
	conn     net.Conn
	writeMu  sync.Mutex
	clientID uint16
	role     wire.HandshakeRole
}

func newIPCConnection(conn net.Conn) *ipcConnection {
	return &ipcConnection{conn: conn}
}

// Send writes msg to the peer. Safe for concurrent use: the dispatcher may
// forward a completion to this connection from a different goroutine than
// the one driving its read loop.
func (c *ipcConnection) Send(msg interface{}) error {
	m, ok := msg.(wire.Message)
	if !ok {
		return errNotWireMessage
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteMessage(c.conn, m)
}

func (c *ipcConnection) ClientID() uint16 { return c.clientID }

func (c *ipcConnection) Close() error { return c.conn.Close() }

var errNotWireMessage = wireMessageTypeError{}

type wireMessageTypeError struct{}

func (wireMessageTypeError) Error() string { return "gateway: Send given a non-wire.Message value" }

// runIPCConnection drives one owned IPC connection's read loop: handshake
// first, then a stream of INVOKE_FUNC / FUNC_CALL_COMPLETE / FUNC_CALL_FAILED
// frames, routed by Dispatcher until the peer disconnects (spec §4.4,
// §4.7's TransportEof policy).
func (d *Dispatcher) runIPCConnection(connectionID uint64, netConn net.Conn) {
	conn := newIPCConnection(netConn)
	defer func() {
		d.registry.RemoveConnection(conn.ClientID(), conn)
		if conn.role == wire.RoleEngineWorker {
			// spec §7's TransportEof policy: a query parked on behalf of
			// this connection can never be answered now, so resolve it
			// Invalid instead of leaving it parked until timeout.
			d.index.InvalidateOrigin(conn.ClientID())
		}
		conn.Close()
	}()

	first, err := wire.ReadMessage(netConn)
	if err != nil {
		d.log.Debug("ipc connection closed before handshake", "connection_id", connectionID, "error", err)
		return
	}
	if first.Type != wire.MsgHandshake {
		d.log.Warn("first ipc frame was not a handshake", "connection_id", connectionID, "type", first.Type)
		return
	}

	resp := d.handleHandshake(conn, first)
	conn.clientID = resp.AssignedClientID
	conn.role = first.Role
	if err := conn.Send(resp); err != nil {
		d.log.Debug("failed to send handshake response", "connection_id", connectionID, "error", err)
		return
	}

	for {
		msg, err := wire.ReadMessage(netConn)
		if err != nil {
			d.log.Debug("ipc connection read ended", "connection_id", connectionID, "client_id", conn.clientID, "error", err)
			return
		}
		d.routeIPCMessage(conn, msg)
	}
}

// routeIPCMessage dispatches one frame already past the handshake.
func (d *Dispatcher) routeIPCMessage(source *ipcConnection, msg wire.Message) {
	switch msg.Type {
	case wire.MsgInvokeFunc:
		d.forwardInvoke(msg)
	case wire.MsgFuncCallComplete, wire.MsgFuncCallFailed:
		d.handleCompletion(msg)
	case wire.MsgIndexDataShard:
		d.handleIndexDataShard(source, msg)
	default:
		d.log.Warn("unexpected ipc message type", "type", msg.Type, "client_id", source.clientID)
	}
}

// forwardInvoke implements "internal call routing" (spec §4.4): an
// INVOKE_FUNC arriving from a message connection (a nested call from one
// function to another) is forwarded to the watchdog registered for its
// func_id. Per §9's open question, the destination is always looked up
// fresh from the registry, never assumed to be the sender.
func (d *Dispatcher) forwardInvoke(msg wire.Message) {
	dest, ok := d.registry.Watchdog(msg.Call.FuncID)
	if !ok {
		d.log.Warn("no watchdog for nested invoke", "func_id", msg.Call.FuncID)
		return
	}
	if err := dest.Send(msg); err != nil {
		d.log.Warn("failed forwarding nested invoke", "func_id", msg.Call.FuncID, "error", err)
	}
}

// handleHandshake assigns a client_id and, for watchdogs, attempts to
// claim the func_id in the watchdog registry (spec §4.4).
func (d *Dispatcher) handleHandshake(conn MessageConnection, msg wire.Message) wire.Message {
	clientID := d.ids.NextClientID()
	d.registry.RegisterClient(clientID, conn)
	if d.metrics != nil {
		d.metrics.IncHandshakes()
	}

	status := wire.StatusOK
	if msg.Role == wire.RoleWatchdog {
		if err := d.registry.RegisterWatchdog(msg.Call.FuncID, conn); err != nil {
			status = wire.StatusWatchdogExists
			if d.metrics != nil {
				d.metrics.IncWatchdogConflicts()
			}
			d.log.Warn("watchdog handshake collision", "func_id", msg.Call.FuncID)
		}
	}
	return wire.Message{
		Type:             wire.MsgHandshakeResponse,
		Status:           status,
		AssignedClientID: clientID,
	}
}
