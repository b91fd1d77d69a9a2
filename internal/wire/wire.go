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
Package wire implements the watchdog control protocol: a fixed-size framed
binary message carried over the Unix-domain IPC stream between the gateway
and each watchdog/engine-worker peer.

Wire format (32 bytes, big-endian):

	+--------+--------+-----------------+-----------------+-----------------+
	| Magic  |Version |   MessageType   |     FuncID      |    ClientID     |
	| (1B)   | (1B)   |      (2B)       |      (2B)       |      (2B)       |
	+--------+--------+-----------------+-----------------+-----------------+
	|             CallID (4B)            |        SendTimestamp (8B)        |
	+-------------------------------------+-----------------------------------+
	|  Role  | Status |  AssignedClient | Reserved (8B, profiling timestamp) |
	|  (1B)  | (1B)   |      (2B)       |                                   |
	+--------+--------+-----------------+-----------------------------------+

Every field is always present; which ones are meaningful depends on
MessageType (Role only matters for HANDSHAKE, Status/AssignedClient only
for HANDSHAKE_RESPONSE). The request/response payload itself never travels
inline — it lives in a shared-memory region named after the FuncCall's
full_call_id (see package sharedmem); this channel only ever carries
control frames.
*/
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	Magic   byte = 0xFA // "FaaS"
	Version byte = 0x01

	MessageSize = 32
)

// MessageType identifies the kind of control frame.
type MessageType uint16

const (
	MsgHandshake MessageType = iota + 1
	MsgHandshakeResponse
	MsgInvokeFunc
	MsgFuncCallComplete
	MsgFuncCallFailed
	MsgIndexDataShard
)

func (t MessageType) String() string {
	switch t {
	case MsgHandshake:
		return "HANDSHAKE"
	case MsgHandshakeResponse:
		return "HANDSHAKE_RESPONSE"
	case MsgInvokeFunc:
		return "INVOKE_FUNC"
	case MsgFuncCallComplete:
		return "FUNC_CALL_COMPLETE"
	case MsgFuncCallFailed:
		return "FUNC_CALL_FAILED"
	case MsgIndexDataShard:
		return "INDEX_DATA_SHARD"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}

// HandshakeRole identifies the kind of peer performing a HANDSHAKE.
type HandshakeRole byte

const (
	RoleWatchdog HandshakeRole = iota + 1
	RoleEngineWorker
)

// HandshakeStatus is carried in HANDSHAKE_RESPONSE.
type HandshakeStatus byte

const (
	StatusOK HandshakeStatus = iota
	StatusWatchdogExists
)

// FuncCall is the (func_id, client_id, call_id) identity packed into a
// 64-bit full_call_id, per spec §3. client_id == 0 marks an external
// invocation; client_id > 0 marks a nested invocation routed through a
// message connection.
type FuncCall struct {
	FuncID   uint16
	ClientID uint16
	CallID   uint32
}

// FullCallID packs the tuple into the 64-bit identity used as the
// external-call table key and as the shared-memory region name.
func (f FuncCall) FullCallID() uint64 {
	return uint64(f.FuncID)<<48 | uint64(f.ClientID)<<32 | uint64(f.CallID)
}

// FuncCallFromFullID unpacks a 64-bit identity back into its tuple.
func FuncCallFromFullID(full uint64) FuncCall {
	return FuncCall{
		FuncID:   uint16(full >> 48),
		ClientID: uint16(full >> 32),
		CallID:   uint32(full),
	}
}

// InputRegionName returns the shared-memory region name for this call's
// input payload ("<full_call_id>.i", spec §3/§6).
func (f FuncCall) InputRegionName() string {
	return fmt.Sprintf("%d.i", f.FullCallID())
}

// OutputRegionName returns the shared-memory region name for this call's
// output payload ("<full_call_id>.o").
func (f FuncCall) OutputRegionName() string {
	return fmt.Sprintf("%d.o", f.FullCallID())
}

// IndexDataRegionName returns the shared-memory region name carrying an
// INDEX_DATA_SHARD report's JSON-encoded payload ("<full_call_id>.x"). An
// engine worker packs (shard_id, storage_shard_id slot reused as
// client_id, a local monotonic counter as call_id) into FuncCall purely
// to name this region; the tuple has no external-call meaning here.
func (f FuncCall) IndexDataRegionName() string {
	return fmt.Sprintf("%d.x", f.FullCallID())
}

// Message is one control frame of the watchdog protocol.
type Message struct {
	Type          MessageType
	Call          FuncCall
	SendTimestamp int64

	// Meaningful only when Type == MsgHandshake.
	Role HandshakeRole

	// Meaningful only when Type == MsgHandshakeResponse.
	Status          HandshakeStatus
	AssignedClientID uint16
}

// Encode serializes m into the fixed 32-byte wire format.
func (m Message) Encode() []byte {
	buf := make([]byte, MessageSize)
	buf[0] = Magic
	buf[1] = Version
	binary.BigEndian.PutUint16(buf[2:4], uint16(m.Type))
	binary.BigEndian.PutUint16(buf[4:6], m.Call.FuncID)
	binary.BigEndian.PutUint16(buf[6:8], m.Call.ClientID)
	binary.BigEndian.PutUint32(buf[8:12], m.Call.CallID)
	binary.BigEndian.PutUint64(buf[12:20], uint64(m.SendTimestamp))
	buf[20] = byte(m.Role)
	buf[21] = byte(m.Status)
	binary.BigEndian.PutUint16(buf[22:24], m.AssignedClientID)
	// buf[24:32] reserved.
	return buf
}

// WriteMessage writes m's wire encoding to w.
func WriteMessage(w io.Writer, m Message) error {
	_, err := w.Write(m.Encode())
	return err
}

// ReadMessage reads and decodes one fixed-size frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	buf := make([]byte, MessageSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, err
	}
	return DecodeMessage(buf)
}

// DecodeMessage parses a fixed 32-byte frame.
func DecodeMessage(buf []byte) (Message, error) {
	if len(buf) != MessageSize {
		return Message{}, fmt.Errorf("wire: invalid frame length %d, want %d", len(buf), MessageSize)
	}
	if buf[0] != Magic {
		return Message{}, fmt.Errorf("wire: invalid magic byte 0x%02x", buf[0])
	}
	if buf[1] != Version {
		return Message{}, fmt.Errorf("wire: unsupported version 0x%02x", buf[1])
	}
	m := Message{
		Type: MessageType(binary.BigEndian.Uint16(buf[2:4])),
		Call: FuncCall{
			FuncID:   binary.BigEndian.Uint16(buf[4:6]),
			ClientID: binary.BigEndian.Uint16(buf[6:8]),
			CallID:   binary.BigEndian.Uint32(buf[8:12]),
		},
		SendTimestamp:    int64(binary.BigEndian.Uint64(buf[12:20])),
		Role:             HandshakeRole(buf[20]),
		Status:           HandshakeStatus(buf[21]),
		AssignedClientID: binary.BigEndian.Uint16(buf[22:24]),
	}
	return m, nil
}
