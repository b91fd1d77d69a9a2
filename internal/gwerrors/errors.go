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
Package gwerrors provides the structured error taxonomy for the gateway
control plane, keyed to the error kinds enumerated in the specification:

  - FatalInit        (1000-1999): config load, bind, mkdir
  - ClientProtocol    (2000-2999): malformed HTTP/gRPC
  - Routing           (3000-3999): unknown function/method
  - NoWatchdog        (4000-4999): registry miss
  - FunctionFailed    (5000-5999): FUNC_CALL_FAILED
  - HandshakeCollision(6000-6999): duplicate watchdog for func_id
  - IndexInvariant    (7000-7999): metalog gap / duplicate
  - QueryTimeout      (8000-8999): blocking query exceeded 1s
  - TransportEof      (9000-9999): peer close
*/
package gwerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error uniquely within its Kind's numbered range.
type Code int

const (
	CodeFatalInitConfig      Code = 1000
	CodeFatalInitBind        Code = 1001
	CodeFatalInitSharedMem   Code = 1002
	CodeFatalInitFuncConfig  Code = 1003
	CodeClientProtocolBadReq Code = 2000
	CodeClientProtocolEmpty  Code = 2001
	CodeRoutingUnknownFunc   Code = 3000
	CodeRoutingUnknownMethod Code = 3001
	CodeNoWatchdog           Code = 4000
	CodeFunctionFailed       Code = 5000
	CodeHandshakeCollision   Code = 6000
	CodeIndexGap             Code = 7000
	CodeIndexDuplicate       Code = 7001
	CodeQueryTimeout         Code = 8000
	CodeTransportEof         Code = 9000
)

// Kind is the error category named in the specification's error table.
type Kind string

const (
	KindFatalInit         Kind = "FATAL_INIT"
	KindClientProtocol    Kind = "CLIENT_PROTOCOL"
	KindRouting           Kind = "ROUTING"
	KindNoWatchdog        Kind = "NO_WATCHDOG"
	KindFunctionFailed    Kind = "FUNCTION_FAILED"
	KindHandshakeCollision Kind = "HANDSHAKE_COLLISION"
	KindIndexInvariant    Kind = "INDEX_INVARIANT"
	KindQueryTimeout      Kind = "QUERY_TIMEOUT"
	KindTransportEof      Kind = "TRANSPORT_EOF"
)

// GatewayError is a structured, wrappable error carrying a Kind/Code pair
// plus enough context to log or translate into a client-facing status.
type GatewayError struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s %d] %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s %d] %s", e.Kind, e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

func (e *GatewayError) WithCause(cause error) *GatewayError {
	e.Cause = cause
	return e
}

func newErr(kind Kind, code Code, message string) *GatewayError {
	return &GatewayError{Kind: kind, Code: code, Message: message}
}

// FatalInit-kind constructors. Callers of these treat any return as fatal
// and abort the process (spec §7).
func FatalInitConfig(message string) *GatewayError {
	return newErr(KindFatalInit, CodeFatalInitConfig, message)
}
func FatalInitBind(message string) *GatewayError {
	return newErr(KindFatalInit, CodeFatalInitBind, message)
}
func FatalInitSharedMem(message string) *GatewayError {
	return newErr(KindFatalInit, CodeFatalInitSharedMem, message)
}
func FatalInitFuncConfig(message string) *GatewayError {
	return newErr(KindFatalInit, CodeFatalInitFuncConfig, message)
}

func ClientProtocolBadRequest(message string) *GatewayError {
	return newErr(KindClientProtocol, CodeClientProtocolBadReq, message)
}
func ClientProtocolEmptyBody() *GatewayError {
	return newErr(KindClientProtocol, CodeClientProtocolEmpty, "Request body cannot be empty!")
}

func RoutingUnknownFunction(name string) *GatewayError {
	return newErr(KindRouting, CodeRoutingUnknownFunc, fmt.Sprintf("unknown function: %s", name))
}
func RoutingUnknownMethod(service, method string) *GatewayError {
	return newErr(KindRouting, CodeRoutingUnknownMethod, fmt.Sprintf("unknown method: %s/%s", service, method))
}

func NoWatchdog(funcID uint16) *GatewayError {
	return newErr(KindNoWatchdog, CodeNoWatchdog, fmt.Sprintf("Cannot find watchdog for func_id %d", funcID))
}

func FunctionCallFailed() *GatewayError {
	return newErr(KindFunctionFailed, CodeFunctionFailed, "Function call failed")
}

func HandshakeCollision(funcID uint16) *GatewayError {
	return newErr(KindHandshakeCollision, CodeHandshakeCollision, fmt.Sprintf("watchdog already registered for func_id %d", funcID))
}

func IndexGap(sequencer uint16, expected, got uint64) *GatewayError {
	return newErr(KindIndexInvariant, CodeIndexGap,
		fmt.Sprintf("metalog gap on sequencer %d: expected seqnum %d, got %d", sequencer, expected, got))
}
func IndexDuplicate(sequencer uint16, seqnum uint64) *GatewayError {
	return newErr(KindIndexInvariant, CodeIndexDuplicate,
		fmt.Sprintf("duplicate metalog seqnum %d on sequencer %d", seqnum, sequencer))
}

func QueryTimedOut() *GatewayError {
	return newErr(KindQueryTimeout, CodeQueryTimeout, "blocking query exceeded timeout")
}

func TransportEOF(detail string) *GatewayError {
	return newErr(KindTransportEof, CodeTransportEof, detail)
}

// Is reports whether err is a GatewayError of the given Kind, unwrapping
// as errors.As does.
func Is(err error, kind Kind) bool {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Kind == kind
}
