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
	"fmt"
	"net/http"
	"strings"

	"github.com/firefly-research/gatewayd/internal/funcconfig"
	"github.com/firefly-research/gatewayd/internal/wire"
)

// handleFunctionCall implements the external call path of spec §4.4 for
// the HTTP facade (ctx.Req.Path = "/function/<name>"). The gRPC facade
// (serveGRPC in grpc.go) resolves its route itself and calls invoke
// directly.
func (d *Dispatcher) handleFunctionCall(ctx *AsyncContext) {
	name := strings.TrimPrefix(ctx.Req.Path, "/function/")
	entry, _ := d.funcConfig.Lookup(name)
	if len(ctx.Req.Body) == 0 {
		ctx.Finish(Response{Status: http.StatusBadRequest, Body: []byte("Request body cannot be empty!\n")})
		return
	}
	d.invoke(ctx, entry, ctx.Req.Body)
}

// invoke runs steps 1-6 of spec §4.4's external call path against an
// already-resolved FuncEntry and a fully prepared payload (HTTP body, or
// gRPC's method_name\0body encoding). gRPC payloads are never empty even
// when the client's body is, because the method name is always
// prepended (spec §4.4 step 2), so the empty-body rule is enforced by
// each facade before calling invoke, not here.
func (d *Dispatcher) invoke(ctx *AsyncContext, entry funcconfig.FuncEntry, payload []byte) {

	call := wire.FuncCall{
		FuncID:   entry.FuncID,
		ClientID: 0,
		CallID:   d.ids.NextCallID(),
	}

	region, err := d.shm.Create(call.InputRegionName(), len(payload))
	if err != nil {
		d.log.Error("failed to create input region", "error", err, "full_call_id", call.FullCallID())
		ctx.Finish(Response{Status: http.StatusInternalServerError, Body: []byte("Function call failed\n")})
		return
	}
	copy(region.Base(), payload)

	watchdog, ok := d.registry.Watchdog(entry.FuncID)
	if !ok {
		region.Close(true)
		ctx.Finish(Response{
			Status: http.StatusNotFound,
			Body:   []byte(fmt.Sprintf("Cannot find watchdog for func_id %d\n", entry.FuncID)),
		})
		return
	}

	ec := &ExternalCall{Call: call, Responder: ctx.Responder(), InputRegion: region}
	d.calls.Insert(ec)

	if err := watchdog.Send(wire.Message{Type: wire.MsgInvokeFunc, Call: call}); err != nil {
		d.calls.Remove(call.FullCallID())
		region.Close(true)
		d.log.Error("failed to send INVOKE_FUNC", "error", err, "full_call_id", call.FullCallID())
		ctx.Finish(Response{Status: http.StatusInternalServerError, Body: []byte("Function call failed\n")})
		return
	}

	if d.metrics != nil {
		d.metrics.IncInvocations()
	}
}

// handleCompletion implements the completion path of spec §4.4: route a
// FUNC_CALL_COMPLETE/FUNC_CALL_FAILED frame either to the nested caller's
// connection (client_id > 0) or to the waiting external-call responder.
func (d *Dispatcher) handleCompletion(msg wire.Message) {
	if msg.Call.ClientID > 0 {
		conn, ok := d.registry.Client(msg.Call.ClientID)
		if !ok {
			d.log.Warn("completion for unknown client_id dropped", "client_id", msg.Call.ClientID)
			return
		}
		if err := conn.Send(msg); err != nil {
			d.log.Warn("failed forwarding completion to nested caller", "error", err, "client_id", msg.Call.ClientID)
		}
		return
	}

	fullCallID := msg.Call.FullCallID()
	call, ok := d.calls.Remove(fullCallID)
	if !ok {
		// Per spec §9's resolved open question: unknown full_call_id on
		// completion is logged and dropped, not fatal.
		d.log.Warn("completion for unknown full_call_id dropped", "full_call_id", fullCallID)
		return
	}
	defer call.InputRegion.Close(true)

	if msg.Type == wire.MsgFuncCallFailed {
		if d.metrics != nil {
			d.metrics.IncFailures()
		}
		if outRegion, err := d.shm.OpenReadOnly(call.Call.OutputRegionName()); err == nil {
			outRegion.Close(true)
		}
		call.Responder.Finish(http.StatusInternalServerError, []byte("Function call failed\n"))
		return
	}

	outRegion, err := d.shm.OpenReadOnly(call.Call.OutputRegionName())
	if err != nil {
		d.log.Error("failed to open output region", "error", err, "full_call_id", fullCallID)
		call.Responder.Finish(http.StatusInternalServerError, []byte("Function call failed\n"))
		return
	}
	body := append([]byte(nil), outRegion.ToSpan()...)
	outRegion.Close(true)

	call.Responder.Finish(http.StatusOK, body)
}
