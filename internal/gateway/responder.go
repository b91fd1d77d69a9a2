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

import "sync/atomic"

// asyncContextResponder adapts an AsyncContext to the Responder interface
// expected by ExternalCall, so the external-call path can finish a
// request without knowing whether it arrived over HTTP or gRPC.
type asyncContextResponder struct {
	ctx       *AsyncContext
	cancelled atomic.Bool
}

func newResponder(ctx *AsyncContext) *asyncContextResponder {
	return &asyncContextResponder{ctx: ctx}
}

func (r *asyncContextResponder) Finish(status int, body []byte) {
	if r.cancelled.Load() {
		return
	}
	r.ctx.Finish(Response{Status: status, Body: body})
}

// Cancel marks the responder cancelled: a later Finish becomes a no-op,
// matching spec §5's rule that shared-memory regions and table entries
// are still cleaned up even though the client already disconnected.
func (r *asyncContextResponder) Cancel() {
	r.cancelled.Store(true)
}
