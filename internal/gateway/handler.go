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

import "sync"

// Request is the gateway's transport-agnostic view of an inbound call,
// built from either the HTTP or the gRPC facade.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Response is a terminal result: a status (HTTP status code, or a gRPC
// code carried by the grpc facade) and a body.
type Response struct {
	Status int
	Body   []byte
}

// Matcher decides whether a handler applies to a request. The dispatcher
// iterates registered handlers in registration order and the first match
// wins (spec §4.4, §9's "dynamic request handlers" note).
type Matcher func(method, path string) bool

// SyncHandler produces its full response inline.
type SyncHandler func(req *Request) Response

// AsyncHandler receives a context it may hold across suspensions (e.g.
// while awaiting a watchdog completion) and must eventually call Finish
// on exactly once.
type AsyncHandler func(ctx *AsyncContext)

// AsyncContext is handed to an AsyncHandler. finish is called at most
// once; later calls are no-ops, matching spec §5's cancellation note that
// a duplicate Finish must be harmless.
type AsyncContext struct {
	Req *Request

	once   sync.Once
	finish func(Response)

	responderOnce sync.Once
	responder     *asyncContextResponder
}

// Finish delivers resp to whatever is waiting on this call. Only the
// first call has any effect.
func (c *AsyncContext) Finish(resp Response) {
	c.once.Do(func() { c.finish(resp) })
}

// Responder returns the Responder view of this context, suitable for
// storing in an ExternalCall. The same instance is returned on every
// call, so cancelling it (e.g. on client disconnect) also short-circuits
// any later ExternalCall.Responder.Finish.
func (c *AsyncContext) Responder() *asyncContextResponder {
	c.responderOnce.Do(func() { c.responder = newResponder(c) })
	return c.responder
}

type handlerEntry struct {
	matcher Matcher
	sync    SyncHandler
	async   AsyncHandler
}

func newAsyncContext(req *Request, finish func(Response)) *AsyncContext {
	return &AsyncContext{Req: req, finish: finish}
}
