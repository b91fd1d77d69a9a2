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
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/firefly-research/gatewayd/internal/funcconfig"
)

// gRPC status codes relevant to this gateway (spec §6's gRPC surface),
// reproduced here rather than imported: full grpc-go wire framing is the
// out-of-scope "gRPC/HTTP2 wire parser" of spec §1, so this facade speaks
// a minimal path-routed adapter over HTTP/2 (method path "/<service>/<method>")
// and reports outcomes with the same status codes a real gRPC server
// would, via a Grpc-Status response header.
const (
	grpcCodeOK            = 0
	grpcCodeUnknown       = 2
	grpcCodeUnimplemented = 12
)

// serveGRPC is the facade's entry point. Method paths are of the form
// "/<service>/<method>"; service/method resolve through FuncConfig's
// "grpc:<service>" routes exactly as spec §4.4/§6 describe.
func (d *Dispatcher) serveGRPC(w http.ResponseWriter, r *http.Request) {
	service, method, ok := splitGRPCPath(r.URL.Path)
	if !ok {
		writeGRPCStatus(w, grpcCodeUnimplemented)
		return
	}

	entry, ok := d.funcConfig.LookupGRPC(service, method)
	if !ok {
		writeGRPCStatus(w, grpcCodeUnimplemented)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeGRPCStatus(w, grpcCodeUnknown)
		return
	}
	payload := funcconfig.EncodeGRPCInvocation(method, body)

	done := make(chan Response, 1)
	ctx := newAsyncContext(&Request{Method: r.Method, Path: r.URL.Path, Body: body}, func(resp Response) { done <- resp })
	go d.invoke(ctx, entry, payload)

	select {
	case resp := <-done:
		writeGRPCResult(w, resp)
	case <-r.Context().Done():
		ctx.Responder().Cancel()
	}
}

func splitGRPCPath(path string) (service, method string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 || idx == len(trimmed)-1 {
		return "", "", false
	}
	return trimmed[:idx], trimmed[idx+1:], true
}

func writeGRPCResult(w http.ResponseWriter, resp Response) {
	switch resp.Status {
	case http.StatusOK:
		writeGRPCStatus(w, grpcCodeOK)
		w.Write(resp.Body)
	case http.StatusNotFound:
		// NoWatchdog: no engine registered for this route (spec §4.4 step
		// 4, §6, §7) — distinct from an invocation failure.
		writeGRPCStatus(w, grpcCodeUnimplemented)
	default:
		writeGRPCStatus(w, grpcCodeUnknown)
	}
}

func writeGRPCStatus(w http.ResponseWriter, code int) {
	w.Header().Set("Grpc-Status", strconv.Itoa(code))
	w.WriteHeader(http.StatusOK)
}
