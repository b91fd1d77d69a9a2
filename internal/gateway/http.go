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
)

// serveHTTP is the net/http entry point for the HTTP listener. It matches
// the request against registered handlers in registration order (spec
// §9's "dynamic request handlers": first match wins) and either answers
// synchronously or suspends for an AsyncHandler.
func (d *Dispatcher) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	req := &Request{Method: r.Method, Path: r.URL.Path, Body: body}

	entry, ok := d.matchHandler(req.Method, req.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if entry.sync != nil {
		resp := entry.sync(req)
		writeHTTPResponse(w, resp)
		return
	}

	done := make(chan Response, 1)
	ctx := newAsyncContext(req, func(resp Response) { done <- resp })
	go entry.async(ctx)

	select {
	case resp := <-done:
		writeHTTPResponse(w, resp)
	case <-r.Context().Done():
		ctx.Responder().Cancel()
	}
}

func (d *Dispatcher) matchHandler(method, path string) (handlerEntry, bool) {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()
	for _, h := range d.handlers {
		if h.matcher(method, path) {
			return h, true
		}
	}
	return handlerEntry{}, false
}

func writeHTTPResponse(w http.ResponseWriter, resp Response) {
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
