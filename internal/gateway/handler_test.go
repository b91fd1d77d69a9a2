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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFirstMatchingHandlerWins(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	var which string
	matchAll := func(method, path string) bool { return path == "/race" }
	d.handlers = append([]handlerEntry{
		{matcher: matchAll, sync: func(*Request) Response {
			which = "first"
			return Response{Status: 200, Body: []byte("first")}
		}},
		{matcher: matchAll, sync: func(*Request) Response {
			which = "second"
			return Response{Status: 200, Body: []byte("second")}
		}},
	}, d.handlers...)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/race", strings.NewReader(""))
	d.serveHTTP(rec, req)

	if which != "first" {
		t.Fatalf("handler invoked = %q, want %q", which, "first")
	}
	if rec.Body.String() != "first" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "first")
	}
}

func TestRegisterHandlerRejectedAfterStart(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	d.state.Store(int32(StateRunning))

	err := d.RegisterSyncRequestHandler(
		func(string, string) bool { return true },
		func(*Request) Response { return Response{} },
	)
	if err == nil {
		t.Fatal("expected registration to be rejected once running")
	}
}

func TestUnmatchedRouteReturns404(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", strings.NewReader(""))
	d.serveHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
