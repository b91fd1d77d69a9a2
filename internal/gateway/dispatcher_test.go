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
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firefly-research/gatewayd/internal/funcconfig"
	"github.com/firefly-research/gatewayd/internal/metrics"
	"github.com/firefly-research/gatewayd/internal/sharedmem"
	"github.com/firefly-research/gatewayd/internal/wire"
)

// fakeWatchdog stands in for a real watchdog process connected over IPC,
// driving the shared-memory side of an invocation in-process (on its own
// goroutine) so tests don't need a real Unix socket (spec §8 scenario 1-4,
// 5's fake-watchdog harness).
type fakeWatchdog struct {
	clientID uint16
	shm      *sharedmem.Manager
	behavior func(msg wire.Message) wire.Message // returns the completion passed to d.handleCompletion
	sent     chan wire.Message
	d        *Dispatcher
}

func newFakeWatchdog(d *Dispatcher, shm *sharedmem.Manager) *fakeWatchdog {
	return &fakeWatchdog{shm: shm, sent: make(chan wire.Message, 8), d: d}
}

func (f *fakeWatchdog) Send(msg interface{}) error {
	m := msg.(wire.Message)
	f.sent <- m
	if m.Type == wire.MsgInvokeFunc && f.behavior != nil {
		go func() {
			completion := f.behavior(m)
			f.d.handleCompletion(completion)
		}()
	}
	return nil
}

func (f *fakeWatchdog) ClientID() uint16 { return f.clientID }
func (f *fakeWatchdog) Close() error     { return nil }

func newTestDispatcher(t *testing.T, functions map[string]uint16) (*Dispatcher, *sharedmem.Manager) {
	t.Helper()
	dir := t.TempDir()
	shmDir := filepath.Join(dir, "shm")
	shm := sharedmem.NewManager(shmDir)
	if err := shm.ResetDir(); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}

	var names []string
	for name, id := range functions {
		names = append(names, fmt.Sprintf(`{"name": %q, "func_id": %d}`, name, id))
	}
	body := "{\"functions\": ["
	for i, n := range names {
		if i > 0 {
			body += ","
		}
		body += n
	}
	body += "]}"
	fcPath := filepath.Join(dir, "func_config.json")
	if err := os.WriteFile(fcPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write func config: %v", err)
	}
	fc, err := funcconfig.Load(fcPath)
	if err != nil {
		t.Fatalf("Load func config: %v", err)
	}

	d := New(nil, fc, shm, metrics.New())
	return d, shm
}

func TestHappyPathEchoOverHTTP(t *testing.T) {
	d, shm := newTestDispatcher(t, map[string]uint16{"echo": 7})
	watchdog := newFakeWatchdog(d, shm)
	watchdog.behavior = func(msg wire.Message) wire.Message {
		in, err := shm.OpenReadOnly(msg.Call.InputRegionName())
		if err != nil {
			t.Errorf("open input region: %v", err)
		}
		payload := append([]byte(nil), in.ToSpan()...)
		in.Close(true)

		out, err := shm.Create(msg.Call.OutputRegionName(), len(payload))
		if err != nil {
			t.Errorf("create output region: %v", err)
		}
		copy(out.Base(), payload)
		out.Close(false)

		return wire.Message{Type: wire.MsgFuncCallComplete, Call: msg.Call}
	}
	if err := d.registry.RegisterWatchdog(7, watchdog); err != nil {
		t.Fatalf("RegisterWatchdog: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/function/echo", strings.NewReader("hi"))
	d.serveHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "hi" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "hi")
	}
}

func TestMissingWatchdogReturns404(t *testing.T) {
	d, _ := newTestDispatcher(t, map[string]uint16{"echo": 7})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/function/echo", strings.NewReader("x"))
	d.serveHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	want := "Cannot find watchdog for func_id 7\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestEmptyBodyRejected(t *testing.T) {
	d, shm := newTestDispatcher(t, map[string]uint16{"echo": 7})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/function/echo", strings.NewReader(""))
	d.serveHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	want := "Request body cannot be empty!\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
	entries, _ := os.ReadDir(shm.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no shared-memory regions created, found %d", len(entries))
	}
}

func TestFunctionFailureReturns500AndUnlinksRegions(t *testing.T) {
	d, shm := newTestDispatcher(t, map[string]uint16{"echo": 7})
	watchdog := newFakeWatchdog(d, shm)
	watchdog.behavior = func(msg wire.Message) wire.Message {
		return wire.Message{Type: wire.MsgFuncCallFailed, Call: msg.Call}
	}
	if err := d.registry.RegisterWatchdog(7, watchdog); err != nil {
		t.Fatalf("RegisterWatchdog: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/function/echo", strings.NewReader("x"))
	d.serveHTTP(rec, req)

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Body.String() != "Function call failed\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	time.Sleep(50 * time.Millisecond)
	entries, _ := os.ReadDir(shm.Dir())
	if len(entries) != 0 {
		t.Errorf("expected regions unlinked after failure, found %d entries", len(entries))
	}
}

func TestDuplicateWatchdogHandshakeCollision(t *testing.T) {
	d, _ := newTestDispatcher(t, map[string]uint16{"echo": 7})

	first := newFakeWatchdog(d, nil)
	second := newFakeWatchdog(d, nil)

	if err := d.registry.RegisterWatchdog(7, first); err != nil {
		t.Fatalf("first RegisterWatchdog: %v", err)
	}
	if err := d.registry.RegisterWatchdog(7, second); err == nil {
		t.Fatal("expected second RegisterWatchdog to collide")
	}

	conn, ok := d.registry.Watchdog(7)
	if !ok || conn != first {
		t.Fatal("expected first watchdog to remain registered")
	}
}
