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

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warn":    WARN,
		"warning": WARN,
		"ERROR":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFiltersBelowGlobalLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetGlobalLevel(WARN)
	defer SetGlobalLevel(INFO)

	log := NewLogger("test")
	log.Info("should not appear")
	log.Warn("should appear", "k", "v")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("expected INFO line to be filtered out, got %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("expected WARN line present, got %q", out)
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetJSON(true)
	defer SetJSON(false)
	SetGlobalLevel(DEBUG)
	defer SetGlobalLevel(INFO)

	log := NewLogger("dispatcher")
	log.Info("watchdog registered", "func_id", 7)

	var fields map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("expected valid JSON line, got error %v (%q)", err, buf.String())
	}
	if fields["component"] != "dispatcher" {
		t.Errorf("component = %v, want dispatcher", fields["component"])
	}
	if fields["msg"] != "watchdog registered" {
		t.Errorf("msg = %v, want %q", fields["msg"], "watchdog registered")
	}
	if fields["func_id"] != float64(7) {
		t.Errorf("func_id = %v, want 7", fields["func_id"])
	}
}
