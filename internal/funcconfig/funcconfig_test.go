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

package funcconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-research/gatewayd/internal/gwerrors"
)

const sampleConfig = `{
  "functions": [
    {"name": "echo", "func_id": 7},
    {"name": "grpc:EchoService", "func_id": 8, "grpc_methods": ["Echo", "EchoStream"]}
  ]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "func_config.json")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	fc, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	entry, ok := fc.Lookup("echo")
	if !ok {
		t.Fatal("expected to find echo")
	}
	if entry.FuncID != 7 {
		t.Errorf("FuncID = %d, want 7", entry.FuncID)
	}

	if _, ok := fc.Lookup("nonexistent"); ok {
		t.Error("expected nonexistent to be absent")
	}
}

func TestLookupGRPCRequiresKnownMethod(t *testing.T) {
	fc, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, ok := fc.LookupGRPC("EchoService", "Echo"); !ok {
		t.Error("expected EchoService/Echo to resolve")
	}
	if _, ok := fc.LookupGRPC("EchoService", "Unknown"); ok {
		t.Error("expected unknown method to be rejected")
	}
	if _, ok := fc.LookupGRPC("NoSuchService", "Echo"); ok {
		t.Error("expected unknown service to be rejected")
	}
}

func TestLoadMissingFileIsFatalInit(t *testing.T) {
	_, err := Load("/nonexistent/path/func_config.json")
	if err == nil {
		t.Fatal("expected error loading missing config file")
	}
	if !gwerrors.Is(err, gwerrors.KindFatalInit) {
		t.Errorf("err = %v, want kind %s", err, gwerrors.KindFatalInit)
	}
}

func TestGRPCInvocationEncoding(t *testing.T) {
	body := []byte("payload")
	encoded := EncodeGRPCInvocation("Echo", body)

	method, decodedBody, ok := SplitGRPCInvocation(encoded)
	if !ok {
		t.Fatal("expected successful split")
	}
	if method != "Echo" {
		t.Errorf("method = %q, want Echo", method)
	}
	if string(decodedBody) != string(body) {
		t.Errorf("body = %q, want %q", decodedBody, body)
	}
}
