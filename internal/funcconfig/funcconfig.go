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
Package funcconfig loads the static, load-once mapping from function name
(and, for gRPC, from "grpc:<service>") to a FuncEntry{func_id, grpc_methods}
(spec §3). The table is immutable after Load — there is no reload path,
matching the spec's "never mutated" invariant.
*/
package funcconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/firefly-research/gatewayd/internal/gwerrors"
)

// FuncEntry is one resolved function route.
type FuncEntry struct {
	FuncID      uint16
	GRPCMethods map[string]struct{}
}

// fileFunction is the on-disk JSON shape for one function entry.
type fileFunction struct {
	Name        string   `json:"name"`
	FuncID      uint16   `json:"func_id"`
	GRPCMethods []string `json:"grpc_methods,omitempty"`
}

type fileFormat struct {
	Functions []fileFunction `json:"functions"`
}

// FuncConfig is the immutable, load-once function routing table.
type FuncConfig struct {
	byName map[string]FuncEntry
}

// Load reads and parses a function config file (spec §3's FuncConfig).
// Names of the form "grpc:<service>" route gRPC calls; GRPCMethods is the
// set of method names the watchdog for that func_id accepts.
func Load(path string) (*FuncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerrors.FatalInitFuncConfig(fmt.Sprintf("read func config %s", path)).WithCause(err)
	}

	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, gwerrors.FatalInitFuncConfig(fmt.Sprintf("parse func config %s", path)).WithCause(err)
	}

	fc := &FuncConfig{byName: make(map[string]FuncEntry, len(raw.Functions))}
	for _, f := range raw.Functions {
		if f.Name == "" {
			return nil, gwerrors.FatalInitFuncConfig("function entry missing name")
		}
		entry := FuncEntry{FuncID: f.FuncID}
		if len(f.GRPCMethods) > 0 {
			entry.GRPCMethods = make(map[string]struct{}, len(f.GRPCMethods))
			for _, m := range f.GRPCMethods {
				entry.GRPCMethods[m] = struct{}{}
			}
		}
		fc.byName[f.Name] = entry
	}
	return fc, nil
}

// Lookup resolves a plain HTTP function name to its entry.
func (fc *FuncConfig) Lookup(name string) (FuncEntry, bool) {
	entry, ok := fc.byName[name]
	return entry, ok
}

// LookupGRPC resolves a gRPC "<service>/<method>" pair. It requires both
// that "grpc:<service>" is a known route and that method is in its
// grpc_methods set (spec §4.4, §6).
func (fc *FuncConfig) LookupGRPC(service, method string) (FuncEntry, bool) {
	entry, ok := fc.byName["grpc:"+service]
	if !ok {
		return FuncEntry{}, false
	}
	if entry.GRPCMethods == nil {
		return FuncEntry{}, false
	}
	if _, ok := entry.GRPCMethods[method]; !ok {
		return FuncEntry{}, false
	}
	return entry, true
}

// Len returns the number of configured routes, for diagnostics.
func (fc *FuncConfig) Len() int { return len(fc.byName) }

// EncodeGRPCInvocation prepends the method name to the body per spec
// §4.4 step 3: "for gRPC, write method_name \0 body".
func EncodeGRPCInvocation(method string, body []byte) []byte {
	out := make([]byte, 0, len(method)+1+len(body))
	out = append(out, []byte(method)...)
	out = append(out, 0)
	out = append(out, body...)
	return out
}

// SplitGRPCInvocation is the inverse of EncodeGRPCInvocation, used by
// test watchdogs and diagnostics.
func SplitGRPCInvocation(payload []byte) (method string, body []byte, ok bool) {
	idx := strings.IndexByte(string(payload), 0)
	if idx < 0 {
		return "", nil, false
	}
	return string(payload[:idx]), payload[idx+1:], true
}
