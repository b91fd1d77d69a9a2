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
Package health serves /healthz: a JSON status document reporting whether
the dispatcher has finished starting and is still running. Checks are
named and independently evaluated, the same shape the teacher uses for
its storage-engine/replication checks. The dispatcher registers two:
"dispatcher_running" (is the dispatcher Running) and "index_coordinator"
(reports the coordinator's indexed metalog position).
*/
package health

import (
	"encoding/json"
	"net/http"
)

// Checker reports a single boolean condition, with a name for display.
type Checker func() (ok bool, detail string)

// Handler aggregates named checks into one /healthz endpoint.
type Handler struct {
	checks map[string]Checker
	order  []string
}

// NewHandler returns an empty health handler.
func NewHandler() *Handler {
	return &Handler{checks: make(map[string]Checker)}
}

// AddCheck registers a named check. Checks run in registration order.
func (h *Handler) AddCheck(name string, check Checker) {
	if _, exists := h.checks[name]; !exists {
		h.order = append(h.order, name)
	}
	h.checks[name] = check
}

type checkResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type statusDocument struct {
	OK     bool                   `json:"ok"`
	Checks map[string]checkResult `json:"checks"`
}

// ServeHTTP runs every check and responds 200 if all pass, 503 otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc := statusDocument{OK: true, Checks: make(map[string]checkResult, len(h.order))}
	for _, name := range h.order {
		ok, detail := h.checks[name]()
		doc.Checks[name] = checkResult{OK: ok, Detail: detail}
		if !ok {
			doc.OK = false
		}
	}

	status := http.StatusOK
	if !doc.OK {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}
