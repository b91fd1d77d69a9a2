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

package discovery

import "testing"

func TestBelongsToServiceAcceptsMatchingInstance(t *testing.T) {
	if !belongsToService("_gatewayd-index._tcp", "node-1._gatewayd-index._tcp.local.") {
		t.Fatal("expected matching instance name to belong to the service")
	}
}

func TestBelongsToServiceRejectsUnrelatedService(t *testing.T) {
	if belongsToService("_gatewayd-index._tcp", "printer-1._ipp._tcp.local.") {
		t.Fatal("expected unrelated service's instance name to be rejected")
	}
}

func TestBelongsToServiceDefaultsEmptyServiceName(t *testing.T) {
	if !belongsToService("", "node-1._gatewayd-index._tcp.local.") {
		t.Fatal("expected empty service to normalize to the default and still match")
	}
}
