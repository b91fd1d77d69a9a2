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

package wire

import (
	"bytes"
	"fmt"
	"testing"
)

func TestFuncCallFullIDRoundTrip(t *testing.T) {
	fc := FuncCall{FuncID: 7, ClientID: 0, CallID: 12}
	full := fc.FullCallID()
	got := FuncCallFromFullID(full)
	if got != fc {
		t.Errorf("round trip = %+v, want %+v", got, fc)
	}
}

func TestRegionNames(t *testing.T) {
	fc := FuncCall{FuncID: 7, ClientID: 0, CallID: 12}
	full := fc.FullCallID()

	wantIn := fmt.Sprintf("%d.i", full)
	wantOut := fmt.Sprintf("%d.o", full)
	if fc.InputRegionName() != wantIn {
		t.Errorf("InputRegionName() = %q, want %q", fc.InputRegionName(), wantIn)
	}
	if fc.OutputRegionName() != wantOut {
		t.Errorf("OutputRegionName() = %q, want %q", fc.OutputRegionName(), wantOut)
	}
}

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{
		Type:             MsgHandshakeResponse,
		Call:             FuncCall{FuncID: 3, ClientID: 9, CallID: 100},
		SendTimestamp:    1234567,
		Role:             RoleWatchdog,
		Status:           StatusWatchdogExists,
		AssignedClientID: 42,
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, m); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if buf.Len() != MessageSize {
		t.Fatalf("encoded length = %d, want %d", buf.Len(), MessageSize)
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got != m {
		t.Errorf("decoded = %+v, want %+v", got, m)
	}
}

func TestDecodeMessageRejectsBadMagic(t *testing.T) {
	buf := make([]byte, MessageSize)
	buf[0] = 0x00
	buf[1] = Version
	if _, err := DecodeMessage(buf); err == nil {
		t.Error("expected error for bad magic byte")
	}
}

func TestDecodeMessageRejectsWrongLength(t *testing.T) {
	if _, err := DecodeMessage(make([]byte, 10)); err == nil {
		t.Error("expected error for short frame")
	}
}
