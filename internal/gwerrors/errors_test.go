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

package gwerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	base := NoWatchdog(7)
	wrapped := fmt.Errorf("dispatch failed: %w", base)

	if !Is(wrapped, KindNoWatchdog) {
		t.Errorf("expected Is to match KindNoWatchdog through wrapping")
	}
	if Is(wrapped, KindFunctionFailed) {
		t.Errorf("expected Is not to match unrelated kind")
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("mmap failed")
	ge := FatalInitSharedMem("cannot reset shared-memory dir").WithCause(cause)

	if !errors.Is(ge, cause) {
		t.Errorf("expected errors.Is to find wrapped cause")
	}
	if ge.Code != CodeFatalInitSharedMem {
		t.Errorf("Code = %d, want %d", ge.Code, CodeFatalInitSharedMem)
	}
}

func TestErrorMessageFormat(t *testing.T) {
	ge := NoWatchdog(7)
	want := "[NO_WATCHDOG 4000] Cannot find watchdog for func_id 7"
	if ge.Error() != want {
		t.Errorf("Error() = %q, want %q", ge.Error(), want)
	}
}
