//go:build !linux && !darwin
// +build !linux,!darwin

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

package sharedmem

import (
	"fmt"
	"os"
)

// mmapReadWrite has no portable implementation outside linux/darwin; the
// gateway's shared-memory contract (spec §4.1) is a POSIX mmap contract
// with the watchdog process and is not meaningful on other platforms.
func mmapReadWrite(file *os.File, size int) ([]byte, error) {
	return nil, fmt.Errorf("sharedmem: mmap not supported on this platform")
}

func mmapReadOnly(file *os.File, size int) ([]byte, error) {
	return nil, fmt.Errorf("sharedmem: mmap not supported on this platform")
}

func munmap(data []byte) error {
	return fmt.Errorf("sharedmem: munmap not supported on this platform")
}
