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
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestResetDirRecreatesEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shm")
	m := NewManager(dir)

	if err := m.ResetDir(); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}
	stray := filepath.Join(dir, "stray.i")
	if err := os.WriteFile(stray, []byte("leftover"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	if err := m.ResetDir(); err != nil {
		t.Fatalf("second ResetDir: %v", err)
	}
	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Errorf("expected stray file to be gone after ResetDir, stat err = %v", err)
	}
}

func TestCreateWriteOpenReadCycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shm")
	m := NewManager(dir)
	if err := m.ResetDir(); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}

	payload := []byte("hello function")
	region, err := m.Create("1.i", len(payload))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	copy(region.Base(), payload)
	if err := region.Close(false); err != nil {
		t.Fatalf("Close(false): %v", err)
	}

	reader, err := m.OpenReadOnly("1.i")
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	if !bytes.Equal(reader.ToSpan(), payload) {
		t.Errorf("read back %q, want %q", reader.ToSpan(), payload)
	}
	if err := reader.Close(true); err != nil {
		t.Fatalf("Close(true): %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "1.i")); !os.IsNotExist(err) {
		t.Errorf("expected region file to be unlinked, stat err = %v", err)
	}
}

func TestOpenReadOnlyMissingRegionFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shm")
	m := NewManager(dir)
	if err := m.ResetDir(); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}
	if _, err := m.OpenReadOnly("missing.o"); err == nil {
		t.Error("expected error opening missing region")
	}
}

func TestCreateZeroSizeRegion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shm")
	m := NewManager(dir)
	if err := m.ResetDir(); err != nil {
		t.Fatalf("ResetDir: %v", err)
	}
	region, err := m.Create("2.i", 0)
	if err != nil {
		t.Fatalf("Create zero-size: %v", err)
	}
	if region.Size() != 0 {
		t.Errorf("Size() = %d, want 0", region.Size())
	}
	if err := region.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
