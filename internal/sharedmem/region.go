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
Package sharedmem manages the named, memory-mapped byte regions the
gateway uses to hand function payloads to and from watchdog processes
without copying them through the control channel (spec §4.1).

Lifecycle: the producer calls Create(name, size) to allocate and map a
region read/write; the consumer calls OpenReadOnly(name) to map the same
file read-only. Close(removeFile) unmaps and, when removeFile is true,
unlinks — both ends of an ExternalCall are unlinked on completion so no
region outlives its call (spec invariant 3).

Directory discipline: ResetDir deletes and recreates the configured
directory so a prior crash never leaves stale regions visible to a fresh
process (spec §4.1). Any failure here, or any mmap/open failure, is
treated as fatal by callers (spec §7, FatalInit).
*/
package sharedmem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/firefly-research/gatewayd/internal/gwerrors"
)

// Region is one memory-mapped, named byte buffer.
type Region struct {
	name     string
	path     string
	data     []byte
	writable bool
}

// Manager creates and opens regions rooted at a single directory.
type Manager struct {
	dir string
}

// NewManager returns a Manager rooted at dir. Call ResetDir once at
// startup before creating any region.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the configured shared-memory directory.
func (m *Manager) Dir() string { return m.dir }

// ResetDir deletes the shared-memory directory if present and recreates
// it empty, guaranteeing no stale regions survive a prior crash.
func (m *Manager) ResetDir() error {
	if err := os.RemoveAll(m.dir); err != nil {
		return gwerrors.FatalInitSharedMem("failed to clear shared-memory directory").WithCause(err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return gwerrors.FatalInitSharedMem("failed to create shared-memory directory").WithCause(err)
	}
	return nil
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.dir, name)
}

// Create allocates a new region of exactly size bytes and maps it
// read/write. The caller is the producer and is responsible for writing
// its payload and eventually calling Close.
func (m *Manager) Create(name string, size int) (*Region, error) {
	path := m.pathFor(name)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sharedmem: create %s: %w", name, err)
	}
	defer file.Close()

	if size > 0 {
		if err := file.Truncate(int64(size)); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("sharedmem: truncate %s to %d: %w", name, size, err)
		}
	}

	data, err := mmapReadWrite(file, size)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("sharedmem: mmap %s: %w", name, err)
	}

	return &Region{name: name, path: path, data: data, writable: true}, nil
}

// OpenReadOnly maps an existing region for reading. The region must have
// already been fully written and closed (for writing) by its producer,
// or Create'd with its full size reserved, before the consumer opens it.
func (m *Manager) OpenReadOnly(name string) (*Region, error) {
	path := m.pathFor(name)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sharedmem: open %s: %w", name, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("sharedmem: stat %s: %w", name, err)
	}
	size := int(info.Size())

	var data []byte
	if size > 0 {
		data, err = mmapReadOnly(file, size)
		if err != nil {
			return nil, fmt.Errorf("sharedmem: mmap %s: %w", name, err)
		}
	} else {
		data = []byte{}
	}

	return &Region{name: name, path: path, data: data, writable: false}, nil
}

// Name returns the region's file name.
func (r *Region) Name() string { return r.name }

// Base returns the region's underlying memory-mapped byte slice.
func (r *Region) Base() []byte { return r.data }

// Size returns the region's length in bytes.
func (r *Region) Size() int { return len(r.data) }

// ToSpan is an alias for Base, matching the spec's base()/to_span()
// accessor pair (span == slice in Go, so both return the same thing).
func (r *Region) ToSpan() []byte { return r.data }

// Close unmaps the region. When removeFile is true it also unlinks the
// backing file; both the input and output regions of a completed
// ExternalCall are unlinked this way (spec invariant 3).
func (r *Region) Close(removeFile bool) error {
	var unmapErr error
	if len(r.data) > 0 {
		unmapErr = munmap(r.data)
	}
	var removeErr error
	if removeFile {
		removeErr = os.Remove(r.path)
		if os.IsNotExist(removeErr) {
			removeErr = nil
		}
	}
	if unmapErr != nil {
		return fmt.Errorf("sharedmem: munmap %s: %w", r.name, unmapErr)
	}
	if removeErr != nil {
		return fmt.Errorf("sharedmem: unlink %s: %w", r.name, removeErr)
	}
	return nil
}
