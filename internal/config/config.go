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
Package config manages gateway configuration with clear precedence:

 1. Command-line flags (highest priority)
 2. Environment variables (GATEWAY_*)
 3. Configuration file (JSON)
 4. Default values (lowest priority)

The configuration surface is exactly the one enumerated in the
specification's §6: listener addresses, the shared-memory directory, the
io_uring-related tuning knobs (carried as opaque values for a future
reactor backend — this implementation's worker reactor uses goroutines,
not io_uring, but still validates and surfaces the knobs so operators can
stage config files against a future io_uring-backed build), and the
shared-log tuning knobs.
*/
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Environment variable names.
const (
	EnvHTTPAddr            = "GATEWAY_HTTP_ADDR"
	EnvGRPCAddr            = "GATEWAY_GRPC_ADDR"
	EnvIPCPath             = "GATEWAY_IPC_PATH"
	EnvSharedMemPath       = "GATEWAY_SHARED_MEM_PATH"
	EnvFuncConfigPath      = "GATEWAY_FUNC_CONFIG"
	EnvHTTPWorkers         = "GATEWAY_HTTP_WORKERS"
	EnvIPCWorkers          = "GATEWAY_IPC_WORKERS"
	EnvConnPerWorker       = "GATEWAY_CONN_PER_WORKER"
	EnvNumIndexShards      = "GATEWAY_NUM_INDEX_SHARDS"
	EnvLogLevel            = "GATEWAY_LOG_LEVEL"
	EnvLogJSON             = "GATEWAY_LOG_JSON"
	EnvConfigFile          = "GATEWAY_CONFIG_FILE"
)

// Default config file search paths, in order.
var DefaultConfigPaths = []string{
	"/etc/gatewayd/gateway.conf.json",
	"./gateway.conf.json",
}

// Config holds every knob named in the specification's §6 configuration
// surface.
type Config struct {
	// Listener endpoints.
	HTTPAddr string `json:"http_addr"`
	GRPCAddr string `json:"grpc_addr"`
	IPCPath  string `json:"ipc_path"`

	// Shared-memory directory (wiped and recreated on Start).
	SharedMemPath string `json:"shared_mem_path"`

	// FuncConfig load path.
	FuncConfigPath string `json:"func_config_path"`

	// Worker pool sizing.
	HTTPWorkers        int `json:"http_workers"`
	IPCWorkers         int `json:"ipc_workers"`
	GatewayConnPerWorker int `json:"gateway_conn_per_worker"`

	// io_uring tuning surface (spec §6) — validated and stored, consumed
	// by a future io_uring-backed worker reactor.
	IoUringEntries          int `json:"io_uring_entries"`
	IoUringFdSlots          int `json:"io_uring_fd_slots"`
	IoUringSQPoll           bool `json:"io_uring_sqpoll"`
	IoUringSQThreadIdleMs   int `json:"io_uring_sq_thread_idle_ms"`
	IoUringCQNrWait         int `json:"io_uring_cq_nr_wait"`
	IoUringCQWaitTimeoutUs  int `json:"io_uring_cq_wait_timeout_us"`

	// Function-worker transport knobs (spec §6) — validated and stored.
	FuncWorkerUseEngineSocket bool `json:"func_worker_use_engine_socket"`
	UseFifoForNestedCall      bool `json:"use_fifo_for_nested_call"`
	FuncWorkerPipeDirectWrite bool `json:"func_worker_pipe_direct_write"`

	// Shared-log / index tuning knobs (spec §6).
	SharedLogNumReplicas          int `json:"shared_log_num_replicas"`
	SharedLogLocalCutIntervalUs   int `json:"shared_log_local_cut_interval_us"`
	SharedLogGlobalCutIntervalUs  int `json:"shared_log_global_cut_interval_us"`
	NumIndexShards                int `json:"num_index_shards"`

	// Discovery (optional, sharded index tier).
	DiscoveryEnabled bool   `json:"discovery_enabled"`
	DiscoveryService string `json:"discovery_service"`
	NodeID           string `json:"node_id"`

	// Observability.
	LogLevel string `json:"log_level"`
	LogJSON  bool   `json:"log_json"`

	// Metadata, not persisted.
	ConfigFile string `json:"-"`
}

// DefaultConfig returns sensible defaults matching spec §6's listed
// defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:             ":8080",
		GRPCAddr:             ":8081",
		IPCPath:              "/tmp/gatewayd/ipc.sock",
		SharedMemPath:        "/tmp/gatewayd/shm",
		FuncConfigPath:       "./func_config.json",
		HTTPWorkers:          4,
		IPCWorkers:           2,
		GatewayConnPerWorker: 1024,

		IoUringEntries:         256,
		IoUringFdSlots:         1024,
		IoUringSQPoll:          false,
		IoUringSQThreadIdleMs:  1,
		IoUringCQNrWait:        1,
		IoUringCQWaitTimeoutUs: 0,

		FuncWorkerUseEngineSocket: false,
		UseFifoForNestedCall:      false,
		FuncWorkerPipeDirectWrite: false,

		SharedLogNumReplicas:         1,
		SharedLogLocalCutIntervalUs:  1000,
		SharedLogGlobalCutIntervalUs: 1000,
		NumIndexShards:               1,

		DiscoveryEnabled: false,
		DiscoveryService: "_gatewayd-index._tcp",
		NodeID:           "",

		LogLevel: "info",
		LogJSON:  false,
	}
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a manager seeded with defaults.
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

var globalManager = NewManager()

// Global returns the process-wide configuration manager.
func Global() *Manager { return globalManager }

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Set replaces the current configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// LoadFromFile loads JSON configuration from path, merging onto the
// manager's current config (so file values on top of defaults).
func (m *Manager) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	m.mu.Lock()
	cfg := *m.config
	m.mu.Unlock()

	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.ConfigFile = path
	m.Set(&cfg)
	return nil
}

// LoadFromEnv overlays environment variables onto the current config.
func (m *Manager) LoadFromEnv() {
	cfg := m.Get()

	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv(EnvGRPCAddr); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv(EnvIPCPath); v != "" {
		cfg.IPCPath = v
	}
	if v := os.Getenv(EnvSharedMemPath); v != "" {
		cfg.SharedMemPath = v
	}
	if v := os.Getenv(EnvFuncConfigPath); v != "" {
		cfg.FuncConfigPath = v
	}
	if v := os.Getenv(EnvHTTPWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPWorkers = n
		}
	}
	if v := os.Getenv(EnvIPCWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IPCWorkers = n
		}
	}
	if v := os.Getenv(EnvConnPerWorker); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GatewayConnPerWorker = n
		}
	}
	if v := os.Getenv(EnvNumIndexShards); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NumIndexShards = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = v == "1" || v == "true"
	}

	m.Set(cfg)
}

// Validate checks the configuration for internal consistency. A non-nil
// return is a FatalInit-kind condition (spec §7) — callers should abort
// process startup.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTPAddr == "" {
		errs = append(errs, "http_addr must not be empty")
	}
	if c.GRPCAddr == "" {
		errs = append(errs, "grpc_addr must not be empty")
	}
	if c.IPCPath == "" {
		errs = append(errs, "ipc_path must not be empty")
	}
	if c.SharedMemPath == "" {
		errs = append(errs, "shared_mem_path must not be empty")
	}
	if c.HTTPWorkers < 1 {
		errs = append(errs, "http_workers must be at least 1")
	}
	if c.IPCWorkers < 1 {
		errs = append(errs, "ipc_workers must be at least 1")
	}
	if c.GatewayConnPerWorker < 1 {
		errs = append(errs, "gateway_conn_per_worker must be at least 1")
	}
	if c.NumIndexShards < 1 {
		errs = append(errs, "num_index_shards must be at least 1")
	}
	if c.SharedLogNumReplicas < 1 {
		errs = append(errs, "shared_log_num_replicas must be at least 1")
	}

	if len(errs) > 0 {
		msg := errs[0]
		for _, e := range errs[1:] {
			msg += "; " + e
		}
		return fmt.Errorf("invalid configuration: %s", msg)
	}
	return nil
}
