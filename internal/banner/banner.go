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

// Package banner prints the gateway's startup summary: the handful of
// settings an operator needs to see at a glance before the dispatcher
// starts accepting connections.
package banner

import (
	"fmt"
	"io"

	"github.com/firefly-research/gatewayd/internal/config"
)

const art = `
   _____       _                           _
  / ____|     | |                         | |
 | |  __  __ _| |_ _____      ____ _ _   _ | |
 | | |_ |/ _` + "`" + ` | __/ _ \ \ /\ / / _` + "`" + ` | | | || |
 | |__| | (_| | ||  __/\ V  V / (_| | |_| ||_|
  \_____|\__,_|\__\___| \_/\_/ \__,_|\__, |(_)
                                      __/ |
                                     |___/
`

// Print writes the banner and a summary of the effective configuration
// to w.
func Print(w io.Writer, cfg *config.Config, version string) {
	fmt.Fprint(w, art)
	fmt.Fprintf(w, "gatewayd %s\n", version)
	fmt.Fprintf(w, "  http:        %s\n", cfg.HTTPAddr)
	fmt.Fprintf(w, "  grpc:        %s\n", cfg.GRPCAddr)
	fmt.Fprintf(w, "  ipc:         %s\n", cfg.IPCPath)
	fmt.Fprintf(w, "  shared mem:  %s\n", cfg.SharedMemPath)
	fmt.Fprintf(w, "  func config: %s\n", cfg.FuncConfigPath)
	fmt.Fprintf(w, "  workers:     http=%d ipc=%d conn/worker=%d\n", cfg.HTTPWorkers, cfg.IPCWorkers, cfg.GatewayConnPerWorker)
	fmt.Fprintf(w, "  index:       shards=%d replicas=%d\n", cfg.NumIndexShards, cfg.SharedLogNumReplicas)
	if cfg.DiscoveryEnabled {
		fmt.Fprintf(w, "  discovery:   %s (node_id=%s)\n", cfg.DiscoveryService, cfg.NodeID)
	}
	fmt.Fprintln(w)
}
