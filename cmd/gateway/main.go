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
Package main is the entry point for the gatewayd control-plane daemon.

Startup flow:

 1. Load configuration (flags > env > file > defaults).
 2. Configure the logging system.
 3. Load the static function routing table.
 4. Build the shared-memory region manager.
 5. Construct the dispatcher and register its handlers.
 6. Optionally advertise this node over mDNS for index-shard discovery.
 7. Start the dispatcher and block until a shutdown signal arrives.

Command-line flags:

	-http-addr   HTTP listener address (default :8080)
	-grpc-addr   gRPC facade listener address (default :8081)
	-ipc-path    Unix control-channel socket path
	-shm-path    Shared-memory region directory
	-func-config Path to the function routing table JSON file
	-config      Path to a JSON configuration file
	-log-level   debug, info, warn, error
	-log-json    Emit structured JSON log lines
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/firefly-research/gatewayd/internal/banner"
	"github.com/firefly-research/gatewayd/internal/config"
	"github.com/firefly-research/gatewayd/internal/discovery"
	"github.com/firefly-research/gatewayd/internal/funcconfig"
	"github.com/firefly-research/gatewayd/internal/gateway"
	"github.com/firefly-research/gatewayd/internal/logging"
	"github.com/firefly-research/gatewayd/internal/metrics"
	"github.com/firefly-research/gatewayd/internal/sharedmem"

	"flag"
)

const version = "0.1.0"

func main() {
	cfgMgr := config.Global()
	cfg := cfgMgr.Get()

	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listener address")
	grpcAddr := flag.String("grpc-addr", cfg.GRPCAddr, "gRPC facade listener address")
	ipcPath := flag.String("ipc-path", cfg.IPCPath, "Unix control-channel socket path")
	shmPath := flag.String("shm-path", cfg.SharedMemPath, "Shared-memory region directory")
	funcConfigPath := flag.String("func-config", cfg.FuncConfigPath, "Path to the function routing table JSON file")
	configFile := flag.String("config", "", "Path to a JSON configuration file")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", cfg.LogJSON, "Emit structured JSON log lines")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gatewayd version %s\n", version)
		os.Exit(0)
	}

	if *configFile != "" {
		if err := cfgMgr.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
	}
	cfgMgr.LoadFromEnv()
	cfg = cfgMgr.Get()

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "grpc-addr":
			cfg.GRPCAddr = *grpcAddr
		case "ipc-path":
			cfg.IPCPath = *ipcPath
		case "shm-path":
			cfg.SharedMemPath = *shmPath
		case "func-config":
			cfg.FuncConfigPath = *funcConfigPath
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-json":
			cfg.LogJSON = *logJSON
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	cfgMgr.Set(cfg)

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSON(cfg.LogJSON)
	log := logging.NewLogger("main")

	banner.Print(os.Stdout, cfg, version)

	fc, err := funcconfig.Load(cfg.FuncConfigPath)
	if err != nil {
		log.Fatal("failed to load function config", "error", err, "path", cfg.FuncConfigPath)
	}
	log.Info("function config loaded", "routes", fc.Len(), "path", cfg.FuncConfigPath)

	shm := sharedmem.NewManager(cfg.SharedMemPath)
	m := metrics.New()
	d := gateway.New(cfg, fc, shm, m)

	var advertiser *discovery.Advertiser
	if cfg.DiscoveryEnabled {
		port := tcpPortOf(cfg.HTTPAddr)
		advertiser, err = discovery.Advertise(cfg.DiscoveryService, cfg.NodeID, uint16(cfg.NumIndexShards), port)
		if err != nil {
			log.Warn("mDNS advertise failed, continuing without discovery", "error", err)
		} else {
			log.Info("advertising for index-shard discovery", "service", cfg.DiscoveryService, "node_id", cfg.NodeID)
			defer advertiser.Close()
		}
	}

	if err := d.Start(); err != nil {
		log.Fatal("dispatcher failed to start", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig.String())
		d.ScheduleStop()
	}()

	d.WaitForFinish()
	log.Info("gatewayd stopped")
}

// tcpPortOf extracts the numeric port from a "host:port" listener address,
// defaulting to 0 (let mDNS advertise an arbitrary port) on a parse miss.
func tcpPortOf(addr string) int {
	var port int
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			fmt.Sscanf(addr[i+1:], "%d", &port)
			break
		}
	}
	return port
}
