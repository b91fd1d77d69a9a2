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
discover finds gatewayd index-shard peers on the local network over mDNS.

Usage:

	discover                   # discover peers (5 second timeout)
	discover --timeout 10      # custom timeout in seconds
	discover --json            # output as JSON
	discover --quiet           # only print addresses, for scripting
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/firefly-research/gatewayd/internal/discovery"
)

func main() {
	service := flag.String("service", "", "mDNS service type to browse (default matches the gateway's)")
	timeout := flag.Int("timeout", 5, "Discovery timeout in seconds")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	quiet := flag.Bool("quiet", false, "Only output addresses (for scripting)")
	flag.Parse()

	// The mdns library logs non-fatal IPv6 lookup errors to the default
	// logger; suppress it so scripting output stays clean.
	log.SetOutput(io.Discard)

	if !*quiet && !*jsonOutput {
		fmt.Printf("Scanning for gatewayd index-shard peers (timeout: %ds)...\n\n", *timeout)
	}

	peers, err := discovery.Browse(*service, time.Duration(*timeout)*time.Second)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "discovery failed: %v\n", err)
		}
		os.Exit(1)
	}

	if len(peers) == 0 {
		if !*quiet && !*jsonOutput {
			fmt.Println("No gatewayd peers found on the network.")
		}
		os.Exit(0)
	}

	switch {
	case *jsonOutput:
		outputJSON(peers)
	case *quiet:
		outputQuiet(peers)
	default:
		outputHuman(peers)
	}
}

func outputJSON(peers []discovery.Peer) {
	data, _ := json.MarshalIndent(peers, "", "  ")
	fmt.Println(string(data))
}

func outputQuiet(peers []discovery.Peer) {
	addrs := make([]string, len(peers))
	for i, p := range peers {
		addrs[i] = fmt.Sprintf("%s:%d", p.Addr, p.Port)
	}
	fmt.Println(strings.Join(addrs, ","))
}

func outputHuman(peers []discovery.Peer) {
	fmt.Printf("Found %d peer(s)\n\n", len(peers))
	for i, p := range peers {
		fmt.Printf("  [%d] %s\n", i+1, p.NodeID)
		fmt.Printf("      addr:     %s:%d\n", p.Addr, p.Port)
		fmt.Printf("      shard_id: %d\n", p.ShardID)
		fmt.Println()
	}
}
