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
Package discovery advertises and browses for index-shard peers over mDNS
(spec §4.7, [NEW] Component 10). cmd/gateway calls Advertise when
discovery is enabled; cmd/discover calls Browse and prints the peers it
finds. The index coordinator does not consume browse results: it has no
shard roster, only the configured shard count.
*/
package discovery

import (
	"fmt"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/miekg/dns"
)

// Peer is one discovered index-shard gateway.
type Peer struct {
	NodeID string
	Addr   string
	Port   int
	ShardID uint16
}

// Advertiser publishes this node's presence as an index-shard peer.
type Advertiser struct {
	server *mdns.Server
}

// Advertise registers an mDNS service instance for nodeID/shardID on
// port, under service (spec's DiscoveryService, default
// "_gatewayd-index._tcp"). The shard id travels in a TXT record so
// browsers don't need a second round-trip to learn it.
func Advertise(service, nodeID string, shardID uint16, port int) (*Advertiser, error) {
	info := []string{fmt.Sprintf("shard_id=%d", shardID)}
	service = normalizeService(service)

	mdnsService, err := mdns.NewMDNSService(nodeID, service, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("discovery: build mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: mdnsService})
	if err != nil {
		return nil, fmt.Errorf("discovery: start mdns server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Close stops advertising.
func (a *Advertiser) Close() error {
	return a.server.Shutdown()
}

func normalizeService(service string) string {
	if service == "" {
		return "_gatewayd-index._tcp"
	}
	return service
}

// Browse performs one mDNS lookup for service, returning every peer found
// within timeout. It is a point-in-time snapshot, not a continuous watch;
// a caller that wants fresh results calls Browse again.
func Browse(service string, timeout time.Duration) ([]Peer, error) {
	service = normalizeService(service)
	entriesCh := make(chan *mdns.ServiceEntry, 16)
	var peers []Peer
	done := make(chan struct{})

	go func() {
		for entry := range entriesCh {
			if !belongsToService(service, entry.Name) {
				// hashicorp/mdns's multicast socket is shared across every
				// browse on the host; a stray reply for a differently
				// named service can still land in entriesCh. Validate the
				// DNS-SD instance name against the service we queried
				// before trusting it as a peer.
				continue
			}
			peers = append(peers, Peer{
				NodeID:  entry.Name,
				Addr:    entry.AddrV4.String(),
				Port:    entry.Port,
				ShardID: parseShardID(entry.InfoFields),
			})
		}
		close(done)
	}()

	params := mdns.DefaultParams(service)
	params.Entries = entriesCh
	params.Timeout = timeout
	if err := mdns.Query(params); err != nil {
		close(entriesCh)
		return nil, fmt.Errorf("discovery: query %s: %w", service, err)
	}
	close(entriesCh)
	<-done
	return peers, nil
}

func parseShardID(info []string) uint16 {
	for _, field := range info {
		var id uint16
		if n, err := fmt.Sscanf(field, "shard_id=%d", &id); n == 1 && err == nil {
			return id
		}
	}
	return 0
}

// belongsToService reports whether entryName, a DNS-SD service instance
// name returned by an mDNS query (e.g.
// "node-1._gatewayd-index._tcp.local."), actually belongs to service
// rather than being a stray reply for an unrelated service sharing the
// host's multicast socket.
func belongsToService(service, entryName string) bool {
	suffix := dns.Fqdn(normalizeService(service)) + "local."
	return dns.CompareDomainName(dns.Fqdn(entryName), suffix) >= dns.CountLabel(suffix)
}
