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
Package transferbus hands an accepted connection from the listener
goroutine to exactly one I/O worker, which then owns that connection for
its entire lifetime (spec §4.3). The reference gateway does this handoff
across threads with a socketpair and SCM_RIGHTS fd passing; a buffered Go
channel per worker is the direct idiomatic equivalent — ownership transfer
without shared mutable state.
*/
package transferbus

import (
	"fmt"
	"net"
)

// Handoff is one accepted connection routed to a worker, tagged with the
// connection ID the gateway assigned it at accept time.
type Handoff struct {
	ConnectionID uint64
	Conn         net.Conn
}

// Bus holds one inbound channel per I/O worker. The listener picks a
// worker round-robin and
// sends the handoff down that worker's channel; only that worker ever
// reads it.
type Bus struct {
	lanes []chan Handoff
}

// New returns a Bus with numWorkers lanes, each buffered to capacity.
func New(numWorkers, capacity int) *Bus {
	if numWorkers < 1 {
		numWorkers = 1
	}
	lanes := make([]chan Handoff, numWorkers)
	for i := range lanes {
		lanes[i] = make(chan Handoff, capacity)
	}
	return &Bus{lanes: lanes}
}

// NumLanes returns the number of worker lanes.
func (b *Bus) NumLanes() int { return len(b.lanes) }

// Send hands conn to the given worker lane. It blocks while the lane is at
// capacity, and returns an error instead of blocking forever if the lane
// is closed, including concurrently while Send is waiting.
func (b *Bus) Send(lane int, h Handoff) (err error) {
	if lane < 0 || lane >= len(b.lanes) {
		return fmt.Errorf("transferbus: lane %d out of range [0,%d)", lane, len(b.lanes))
	}
	defer func() {
		if recover() != nil {
			err = fmt.Errorf("transferbus: lane %d is closed", lane)
		}
	}()
	b.lanes[lane] <- h
	return nil
}

// Lane returns the receive-only channel for a worker to range over.
func (b *Bus) Lane(lane int) <-chan Handoff {
	return b.lanes[lane]
}

// CloseLane closes a worker's inbound lane, signalling no further
// connections will be handed to it. Workers should drain remaining
// buffered handoffs before exiting.
func (b *Bus) CloseLane(lane int) {
	close(b.lanes[lane])
}
