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
Package worker implements the gateway's I/O worker: it takes ownership of
connections handed to it over a transferbus lane and drives each one's
request/response loop for the connection's entire lifetime (spec §4.3).

The reference gateway pins one OS thread per worker and reactors over its
owned file descriptors; this port pins one goroutine per worker to an OS
thread for the same locality reasons (predictable CPU affinity, no
cross-thread handoff once a connection is owned) and fans each owned
connection out to its own per-connection goroutine, which is the
idiomatic Go equivalent of a single-threaded reactor's per-fd callback.
*/
package worker

import (
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/firefly-research/gatewayd/internal/logging"
	"github.com/firefly-research/gatewayd/internal/transferbus"
)

// ConnHandler drives one owned connection until it closes or the worker
// is stopped. It must return when conn is closed.
type ConnHandler func(connectionID uint64, conn net.Conn)

// Worker owns a disjoint subset of the gateway's connections for their
// entire lifetime, matching spec §4.3's no-migration-between-workers
// invariant.
type Worker struct {
	id      int
	lane    <-chan transferbus.Handoff
	handler ConnHandler
	log     *logging.Logger

	activeConns atomic.Int64
	stopCh      chan struct{}
	doneCh      chan struct{}
	wg          sync.WaitGroup
}

// New returns a worker that will read handoffs from lane and drive each
// with handler.
func New(id int, lane <-chan transferbus.Handoff, handler ConnHandler) *Worker {
	return &Worker{
		id:      id,
		lane:    lane,
		handler: handler,
		log:     logging.NewLogger("worker"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// ID returns the worker's index, used for metrics and the connection
// transfer bus lane it owns.
func (w *Worker) ID() int { return w.id }

// ActiveConnections returns the number of connections currently owned by
// this worker.
func (w *Worker) ActiveConnections() int64 { return w.activeConns.Load() }

// Start runs the worker's accept loop until ScheduleStop is called or the
// lane closes. It locks the calling goroutine to its OS thread for the
// duration, matching the reference worker's thread-pinning model; callers
// must invoke Start in its own goroutine.
func (w *Worker) Start() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.doneCh)

	for {
		select {
		case h, ok := <-w.lane:
			if !ok {
				w.wg.Wait()
				return
			}
			w.own(h)
		case <-w.stopCh:
			w.wg.Wait()
			return
		}
	}
}

func (w *Worker) own(h transferbus.Handoff) {
	w.activeConns.Add(1)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.activeConns.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("connection handler panicked", "worker_id", w.id, "connection_id", h.ConnectionID, "panic", r)
			}
		}()
		w.handler(h.ConnectionID, h.Conn)
	}()
}

// ScheduleStop requests the worker stop accepting new handoffs. Already
// owned connections are allowed to finish; WaitForFinish blocks until
// they do.
func (w *Worker) ScheduleStop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

// WaitForFinish blocks until Start has returned, i.e. the worker has
// stopped accepting handoffs and every owned connection's handler has
// returned.
func (w *Worker) WaitForFinish() {
	<-w.doneCh
}

// Pool runs a fixed set of workers, each consuming its own transferbus
// lane.
type Pool struct {
	workers []*Worker
}

// NewPool constructs numWorkers workers, each reading bus lane i and
// driving connections with handler.
func NewPool(bus *transferbus.Bus, handler ConnHandler) *Pool {
	n := bus.NumLanes()
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = New(i, bus.Lane(i), handler)
	}
	return &Pool{workers: workers}
}

// Start launches every worker in its own goroutine.
func (p *Pool) Start() {
	for _, w := range p.workers {
		go w.Start()
	}
}

// ScheduleStop requests every worker stop accepting new connections.
func (p *Pool) ScheduleStop() {
	for _, w := range p.workers {
		w.ScheduleStop()
	}
}

// WaitForFinish blocks until every worker has finished.
func (p *Pool) WaitForFinish() {
	for _, w := range p.workers {
		w.WaitForFinish()
	}
}

// Workers exposes the underlying workers, e.g. for connection-count
// metrics or picking the least-loaded lane.
func (p *Pool) Workers() []*Worker { return p.workers }
