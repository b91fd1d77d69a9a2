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
Package index maintains the shared log's tag index: a per-space mapping
from tag to the ordered (seqnum, engine_id) pairs of calls carrying that
tag, built by aggregating per-shard IndexData as storage shards report it
(spec §4.7).

A metalog cut only becomes queryable once every storage shard has
reported its data for that cut's position — Coordinator tracks this with
a per-position set of reporting shard IDs, exactly mirroring the
reference system's storage_shards_index_updates_ bookkeeping, and caches
each position's expected end_seqnum in end_seqnum_positions_ from the
shard reports themselves. Once a position's shard set is complete, the
cut is also applied to the per-sequencer LogSpaceBase passed at
construction time (OnMetaLogApplied/PopCut), which is what keeps that
base's cuts deque in lockstep with what the index has actually ingested
rather than a second, disconnected bookkeeping trail. Queries that arrive
before the frontier reaches their required position are parked and
re-evaluated on every frontier advance, with a fixed timeout matching the
reference system's blocking-read deadline.
*/
package index

import (
	"sync"
	"time"

	"github.com/firefly-research/gatewayd/internal/gwerrors"
	"github.com/firefly-research/gatewayd/internal/logging"
	"github.com/firefly-research/gatewayd/internal/metalog"
	"github.com/firefly-research/gatewayd/internal/metrics"
)

// blockingQueryTimeout bounds how long a query parked on a not-yet-reached
// metalog position waits before resolving NotFound (spec §7, QueryTimeout).
const blockingQueryTimeout = time.Second

// QueryType selects FindNext or FindPrev semantics.
type QueryType int

const (
	QueryNext QueryType = iota
	QueryPrev
)

// ResultState classifies a query outcome (spec §3's IndexQueryResult).
type ResultState int

const (
	ResultFound ResultState = iota
	ResultNotFound
	ResultContinueNextView
	ResultInvalid
)

// Query is one tag lookup request. OriginClientID, when nonzero, names the
// IPC client_id that submitted this query; a TransportEof for that
// connection resolves the query Invalid instead of leaving it parked
// (spec §7's TransportEof row).
type Query struct {
	UserLogSpace    uint32
	Tag             string
	Type            QueryType
	Seqnum          uint64 // min (Next) or max (Prev) bound
	RequiredMetalog uint64 // frontier position the answer must reflect
	OriginClientID  uint16
}

// Result is the resolved outcome of a Query.
type Result struct {
	State    ResultState
	Seqnum   uint64
	EngineID uint16
	ViewID   uint32 // meaningful only when State == ResultContinueNextView
}

// IndexData is one storage shard's report of newly indexed calls for a
// given metalog position, carrying the (seqnum, tags) of each call that
// committed under that cut, plus the cut's end_seqnum (spec §4.7).
type IndexData struct {
	ShardID         uint16
	MetalogPosition uint64
	EndSeqnum       uint64
	Records         []IndexRecord
}

// IndexRecord is one call's tag set as reported by a storage shard.
type IndexRecord struct {
	UserLogSpace uint32
	Seqnum       uint64
	EngineID     uint16
	Tags         []string
}

type shardCompletion struct {
	shards map[uint16]struct{}
	local  bool // true once ProvideIndexData (single-producer mode) reported this position
}

func (s *shardCompletion) complete(numShards int) bool {
	return s.local || len(s.shards) >= numShards
}

type parkedQuery struct {
	query    Query
	deadline time.Time
	result   chan Result
	polled   bool // true once enqueued via QueueQuery rather than MakeQuery
}

// Coordinator aggregates shard reports for one sequencer's metalog and
// answers FindNext/FindPrev queries against the resulting tag index.
type Coordinator struct {
	mu sync.Mutex

	numShards int
	base      *metalog.LogSpaceBase
	log       *logging.Logger
	metrics   *metrics.Metrics

	spaces map[uint32]*PerSpaceIndex

	// receivedData holds index records keyed by metalog position until
	// every shard has reported for that position, mirroring the
	// reference system's received_data_ map.
	receivedData       map[uint64][]IndexRecord
	shardSets          map[uint64]*shardCompletion
	endSeqnumPositions map[uint64]uint64 // metalog position -> expected end_seqnum

	indexedMetalogPosition uint64
	indexedSeqnumPosition  uint64

	parked         []*parkedQuery
	pendingResults []Result
}

// NewCoordinator returns a coordinator for a sequencer's metalog,
// expecting shard reports from numShards distinct storage shards per
// cut before that cut is considered fully indexed. base tracks the same
// sequencer's applied-metalog state; the coordinator is its exclusive
// driver (OnMetaLogApplied/PopCut), so base must not be shared with any
// other feeder.
func NewCoordinator(base *metalog.LogSpaceBase, numShards int) *Coordinator {
	if numShards < 1 {
		numShards = 1
	}
	return &Coordinator{
		numShards:          numShards,
		base:               base,
		log:                logging.NewLogger("index"),
		spaces:             make(map[uint32]*PerSpaceIndex),
		receivedData:       make(map[uint64][]IndexRecord),
		shardSets:          make(map[uint64]*shardCompletion),
		endSeqnumPositions: make(map[uint64]uint64),
	}
}

// AttachMetrics wires m so query and timeout counts are observable at
// /metrics; a Coordinator built without calling this simply skips
// counting. Separate from NewCoordinator so existing call sites that
// construct a Coordinator for tests or before metrics exists don't need
// a constructor signature change.
func (c *Coordinator) AttachMetrics(m *metrics.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// IndexedMetalogPosition returns the frontier up to which every shard's
// data has been merged into the per-space indices.
func (c *Coordinator) IndexedMetalogPosition() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexedMetalogPosition
}

// IndexedSeqnumPosition returns the seqnum frontier implied by the last
// fully-applied cut (spec §4.7's indexed_seqnum_position_).
func (c *Coordinator) IndexedSeqnumPosition() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexedSeqnumPosition
}

// ProvideIndexDataShard ingests one storage shard's report for a metalog
// position (sharded-tier mode: num_shards distinct shards must all report
// before the position advances) and drains as many now-complete cuts as
// possible. It returns whether at least one cut became fully indexed as a
// result (resolving spec §9's AdvanceIndexProgress ambiguity: ingest then
// drain every cut that is now complete, reporting whether progress was
// made).
func (c *Coordinator) ProvideIndexDataShard(data IndexData) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingestLocked(data, false)
	return c.drainLocked()
}

// ProvideIndexData ingests index data in local (single-producer) mode:
// there is exactly one producer for the whole space, so a position is
// complete as soon as it is reported at all, regardless of num_shards
// (spec §4.7's "ProvideIndexData(proto) for local (single-producer)
// mode").
func (c *Coordinator) ProvideIndexData(data IndexData) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingestLocked(data, true)
	return c.drainLocked()
}

func (c *Coordinator) ingestLocked(data IndexData, local bool) {
	c.receivedData[data.MetalogPosition] = append(c.receivedData[data.MetalogPosition], data.Records...)
	c.endSeqnumPositions[data.MetalogPosition] = data.EndSeqnum

	set, ok := c.shardSets[data.MetalogPosition]
	if !ok {
		set = &shardCompletion{shards: make(map[uint16]struct{})}
		c.shardSets[data.MetalogPosition] = set
	}
	set.shards[data.ShardID] = struct{}{}
	if local {
		set.local = true
	}
}

func (c *Coordinator) drainLocked() bool {
	advanced := false
	for c.tryCompleteOne() {
		advanced = true
	}
	if advanced {
		c.resolveParked()
	}
	return advanced
}

// tryCompleteOne advances the frontier by exactly one cut if the cut at
// the current indexedMetalogPosition has reports from every shard (or,
// in local mode, from its single producer). It feeds the completed cut
// into base so the sequencer's applied-metalog state stays driven by the
// same advance this coordinator performs, then bounds which buffered
// records actually enter the per-space indices by that cut's end_seqnum
// (spec §4.7: "apply all received_data_ entries with seqnum < end_seqnum").
func (c *Coordinator) tryCompleteOne() bool {
	pos := c.indexedMetalogPosition
	set, ok := c.shardSets[pos]
	if !ok || !set.complete(c.numShards) {
		return false
	}
	endSeqnum, ok := c.endSeqnumPositions[pos]
	if !ok {
		return false
	}

	if c.base != nil {
		err := c.base.OnMetaLogApplied(metalog.Entry{
			MetalogSeqnum: pos,
			IsCut:         true,
			PrevEndSeqnum: c.indexedSeqnumPosition,
			EndSeqnum:     endSeqnum,
		})
		if err != nil {
			c.log.Error("metalog invariant violation, index frontier stuck", "position", pos, "error", err)
			return false
		}
		if cut, ok := c.base.PopCut(); ok {
			endSeqnum = cut.EndSeqnum
		}
	}

	for _, rec := range c.receivedData[pos] {
		if rec.Seqnum >= endSeqnum {
			continue
		}
		space, ok := c.spaces[rec.UserLogSpace]
		if !ok {
			space = NewPerSpaceIndex()
			c.spaces[rec.UserLogSpace] = space
		}
		space.Add(rec.Seqnum, rec.EngineID, rec.Tags)
	}

	delete(c.receivedData, pos)
	delete(c.shardSets, pos)
	delete(c.endSeqnumPositions, pos)
	c.indexedSeqnumPosition = endSeqnum
	c.indexedMetalogPosition = pos + 1
	c.log.Debug("index frontier advanced", "position", c.indexedMetalogPosition, "seqnum_position", endSeqnum)
	return true
}

// MakeQuery resolves q immediately if the frontier already covers
// RequiredMetalog, or parks it and blocks until either a frontier advance
// resolves it or blockingQueryTimeout elapses, in which case it resolves
// NotFound (spec §4.7 "Blocking queries", §7 QueryTimeout policy, §8
// scenario 6). Use QueueQuery/PollQueryResults instead when the caller
// must not block.
func (c *Coordinator) MakeQuery(q Query) Result {
	c.mu.Lock()
	if c.metrics != nil {
		c.metrics.IncIndexQueries()
	}
	if c.indexedMetalogPosition >= q.RequiredMetalog {
		result := c.resolveLocked(q)
		c.mu.Unlock()
		return result
	}

	pq := &parkedQuery{query: q, deadline: time.Now().Add(blockingQueryTimeout), result: make(chan Result, 1)}
	c.parked = append(c.parked, pq)
	c.mu.Unlock()

	select {
	case res := <-pq.result:
		return res
	case <-time.After(blockingQueryTimeout):
		c.log.Debug("blocking query timed out", "error", QueryTimeoutError())
		if c.metrics != nil {
			c.metrics.IncIndexTimeouts()
		}
		return Result{State: ResultNotFound}
	}
}

// QueueQuery submits q without blocking the calling goroutine: it
// resolves immediately into the pending-result vector if the frontier
// already covers it, or parks it to be resolved (or timed out) on a later
// PollQueryResults/advance, same as MakeQuery but never waited on here
// (spec §4.7's MakeQuery/PollQueryResults pairing for non-blocking
// callers).
func (c *Coordinator) QueueQuery(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.IncIndexQueries()
	}
	if c.indexedMetalogPosition >= q.RequiredMetalog {
		c.pendingResults = append(c.pendingResults, c.resolveLocked(q))
		return
	}
	c.parked = append(c.parked, &parkedQuery{
		query:    q,
		deadline: time.Now().Add(blockingQueryTimeout),
		polled:   true,
	})
}

// PollQueryResults drains and clears the pending result vector: every
// result produced for a QueueQuery call since the last poll (spec §4.7).
func (c *Coordinator) PollQueryResults() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	remaining := c.parked[:0]
	for _, pq := range c.parked {
		if pq.polled && now.After(pq.deadline) {
			if c.metrics != nil {
				c.metrics.IncIndexTimeouts()
			}
			c.pendingResults = append(c.pendingResults, Result{State: ResultNotFound})
			continue
		}
		remaining = append(remaining, pq)
	}
	c.parked = remaining
	out := c.pendingResults
	c.pendingResults = nil
	return out
}

// resolveLocked answers q against the currently indexed data. Caller
// must hold c.mu.
func (c *Coordinator) resolveLocked(q Query) Result {
	space, ok := c.spaces[q.UserLogSpace]
	var rec Record
	var found bool
	if ok {
		if q.Type == QueryNext {
			rec, found = space.FindNext(q.Tag, q.Seqnum)
		} else {
			rec, found = space.FindPrev(q.Tag, q.Seqnum)
		}
	}
	if found {
		return Result{State: ResultFound, Seqnum: rec.Seqnum, EngineID: rec.EngineID}
	}

	// A finalized view with nothing known at or beyond the query's bound
	// means the answer, if any, lives in the next view (spec §4.7's
	// tie-break: "a query whose metalog_progress_required refers to a
	// finalized position in a prior view returns ContinueToNextView").
	if c.base != nil && c.base.Finalized() && q.Seqnum >= c.indexedSeqnumPosition {
		return Result{State: ResultContinueNextView, ViewID: c.base.CurrentView() + 1}
	}
	return Result{State: ResultNotFound}
}

// resolveParked re-evaluates every parked query after a frontier advance,
// delivering results to those now satisfiable and dropping them from the
// park list; queries still below the frontier remain parked until the
// next advance or their own timeout fires.
func (c *Coordinator) resolveParked() {
	remaining := c.parked[:0]
	for _, pq := range c.parked {
		if c.indexedMetalogPosition >= pq.query.RequiredMetalog {
			c.deliver(pq, c.resolveLocked(pq.query))
			continue
		}
		if time.Now().After(pq.deadline) {
			c.log.Debug("blocking query timed out", "error", QueryTimeoutError())
			if c.metrics != nil {
				c.metrics.IncIndexTimeouts()
			}
			c.deliver(pq, Result{State: ResultNotFound})
			continue
		}
		remaining = append(remaining, pq)
	}
	c.parked = remaining
}

func (c *Coordinator) deliver(pq *parkedQuery, res Result) {
	if pq.polled {
		c.pendingResults = append(c.pendingResults, res)
		return
	}
	pq.result <- res
}

// InvalidateOrigin resolves every parked query whose OriginClientID is
// clientID as Invalid and drops it, implementing spec §7's TransportEof
// row ("propagate Invalid to any query originating there") for the IPC
// connection that just disconnected.
func (c *Coordinator) InvalidateOrigin(clientID uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.parked[:0]
	for _, pq := range c.parked {
		if pq.query.OriginClientID == clientID {
			c.deliver(pq, Result{State: ResultInvalid})
			continue
		}
		remaining = append(remaining, pq)
	}
	c.parked = remaining
}

// QueryTimeoutError is returned by callers that want an error value
// rather than a Result rendering of the same condition, e.g. for a log
// line at an HTTP/gRPC boundary (the Result itself always resolves
// NotFound per spec §7's QueryTimeout policy).
func QueryTimeoutError() error { return gwerrors.QueryTimedOut() }
