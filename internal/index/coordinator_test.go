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

package index

import (
	"testing"
	"time"

	"github.com/firefly-research/gatewayd/internal/metalog"
)

func TestProvideIndexDataShardCompletesOnLastShard(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 2)

	advanced := c.ProvideIndexDataShard(IndexData{
		ShardID:         0,
		MetalogPosition: 0,
		EndSeqnum:       2,
		Records: []IndexRecord{
			{UserLogSpace: 1, Seqnum: 0, EngineID: 7, Tags: []string{"order:1"}},
		},
	})
	if advanced {
		t.Fatal("expected no progress with only one of two shards reporting")
	}
	if c.IndexedMetalogPosition() != 0 {
		t.Fatalf("IndexedMetalogPosition() = %d, want 0", c.IndexedMetalogPosition())
	}

	advanced = c.ProvideIndexDataShard(IndexData{
		ShardID:         1,
		MetalogPosition: 0,
		EndSeqnum:       2,
		Records: []IndexRecord{
			{UserLogSpace: 1, Seqnum: 1, EngineID: 9, Tags: []string{"order:1"}},
		},
	})
	if !advanced {
		t.Fatal("expected progress once all shards reported")
	}
	if c.IndexedMetalogPosition() != 1 {
		t.Fatalf("IndexedMetalogPosition() = %d, want 1", c.IndexedMetalogPosition())
	}

	result := c.MakeQuery(Query{UserLogSpace: 1, Tag: "order:1", Type: QueryNext, Seqnum: 0, RequiredMetalog: 1})
	if result.State != ResultFound || result.Seqnum != 0 {
		t.Fatalf("MakeQuery = %+v, want Found seqnum 0", result)
	}
}

func TestMakeQueryResolvesImmediatelyWhenFrontierAlreadyCovers(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 1)
	c.ProvideIndexDataShard(IndexData{
		ShardID:         0,
		MetalogPosition: 0,
		EndSeqnum:       101,
		Records: []IndexRecord{
			{UserLogSpace: 5, Seqnum: 100, EngineID: 3, Tags: []string{"tag-a"}},
		},
	})

	result := c.MakeQuery(Query{UserLogSpace: 5, Tag: "tag-a", Type: QueryPrev, Seqnum: 1000, RequiredMetalog: 0})
	if result.State != ResultFound || result.Seqnum != 100 || result.EngineID != 3 {
		t.Fatalf("MakeQuery = %+v, want Found seqnum 100 engine 3", result)
	}
}

func TestMakeQueryParksThenResolvesOnAdvance(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 1)

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- c.MakeQuery(Query{UserLogSpace: 1, Tag: "tag-a", Type: QueryNext, Seqnum: 0, RequiredMetalog: 1})
	}()

	// give the query time to park before the frontier advances.
	time.Sleep(20 * time.Millisecond)

	c.ProvideIndexDataShard(IndexData{
		ShardID:         0,
		MetalogPosition: 0,
		EndSeqnum:       1,
		Records: []IndexRecord{
			{UserLogSpace: 1, Seqnum: 0, EngineID: 4, Tags: []string{"tag-a"}},
		},
	})

	select {
	case res := <-resultCh:
		if res.State != ResultFound || res.EngineID != 4 {
			t.Fatalf("parked query result = %+v, want Found engine 4", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for parked query to resolve")
	}
}

func TestMakeQueryTimesOutWhenFrontierNeverArrives(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 1)

	start := time.Now()
	result := c.MakeQuery(Query{UserLogSpace: 1, Tag: "tag-a", Type: QueryNext, Seqnum: 0, RequiredMetalog: 5})
	elapsed := time.Since(start)

	if result.State != ResultNotFound {
		t.Fatalf("result.State = %v, want ResultNotFound (timeout resolves NotFound)", result.State)
	}
	if elapsed < blockingQueryTimeout {
		t.Fatalf("returned after %v, want at least %v", elapsed, blockingQueryTimeout)
	}
}

func TestProvideIndexDataLocalModeCompletesWithoutAllShards(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 3)

	advanced := c.ProvideIndexData(IndexData{
		ShardID:         0,
		MetalogPosition: 0,
		EndSeqnum:       1,
		Records: []IndexRecord{
			{UserLogSpace: 1, Seqnum: 0, EngineID: 7, Tags: []string{"order:1"}},
		},
	})
	if !advanced {
		t.Fatal("expected local single-producer report to complete the position on its own")
	}

	result := c.MakeQuery(Query{UserLogSpace: 1, Tag: "order:1", Type: QueryNext, Seqnum: 0, RequiredMetalog: 1})
	if result.State != ResultFound || result.EngineID != 7 {
		t.Fatalf("MakeQuery = %+v, want Found engine 7", result)
	}
}

func TestQueueQueryAndPollQueryResults(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 1)

	c.QueueQuery(Query{UserLogSpace: 1, Tag: "tag-a", Type: QueryNext, Seqnum: 0, RequiredMetalog: 1})
	if results := c.PollQueryResults(); len(results) != 0 {
		t.Fatalf("PollQueryResults() = %v before frontier advance, want none yet", results)
	}

	c.ProvideIndexDataShard(IndexData{
		ShardID:         0,
		MetalogPosition: 0,
		EndSeqnum:       1,
		Records: []IndexRecord{
			{UserLogSpace: 1, Seqnum: 0, EngineID: 4, Tags: []string{"tag-a"}},
		},
	})

	results := c.PollQueryResults()
	if len(results) != 1 || results[0].State != ResultFound || results[0].EngineID != 4 {
		t.Fatalf("PollQueryResults() = %+v, want one Found engine 4", results)
	}
	if again := c.PollQueryResults(); len(again) != 0 {
		t.Fatalf("PollQueryResults() second call = %v, want empty after drain", again)
	}
}

func TestResolveLockedReturnsContinueToNextViewAfterFinalization(t *testing.T) {
	base := metalog.NewLogSpaceBase(1, 3)
	c := NewCoordinator(base, 1)

	c.ProvideIndexDataShard(IndexData{
		ShardID:         0,
		MetalogPosition: 0,
		EndSeqnum:       1,
		Records: []IndexRecord{
			{UserLogSpace: 1, Seqnum: 0, EngineID: 1, Tags: []string{"tag-a"}},
		},
	})
	base.OnFinalized(1)

	result := c.MakeQuery(Query{UserLogSpace: 1, Tag: "tag-a", Type: QueryNext, Seqnum: 5, RequiredMetalog: 1})
	if result.State != ResultContinueNextView || result.ViewID != 4 {
		t.Fatalf("MakeQuery = %+v, want ContinueToNextView viewID 4", result)
	}
}

func TestInvalidateOriginResolvesParkedQueriesInvalid(t *testing.T) {
	c := NewCoordinator(metalog.NewLogSpaceBase(1, 0), 1)

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- c.MakeQuery(Query{
			UserLogSpace:    1,
			Tag:             "tag-a",
			Type:            QueryNext,
			Seqnum:          0,
			RequiredMetalog: 1,
			OriginClientID:  42,
		})
	}()

	time.Sleep(20 * time.Millisecond)
	c.InvalidateOrigin(42)

	select {
	case res := <-resultCh:
		if res.State != ResultInvalid {
			t.Fatalf("result.State = %v, want ResultInvalid", res.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invalidated query to resolve")
	}
}
