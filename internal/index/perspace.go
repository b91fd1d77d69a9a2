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

import "sort"

// Record is one indexed call: which engine produced the seqnum'th log
// entry within a user log space.
type Record struct {
	Seqnum   uint64
	EngineID uint16
}

// PerSpaceIndex answers tag-qualified FindNext/FindPrev queries within a
// single user log space (spec §4.7). Every indexed record is kept in the
// dense, untagged series; tagged records are additionally kept per tag, so
// a query with no tag walks the full series and a tagged query walks only
// its own.
type PerSpaceIndex struct {
	dense []Record
	byTag map[string][]Record
}

// NewPerSpaceIndex returns an empty index for one user log space.
func NewPerSpaceIndex() *PerSpaceIndex {
	return &PerSpaceIndex{byTag: make(map[string][]Record)}
}

// Add records one call's seqnum/engine under each of its tags, and in the
// dense untagged series. Seqnums must be added in non-decreasing order,
// matching the coordinator's frontier-advance order. When the same
// (tag, seqnum) arrives more than once — a replicated call reported by
// more than one engine — the first writer wins and later duplicates are
// dropped (spec §4.7).
func (p *PerSpaceIndex) Add(seqnum uint64, engineID uint16, tags []string) {
	rec := Record{Seqnum: seqnum, EngineID: engineID}
	if n := len(p.dense); n == 0 || p.dense[n-1].Seqnum != seqnum {
		p.dense = append(p.dense, rec)
	}
	for _, tag := range tags {
		series := p.byTag[tag]
		if n := len(series); n > 0 && series[n-1].Seqnum == seqnum {
			continue
		}
		p.byTag[tag] = append(series, rec)
	}
}

func (p *PerSpaceIndex) series(tag string) []Record {
	if tag == "" {
		return p.dense
	}
	return p.byTag[tag]
}

// FindNext returns the earliest record with Seqnum >= minSeqnum, optionally
// restricted to tag ("" means any record).
func (p *PerSpaceIndex) FindNext(tag string, minSeqnum uint64) (Record, bool) {
	series := p.series(tag)
	i := sort.Search(len(series), func(i int) bool { return series[i].Seqnum >= minSeqnum })
	if i >= len(series) {
		return Record{}, false
	}
	return series[i], true
}

// FindPrev returns the latest record with Seqnum <= maxSeqnum, optionally
// restricted to tag.
func (p *PerSpaceIndex) FindPrev(tag string, maxSeqnum uint64) (Record, bool) {
	series := p.series(tag)
	i := sort.Search(len(series), func(i int) bool { return series[i].Seqnum > maxSeqnum })
	if i == 0 {
		return Record{}, false
	}
	return series[i-1], true
}

// Len reports how many records have been added, for diagnostics.
func (p *PerSpaceIndex) Len() int { return len(p.dense) }
