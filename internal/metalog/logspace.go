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
Package metalog implements the per-sequencer "applied metalog" base state
(spec §4.5): a strictly ordered view of committed cuts, each advancing the
global sequence frontier from PrevEndSeqnum to EndSeqnum.

One LogSpaceBase exists per sequencer; gaps or duplicate metalog_seqnums
are invariant violations (spec §7, IndexInvariant) and are fatal for that
sequencer's view, not for the process.
*/
package metalog

import (
	"github.com/firefly-research/gatewayd/internal/gwerrors"
)

// Entry is one MetaLogProto record (spec §3). A Cut entry advances the
// frontier; a finalization entry seals the space beyond a position.
type Entry struct {
	MetalogSeqnum uint64
	IsCut         bool
	PrevEndSeqnum uint64
	EndSeqnum     uint64
}

// Cut is a completed (metalog_seqnum, end_seqnum) pair retained until the
// index coordinator consumes it (spec §4.7).
type Cut struct {
	MetalogSeqnum uint64
	EndSeqnum     uint64
}

// LogSpaceBase tracks one sequencer's applied metalog.
type LogSpaceBase struct {
	sequencerID     uint16
	currentView     uint32
	metalogPosition uint64 // next expected metalog_seqnum
	cuts            []Cut
	finalized       bool
	finalizedAt     uint64
}

// NewLogSpaceBase returns a fresh base for the given sequencer, with
// metalog_position starting at 0 (spec §4.5).
func NewLogSpaceBase(sequencerID uint16, view uint32) *LogSpaceBase {
	return &LogSpaceBase{sequencerID: sequencerID, currentView: view}
}

// SequencerID returns the owning sequencer.
func (b *LogSpaceBase) SequencerID() uint16 { return b.sequencerID }

// CurrentView returns the view this space was created for.
func (b *LogSpaceBase) CurrentView() uint32 { return b.currentView }

// MetalogPosition returns the next expected metalog_seqnum.
func (b *LogSpaceBase) MetalogPosition() uint64 { return b.metalogPosition }

// OnMetaLogApplied applies one entry. Entries must arrive with strictly
// increasing MetalogSeqnum equal to the current MetalogPosition;
// duplicates and gaps are IndexInvariant errors (spec §4.5, §7).
func (b *LogSpaceBase) OnMetaLogApplied(entry Entry) error {
	if b.finalized && entry.MetalogSeqnum >= b.finalizedAt {
		return gwerrors.IndexGap(b.sequencerID, b.finalizedAt, entry.MetalogSeqnum)
	}
	if entry.MetalogSeqnum < b.metalogPosition {
		return gwerrors.IndexDuplicate(b.sequencerID, entry.MetalogSeqnum)
	}
	if entry.MetalogSeqnum > b.metalogPosition {
		return gwerrors.IndexGap(b.sequencerID, b.metalogPosition, entry.MetalogSeqnum)
	}

	if entry.IsCut {
		b.cuts = append(b.cuts, Cut{MetalogSeqnum: entry.MetalogSeqnum, EndSeqnum: entry.EndSeqnum})
	}
	b.metalogPosition = entry.MetalogSeqnum + 1
	return nil
}

// OnFinalized seals the space beyond pos; any later OnMetaLogApplied call
// at or beyond pos is rejected.
func (b *LogSpaceBase) OnFinalized(pos uint64) {
	b.finalized = true
	b.finalizedAt = pos
}

// Finalized reports whether the space has been sealed.
func (b *LogSpaceBase) Finalized() bool { return b.finalized }

// PendingCuts returns cuts that have been applied but not yet consumed by
// PopCut. Callers (the index coordinator) must not retain the returned
// slice across further mutation.
func (b *LogSpaceBase) PendingCuts() []Cut {
	return b.cuts
}

// PopCut removes and returns the oldest pending cut, used once the index
// coordinator has fully applied it.
func (b *LogSpaceBase) PopCut() (Cut, bool) {
	if len(b.cuts) == 0 {
		return Cut{}, false
	}
	cut := b.cuts[0]
	b.cuts = b.cuts[1:]
	return cut, true
}
