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

package gateway

import (
	"encoding/json"

	"github.com/firefly-research/gatewayd/internal/index"
	"github.com/firefly-research/gatewayd/internal/wire"
)

// handleIndexDataShard implements the engine-worker feed side of spec
// §4.7: an INDEX_DATA_SHARD frame names a shared-memory region
// (IndexDataRegionName) holding one storage shard's JSON-encoded
// IndexData, mirroring the same create/send/open/close lifecycle
// invoke.go uses for function payloads, but producer and consumer both
// run inside the same process boundary here — the engine worker writes
// the region, the dispatcher reads and unlinks it.
func (d *Dispatcher) handleIndexDataShard(source *ipcConnection, msg wire.Message) {
	regionName := msg.Call.IndexDataRegionName()
	region, err := d.shm.OpenReadOnly(regionName)
	if err != nil {
		d.log.Error("failed to open index data region", "error", err, "region", regionName)
		return
	}
	defer region.Close(true)

	var data index.IndexData
	if err := json.Unmarshal(region.ToSpan(), &data); err != nil {
		d.log.Error("failed to decode index data shard", "error", err, "region", regionName)
		return
	}

	if d.index.ProvideIndexDataShard(data) {
		d.log.Debug("index frontier advanced from shard report",
			"client_id", source.ClientID(), "shard_id", data.ShardID, "metalog_position", d.index.IndexedMetalogPosition())
	}
}
