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
	"net/http"

	"github.com/firefly-research/gatewayd/internal/index"
)

// indexQueryRequest is the POST /index/query body: a tag lookup against
// the log index (spec §4.7's MakeQuery, exposed here as the external
// surface a caller outside the IPC/engine-worker path can reach).
type indexQueryRequest struct {
	UserLogSpace    uint32 `json:"user_log_space"`
	Tag             string `json:"tag"`
	Prev            bool   `json:"prev"`
	Seqnum          uint64 `json:"seqnum"`
	RequiredMetalog uint64 `json:"required_metalog"`
}

type indexQueryResponse struct {
	State    string `json:"state"`
	Seqnum   uint64 `json:"seqnum,omitempty"`
	EngineID uint16 `json:"engine_id,omitempty"`
	ViewID   uint32 `json:"view_id,omitempty"`
}

func (d *Dispatcher) handleIndexQuery(req *Request) Response {
	var body indexQueryRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return Response{Status: http.StatusBadRequest, Body: []byte("invalid index query body\n")}
	}

	qtype := index.QueryNext
	if body.Prev {
		qtype = index.QueryPrev
	}
	result := d.index.MakeQuery(index.Query{
		UserLogSpace:    body.UserLogSpace,
		Tag:             body.Tag,
		Type:            qtype,
		Seqnum:          body.Seqnum,
		RequiredMetalog: body.RequiredMetalog,
	})

	resp := indexQueryResponse{
		State:    resultStateName(result.State),
		Seqnum:   result.Seqnum,
		EngineID: result.EngineID,
		ViewID:   result.ViewID,
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return Response{Status: http.StatusInternalServerError, Body: []byte("failed to encode index query result\n")}
	}
	return Response{Status: http.StatusOK, Body: encoded}
}

func resultStateName(s index.ResultState) string {
	switch s {
	case index.ResultFound:
		return "Found"
	case index.ResultNotFound:
		return "NotFound"
	case index.ResultContinueNextView:
		return "ContinueToNextView"
	case index.ResultInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}
