// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

package p2p

import (
	"github.com/fxamacker/cbor/v2"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

// protocolID is the QUIC ALPN / logical protocol tag every stream in this
// package's wire format negotiates under.
const protocolID = "minesync/manifest/1.0.0"

// requestKind/responseKind tag a frame's payload so the receiving side can
// dispatch without relying on stream ordering, mirroring the original's
// single enum over its sub-behaviors' event types.
type requestKind string

const (
	requestGetManifest requestKind = "get_manifest"
	requestGetStatus   requestKind = "get_status"
)

type responseKind string

const (
	responseManifest        responseKind = "manifest"
	responseNoManifest      responseKind = "no_manifest"
	responseStatus          responseKind = "status"
	responseUpdateAvailable responseKind = "update_available"
)

// requestFrame is the CBOR envelope written onto a freshly opened stream.
type requestFrame struct {
	Kind requestKind `cbor:"kind"`
}

// responseFrame is the CBOR envelope written back before the stream
// closes. Only the field matching Kind is populated.
type responseFrame struct {
	Kind            responseKind        `cbor:"kind"`
	Manifest        *domain.SyncManifest `cbor:"manifest,omitempty"`
	OnlinePeers     uint32               `cbor:"online_peers,omitempty"`
	ManifestVersion int                  `cbor:"manifest_version,omitempty"`
	Diff            *domain.ManifestDiff `cbor:"diff,omitempty"`
}

func encodeRequest(f requestFrame) ([]byte, error) {
	b, err := cbor.Marshal(f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindP2P, err, "encode request frame")
	}
	return b, nil
}

func decodeRequest(data []byte) (requestFrame, error) {
	var f requestFrame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return requestFrame{}, apperr.Wrap(apperr.KindP2P, err, "decode request frame")
	}
	return f, nil
}

func encodeResponse(f responseFrame) ([]byte, error) {
	b, err := cbor.Marshal(f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindP2P, err, "encode response frame")
	}
	return b, nil
}

func decodeResponse(data []byte) (responseFrame, error) {
	var f responseFrame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return responseFrame{}, apperr.Wrap(apperr.KindP2P, err, "decode response frame")
	}
	return f, nil
}
