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
	"encoding/hex"
	"strings"

	"minesync/internal/apperr"
)

const (
	shareCodePrefix   = "MINE-"
	shareCodeLength   = 6
	shareCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // 32 chars: no 0,1,I,O
)

// GenerateShareCode derives a short human-typeable code from a peer ID hex
// string: the first shareCodeLength bytes, each reduced modulo the
// alphabet, prefixed with shareCodePrefix.
func GenerateShareCode(peerID string) (string, error) {
	raw, err := hex.DecodeString(peerID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindP2P, err, "peer id %q is not valid hex", peerID)
	}
	if len(raw) < shareCodeLength {
		return "", apperr.New(apperr.KindP2P, "peer id too short to derive a share code")
	}

	var b strings.Builder
	b.WriteString(shareCodePrefix)
	for _, by := range raw[:shareCodeLength] {
		b.WriteByte(shareCodeAlphabet[int(by)%len(shareCodeAlphabet)])
	}
	return b.String(), nil
}

// DecodedShareCode is the result of validating a share code's format. The
// code alone never carries enough information to recover a peer ID;
// RequiresLookup is always true on success, signaling that the caller
// still needs a rendezvous or relay to resolve it to an address.
type DecodedShareCode struct {
	Code           string
	RequiresLookup bool
}

// DecodeShareCode validates a share code's prefix, length, and alphabet.
// It never resolves a code to a peer ID by itself.
func DecodeShareCode(code string) (DecodedShareCode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))

	if !strings.HasPrefix(trimmed, shareCodePrefix) {
		return DecodedShareCode{}, apperr.New(apperr.KindP2P, "share code must start with %q, got %q", shareCodePrefix, trimmed)
	}

	suffix := trimmed[len(shareCodePrefix):]
	if len(suffix) != shareCodeLength {
		return DecodedShareCode{}, apperr.New(apperr.KindP2P, "share code suffix must be %d characters, got %d", shareCodeLength, len(suffix))
	}

	for _, ch := range suffix {
		if !strings.ContainsRune(shareCodeAlphabet, ch) {
			return DecodedShareCode{}, apperr.New(apperr.KindP2P, "invalid character %q in share code", ch)
		}
	}

	return DecodedShareCode{Code: trimmed, RequiresLookup: true}, nil
}
