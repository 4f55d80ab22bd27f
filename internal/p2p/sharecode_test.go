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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShareCodeHasCorrectFormat(t *testing.T) {
	identity, err := LoadOrGenerateIdentity(t.TempDir())
	require.NoError(t, err)

	code, err := GenerateShareCode(identity.PeerID)
	require.NoError(t, err)

	assert.True(t, len(code) == len(shareCodePrefix)+shareCodeLength)
	assert.Equal(t, shareCodePrefix, code[:len(shareCodePrefix)])
	for _, ch := range code[len(shareCodePrefix):] {
		assert.Contains(t, shareCodeAlphabet, string(ch))
	}
}

func TestGenerateShareCodeIsDeterministicForSamePeerID(t *testing.T) {
	identity, err := LoadOrGenerateIdentity(t.TempDir())
	require.NoError(t, err)

	a, err := GenerateShareCode(identity.PeerID)
	require.NoError(t, err)
	b, err := GenerateShareCode(identity.PeerID)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateShareCodeRejectsInvalidHex(t *testing.T) {
	_, err := GenerateShareCode("not-hex!!")
	require.Error(t, err)
}

func TestDecodeShareCodeRejectsInvalidPrefix(t *testing.T) {
	_, err := DecodeShareCode("INVALID-ABC123")
	require.Error(t, err)
}

func TestDecodeShareCodeRejectsWrongLength(t *testing.T) {
	_, err := DecodeShareCode("MINE-AB")
	require.Error(t, err)
}

func TestDecodeShareCodeRejectsInvalidCharacter(t *testing.T) {
	_, err := DecodeShareCode("MINE-ABC0I1")
	require.Error(t, err)
}

func TestDecodeShareCodeAcceptsValidCodeButRequiresLookup(t *testing.T) {
	decoded, err := DecodeShareCode("mine-abcdef")
	require.NoError(t, err)
	assert.Equal(t, "MINE-ABCDEF", decoded.Code)
	assert.True(t, decoded.RequiresLookup)
}
