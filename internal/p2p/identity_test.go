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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateIdentityCreatesKeypairOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	identity, err := LoadOrGenerateIdentity(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, identity.PeerID)
	assert.FileExists(t, filepath.Join(dir, keypairFileName))
}

func TestLoadOrGenerateIdentityIsStableAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrGenerateIdentity(dir)
	require.NoError(t, err)

	second, err := LoadOrGenerateIdentity(dir)
	require.NoError(t, err)

	assert.Equal(t, first.PeerID, second.PeerID)
}

func TestLoadOrGenerateIdentityRejectsCorruptKeypairFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keypairFileName), []byte("too-short"), 0o600))

	_, err := LoadOrGenerateIdentity(dir)
	require.Error(t, err)
}

func TestDifferentAppDirsGetDifferentIdentities(t *testing.T) {
	a, err := LoadOrGenerateIdentity(t.TempDir())
	require.NoError(t, err)
	b, err := LoadOrGenerateIdentity(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, a.PeerID, b.PeerID)
}
