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

package syncdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/core/domain"
)

func makeManifest(mods []domain.SyncModEntry) domain.SyncManifest {
	return domain.SyncManifest{
		ID:               "test-manifest-id",
		Name:             "Test Modpack",
		InstanceID:       "test-instance",
		MinecraftVersion: "1.21.1",
		LoaderType:       domain.LoaderFabric,
		LoaderVersion:    "0.16.0",
		Mods:             mods,
		ManifestVersion:  1,
	}
}

func makeMod(name, version, hash string) domain.SyncModEntry {
	return domain.SyncModEntry{
		ModName:         name,
		ModVersion:      version,
		FileName:        name + "-" + version + ".jar",
		FileHash:        hash,
		Source:          domain.SourceModrinth,
		SourceProjectID: name + "-id",
		SourceVersionID: name + "-ver-" + version,
	}
}

func TestEmptyManifestsProduceEmptyDiff(t *testing.T) {
	diff := ComputeDiff(makeManifest(nil), makeManifest(nil))
	assert.True(t, diff.IsEmpty())
}

func TestDetectsNewModsToAdd(t *testing.T) {
	local := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "")})
	remote := makeManifest([]domain.SyncModEntry{
		makeMod("sodium", "0.5.8", ""),
		makeMod("lithium", "0.12.0", ""),
	})

	diff := ComputeDiff(local, remote)

	require.Len(t, diff.ToAdd, 1)
	assert.Equal(t, "lithium", diff.ToAdd[0].ModName)
	assert.Empty(t, diff.ToRemove)
	assert.Empty(t, diff.ToUpdate)
}

func TestDetectsModsToRemove(t *testing.T) {
	local := makeManifest([]domain.SyncModEntry{
		makeMod("sodium", "0.5.8", ""),
		makeMod("old-mod", "1.0.0", ""),
	})
	remote := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "")})

	diff := ComputeDiff(local, remote)

	assert.Empty(t, diff.ToAdd)
	require.Len(t, diff.ToRemove, 1)
	assert.Equal(t, "old-mod", diff.ToRemove[0].ModName)
}

func TestDetectsModsToUpdateByVersion(t *testing.T) {
	local := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.7", "")})
	remote := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "")})

	diff := ComputeDiff(local, remote)

	require.Len(t, diff.ToUpdate, 1)
	assert.Equal(t, "0.5.7", diff.ToUpdate[0].LocalVersion)
	assert.Equal(t, "0.5.8", diff.ToUpdate[0].RemoteVersion)
}

func TestDetectsModsToUpdateByHash(t *testing.T) {
	local := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "aaa")})
	remote := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "bbb")})

	diff := ComputeDiff(local, remote)

	assert.Len(t, diff.ToUpdate, 1)
}

func TestSameHashMeansNoUpdate(t *testing.T) {
	local := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "aaa")})
	remote := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "aaa")})

	diff := ComputeDiff(local, remote)

	assert.Empty(t, diff.ToUpdate)
}

func TestSameVersionOneHashMissingDoesNotUpdate(t *testing.T) {
	// One side missing a hash falls back to version comparison, which
	// agrees here, so this must NOT be flagged even though a hash exists
	// on the other side.
	local := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "")})
	remote := makeManifest([]domain.SyncModEntry{makeMod("sodium", "0.5.8", "bbb")})

	diff := ComputeDiff(local, remote)

	assert.Empty(t, diff.ToUpdate)
}

func TestDetectsVersionMismatch(t *testing.T) {
	local := makeManifest(nil)
	local.MinecraftVersion = "1.20.4"
	remote := makeManifest(nil)

	diff := ComputeDiff(local, remote)

	require.NotNil(t, diff.VersionMismatch)
	assert.Equal(t, "1.20.4", diff.VersionMismatch.LocalMCVersion)
	assert.Equal(t, "1.21.1", diff.VersionMismatch.RemoteMCVersion)
}

func TestNoVersionMismatchWhenIdentical(t *testing.T) {
	local := makeManifest(nil)
	remote := makeManifest(nil)

	diff := ComputeDiff(local, remote)

	assert.Nil(t, diff.VersionMismatch)
}

func TestComplexDiffScenario(t *testing.T) {
	local := makeManifest([]domain.SyncModEntry{
		makeMod("sodium", "0.5.7", ""),
		makeMod("iris", "1.6.0", ""),
		makeMod("old-mod", "1.0.0", ""),
	})
	remote := makeManifest([]domain.SyncModEntry{
		makeMod("sodium", "0.5.8", ""),
		makeMod("iris", "1.6.0", ""),
		makeMod("lithium", "0.12.0", ""),
	})

	diff := ComputeDiff(local, remote)
	summary := Summarize(diff)

	assert.Equal(t, 1, summary.ModsToAdd)
	assert.Equal(t, 1, summary.ModsToRemove)
	assert.Equal(t, 1, summary.ModsToUpdate)
	assert.False(t, summary.HasVersionMismatch)
}
