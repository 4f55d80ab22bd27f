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

func TestBuildManifestCopiesInstanceIdentity(t *testing.T) {
	inst := domain.Instance{
		ID:               "inst-1",
		Name:             "Vanilla Plus",
		MinecraftVersion: "1.21.1",
		Loader:           domain.LoaderFabric,
		LoaderVersion:    "0.16.0",
	}
	mods := []domain.ModRecord{
		{Name: "sodium", Version: "0.5.8", FileName: "sodium-0.5.8.jar", FileHash: "abc", Source: domain.SourceModrinth, SourceProjectID: "AANobbMI"},
	}

	manifest := BuildManifest(inst, mods, 1)

	require.NotEmpty(t, manifest.ID)
	assert.Equal(t, inst.Name, manifest.Name)
	assert.Equal(t, inst.ID, manifest.InstanceID)
	assert.Equal(t, inst.MinecraftVersion, manifest.MinecraftVersion)
	assert.Equal(t, inst.Loader, manifest.LoaderType)
	assert.Equal(t, inst.LoaderVersion, manifest.LoaderVersion)
	assert.Equal(t, 1, manifest.ManifestVersion)
	require.Len(t, manifest.Mods, 1)
	assert.Equal(t, "sodium", manifest.Mods[0].ModName)
	assert.Equal(t, "0.5.8", manifest.Mods[0].ModVersion)
	assert.Equal(t, "abc", manifest.Mods[0].FileHash)
	assert.Equal(t, domain.SourceModrinth, manifest.Mods[0].Source)
}

func TestBuildManifestEmptyModsProducesEmptySlice(t *testing.T) {
	manifest := BuildManifest(domain.Instance{ID: "inst-2"}, nil, 1)
	assert.Empty(t, manifest.Mods)
}
