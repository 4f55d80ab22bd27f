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
	"time"

	"github.com/google/uuid"

	"minesync/internal/core/domain"
)

// BuildManifest snapshots inst and its active mods into a transmittable
// SyncManifest. version is the caller's monotonically increasing
// manifest_version for this share session (1 for a fresh share).
func BuildManifest(inst domain.Instance, mods []domain.ModRecord, version int) domain.SyncManifest {
	entries := make([]domain.SyncModEntry, 0, len(mods))
	for _, m := range mods {
		entries = append(entries, domain.SyncModEntry{
			ModName:         m.Name,
			ModVersion:      m.Version,
			FileName:        m.FileName,
			FileHash:        m.FileHash,
			Source:          m.Source,
			SourceProjectID: m.SourceProjectID,
			SourceVersionID: m.SourceVersionID,
		})
	}

	return domain.SyncManifest{
		ID:               uuid.NewString(),
		Name:             inst.Name,
		InstanceID:       inst.ID,
		MinecraftVersion: inst.MinecraftVersion,
		LoaderType:       inst.Loader,
		LoaderVersion:    inst.LoaderVersion,
		Mods:             entries,
		ManifestVersion:  version,
		CreatedAt:        time.Now(),
	}
}
