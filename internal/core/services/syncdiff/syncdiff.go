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

// Package syncdiff computes the difference between two SyncManifests: which
// mods need adding, removing, or updating before the local instance matches
// the remote one.
package syncdiff

import "minesync/internal/core/domain"

// DiffSummary is the compact, peer-facing view of a ManifestDiff.
type DiffSummary struct {
	ModsToAdd         int
	ModsToRemove      int
	ModsToUpdate      int
	HasVersionMismatch bool
}

// Summarize reduces a ManifestDiff to its counts, for surfacing to a user
// before they confirm or reject a sync.
func Summarize(diff domain.ManifestDiff) DiffSummary {
	return DiffSummary{
		ModsToAdd:          len(diff.ToAdd),
		ModsToRemove:       len(diff.ToRemove),
		ModsToUpdate:       len(diff.ToUpdate),
		HasVersionMismatch: diff.VersionMismatch != nil,
	}
}

// ComputeDiff compares a local and remote manifest by mod name: a name
// present only in remote is an addition, present only in local is a
// removal, and present in both is an update whenever the file hash differs
// (falling back to the version string when either side has no hash).
func ComputeDiff(local, remote domain.SyncManifest) domain.ManifestDiff {
	localByName := make(map[string]domain.SyncModEntry, len(local.Mods))
	for _, m := range local.Mods {
		localByName[m.ModName] = m
	}
	remoteByName := make(map[string]domain.SyncModEntry, len(remote.Mods))
	for _, m := range remote.Mods {
		remoteByName[m.ModName] = m
	}

	return domain.ManifestDiff{
		ToAdd:           findAdditions(localByName, remote.Mods),
		ToRemove:        findRemovals(remoteByName, local.Mods),
		ToUpdate:        findUpdates(localByName, remoteByName),
		VersionMismatch: detectVersionMismatch(local, remote),
	}
}

func findAdditions(localByName map[string]domain.SyncModEntry, remoteMods []domain.SyncModEntry) []domain.SyncModEntry {
	var toAdd []domain.SyncModEntry
	for _, m := range remoteMods {
		if _, ok := localByName[m.ModName]; !ok {
			toAdd = append(toAdd, m)
		}
	}
	return toAdd
}

func findRemovals(remoteByName map[string]domain.SyncModEntry, localMods []domain.SyncModEntry) []domain.SyncModEntry {
	var toRemove []domain.SyncModEntry
	for _, m := range localMods {
		if _, ok := remoteByName[m.ModName]; !ok {
			toRemove = append(toRemove, m)
		}
	}
	return toRemove
}

func findUpdates(localByName, remoteByName map[string]domain.SyncModEntry) []domain.ModUpdate {
	var toUpdate []domain.ModUpdate
	for name, localMod := range localByName {
		remoteMod, ok := remoteByName[name]
		if !ok || !needsUpdate(localMod, remoteMod) {
			continue
		}
		toUpdate = append(toUpdate, domain.ModUpdate{
			ModName:         name,
			LocalVersion:    localMod.ModVersion,
			RemoteVersion:   remoteMod.ModVersion,
			Source:          remoteMod.Source,
			SourceProjectID: remoteMod.SourceProjectID,
			SourceVersionID: remoteMod.SourceVersionID,
			RemoteFileName:  remoteMod.FileName,
			RemoteHash:      remoteMod.FileHash,
		})
	}
	return toUpdate
}

// needsUpdate prefers comparing file hashes, since a version string can lag
// behind an actual file change (or vice versa for snapshot builds); it only
// falls back to the version string when either side has no hash recorded.
func needsUpdate(local, remote domain.SyncModEntry) bool {
	if local.FileHash != "" && remote.FileHash != "" {
		return local.FileHash != remote.FileHash
	}
	return local.ModVersion != remote.ModVersion
}

func detectVersionMismatch(local, remote domain.SyncManifest) *domain.VersionMismatch {
	if local.MinecraftVersion == remote.MinecraftVersion && local.LoaderType == remote.LoaderType {
		return nil
	}
	return &domain.VersionMismatch{
		LocalMCVersion:  local.MinecraftVersion,
		RemoteMCVersion: remote.MinecraftVersion,
		LocalLoader:     local.LoaderType,
		RemoteLoader:    remote.LoaderType,
	}
}
