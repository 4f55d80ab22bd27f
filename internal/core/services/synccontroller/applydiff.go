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

// Package synccontroller holds a confirmed-or-rejected-by-the-user preview
// of a ManifestDiff in memory between the moment it's computed and the
// moment the user accepts or rejects it, and applies an accepted diff to
// the catalog store. File downloads are not triggered here: ApplyDiff only
// changes catalog rows and returns per-kind counts and error messages.
package synccontroller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

// ApplyDiff applies every change in diff to instanceID's mod set: removals
// first, then additions, then updates (a remove-then-add of the old row).
// A single entry's failure is recorded in the result's Errors and does not
// stop the remaining entries from being applied.
func ApplyDiff(ctx context.Context, store ports.CatalogStore, instanceID string, diff domain.ManifestDiff) domain.ApplyResult {
	var result domain.ApplyResult

	applyRemovals(ctx, store, instanceID, diff.ToRemove, &result)
	applyAdditions(ctx, store, instanceID, diff.ToAdd, &result)
	applyUpdates(ctx, store, instanceID, diff.ToUpdate, &result)

	return result
}

func applyRemovals(ctx context.Context, store ports.CatalogStore, instanceID string, toRemove []domain.SyncModEntry, result *domain.ApplyResult) {
	for _, entry := range toRemove {
		if err := store.RemoveModFromInstance(ctx, instanceID, entry.ModName); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("remove mod %q: %v", entry.ModName, err))
			continue
		}
		result.ModsRemoved++
	}
}

func applyAdditions(ctx context.Context, store ports.CatalogStore, instanceID string, toAdd []domain.SyncModEntry, result *domain.ApplyResult) {
	for _, entry := range toAdd {
		record := domain.ModRecord{
			ID:              uuid.NewString(),
			InstanceID:      instanceID,
			Name:            entry.ModName,
			Version:         entry.ModVersion,
			FileName:        entry.FileName,
			FileHash:        entry.FileHash,
			Source:          entry.Source,
			SourceProjectID: entry.SourceProjectID,
			SourceVersionID: entry.SourceVersionID,
			IsActive:        true,
			InstalledAt:     time.Now(),
		}
		if err := store.AddModToInstance(ctx, record); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("add mod %q: %v", entry.ModName, err))
			continue
		}
		result.ModsAdded++
	}
}

func applyUpdates(ctx context.Context, store ports.CatalogStore, instanceID string, toUpdate []domain.ModUpdate, result *domain.ApplyResult) {
	for _, update := range toUpdate {
		if err := store.RemoveModFromInstance(ctx, instanceID, update.ModName); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("remove old version of %q: %v", update.ModName, err))
			continue
		}

		record := domain.ModRecord{
			ID:              uuid.NewString(),
			InstanceID:      instanceID,
			Name:            update.ModName,
			Version:         update.RemoteVersion,
			FileName:        update.RemoteFileName,
			FileHash:        update.RemoteHash,
			Source:          update.Source,
			SourceProjectID: update.SourceProjectID,
			SourceVersionID: update.SourceVersionID,
			IsActive:        true,
			InstalledAt:     time.Now(),
		}
		if err := store.AddModToInstance(ctx, record); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("add updated mod %q: %v", update.ModName, err))
			continue
		}
		result.ModsUpdated++
	}
}
