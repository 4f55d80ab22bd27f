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

package synccontroller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

// fakeStore is a minimal in-memory ports.CatalogStore double covering only
// what ApplyDiff and Controller exercise.
type fakeStore struct {
	mods     map[string][]domain.ModRecord // instanceID -> mods
	sessions map[string]domain.SyncSession
	failAdd  string // mod name that AddModToInstance should fail for
}

func newFakeStore() *fakeStore {
	return &fakeStore{mods: make(map[string][]domain.ModRecord), sessions: make(map[string]domain.SyncSession)}
}

func (f *fakeStore) CreateInstance(ctx context.Context, inst domain.Instance) error { return nil }
func (f *fakeStore) GetInstance(ctx context.Context, id string) (domain.Instance, error) {
	return domain.Instance{ID: id}, nil
}
func (f *fakeStore) ListInstances(ctx context.Context) ([]domain.Instance, error) { return nil, nil }
func (f *fakeStore) UpdateInstance(ctx context.Context, inst domain.Instance) error { return nil }
func (f *fakeStore) DeleteInstance(ctx context.Context, id string) error { return nil }

func (f *fakeStore) AddModToInstance(ctx context.Context, mod domain.ModRecord) error {
	if f.failAdd != "" && mod.Name == f.failAdd {
		return apperr.New(apperr.KindStorage, "simulated add failure")
	}
	f.mods[mod.InstanceID] = append(f.mods[mod.InstanceID], mod)
	return nil
}

func (f *fakeStore) ListInstanceMods(ctx context.Context, instanceID string) ([]domain.ModRecord, error) {
	return f.mods[instanceID], nil
}

func (f *fakeStore) RemoveModFromInstance(ctx context.Context, instanceID, modName string) error {
	mods := f.mods[instanceID]
	out := mods[:0]
	for _, m := range mods {
		if m.Name != modName {
			out = append(out, m)
		}
	}
	f.mods[instanceID] = out
	return nil
}

func (f *fakeStore) CreateSyncSession(ctx context.Context, session domain.SyncSession) error {
	f.sessions[session.ID] = session
	return nil
}
func (f *fakeStore) GetSyncSession(ctx context.Context, id string) (domain.SyncSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return domain.SyncSession{}, apperr.New(apperr.KindNotFound, "not found")
	}
	return s, nil
}
func (f *fakeStore) GetSyncSessionByCode(ctx context.Context, shareCode string) (domain.SyncSession, error) {
	return domain.SyncSession{}, apperr.New(apperr.KindNotFound, "not found")
}
func (f *fakeStore) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	s, ok := f.sessions[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "not found")
	}
	s.Status = status
	f.sessions[id] = s
	return nil
}
func (f *fakeStore) AddSyncHistory(ctx context.Context, h domain.SyncHistory) error { return nil }

func (f *fakeStore) UpsertAccount(ctx context.Context, acct domain.Account) error { return nil }
func (f *fakeStore) GetActiveAccount(ctx context.Context) (domain.Account, error) {
	return domain.Account{}, apperr.New(apperr.KindNotFound, "not found")
}
func (f *fakeStore) DeactivateAllAccounts(ctx context.Context) error { return nil }

func TestApplyDiffAppliesAllThreeKinds(t *testing.T) {
	store := newFakeStore()
	store.mods["inst-1"] = []domain.ModRecord{
		{InstanceID: "inst-1", Name: "old-mod", FileName: "old-mod-1.0.jar"},
		{InstanceID: "inst-1", Name: "sodium", Version: "0.5.7", FileName: "sodium-0.5.7.jar"},
	}

	diff := domain.ManifestDiff{
		ToAdd:    []domain.SyncModEntry{{ModName: "lithium", ModVersion: "0.12.0", FileName: "lithium-0.12.0.jar"}},
		ToRemove: []domain.SyncModEntry{{ModName: "old-mod"}},
		ToUpdate: []domain.ModUpdate{{ModName: "sodium", LocalVersion: "0.5.7", RemoteVersion: "0.5.8", RemoteFileName: "sodium-0.5.8.jar"}},
	}

	result := ApplyDiff(context.Background(), store, "inst-1", diff)

	assert.Equal(t, 1, result.ModsAdded)
	assert.Equal(t, 1, result.ModsRemoved)
	assert.Equal(t, 1, result.ModsUpdated)
	assert.Empty(t, result.Errors)

	mods, _ := store.ListInstanceMods(context.Background(), "inst-1")
	names := map[string]bool{}
	for _, m := range mods {
		names[m.Name] = true
	}
	assert.True(t, names["lithium"])
	assert.True(t, names["sodium"])
	assert.False(t, names["old-mod"])
}

func TestApplyDiffAccumulatesErrorsWithoutAborting(t *testing.T) {
	store := newFakeStore()
	store.failAdd = "lithium"

	diff := domain.ManifestDiff{
		ToAdd: []domain.SyncModEntry{
			{ModName: "lithium"},
			{ModName: "phosphor"},
		},
	}

	result := ApplyDiff(context.Background(), store, "inst-1", diff)

	assert.Equal(t, 1, result.ModsAdded)
	require.Len(t, result.Errors, 1)

	mods, _ := store.ListInstanceMods(context.Background(), "inst-1")
	require.Len(t, mods, 1)
	assert.Equal(t, "phosphor", mods[0].Name)
}

func TestControllerConfirmSyncAppliesAndClearsPending(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.CreateSyncSession(context.Background(), domain.SyncSession{ID: "sess-1", Status: domain.SyncStatusSyncing}))

	c := New(store)
	diff := domain.ManifestDiff{ToAdd: []domain.SyncModEntry{{ModName: "lithium"}}}
	manifest := domain.SyncManifest{ID: "manifest-1"}
	c.CreatePendingSync("sess-1", "inst-1", "peer-1", diff, manifest)

	_, ok := c.GetPendingSync("sess-1")
	require.True(t, ok)

	result, err := c.ConfirmSync(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ModsAdded)

	_, ok = c.GetPendingSync("sess-1")
	assert.False(t, ok)

	session, err := store.GetSyncSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusActive, session.Status)
}

func TestControllerConfirmSyncUnknownSession(t *testing.T) {
	c := New(newFakeStore())
	_, err := c.ConfirmSync(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestControllerRejectSyncDiscardsWithoutApplying(t *testing.T) {
	store := newFakeStore()
	c := New(store)
	diff := domain.ManifestDiff{ToAdd: []domain.SyncModEntry{{ModName: "lithium"}}}
	c.CreatePendingSync("sess-2", "inst-1", "peer-1", diff, domain.SyncManifest{})

	require.NoError(t, c.RejectSync("sess-2"))

	_, ok := c.GetPendingSync("sess-2")
	assert.False(t, ok)

	mods, _ := store.ListInstanceMods(context.Background(), "inst-1")
	assert.Empty(t, mods)
}

func TestControllerRejectSyncUnknownSession(t *testing.T) {
	c := New(newFakeStore())
	err := c.RejectSync("missing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestControllerCleanupFinishedRemovesInactiveSessions(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.CreateSyncSession(context.Background(), domain.SyncSession{ID: "sess-3", Status: domain.SyncStatusInactive}))

	c := New(store)
	c.CreatePendingSync("sess-3", "inst-1", "peer-1", domain.ManifestDiff{}, domain.SyncManifest{})

	c.CleanupFinished(context.Background())

	_, ok := c.GetPendingSync("sess-3")
	assert.False(t, ok)
}
