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

package accountservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

type fakeAccountStore struct {
	accounts map[string]domain.Account
	active   string
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]domain.Account)}
}

func (f *fakeAccountStore) CreateInstance(context.Context, domain.Instance) error { return nil }
func (f *fakeAccountStore) GetInstance(context.Context, string) (domain.Instance, error) {
	return domain.Instance{}, nil
}
func (f *fakeAccountStore) ListInstances(context.Context) ([]domain.Instance, error) { return nil, nil }
func (f *fakeAccountStore) UpdateInstance(context.Context, domain.Instance) error     { return nil }
func (f *fakeAccountStore) DeleteInstance(context.Context, string) error             { return nil }
func (f *fakeAccountStore) AddModToInstance(context.Context, domain.ModRecord) error  { return nil }
func (f *fakeAccountStore) ListInstanceMods(context.Context, string) ([]domain.ModRecord, error) {
	return nil, nil
}
func (f *fakeAccountStore) RemoveModFromInstance(context.Context, string, string) error { return nil }
func (f *fakeAccountStore) CreateSyncSession(context.Context, domain.SyncSession) error { return nil }
func (f *fakeAccountStore) GetSyncSession(context.Context, string) (domain.SyncSession, error) {
	return domain.SyncSession{}, nil
}
func (f *fakeAccountStore) GetSyncSessionByCode(context.Context, string) (domain.SyncSession, error) {
	return domain.SyncSession{}, nil
}
func (f *fakeAccountStore) UpdateSyncStatus(context.Context, string, domain.SyncStatus) error {
	return nil
}
func (f *fakeAccountStore) AddSyncHistory(context.Context, domain.SyncHistory) error { return nil }

func (f *fakeAccountStore) UpsertAccount(ctx context.Context, acct domain.Account) error {
	f.accounts[acct.UUID] = acct
	if acct.IsActive {
		f.active = acct.UUID
	}
	return nil
}

func (f *fakeAccountStore) GetActiveAccount(ctx context.Context) (domain.Account, error) {
	if f.active == "" {
		return domain.Account{}, apperr.New(apperr.KindNotFound, "no active account")
	}
	return f.accounts[f.active], nil
}

func (f *fakeAccountStore) DeactivateAllAccounts(ctx context.Context) error {
	for id, a := range f.accounts {
		a.IsActive = false
		f.accounts[id] = a
	}
	f.active = ""
	return nil
}

type fakeAuthPort struct {
	accessToken, refreshToken, username, externalUUID string
	err                                                error
}

func (f *fakeAuthPort) Refresh(ctx context.Context, refreshToken string) (string, string, string, string, error) {
	if f.err != nil {
		return "", "", "", "", f.err
	}
	return f.accessToken, f.refreshToken, f.username, f.externalUUID, nil
}

func TestLoginStoresActiveAccount(t *testing.T) {
	store := newFakeAccountStore()
	svc := New(store, &fakeAuthPort{})

	acct, err := svc.Login(context.Background(), domain.Account{UUID: "u1", Username: "Steve", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, acct.IsActive)

	current, err := svc.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Steve", current.Username)
}

func TestLoginDeactivatesPreviousAccount(t *testing.T) {
	store := newFakeAccountStore()
	svc := New(store, &fakeAuthPort{})

	_, err := svc.Login(context.Background(), domain.Account{UUID: "u1", Username: "Old", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), domain.Account{UUID: "u2", Username: "New", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	assert.False(t, store.accounts["u1"].IsActive)
	assert.True(t, store.accounts["u2"].IsActive)
}

func TestCurrentAccountRefreshesNearExpiry(t *testing.T) {
	store := newFakeAccountStore()
	auth := &fakeAuthPort{accessToken: "new-access", refreshToken: "new-refresh", username: "Steve", externalUUID: "u1"}
	svc := New(store, auth)

	_, err := svc.Login(context.Background(), domain.Account{
		UUID: "u1", Username: "Steve", AccessToken: "old-access", RefreshToken: "old-refresh",
		ExpiresAt: time.Now().Add(30 * time.Second),
	})
	require.NoError(t, err)

	current, err := svc.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", current.AccessToken)
	assert.Equal(t, "new-refresh", current.RefreshToken)
	assert.True(t, current.ExpiresAt.After(time.Now().Add(refreshSkew)))
}

func TestCurrentAccountSkipsRefreshWhenFarFromExpiry(t *testing.T) {
	store := newFakeAccountStore()
	auth := &fakeAuthPort{accessToken: "should-not-be-used"}
	svc := New(store, auth)

	_, err := svc.Login(context.Background(), domain.Account{
		UUID: "u1", Username: "Steve", AccessToken: "still-good",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	current, err := svc.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still-good", current.AccessToken)
}

func TestCurrentAccountNoActiveAccount(t *testing.T) {
	store := newFakeAccountStore()
	svc := New(store, &fakeAuthPort{})

	_, err := svc.CurrentAccount(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLogoutDeactivatesAccount(t *testing.T) {
	store := newFakeAccountStore()
	svc := New(store, &fakeAuthPort{})

	_, err := svc.Login(context.Background(), domain.Account{UUID: "u1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background()))

	_, err = svc.CurrentAccount(context.Background())
	require.Error(t, err)
}
