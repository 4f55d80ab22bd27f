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

// Package ports declares the interfaces the core services depend on,
// implemented by adapters outside this module's concern.
package ports

import (
	"context"

	"minesync/internal/core/domain"
)

// CatalogStore is the persistence contract every service depends on. It
// covers instances, mod records, accounts, and the sync audit trail.
type CatalogStore interface {
	CreateInstance(ctx context.Context, inst domain.Instance) error
	GetInstance(ctx context.Context, id string) (domain.Instance, error)
	ListInstances(ctx context.Context) ([]domain.Instance, error)
	UpdateInstance(ctx context.Context, inst domain.Instance) error
	DeleteInstance(ctx context.Context, id string) error

	AddModToInstance(ctx context.Context, mod domain.ModRecord) error
	ListInstanceMods(ctx context.Context, instanceID string) ([]domain.ModRecord, error)
	RemoveModFromInstance(ctx context.Context, instanceID, modName string) error

	CreateSyncSession(ctx context.Context, session domain.SyncSession) error
	GetSyncSession(ctx context.Context, id string) (domain.SyncSession, error)
	GetSyncSessionByCode(ctx context.Context, shareCode string) (domain.SyncSession, error)
	UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error
	AddSyncHistory(ctx context.Context, h domain.SyncHistory) error

	UpsertAccount(ctx context.Context, acct domain.Account) error
	GetActiveAccount(ctx context.Context) (domain.Account, error)
	DeactivateAllAccounts(ctx context.Context) error
}

// AuthPort hides the OAuth/device-code chain behind a single refresh
// operation; minesync's core never speaks the identity provider's protocol
// directly.
type AuthPort interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken, newRefreshToken, username, externalUUID string, err error)
}

// ModPlatform is implemented once per external mod registry (CurseForge,
// Modrinth).
type ModPlatform interface {
	Source() domain.ModSource
	SearchMods(ctx context.Context, filters domain.SearchFilters) (domain.SearchResponse, error)
	GetMod(ctx context.Context, projectID string) (domain.ModDetails, error)
	GetVersions(ctx context.Context, projectID string, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error)
}

// LoaderInstaller is implemented once per supported loader (Fabric, Quilt,
// Forge, NeoForge).
type LoaderInstaller interface {
	ListVersions(ctx context.Context, gameVersion string) ([]domain.LoaderVersionEntry, error)
	Install(ctx context.Context, gameVersion, loaderVersion string) (domain.LoaderProfile, error)
}
