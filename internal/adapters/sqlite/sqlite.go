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

// Package sqlite implements ports.CatalogStore on top of database/sql and
// mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

var _ ports.CatalogStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	minecraft_version TEXT NOT NULL,
	loader TEXT NOT NULL,
	loader_version TEXT,
	instance_path TEXT NOT NULL,
	icon_path TEXT,
	icon_url TEXT,
	description TEXT,
	last_played_at INTEGER,
	total_play_time INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mod_records (
	id TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL REFERENCES instances(id),
	name TEXT NOT NULL,
	slug TEXT,
	version TEXT,
	file_name TEXT NOT NULL,
	file_hash TEXT,
	source TEXT NOT NULL,
	source_project_id TEXT,
	source_version_id TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	installed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mod_records_instance ON mod_records(instance_id);

CREATE TABLE IF NOT EXISTS accounts (
	uuid TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	access_token TEXT,
	refresh_token TEXT,
	expires_at INTEGER,
	is_active INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_sessions (
	id TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL,
	share_code TEXT,
	peer_id TEXT,
	is_host INTEGER NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_sessions_code ON sync_sessions(share_code);

CREATE TABLE IF NOT EXISTS sync_history (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sync_sessions(id),
	action TEXT NOT NULL,
	peer_name TEXT,
	mods_added INTEGER NOT NULL DEFAULT 0,
	mods_removed INTEGER NOT NULL DEFAULT 0,
	mods_updated INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
`

// Store is a CatalogStore backed by a single sqlite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "open %s", path)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "enable foreign keys on %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "apply schema to %s", path)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func unixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timePtrFromNullInt64(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Instances ---

func (s *Store) CreateInstance(ctx context.Context, inst domain.Instance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instances (id, name, minecraft_version, loader, loader_version, instance_path, icon_path, icon_url, description, last_played_at, total_play_time, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.Name, inst.MinecraftVersion, string(inst.Loader), inst.LoaderVersion, inst.InstancePath,
		inst.IconPath, inst.IconURL, inst.Description, unixPtr(inst.LastPlayedAt), inst.TotalPlayTime,
		boolToInt(inst.IsActive), inst.CreatedAt.Unix(), inst.UpdatedAt.Unix())
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "create instance %s", inst.ID)
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (domain.Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, minecraft_version, loader, loader_version, instance_path, icon_path, icon_url, description, last_played_at, total_play_time, is_active, created_at, updated_at
		FROM instances WHERE id = ?`, id)
	return scanInstance(row)
}

func scanInstance(row *sql.Row) (domain.Instance, error) {
	var inst domain.Instance
	var loader string
	var isActive int
	var lastPlayed sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&inst.ID, &inst.Name, &inst.MinecraftVersion, &loader, &inst.LoaderVersion, &inst.InstancePath,
		&inst.IconPath, &inst.IconURL, &inst.Description, &lastPlayed, &inst.TotalPlayTime, &isActive, &createdAt, &updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Instance{}, apperr.New(apperr.KindNotFound, "instance not found")
	case err != nil:
		return domain.Instance{}, apperr.Wrap(apperr.KindStorage, err, "scan instance")
	}

	inst.Loader = domain.ModLoader(loader)
	inst.IsActive = isActive != 0
	inst.LastPlayedAt = timePtrFromNullInt64(lastPlayed)
	inst.CreatedAt = time.Unix(createdAt, 0).UTC()
	inst.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return inst, nil
}

func (s *Store) ListInstances(ctx context.Context) ([]domain.Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, minecraft_version, loader, loader_version, instance_path, icon_path, icon_url, description, last_played_at, total_play_time, is_active, created_at, updated_at
		FROM instances ORDER BY name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "list instances")
	}
	defer rows.Close()

	var out []domain.Instance
	for rows.Next() {
		var inst domain.Instance
		var loader string
		var isActive int
		var lastPlayed sql.NullInt64
		var createdAt, updatedAt int64

		if err := rows.Scan(&inst.ID, &inst.Name, &inst.MinecraftVersion, &loader, &inst.LoaderVersion, &inst.InstancePath,
			&inst.IconPath, &inst.IconURL, &inst.Description, &lastPlayed, &inst.TotalPlayTime, &isActive, &createdAt, &updatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "scan instance row")
		}
		inst.Loader = domain.ModLoader(loader)
		inst.IsActive = isActive != 0
		inst.LastPlayedAt = timePtrFromNullInt64(lastPlayed)
		inst.CreatedAt = time.Unix(createdAt, 0).UTC()
		inst.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInstance(ctx context.Context, inst domain.Instance) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE instances SET name = ?, minecraft_version = ?, loader = ?, loader_version = ?, instance_path = ?,
			icon_path = ?, icon_url = ?, description = ?, last_played_at = ?, total_play_time = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		inst.Name, inst.MinecraftVersion, string(inst.Loader), inst.LoaderVersion, inst.InstancePath,
		inst.IconPath, inst.IconURL, inst.Description, unixPtr(inst.LastPlayedAt), inst.TotalPlayTime,
		boolToInt(inst.IsActive), inst.UpdatedAt.Unix(), inst.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "update instance %s", inst.ID)
	}
	return requireRowsAffected(res, "instance", inst.ID)
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM instances WHERE id = ?", id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "delete instance %s", id)
	}
	return nil
}

// --- Mod records ---

func (s *Store) AddModToInstance(ctx context.Context, mod domain.ModRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_records (id, instance_id, name, slug, version, file_name, file_hash, source, source_project_id, source_version_id, is_active, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mod.ID, mod.InstanceID, mod.Name, mod.Slug, mod.Version, mod.FileName, mod.FileHash,
		string(mod.Source), mod.SourceProjectID, mod.SourceVersionID, boolToInt(mod.IsActive), mod.InstalledAt.Unix())
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "add mod %s to instance %s", mod.Name, mod.InstanceID)
	}
	return nil
}

func (s *Store) ListInstanceMods(ctx context.Context, instanceID string) ([]domain.ModRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instance_id, name, slug, version, file_name, file_hash, source, source_project_id, source_version_id, is_active, installed_at
		FROM mod_records WHERE instance_id = ? AND is_active = 1 ORDER BY name`, instanceID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "list mods for instance %s", instanceID)
	}
	defer rows.Close()

	var out []domain.ModRecord
	for rows.Next() {
		var m domain.ModRecord
		var source string
		var isActive int
		var installedAt int64
		if err := rows.Scan(&m.ID, &m.InstanceID, &m.Name, &m.Slug, &m.Version, &m.FileName, &m.FileHash,
			&source, &m.SourceProjectID, &m.SourceVersionID, &isActive, &installedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "scan mod record row")
		}
		m.Source = domain.ModSource(source)
		m.IsActive = isActive != 0
		m.InstalledAt = time.Unix(installedAt, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) RemoveModFromInstance(ctx context.Context, instanceID, modName string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE mod_records SET is_active = 0 WHERE instance_id = ? AND name = ?", instanceID, modName)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "remove mod %s from instance %s", modName, instanceID)
	}
	return nil
}

// --- Sync sessions and history ---

func (s *Store) CreateSyncSession(ctx context.Context, session domain.SyncSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_sessions (id, instance_id, share_code, peer_id, is_host, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.InstanceID, session.ShareCode, session.PeerID, boolToInt(session.IsHost),
		string(session.Status), session.CreatedAt.Unix(), session.UpdatedAt.Unix())
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "create sync session %s", session.ID)
	}
	return nil
}

func (s *Store) GetSyncSession(ctx context.Context, id string) (domain.SyncSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, instance_id, share_code, peer_id, is_host, status, created_at, updated_at
		FROM sync_sessions WHERE id = ?`, id)
	return scanSyncSession(row)
}

func (s *Store) GetSyncSessionByCode(ctx context.Context, shareCode string) (domain.SyncSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, instance_id, share_code, peer_id, is_host, status, created_at, updated_at
		FROM sync_sessions WHERE share_code = ?`, shareCode)
	return scanSyncSession(row)
}

func scanSyncSession(row *sql.Row) (domain.SyncSession, error) {
	var sess domain.SyncSession
	var isHost int
	var status string
	var createdAt, updatedAt int64

	err := row.Scan(&sess.ID, &sess.InstanceID, &sess.ShareCode, &sess.PeerID, &isHost, &status, &createdAt, &updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.SyncSession{}, apperr.New(apperr.KindNotFound, "sync session not found")
	case err != nil:
		return domain.SyncSession{}, apperr.Wrap(apperr.KindStorage, err, "scan sync session")
	}

	sess.IsHost = isHost != 0
	sess.Status = domain.SyncStatus(status)
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return sess, nil
}

func (s *Store) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sync_sessions SET status = ?, updated_at = ? WHERE id = ?", string(status), time.Now().Unix(), id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "update sync session %s", id)
	}
	return requireRowsAffected(res, "sync session", id)
}

func (s *Store) AddSyncHistory(ctx context.Context, h domain.SyncHistory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_history (id, session_id, action, peer_name, mods_added, mods_removed, mods_updated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.SessionID, string(h.Action), h.PeerName, h.ModsAdded, h.ModsRemoved, h.ModsUpdated, h.CreatedAt.Unix())
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "add sync history %s", h.ID)
	}
	return nil
}

// --- Accounts ---

func (s *Store) UpsertAccount(ctx context.Context, acct domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (uuid, username, access_token, refresh_token, expires_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET username = excluded.username, access_token = excluded.access_token,
			refresh_token = excluded.refresh_token, expires_at = excluded.expires_at, is_active = excluded.is_active`,
		acct.UUID, acct.Username, acct.AccessToken, acct.RefreshToken, acct.ExpiresAt.Unix(), boolToInt(acct.IsActive))
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "upsert account %s", acct.UUID)
	}
	return nil
}

func (s *Store) GetActiveAccount(ctx context.Context) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uuid, username, access_token, refresh_token, expires_at, is_active
		FROM accounts WHERE is_active = 1 LIMIT 1`)

	var acct domain.Account
	var isActive int
	var expiresAt int64
	err := row.Scan(&acct.UUID, &acct.Username, &acct.AccessToken, &acct.RefreshToken, &expiresAt, &isActive)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Account{}, apperr.New(apperr.KindNotFound, "no active account")
	case err != nil:
		return domain.Account{}, apperr.Wrap(apperr.KindStorage, err, "scan active account")
	}

	acct.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	acct.IsActive = isActive != 0
	return acct, nil
}

func (s *Store) DeactivateAllAccounts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE accounts SET is_active = 0")
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "deactivate accounts")
	}
	return nil
}

func requireRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "check rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, "%s %s not found", kind, id)
	}
	return nil
}
