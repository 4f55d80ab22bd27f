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

// Package domain holds the shared types exchanged between minesync's
// services: instances, mod records, manifests, and the enums that
// distinguish their variants.
package domain

import "time"

type ModLoader string

const (
	LoaderVanilla  ModLoader = "vanilla"
	LoaderForge    ModLoader = "forge"
	LoaderFabric   ModLoader = "fabric"
	LoaderNeoForge ModLoader = "neoforge"
	LoaderQuilt    ModLoader = "quilt"
)

type ModSource string

const (
	SourceCurseForge ModSource = "curseforge"
	SourceModrinth   ModSource = "modrinth"
	SourceLocal      ModSource = "local"
)

type SyncStatus string

const (
	SyncStatusInactive SyncStatus = "inactive"
	SyncStatusActive   SyncStatus = "active"
	SyncStatusSyncing  SyncStatus = "syncing"
)

type SyncAction string

const (
	SyncActionJoined SyncAction = "joined"
	SyncActionSynced SyncAction = "synced"
	SyncActionUpdated SyncAction = "updated"
	SyncActionLeft   SyncAction = "left"
)

// Instance is a single installed modpack on disk.
type Instance struct {
	ID              string
	Name            string
	MinecraftVersion string
	Loader          ModLoader
	LoaderVersion   string
	InstancePath    string
	IconPath        string
	IconURL         string
	Description     string
	LastPlayedAt    *time.Time
	TotalPlayTime   int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ModRecord is a single mod file tracked against an Instance.
type ModRecord struct {
	ID              string
	InstanceID      string
	Name            string
	Slug            string
	Version         string
	FileName        string
	FileHash        string
	Source          ModSource
	SourceProjectID string
	SourceVersionID string
	IsActive        bool
	InstalledAt     time.Time
}

// Account is a logged-in platform identity, persisted so the app can restore
// the active session without re-authenticating.
type Account struct {
	UUID         string
	Username     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IsActive     bool
}

// SyncModEntry is one mod's presence inside a SyncManifest.
type SyncModEntry struct {
	ModName         string
	ModVersion      string
	FileName        string
	FileHash        string
	Source          ModSource
	SourceProjectID string
	SourceVersionID string
}

// SyncManifest is the snapshot of an instance's mod set exchanged over P2P.
type SyncManifest struct {
	ID              string
	Name            string
	InstanceID      string
	MinecraftVersion string
	LoaderType      ModLoader
	LoaderVersion   string
	Mods            []SyncModEntry
	ManifestVersion int
	CreatedAt       time.Time
}

// SyncSession records one peer's sync relationship to an Instance.
type SyncSession struct {
	ID         string
	InstanceID string
	ShareCode  string
	PeerID     string
	IsHost     bool
	Status     SyncStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SyncHistory is one audit-trail row for a completed sync action.
type SyncHistory struct {
	ID          string
	SessionID   string
	Action      SyncAction
	PeerName    string
	ModsAdded   int
	ModsRemoved int
	ModsUpdated int
	CreatedAt   time.Time
}

// PendingSync is the transient preview held in memory between a manifest
// diff being computed and the user confirming or rejecting it.
type PendingSync struct {
	SessionID  string
	InstanceID string
	PeerID     string
	Diff       ManifestDiff
	Manifest   SyncManifest
}

// ModUpdate describes one mod whose local copy differs from the remote one.
type ModUpdate struct {
	ModName         string
	LocalVersion    string
	RemoteVersion   string
	Source          ModSource
	SourceProjectID string
	SourceVersionID string
	RemoteFileName  string
	RemoteHash      string
}

// VersionMismatch flags that the two manifests target different game
// versions or loaders, which a mod-level diff cannot meaningfully resolve.
type VersionMismatch struct {
	LocalMCVersion  string
	RemoteMCVersion string
	LocalLoader     ModLoader
	RemoteLoader    ModLoader
}

// ManifestDiff is the result of comparing a local and remote SyncManifest.
type ManifestDiff struct {
	ToAdd           []SyncModEntry
	ToRemove        []SyncModEntry
	ToUpdate        []ModUpdate
	VersionMismatch *VersionMismatch
}

// IsEmpty reports whether applying the diff would change nothing.
func (d ManifestDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// DownloadTask is one file to fetch into the content-addressed cache.
type DownloadTask struct {
	URL  string
	Dest string
	SHA1 string
	Size int64
}

// DownloadState is the terminal/in-progress state of a DownloadTask batch.
type DownloadState string

const (
	DownloadIdle        DownloadState = "idle"
	DownloadInProgress  DownloadState = "downloading"
	DownloadCompleted   DownloadState = "completed"
	DownloadFailed      DownloadState = "failed"
)

// ProgressSnapshot is a point-in-time read of an in-flight download batch.
type ProgressSnapshot struct {
	TotalFiles     int
	CompletedFiles int
	TotalBytes     int64
	DownloadedBytes int64
	FailedFiles    []string
	State          DownloadState
	FailureMessage string
}

type InstallStage string

const (
	StageFetchingInfo       InstallStage = "fetching_info"
	StageDownloadingPack    InstallStage = "downloading_pack"
	StageExtractingPack     InstallStage = "extracting_pack"
	StageCreatingInstance   InstallStage = "creating_instance"
	StageDownloadingMinecraft InstallStage = "downloading_minecraft"
	StageInstallingLoader   InstallStage = "installing_loader"
	StageResolvingMods      InstallStage = "resolving_mods"
	StageDownloadingMods    InstallStage = "downloading_mods"
	StageCopyingOverrides   InstallStage = "copying_overrides"
	StageRegisteringMods    InstallStage = "registering_mods"
	StageCompleted          InstallStage = "completed"
	StageFailed             InstallStage = "failed"
)

// InstallProgress is the live status of an in-flight install-modpack or
// install-mod operation, polled by the UI layer.
type InstallProgress struct {
	Stage         InstallStage
	InstanceID    string
	ModpackName   string
	ModpackIcon   string
	Message       string
	FailureReason string
}

// LoaderLibrary is one library JAR a loader profile needs on the classpath.
type LoaderLibrary struct {
	Name string
	URL  string
	Path string
	SHA1 string
	Size int64
}

// LoaderProfile is the launch-configuration delta a loader installer
// contributes on top of the vanilla Minecraft launch config.
type LoaderProfile struct {
	MainClass     string
	Libraries     []LoaderLibrary
	GameArguments []string
	JVMArguments  []string
}

// LoaderVersionEntry is one selectable loader version for a game version.
type LoaderVersionEntry struct {
	LoaderVersion string
	GameVersion   string
	Stable        bool
}

// ApplyResult summarizes the effect of applying a ManifestDiff to an
// instance's mod set.
type ApplyResult struct {
	ModsAdded   int
	ModsRemoved int
	ModsUpdated int
	Errors      []string
}
