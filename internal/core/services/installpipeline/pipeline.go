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

package installpipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

// Service drives the install-modpack, install-mod, and remove-mod
// operations. At most one install runs at a time; a second caller is
// rejected rather than queued.
type Service struct {
	store      ports.CatalogStore
	modClient  ModClient
	downloader Downloader
	mc         MinecraftResolver
	loader     LoaderResolver
	baseDir    string
	log        *slog.Logger

	mu       sync.Mutex
	progress domain.InstallProgress
	busy     atomic.Bool
}

func New(store ports.CatalogStore, modClient ModClient, dl Downloader, mc MinecraftResolver, loader LoaderResolver, baseDir string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, modClient: modClient, downloader: dl, mc: mc, loader: loader, baseDir: baseDir, log: log}
}

// Progress returns a point-in-time snapshot of the current install, safe to
// poll from another goroutine.
func (s *Service) Progress() domain.InstallProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Service) setStage(stage domain.InstallStage, instanceID, modpackName, modpackIcon, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = domain.InstallProgress{
		Stage:       stage,
		InstanceID:  instanceID,
		ModpackName: modpackName,
		ModpackIcon: modpackIcon,
		Message:     message,
	}
}

func (s *Service) setFailed(instanceID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Stage = domain.StageFailed
	s.progress.FailureReason = reason
}

// beginInstall enforces exclusivity: only one install-modpack or install-mod
// runs at a time. The returned release func must be deferred immediately on
// success.
func (s *Service) beginInstall() (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, apperr.New(apperr.KindConflict, "an install is already in progress")
	}
	return func() { s.busy.Store(false) }, nil
}

// InstallModRequest describes a single mod to fetch onto an existing
// instance. VersionID may be empty to mean "latest compatible version".
type InstallModRequest struct {
	InstanceID string
	Source     domain.ModSource
	ProjectID  string
	VersionID  string
}

// InstallMod downloads and registers a single mod against an existing
// instance.
func (s *Service) InstallMod(ctx context.Context, req InstallModRequest) (domain.ModRecord, error) {
	release, err := s.beginInstall()
	if err != nil {
		return domain.ModRecord{}, err
	}
	defer release()

	instance, err := s.store.GetInstance(ctx, req.InstanceID)
	if err != nil {
		return domain.ModRecord{}, apperr.Wrap(apperr.KindNotFound, err, "load instance %s", req.InstanceID)
	}

	s.setStage(domain.StageResolvingMods, req.InstanceID, instance.Name, instance.IconURL, "resolving mod version")

	versions, err := s.modClient.GetVersions(ctx, req.Source, req.ProjectID, instance.MinecraftVersion, instance.Loader)
	if err != nil {
		s.setFailed(req.InstanceID, err.Error())
		return domain.ModRecord{}, err
	}
	if len(versions) == 0 {
		err := apperr.New(apperr.KindNotFound, "no versions of %s compatible with %s/%s", req.ProjectID, instance.MinecraftVersion, instance.Loader)
		s.setFailed(req.InstanceID, err.Error())
		return domain.ModRecord{}, err
	}

	chosen := selectVersion(versions, req.VersionID)
	if chosen == nil {
		err := apperr.New(apperr.KindNotFound, "version %s of %s not found", req.VersionID, req.ProjectID)
		s.setFailed(req.InstanceID, err.Error())
		return domain.ModRecord{}, err
	}

	file := primaryFile(chosen.Files)
	if file == nil {
		err := apperr.New(apperr.KindNotFound, "version %s of %s has no downloadable artifact", chosen.ID, req.ProjectID)
		s.setFailed(req.InstanceID, err.Error())
		return domain.ModRecord{}, err
	}

	dest := resolveModDestination(instance.InstancePath, "mods/"+file.Filename)
	task := domain.DownloadTask{URL: file.URL, Dest: dest, SHA1: file.Hashes["sha1"], Size: file.Size}

	s.setStage(domain.StageDownloadingMods, req.InstanceID, instance.Name, instance.IconURL, "downloading "+file.Filename)
	if err := s.downloader.DownloadAll(ctx, []domain.DownloadTask{task}); err != nil {
		s.setFailed(req.InstanceID, err.Error())
		return domain.ModRecord{}, err
	}

	record := domain.ModRecord{
		ID:              uuid.NewString(),
		InstanceID:      req.InstanceID,
		Name:            chosen.Name,
		Version:         chosen.VersionNumber,
		FileName:        file.Filename,
		FileHash:        file.Hashes["sha1"],
		Source:          req.Source,
		SourceProjectID: req.ProjectID,
		SourceVersionID: chosen.ID,
		IsActive:        true,
		InstalledAt:     time.Now(),
	}

	s.setStage(domain.StageRegisteringMods, req.InstanceID, instance.Name, instance.IconURL, "registering "+record.Name)
	if err := s.store.AddModToInstance(ctx, record); err != nil {
		s.setFailed(req.InstanceID, err.Error())
		return domain.ModRecord{}, err
	}

	s.setStage(domain.StageCompleted, req.InstanceID, instance.Name, instance.IconURL, "")
	return record, nil
}

func selectVersion(versions []domain.ModVersionInfo, versionID string) *domain.ModVersionInfo {
	if versionID == "" {
		latest := &versions[0]
		for i := 1; i < len(versions); i++ {
			if versions[i].DatePublished.After(latest.DatePublished) {
				latest = &versions[i]
			}
		}
		return latest
	}
	for i := range versions {
		if versions[i].ID == versionID {
			return &versions[i]
		}
	}
	return nil
}

// RemoveMod deletes a mod's file from disk (a missing file is not an error)
// and deactivates its catalog row.
func (s *Service) RemoveMod(ctx context.Context, instanceID, modName string) error {
	release, err := s.beginInstall()
	if err != nil {
		return err
	}
	defer release()

	instance, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return apperr.Wrap(apperr.KindNotFound, err, "load instance %s", instanceID)
	}

	mods, err := s.store.ListInstanceMods(ctx, instanceID)
	if err != nil {
		return err
	}

	var target *domain.ModRecord
	for i := range mods {
		if mods[i].Name == modName {
			target = &mods[i]
			break
		}
	}
	if target == nil {
		return apperr.New(apperr.KindNotFound, "mod %s not found on instance %s", modName, instanceID)
	}

	modPath := filepath.Join(instance.InstancePath, "mods", target.FileName)
	if err := os.Remove(modPath); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindStorage, err, "delete %s", modPath)
	}

	return s.store.RemoveModFromInstance(ctx, instanceID, modName)
}
