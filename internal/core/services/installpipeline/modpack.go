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
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/pathsafe"
)

// InstallModpackRequest describes the pack archive to install. PackURL,
// PackSHA1, and PackSize describe the archive itself (already resolved by
// the caller against CurseForge/Modrinth); InstanceName overrides the
// manifest-declared name when set.
type InstallModpackRequest struct {
	InstanceName string
	ModpackIcon  string
	PackURL      string
	PackSHA1     string
	PackSize     int64
}

// InstallModpack downloads a modpack archive, extracts it, resolves every
// mod it declares, downloads vanilla Minecraft and the loader, and only
// then commits the new instance to the catalog store. Any failure before
// that commit leaves the store untouched; every scratch directory created
// along the way is removed regardless of outcome.
func (s *Service) InstallModpack(ctx context.Context, req InstallModpackRequest) (domain.Instance, error) {
	release, err := s.beginInstall()
	if err != nil {
		return domain.Instance{}, err
	}
	defer release()

	instanceID := uuid.NewString()
	tempDir := filepath.Join(s.baseDir, "tmp", instanceID)
	defer os.RemoveAll(tempDir)

	s.setStage(domain.StageFetchingInfo, instanceID, req.InstanceName, req.ModpackIcon, "preparing install")

	instanceDir := filepath.Join(s.baseDir, "instances", instanceID)
	fail := func(err error) (domain.Instance, error) {
		os.RemoveAll(instanceDir)
		s.setFailed(instanceID, err.Error())
		return domain.Instance{}, err
	}

	s.setStage(domain.StageDownloadingPack, instanceID, req.InstanceName, req.ModpackIcon, "downloading modpack archive")
	packDest := filepath.Join(tempDir, "pack.zip")
	packTask := domain.DownloadTask{URL: req.PackURL, Dest: packDest, SHA1: req.PackSHA1, Size: req.PackSize}
	if err := s.downloader.DownloadAll(ctx, []domain.DownloadTask{packTask}); err != nil {
		return fail(err)
	}

	s.setStage(domain.StageExtractingPack, instanceID, req.InstanceName, req.ModpackIcon, "extracting modpack archive")
	packData, err := os.ReadFile(packDest)
	if err != nil {
		return fail(apperr.Wrap(apperr.KindStorage, err, "read downloaded pack archive"))
	}
	extractDir := filepath.Join(tempDir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return fail(apperr.Wrap(apperr.KindStorage, err, "create extraction directory"))
	}
	if err := pathsafe.ExtractZip(packData, extractDir); err != nil {
		return fail(err)
	}

	pack, err := parseModpackManifest(extractDir)
	if err != nil {
		return fail(err)
	}

	name := req.InstanceName
	if name == "" {
		name = pack.Name
	}

	s.setStage(domain.StageCreatingInstance, instanceID, name, req.ModpackIcon, "creating instance directory")
	if err := os.MkdirAll(filepath.Join(instanceDir, "mods"), 0o755); err != nil {
		return fail(apperr.Wrap(apperr.KindStorage, err, "create instance directory"))
	}

	now := time.Now()
	instance := domain.Instance{
		ID:               instanceID,
		Name:             name,
		MinecraftVersion: pack.MCVersion,
		Loader:           pack.Loader,
		LoaderVersion:    pack.LoaderVersion,
		InstancePath:     instanceDir,
		IconURL:          req.ModpackIcon,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.setStage(domain.StageDownloadingMinecraft, instanceID, name, req.ModpackIcon, "downloading Minecraft "+pack.MCVersion)
	mcTask, err := s.mc.ResolveClientDownload(ctx, pack.MCVersion, s.baseDir)
	if err != nil {
		return fail(err)
	}
	if err := s.downloader.DownloadAll(ctx, []domain.DownloadTask{mcTask}); err != nil {
		return fail(err)
	}

	if pack.Loader != domain.LoaderVanilla {
		s.setStage(domain.StageInstallingLoader, instanceID, name, req.ModpackIcon, "installing "+string(pack.Loader)+" "+pack.LoaderVersion)
		profile, err := s.loader.InstallLoader(ctx, pack.Loader, pack.MCVersion, pack.LoaderVersion)
		if err != nil {
			return fail(err)
		}
		libTasks := s.loader.LibraryDownloadTasks(profile, fileExists)
		if err := s.downloader.DownloadAll(ctx, libTasks); err != nil {
			return fail(err)
		}
	}

	s.setStage(domain.StageResolvingMods, instanceID, name, req.ModpackIcon, "resolving mods")
	var mods []resolvedMod
	switch pack.Format {
	case packFormatCurseForge:
		mods, err = resolveCurseForgeMods(ctx, s.modClient, pack.CurseForgeManifest, pack.MCVersion, pack.Loader, instanceDir, s.log)
		if err != nil {
			return fail(err)
		}
	case packFormatModrinth:
		mods = resolveModrinthMods(pack.ModrinthIndex, instanceDir)
	}

	s.setStage(domain.StageDownloadingMods, instanceID, name, req.ModpackIcon, "downloading mods")
	modTasks := make([]domain.DownloadTask, 0, len(mods))
	for _, m := range mods {
		modTasks = append(modTasks, m.Task)
	}
	if err := s.downloader.DownloadAll(ctx, modTasks); err != nil {
		return fail(err)
	}

	s.setStage(domain.StageCopyingOverrides, instanceID, name, req.ModpackIcon, "copying overrides")
	if pack.OverridesFolder != "" {
		overridesSrc := filepath.Join(extractDir, pack.OverridesFolder)
		if err := copyDirRecursive(overridesSrc, instanceDir); err != nil {
			return fail(err)
		}
	}

	// Everything above is reversible scratch work; this is the first
	// mutation of durable state, so it's the commit point. A failure past
	// here does not roll back the instance row, matching best-effort mod
	// registration below.
	if err := s.store.CreateInstance(ctx, instance); err != nil {
		return fail(apperr.Wrap(apperr.KindStorage, err, "create instance record"))
	}

	s.setStage(domain.StageRegisteringMods, instanceID, name, req.ModpackIcon, "registering mods")
	for _, m := range mods {
		record := m.Record
		record.ID = uuid.NewString()
		record.InstanceID = instanceID
		record.InstalledAt = time.Now()
		if err := s.store.AddModToInstance(ctx, record); err != nil {
			s.log.Warn("failed to register mod after successful install", "mod", record.Name, "error", err)
		}
	}

	s.setStage(domain.StageCompleted, instanceID, name, req.ModpackIcon, "")
	return instance, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
