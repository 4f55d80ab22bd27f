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
	"path"
	"path/filepath"
	"strconv"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/pathsafe"
)

// resolvedMod is one mod whose download location has been resolved and
// path-validated, ready to be downloaded and, on success, registered.
type resolvedMod struct {
	Task   domain.DownloadTask
	Record domain.ModRecord
}

// resolveCurseForgeMods resolves every file entry in a CurseForge manifest
// against modClient. ports.ModPlatform has no batch file-lookup, so each
// entry's projectID is resolved via GetVersions and matched against the
// manifest's fileID — the CurseForge "file" and this module's
// domain.ModVersionInfo are the same thing, one per release.
func resolveCurseForgeMods(ctx context.Context, modClient ModClient, manifest cfManifest, mcVersion string, loader domain.ModLoader, instanceDir string, log *slog.Logger) ([]resolvedMod, error) {
	var resolved []resolvedMod

	for _, entry := range manifest.Files {
		projectID := strconv.Itoa(entry.ProjectID)
		fileID := strconv.Itoa(entry.FileID)

		versions, err := modClient.GetVersions(ctx, domain.SourceCurseForge, projectID, mcVersion, loader)
		if err != nil {
			if entry.Required {
				return nil, apperr.Wrap(apperr.KindNetwork, err, "resolve curseforge project %s", projectID)
			}
			log.Warn("skipping optional mod: failed to resolve", "project", projectID, "error", err)
			continue
		}

		var match *domain.ModVersionInfo
		for i := range versions {
			if versions[i].ID == fileID {
				match = &versions[i]
				break
			}
		}
		if match == nil {
			if entry.Required {
				return nil, apperr.New(apperr.KindNotFound, "curseforge file %s not found for project %s", fileID, projectID)
			}
			log.Warn("skipping optional mod: file not found", "project", projectID, "file", fileID)
			continue
		}

		file := primaryFile(match.Files)
		if file == nil {
			if entry.Required {
				return nil, apperr.New(apperr.KindNotFound, "curseforge file %s has no downloadable artifact", fileID)
			}
			continue
		}

		dest := resolveModDestination(instanceDir, path.Join("mods", file.Filename))
		resolved = append(resolved, resolvedMod{
			Task: domain.DownloadTask{URL: file.URL, Dest: dest, SHA1: file.Hashes["sha1"], Size: file.Size},
			Record: domain.ModRecord{
				Name:            match.Name,
				Version:         match.VersionNumber,
				FileName:        file.Filename,
				FileHash:        file.Hashes["sha1"],
				Source:          domain.SourceCurseForge,
				SourceProjectID: projectID,
				SourceVersionID: fileID,
				IsActive:        true,
			},
		})
	}

	return resolved, nil
}

// resolveModrinthMods resolves every file entry in a Modrinth index
// directly — the index already carries the download URL, hash, and
// manifest-declared relative path for each file.
func resolveModrinthMods(index mrIndex, instanceDir string) []resolvedMod {
	resolved := make([]resolvedMod, 0, len(index.Files))

	for _, f := range index.Files {
		if len(f.Downloads) == 0 {
			continue
		}

		dest := resolveModDestination(instanceDir, f.Path)
		resolved = append(resolved, resolvedMod{
			Task: domain.DownloadTask{URL: f.Downloads[0], Dest: dest, SHA1: f.Hashes.SHA1, Size: f.FileSize},
			Record: domain.ModRecord{
				Name:            path.Base(f.Path),
				FileName:        path.Base(f.Path),
				FileHash:        f.Hashes.SHA1,
				Source:          domain.SourceModrinth,
				IsActive:        true,
			},
		})
	}

	return resolved
}

func primaryFile(files []domain.ModVersionFile) *domain.ModVersionFile {
	for i := range files {
		if files[i].Primary {
			return &files[i]
		}
	}
	if len(files) > 0 {
		return &files[0]
	}
	return nil
}

// resolveModDestination validates a manifest-declared relative path against
// pathsafe and joins it onto instanceDir. A path pathsafe accepts is kept
// as is and may point anywhere inside instanceDir; a path pathsafe rejects
// is demoted to mods/{basename}.
func resolveModDestination(instanceDir, rawPath string) string {
	rel, err := pathsafe.SafeRelativePath(rawPath)
	if err != nil {
		rel = path.Join("mods", path.Base(rawPath))
	}
	return filepath.Join(instanceDir, filepath.FromSlash(rel))
}
