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

package loaderresolver

import (
	"context"
	"net/http"
	"path/filepath"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

// Resolver dispatches to the correct loader installer based on
// domain.ModLoader.
type Resolver struct {
	fabric   *FabricInstaller
	quilt    *QuiltInstaller
	forge    *ForgeInstaller
	neoforge *NeoForgeInstaller
	librariesDir string
}

func New(client *http.Client, librariesDir string) *Resolver {
	return &Resolver{
		fabric:       NewFabricInstaller(client),
		quilt:        NewQuiltInstaller(client),
		forge:        NewForgeInstaller(client),
		neoforge:     NewNeoForgeInstaller(client),
		librariesDir: librariesDir,
	}
}

func (r *Resolver) installerFor(loader domain.ModLoader) (ports.LoaderInstaller, error) {
	switch loader {
	case domain.LoaderFabric:
		return r.fabric, nil
	case domain.LoaderQuilt:
		return r.quilt, nil
	case domain.LoaderForge:
		return r.forge, nil
	case domain.LoaderNeoForge:
		return r.neoforge, nil
	case domain.LoaderVanilla:
		return nil, apperr.New(apperr.KindConflict, "vanilla does not have loader versions")
	default:
		return nil, apperr.New(apperr.KindParse, "unknown loader %q", loader)
	}
}

func (r *Resolver) ListVersions(ctx context.Context, loader domain.ModLoader, gameVersion string) ([]domain.LoaderVersionEntry, error) {
	installer, err := r.installerFor(loader)
	if err != nil {
		return nil, err
	}
	return installer.ListVersions(ctx, gameVersion)
}

func (r *Resolver) InstallLoader(ctx context.Context, loader domain.ModLoader, gameVersion, loaderVersion string) (domain.LoaderProfile, error) {
	installer, err := r.installerFor(loader)
	if err != nil {
		return domain.LoaderProfile{}, err
	}
	return installer.Install(ctx, gameVersion, loaderVersion)
}

// LibraryDownloadTasks returns the missing-on-disk libraries of a profile as
// download tasks, skipping any library already present under
// {librariesDir}/{path} and any entry without a URL.
func (r *Resolver) LibraryDownloadTasks(profile domain.LoaderProfile, fileExists func(string) bool) []domain.DownloadTask {
	var tasks []domain.DownloadTask
	for _, lib := range profile.Libraries {
		if lib.URL == "" {
			continue
		}
		dest := filepath.Join(r.librariesDir, filepath.FromSlash(lib.Path))
		if fileExists(dest) {
			continue
		}
		tasks = append(tasks, domain.DownloadTask{URL: lib.URL, Dest: dest, SHA1: lib.SHA1, Size: lib.Size})
	}
	return tasks
}
