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

// Package installpipeline drives the staged install-modpack and
// install-mod/remove-mod operations: fetching a pack, extracting it,
// resolving its mods against the configured platforms, downloading
// everything, and only then committing the result to the catalog store.
package installpipeline

import (
	"context"

	"minesync/internal/core/domain"
)

// ModClient is the narrow slice of modaggregator.Aggregator this pipeline
// needs: resolving a mod's versions on its platform of origin, and walking
// the Required dependency graph of a set of roots.
type ModClient interface {
	GetVersions(ctx context.Context, source domain.ModSource, projectID, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error)
	ResolveDependencies(ctx context.Context, roots []domain.ModVersionInfo, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error)
}

// Downloader is the narrow slice of downloader.Downloader this pipeline
// needs.
type Downloader interface {
	DownloadAll(ctx context.Context, tasks []domain.DownloadTask) error
	Progress() domain.ProgressSnapshot
}

// MinecraftResolver is the narrow slice of minecraftservice.Service this
// pipeline needs.
type MinecraftResolver interface {
	ResolveClientDownload(ctx context.Context, version, baseDir string) (domain.DownloadTask, error)
}

// LoaderResolver is the narrow slice of loaderresolver.Resolver this
// pipeline needs.
type LoaderResolver interface {
	InstallLoader(ctx context.Context, loader domain.ModLoader, gameVersion, loaderVersion string) (domain.LoaderProfile, error)
	LibraryDownloadTasks(profile domain.LoaderProfile, fileExists func(string) bool) []domain.DownloadTask
}
