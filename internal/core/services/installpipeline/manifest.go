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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

// cfManifest mirrors the subset of CurseForge's manifest.json this pipeline
// reads.
type cfManifest struct {
	Name      string `json:"name"`
	Minecraft struct {
		Version    string `json:"version"`
		ModLoaders []struct {
			ID      string `json:"id"`
			Primary bool   `json:"primary"`
		} `json:"modLoaders"`
	} `json:"minecraft"`
	Overrides string `json:"overrides"`
	Files     []struct {
		ProjectID int  `json:"projectID"`
		FileID    int  `json:"fileID"`
		Required  bool `json:"required"`
	} `json:"files"`
}

// mrIndex mirrors the subset of Modrinth's modrinth.index.json this
// pipeline reads.
type mrIndex struct {
	Name         string            `json:"name"`
	Dependencies map[string]string `json:"dependencies"`
	Files        []struct {
		Path     string   `json:"path"`
		Downloads []string `json:"downloads"`
		FileSize  int64    `json:"fileSize"`
		Hashes    struct {
			SHA1 string `json:"sha1"`
		} `json:"hashes"`
	} `json:"files"`
}

type packFormat int

const (
	packFormatCurseForge packFormat = iota
	packFormatModrinth
)

type parsedPackInfo struct {
	Name             string
	MCVersion        string
	Loader           domain.ModLoader
	LoaderVersion    string
	OverridesFolder  string
	Format           packFormat
	CurseForgeManifest cfManifest
	ModrinthIndex      mrIndex
}

// parseModpackManifest reads manifest.json (CurseForge) or
// modrinth.index.json (Modrinth) from extractDir, whichever is present.
func parseModpackManifest(extractDir string) (parsedPackInfo, error) {
	cfPath := filepath.Join(extractDir, "manifest.json")
	if data, err := os.ReadFile(cfPath); err == nil {
		var manifest cfManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return parsedPackInfo{}, apperr.Wrap(apperr.KindParse, err, "parse manifest.json")
		}
		loader, loaderVersion := parseCFLoader(manifest)
		return parsedPackInfo{
			Name:               manifest.Name,
			MCVersion:          manifest.Minecraft.Version,
			Loader:             loader,
			LoaderVersion:      loaderVersion,
			OverridesFolder:    manifest.Overrides,
			Format:             packFormatCurseForge,
			CurseForgeManifest: manifest,
		}, nil
	}

	mrPath := filepath.Join(extractDir, "modrinth.index.json")
	if data, err := os.ReadFile(mrPath); err == nil {
		var index mrIndex
		if err := json.Unmarshal(data, &index); err != nil {
			return parsedPackInfo{}, apperr.Wrap(apperr.KindParse, err, "parse modrinth.index.json")
		}
		loader, loaderVersion := parseMRLoader(index.Dependencies)
		return parsedPackInfo{
			Name:            index.Name,
			MCVersion:       index.Dependencies["minecraft"],
			Loader:          loader,
			LoaderVersion:   loaderVersion,
			OverridesFolder: "overrides",
			Format:          packFormatModrinth,
			ModrinthIndex:   index,
		}, nil
	}

	return parsedPackInfo{}, apperr.New(apperr.KindParse, "no valid modpack manifest found (expected manifest.json or modrinth.index.json)")
}

// parseCFLoader reads CurseForge's "forge-47.3.0" style loader id off the
// primary mod loader entry (or the first entry if none is marked primary).
func parseCFLoader(manifest cfManifest) (domain.ModLoader, string) {
	loaders := manifest.Minecraft.ModLoaders
	if len(loaders) == 0 {
		return domain.LoaderVanilla, ""
	}

	primary := loaders[0]
	for _, l := range loaders {
		if l.Primary {
			primary = l
			break
		}
	}

	switch {
	case strings.HasPrefix(primary.ID, "forge-"):
		return domain.LoaderForge, strings.TrimPrefix(primary.ID, "forge-")
	case strings.HasPrefix(primary.ID, "fabric-"):
		return domain.LoaderFabric, strings.TrimPrefix(primary.ID, "fabric-")
	case strings.HasPrefix(primary.ID, "neoforge-"):
		return domain.LoaderNeoForge, strings.TrimPrefix(primary.ID, "neoforge-")
	case strings.HasPrefix(primary.ID, "quilt-"):
		return domain.LoaderQuilt, strings.TrimPrefix(primary.ID, "quilt-")
	default:
		return domain.LoaderVanilla, ""
	}
}

// parseMRLoader reads Modrinth's dependencies map for the loader key.
func parseMRLoader(deps map[string]string) (domain.ModLoader, string) {
	if v, ok := deps["fabric-loader"]; ok {
		return domain.LoaderFabric, v
	}
	if v, ok := deps["forge"]; ok {
		return domain.LoaderForge, v
	}
	if v, ok := deps["neoforge"]; ok {
		return domain.LoaderNeoForge, v
	}
	if v, ok := deps["quilt-loader"]; ok {
		return domain.LoaderQuilt, v
	}
	return domain.LoaderVanilla, ""
}
