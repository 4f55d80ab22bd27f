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
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Jeffail/gabs"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

const (
	forgeMavenURL      = "https://maven.minecraftforge.net"
	forgePromotionsURL = "https://files.minecraftforge.net/net/minecraftforge/forge/promotions_slim.json"
)

type ForgeInstaller struct {
	client *http.Client
}

func NewForgeInstaller(client *http.Client) *ForgeInstaller {
	return &ForgeInstaller{client: client}
}

func (f *ForgeInstaller) ListVersions(ctx context.Context, gameVersion string) ([]domain.LoaderVersionEntry, error) {
	var promos struct {
		Promos map[string]string `json:"promos"`
	}
	if err := getJSON(ctx, f.client, forgePromotionsURL, &promos); err != nil {
		return nil, err
	}

	var out []domain.LoaderVersionEntry

	if v, ok := promos.Promos[gameVersion+"-recommended"]; ok {
		out = append(out, domain.LoaderVersionEntry{LoaderVersion: v, GameVersion: gameVersion, Stable: true})
	}
	if v, ok := promos.Promos[gameVersion+"-latest"]; ok {
		dup := false
		for _, e := range out {
			if e.LoaderVersion == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, domain.LoaderVersionEntry{LoaderVersion: v, GameVersion: gameVersion, Stable: false})
		}
	}

	return out, nil
}

func (f *ForgeInstaller) Install(ctx context.Context, gameVersion, loaderVersion string) (domain.LoaderProfile, error) {
	forgeID := fmt.Sprintf("%s-%s", gameVersion, loaderVersion)
	installerURL := fmt.Sprintf("%s/net/minecraftforge/forge/%s/forge-%s-installer.jar", forgeMavenURL, forgeID, forgeID)

	installerBytes, err := fetchBytes(ctx, f.client, installerURL)
	if err != nil {
		return domain.LoaderProfile{}, err
	}

	versionJSON, err := extractVersionJSON(installerBytes)
	if err != nil {
		return domain.LoaderProfile{}, err
	}

	return parseInstallerVersionJSON(versionJSON, forgeMavenURL)
}

func fetchBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "failed to build request for %s", url)
	}
	req.Header.Set("User-Agent", "MineSync/1.0.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "request failed: %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindNetwork, "HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "failed to read body of %s", url)
	}
	return data, nil
}

// extractVersionJSON pulls version.json out of an installer JAR (a ZIP
// archive), the shape Forge and NeoForge both ship their launch profile in.
func extractVersionJSON(jarBytes []byte) (*gabs.Container, error) {
	r, err := zip.NewReader(bytes.NewReader(jarBytes), int64(len(jarBytes)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, "installer is not a valid archive")
	}

	for _, f := range r.File {
		if f.Name != "version.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindParse, err, "failed to open version.json")
		}
		defer rc.Close()

		parsed, err := gabs.ParseJSONBuffer(rc)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindParse, err, "failed to parse version.json")
		}
		return parsed, nil
	}

	return nil, apperr.New(apperr.KindParse, "version.json not found in installer")
}

// parseInstallerVersionJSON converts an installer's version.json into a
// LoaderProfile. Used by both Forge and NeoForge, whose version.json shapes
// are identical.
func parseInstallerVersionJSON(v *gabs.Container, mavenBaseURL string) (domain.LoaderProfile, error) {
	mainClass, _ := v.Path("mainClass").Data().(string)

	var libs []domain.LoaderLibrary
	children, _ := v.Path("libraries").Children()
	for _, lib := range children {
		name, _ := lib.Path("name").Data().(string)
		if name == "" {
			continue
		}

		coord, err := ParseMavenCoordinate(name)
		var url, path, sha1 string
		var size int64
		if err == nil {
			path = coord.RepositoryPath()
			url = coord.RepositoryURL(mavenBaseURL)
		}

		if artifact := lib.Path("downloads.artifact"); artifact.Data() != nil {
			if u, ok := artifact.Path("url").Data().(string); ok && u != "" {
				url = u
			}
			if p, ok := artifact.Path("path").Data().(string); ok && p != "" {
				path = p
			}
			if s, ok := artifact.Path("sha1").Data().(string); ok {
				sha1 = s
			}
			if sz, ok := artifact.Path("size").Data().(float64); ok {
				size = int64(sz)
			}
		}

		libs = append(libs, domain.LoaderLibrary{Name: name, URL: url, Path: path, SHA1: sha1, Size: size})
	}

	return domain.LoaderProfile{
		MainClass:     mainClass,
		Libraries:     libs,
		GameArguments: extractStringArgs(v.Path("arguments.game")),
		JVMArguments:  extractStringArgs(v.Path("arguments.jvm")),
	}, nil
}

func extractStringArgs(c *gabs.Container) []string {
	if c == nil {
		return nil
	}
	items, err := c.Children()
	if err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.Data().(string); ok {
			out = append(out, s)
		}
	}
	return out
}
