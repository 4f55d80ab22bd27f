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

// Package minecraftservice resolves vanilla Minecraft client/server JARs
// against Mojang's version manifest.
package minecraftservice

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/Jeffail/gabs"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

// globalManifestURL is a var rather than a const so tests can point it at a
// local server.
var globalManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

// Service resolves the download task for a vanilla Minecraft JAR, caching
// nothing itself; callers own the on-disk layout.
type Service struct {
	client *http.Client
}

func New(client *http.Client) *Service {
	return &Service{client: client}
}

// ClientJarPath is the conventional location mcdex-style launchers place a
// client JAR for a given version under a base directory.
func ClientJarPath(baseDir, version string) string {
	return filepath.Join(baseDir, "versions", version, version+".jar")
}

// ServerJarPath is the conventional location for a dedicated server JAR.
func ServerJarPath(baseDir, version string) string {
	return filepath.Join(baseDir, fmt.Sprintf("minecraft_server.%s.jar", version))
}

// ResolveClientDownload returns the download task for the client JAR of the
// given version, fetching the global and per-version manifests from Mojang.
func (s *Service) ResolveClientDownload(ctx context.Context, version, baseDir string) (domain.DownloadTask, error) {
	return s.resolveDownload(ctx, version, "client", ClientJarPath(baseDir, version))
}

// ResolveServerDownload returns the download task for the dedicated server
// JAR of the given version.
func (s *Service) ResolveServerDownload(ctx context.Context, version, baseDir string) (domain.DownloadTask, error) {
	return s.resolveDownload(ctx, version, "server", ServerJarPath(baseDir, version))
}

func (s *Service) resolveDownload(ctx context.Context, version, key, dest string) (domain.DownloadTask, error) {
	global, err := s.getJSON(ctx, globalManifestURL)
	if err != nil {
		return domain.DownloadTask{}, apperr.Wrap(apperr.KindNetwork, err, "fetch global version manifest")
	}

	versionEntries, _ := global.Path("versions").Children()
	var versionManifestURL string
	for _, entry := range versionEntries {
		id, ok := entry.Path("id").Data().(string)
		if ok && id == version {
			versionManifestURL, _ = entry.Path("url").Data().(string)
			break
		}
	}
	if versionManifestURL == "" {
		return domain.DownloadTask{}, apperr.New(apperr.KindNotFound, "no manifest entry for Minecraft version %s", version)
	}

	manifest, err := s.getJSON(ctx, versionManifestURL)
	if err != nil {
		return domain.DownloadTask{}, apperr.Wrap(apperr.KindNetwork, err, "fetch manifest for %s", version)
	}

	download := manifest.Path("downloads." + key)
	url, ok := download.Path("url").Data().(string)
	if !ok || url == "" {
		return domain.DownloadTask{}, apperr.New(apperr.KindParse, "manifest for %s has no %s download", version, key)
	}
	sha1, _ := download.Path("sha1").Data().(string)
	size, _ := intValue(download, "size")

	return domain.DownloadTask{
		URL:  url,
		Dest: dest,
		SHA1: sha1,
		Size: int64(size),
	}, nil
}

func (s *Service) getJSON(ctx context.Context, url string) (*gabs.Container, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "build request for %s", url)
	}
	req.Header.Set("User-Agent", "MineSync/1.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "request failed: %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindNetwork, "HTTP %d from %s", resp.StatusCode, url)
	}

	return gabs.ParseJSONBuffer(resp.Body)
}

func intValue(c *gabs.Container, path string) (int, error) {
	data := c.Path(path).Data()
	switch v := data.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, apperr.New(apperr.KindParse, "invalid numeric value at %s: %+v", path, data)
	}
}
