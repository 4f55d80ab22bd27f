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
	"fmt"
	"net/http"
	"strings"

	"minesync/internal/core/domain"
)

const (
	neoforgeMavenURL  = "https://maven.neoforged.net"
	neoforgeVersionsAPI = "https://maven.neoforged.net/api/maven/versions/releases/net/neoforged/neoforge"
)

type NeoForgeInstaller struct {
	client *http.Client
}

func NewNeoForgeInstaller(client *http.Client) *NeoForgeInstaller {
	return &NeoForgeInstaller{client: client}
}

// mcToNeoForgePrefix maps a Minecraft version to the NeoForge version prefix
// that tracks it: MC 1.21.5 -> "21.5", MC 1.20.1 -> "20.1".
func mcToNeoForgePrefix(gameVersion string) string {
	parts := strings.SplitN(gameVersion, ".", 2)
	if len(parts) != 2 {
		return gameVersion
	}
	return parts[1]
}

func (n *NeoForgeInstaller) ListVersions(ctx context.Context, gameVersion string) ([]domain.LoaderVersionEntry, error) {
	var data struct {
		Versions []string `json:"versions"`
	}
	if err := getJSON(ctx, n.client, neoforgeVersionsAPI, &data); err != nil {
		return nil, err
	}

	prefix := mcToNeoForgePrefix(gameVersion)

	var out []domain.LoaderVersionEntry
	for i := len(data.Versions) - 1; i >= 0; i-- {
		v := data.Versions[i]
		if !strings.HasPrefix(v, prefix) {
			continue
		}
		stable := !strings.Contains(v, "beta") && !strings.Contains(v, "alpha") && !strings.Contains(v, "snapshot")
		out = append(out, domain.LoaderVersionEntry{LoaderVersion: v, GameVersion: gameVersion, Stable: stable})
	}

	return out, nil
}

func (n *NeoForgeInstaller) Install(ctx context.Context, gameVersion, loaderVersion string) (domain.LoaderProfile, error) {
	installerURL := fmt.Sprintf("%s/releases/net/neoforged/neoforge/%s/neoforge-%s-installer.jar",
		neoforgeMavenURL, loaderVersion, loaderVersion)

	installerBytes, err := fetchBytes(ctx, n.client, installerURL)
	if err != nil {
		return domain.LoaderProfile{}, err
	}

	versionJSON, err := extractVersionJSON(installerBytes)
	if err != nil {
		return domain.LoaderProfile{}, err
	}

	return parseInstallerVersionJSON(versionJSON, neoforgeMavenURL)
}
