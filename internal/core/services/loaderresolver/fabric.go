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
	"encoding/json"
	"fmt"
	"net/http"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

const fabricMetaURL = "https://meta.fabricmc.net/v2"

type FabricInstaller struct {
	client *http.Client
}

func NewFabricInstaller(client *http.Client) *FabricInstaller {
	return &FabricInstaller{client: client}
}

type fabricLoaderEntry struct {
	Loader struct {
		Version string `json:"version"`
		Stable  bool   `json:"stable"`
	} `json:"loader"`
}

type fabricProfileJSON struct {
	MainClass string `json:"mainClass"`
	Libraries []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"libraries"`
	Arguments struct {
		Game []string `json:"game"`
		JVM  []string `json:"jvm"`
	} `json:"arguments"`
}

func (f *FabricInstaller) ListVersions(ctx context.Context, gameVersion string) ([]domain.LoaderVersionEntry, error) {
	url := fmt.Sprintf("%s/versions/loader/%s", fabricMetaURL, gameVersion)

	var entries []fabricLoaderEntry
	if err := getJSON(ctx, f.client, url, &entries); err != nil {
		return nil, err
	}

	out := make([]domain.LoaderVersionEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.LoaderVersionEntry{
			LoaderVersion: e.Loader.Version,
			GameVersion:   gameVersion,
			Stable:        e.Loader.Stable,
		})
	}
	return out, nil
}

func (f *FabricInstaller) Install(ctx context.Context, gameVersion, loaderVersion string) (domain.LoaderProfile, error) {
	url := fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", fabricMetaURL, gameVersion, loaderVersion)

	var profile fabricProfileJSON
	if err := getJSON(ctx, f.client, url, &profile); err != nil {
		return domain.LoaderProfile{}, err
	}

	libs := make([]domain.LoaderLibrary, 0, len(profile.Libraries))
	for _, lib := range profile.Libraries {
		coord, err := ParseMavenCoordinate(lib.Name)
		if err != nil {
			continue
		}
		base := lib.URL
		if base == "" {
			base = "https://maven.fabricmc.net/"
		}
		libs = append(libs, domain.LoaderLibrary{
			Name: lib.Name,
			URL:  coord.RepositoryURL(base),
			Path: coord.RepositoryPath(),
		})
	}

	return domain.LoaderProfile{
		MainClass:     profile.MainClass,
		Libraries:     libs,
		GameArguments: profile.Arguments.Game,
		JVMArguments:  profile.Arguments.JVM,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "failed to build request for %s", url)
	}
	req.Header.Set("User-Agent", "MineSync/1.0.0")

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "request failed: %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindNetwork, "HTTP %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindParse, err, "failed to decode response from %s", url)
	}
	return nil
}
