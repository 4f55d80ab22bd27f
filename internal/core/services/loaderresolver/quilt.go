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

	"minesync/internal/core/domain"
)

const quiltMetaURL = "https://meta.quiltmc.org/v3"

type QuiltInstaller struct {
	client *http.Client
}

func NewQuiltInstaller(client *http.Client) *QuiltInstaller {
	return &QuiltInstaller{client: client}
}

type quiltLoaderEntry struct {
	Loader struct {
		Version string `json:"version"`
	} `json:"loader"`
}

// quiltProfileJSON shares Fabric's profile shape exactly.
type quiltProfileJSON = fabricProfileJSON

func (q *QuiltInstaller) ListVersions(ctx context.Context, gameVersion string) ([]domain.LoaderVersionEntry, error) {
	url := fmt.Sprintf("%s/versions/loader/%s", quiltMetaURL, gameVersion)

	var entries []quiltLoaderEntry
	if err := getJSON(ctx, q.client, url, &entries); err != nil {
		return nil, err
	}

	out := make([]domain.LoaderVersionEntry, 0, len(entries))
	for _, e := range entries {
		// Quilt's Meta API doesn't expose a stable flag the way Fabric's does.
		out = append(out, domain.LoaderVersionEntry{
			LoaderVersion: e.Loader.Version,
			GameVersion:   gameVersion,
			Stable:        true,
		})
	}
	return out, nil
}

func (q *QuiltInstaller) Install(ctx context.Context, gameVersion, loaderVersion string) (domain.LoaderProfile, error) {
	url := fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", quiltMetaURL, gameVersion, loaderVersion)

	var profile quiltProfileJSON
	if err := getJSON(ctx, q.client, url, &profile); err != nil {
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
			base = "https://maven.quiltmc.org/repository/release/"
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
