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

package modaggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

type fakePlatform struct {
	source   domain.ModSource
	results  domain.SearchResponse
	searchErr error
	versions map[string][]domain.ModVersionInfo
}

func (f *fakePlatform) Source() domain.ModSource { return f.source }

func (f *fakePlatform) SearchMods(ctx context.Context, filters domain.SearchFilters) (domain.SearchResponse, error) {
	if f.searchErr != nil {
		return domain.SearchResponse{}, f.searchErr
	}
	return f.results, nil
}

func (f *fakePlatform) GetMod(ctx context.Context, projectID string) (domain.ModDetails, error) {
	return domain.ModDetails{}, nil
}

func (f *fakePlatform) GetVersions(ctx context.Context, projectID, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	v, ok := f.versions[projectID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "no versions for %s", projectID)
	}
	return v, nil
}

func TestSearchModsMergesAndSumsHits(t *testing.T) {
	cf := &fakePlatform{
		source: domain.SourceCurseForge,
		results: domain.SearchResponse{
			TotalHits: 5,
			Hits: []domain.ModSearchResult{
				{Slug: "jei", Source: domain.SourceCurseForge, Downloads: 100},
			},
		},
	}
	mr := &fakePlatform{
		source: domain.SourceModrinth,
		results: domain.SearchResponse{
			TotalHits: 3,
			Hits: []domain.ModSearchResult{
				{Slug: "jei", Source: domain.SourceModrinth, Downloads: 200},
				{Slug: "sodium", Source: domain.SourceModrinth, Downloads: 50},
			},
		},
	}

	agg := New(nil, cf, mr)
	defer agg.Close()

	resp, err := agg.SearchMods(context.Background(), domain.SearchFilters{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), resp.TotalHits)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "jei", resp.Hits[0].Slug)
	assert.Equal(t, domain.SourceModrinth, resp.Hits[0].Source, "modrinth wins slug collision")
}

func TestSearchModsIsolatesPlatformFailure(t *testing.T) {
	cf := &fakePlatform{source: domain.SourceCurseForge, searchErr: apperr.New(apperr.KindNetwork, "down")}
	mr := &fakePlatform{
		source: domain.SourceModrinth,
		results: domain.SearchResponse{
			TotalHits: 1,
			Hits:      []domain.ModSearchResult{{Slug: "sodium", Source: domain.SourceModrinth, Downloads: 10}},
		},
	}

	agg := New(nil, cf, mr)
	defer agg.Close()

	resp, err := agg.SearchMods(context.Background(), domain.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.TotalHits)
	require.Len(t, resp.Hits, 1)
}

func TestResolveDependenciesWalksRequiredEdgesAcrossPlatforms(t *testing.T) {
	cf := &fakePlatform{
		source: domain.SourceCurseForge,
		versions: map[string][]domain.ModVersionInfo{
			// lib-a's version reports Modrinth as its source, so its own
			// dependency lib-b is looked up on Modrinth.
			"lib-a": {{
				ProjectID: "lib-a",
				Source:    domain.SourceModrinth,
				Dependencies: []domain.ModDependency{
					{ProjectID: "lib-b", DependencyType: domain.DependencyRequired},
				},
			}},
		},
	}
	mr := &fakePlatform{
		source: domain.SourceModrinth,
		versions: map[string][]domain.ModVersionInfo{
			"lib-b": {{ProjectID: "lib-b", Source: domain.SourceModrinth}},
		},
	}

	agg := New(nil, cf, mr)
	defer agg.Close()

	root := domain.ModVersionInfo{
		Source: domain.SourceCurseForge,
		Dependencies: []domain.ModDependency{
			{ProjectID: "lib-a", DependencyType: domain.DependencyRequired},
		},
	}

	resolved, err := agg.ResolveDependencies(context.Background(), []domain.ModVersionInfo{root}, "1.20.1", domain.LoaderFabric)
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	ids := map[string]bool{}
	for _, r := range resolved {
		ids[r.ProjectID] = true
	}
	assert.True(t, ids["lib-a"])
	assert.True(t, ids["lib-b"])
}

func TestResolveDependenciesSkipsUnresolvableDependency(t *testing.T) {
	mr := &fakePlatform{source: domain.SourceModrinth, versions: map[string][]domain.ModVersionInfo{}}
	agg := New(nil, mr)
	defer agg.Close()

	root := domain.ModVersionInfo{
		Source: domain.SourceModrinth,
		Dependencies: []domain.ModDependency{
			{ProjectID: "missing", DependencyType: domain.DependencyRequired},
		},
	}

	resolved, err := agg.ResolveDependencies(context.Background(), []domain.ModVersionInfo{root}, "1.20.1", domain.LoaderFabric)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}
