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

package modrinth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/core/domain"
)

func TestSearchMods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(`{"hits":[{"project_id":"abc","slug":"jei","title":"JEI","downloads":1000,"categories":["fabric"]}],"total_hits":1,"offset":0,"limit":10}`))
	}))
	defer srv.Close()

	c := New(srv.Client())
	prev := baseURL
	baseURL = srv.URL
	defer func() { baseURL = prev }()

	resp, err := c.SearchMods(context.Background(), domain.SearchFilters{Query: "jei"})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "jei", resp.Hits[0].Slug)
	assert.Contains(t, resp.Hits[0].Loaders, domain.LoaderFabric)
}

func TestBuildFacets(t *testing.T) {
	facets := buildFacets("1.20.1", "fabric", "")
	assert.Equal(t, `[["versions:1.20.1"],["categories:fabric"]]`, facets)
}

func TestIndexFor(t *testing.T) {
	assert.Equal(t, "downloads", indexFor(domain.SortDownloads))
	assert.Equal(t, "relevance", indexFor(domain.SortRelevance))
}
