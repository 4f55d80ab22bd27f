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

// Package curseforge implements ports.ModPlatform against the CurseForge
// Core API. It requires an API key; the aggregator skips this platform
// entirely when none is configured.
package curseforge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

var _ ports.ModPlatform = (*Client)(nil)

// baseURL is a var rather than a const so tests can point it at a local
// server.
var baseURL = "https://api.curseforge.com"

const (
	minecraftGameID = 432
	classIDMods     = 6
	cdnBase         = "https://edge.forgecdn.net/files"
)

var loaderToCF = map[domain.ModLoader]int{
	domain.LoaderForge:    1,
	domain.LoaderFabric:   4,
	domain.LoaderQuilt:    5,
	domain.LoaderNeoForge: 6,
}

var cfToLoader = map[int]domain.ModLoader{
	1: domain.LoaderForge,
	4: domain.LoaderFabric,
	5: domain.LoaderQuilt,
	6: domain.LoaderNeoForge,
}

type Client struct {
	client *http.Client
	apiKey string
}

func New(client *http.Client, apiKey string) *Client {
	return &Client{client: client, apiKey: apiKey}
}

func (c *Client) Source() domain.ModSource { return domain.SourceCurseForge }

type pagination struct {
	Index       int   `json:"index"`
	PageSize    int   `json:"pageSize"`
	ResultCount int   `json:"resultCount"`
	TotalCount  int64 `json:"totalCount"`
}

type cfLogo struct {
	URL string `json:"url"`
}

type cfAuthor struct {
	Name string `json:"name"`
}

type cfFileIndex struct {
	GameVersion string `json:"gameVersion"`
	ModLoader   int    `json:"modLoader"`
}

type cfMod struct {
	ID            int           `json:"id"`
	Slug          string        `json:"slug"`
	Name          string        `json:"name"`
	Summary       string        `json:"summary"`
	DownloadCount int64         `json:"downloadCount"`
	Logo          cfLogo        `json:"logo"`
	Authors       []cfAuthor    `json:"authors"`
	LatestFiles   []cfFile      `json:"latestFiles"`
	LatestFilesIndexes []cfFileIndex `json:"latestFilesIndexes"`
	Links         struct {
		SourceURL string `json:"sourceUrl"`
		IssuesURL string `json:"issuesUrl"`
	} `json:"links"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	DateCreated  string `json:"dateCreated"`
	DateModified string `json:"dateModified"`
}

type cfFileHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

type cfDependency struct {
	ModID        int `json:"modId"`
	RelationType int `json:"relationType"`
}

type cfFile struct {
	ID           int            `json:"id"`
	FileName     string         `json:"fileName"`
	DisplayName  string         `json:"displayName"`
	FileDate     string         `json:"fileDate"`
	FileLength   int64          `json:"fileLength"`
	DownloadURL  string         `json:"downloadUrl"`
	GameVersions []string       `json:"gameVersions"`
	Hashes       []cfFileHash   `json:"hashes"`
	Dependencies []cfDependency `json:"dependencies"`
}

type searchResponse struct {
	Data       []cfMod    `json:"data"`
	Pagination pagination `json:"pagination"`
}

func (c *Client) SearchMods(ctx context.Context, filters domain.SearchFilters) (domain.SearchResponse, error) {
	q := url.Values{}
	q.Set("gameId", strconv.Itoa(minecraftGameID))
	q.Set("classId", strconv.Itoa(classIDMods))
	if filters.Query != "" {
		q.Set("searchFilter", filters.Query)
	}
	if filters.GameVersion != "" {
		q.Set("gameVersion", filters.GameVersion)
	}
	if id, ok := loaderToCF[filters.Loader]; ok {
		q.Set("modLoaderType", strconv.Itoa(id))
	}
	q.Set("sortField", sortFieldFor(filters.Sort))
	q.Set("sortOrder", "desc")
	if filters.Offset > 0 {
		q.Set("index", strconv.Itoa(filters.Offset))
	}
	if filters.Limit > 0 {
		q.Set("pageSize", strconv.Itoa(filters.Limit))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, baseURL+"/v1/mods/search?"+q.Encode(), &resp); err != nil {
		return domain.SearchResponse{}, err
	}

	hits := make([]domain.ModSearchResult, 0, len(resp.Data))
	for _, m := range resp.Data {
		hits = append(hits, cfModToResult(m))
	}
	return domain.SearchResponse{
		Hits:      hits,
		TotalHits: resp.Pagination.TotalCount,
		Offset:    resp.Pagination.Index,
		Limit:     resp.Pagination.PageSize,
	}, nil
}

type modResponse struct {
	Data cfMod `json:"data"`
}

func (c *Client) GetMod(ctx context.Context, projectID string) (domain.ModDetails, error) {
	var resp modResponse
	if err := c.getJSON(ctx, baseURL+"/v1/mods/"+projectID, &resp); err != nil {
		return domain.ModDetails{}, err
	}

	result := cfModToResult(resp.Data)
	categories := make([]string, 0, len(resp.Data.Categories))
	for _, cat := range resp.Data.Categories {
		categories = append(categories, cat.Name)
	}

	return domain.ModDetails{
		ModSearchResult: result,
		Categories:      categories,
		SourceURL:       resp.Data.Links.SourceURL,
		IssuesURL:       resp.Data.Links.IssuesURL,
	}, nil
}

type filesResponse struct {
	Data []cfFile `json:"data"`
}

func (c *Client) GetVersions(ctx context.Context, projectID string, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	q := url.Values{}
	if gameVersion != "" {
		q.Set("gameVersion", gameVersion)
	}
	if id, ok := loaderToCF[loader]; ok {
		q.Set("modLoaderType", strconv.Itoa(id))
	}

	u := baseURL + "/v1/mods/" + projectID + "/files"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	var resp filesResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ModVersionInfo, 0, len(resp.Data))
	for _, f := range resp.Data {
		out = append(out, cfFileToVersion(projectID, f))
	}
	return out, nil
}

func cfModToResult(m cfMod) domain.ModSearchResult {
	author := ""
	if len(m.Authors) > 0 {
		author = m.Authors[0].Name
	}

	created, _ := time.Parse(time.RFC3339, m.DateCreated)
	updated, _ := time.Parse(time.RFC3339, m.DateModified)

	versions, loaders := extractVersionsAndLoaders(m)

	return domain.ModSearchResult{
		ID:           strconv.Itoa(m.ID),
		Slug:         m.Slug,
		Name:         m.Name,
		Description:  m.Summary,
		Author:       author,
		Downloads:    m.DownloadCount,
		IconURL:      m.Logo.URL,
		Source:       domain.SourceCurseForge,
		GameVersions: versions,
		Loaders:      loaders,
		DateCreated:  created,
		DateUpdated:  updated,
	}
}

func extractVersionsAndLoaders(m cfMod) ([]string, []domain.ModLoader) {
	versionSet := map[string]struct{}{}
	loaderSet := map[domain.ModLoader]struct{}{}

	for _, idx := range m.LatestFilesIndexes {
		if looksLikeMCVersion(idx.GameVersion) {
			versionSet[idx.GameVersion] = struct{}{}
		}
		if l, ok := cfToLoader[idx.ModLoader]; ok {
			loaderSet[l] = struct{}{}
		}
	}

	versions := make([]string, 0, len(versionSet))
	for v := range versionSet {
		versions = append(versions, v)
	}
	loaders := make([]domain.ModLoader, 0, len(loaderSet))
	for l := range loaderSet {
		loaders = append(loaders, l)
	}
	return versions, loaders
}

func looksLikeMCVersion(v string) bool {
	if v == "" {
		return false
	}
	return strings.HasPrefix(v, "1.") && !strings.Contains(strings.ToLower(v), "forge")
}

func cfFileToVersion(projectID string, f cfFile) domain.ModVersionInfo {
	published, _ := time.Parse(time.RFC3339, f.FileDate)

	downloadURL := f.DownloadURL
	if downloadURL == "" {
		downloadURL = buildDownloadURL(f.ID, f.FileName)
	}

	var sha1, md5 string
	for _, h := range f.Hashes {
		switch h.Algo {
		case 1:
			sha1 = h.Value
		case 2:
			md5 = h.Value
		}
	}
	hashes := map[string]string{}
	if sha1 != "" {
		hashes["sha1"] = sha1
	}
	if md5 != "" {
		hashes["md5"] = md5
	}

	deps := make([]domain.ModDependency, 0, len(f.Dependencies))
	for _, d := range f.Dependencies {
		deps = append(deps, domain.ModDependency{
			ProjectID:      strconv.Itoa(d.ModID),
			DependencyType: cfRelationToDependencyType(d.RelationType),
		})
	}

	return domain.ModVersionInfo{
		ID:            strconv.Itoa(f.ID),
		ProjectID:     projectID,
		Name:          f.DisplayName,
		VersionNumber: f.FileName,
		GameVersions:  f.GameVersions,
		Files: []domain.ModVersionFile{{
			URL:      downloadURL,
			Filename: f.FileName,
			Size:     f.FileLength,
			Hashes:   hashes,
			Primary:  true,
		}},
		Dependencies:  deps,
		DatePublished: published,
		Source:        domain.SourceCurseForge,
	}
}

// cfRelationType: 3=Required, 2=Optional, 5=Incompatible, 4=Embedded.
func cfRelationToDependencyType(relation int) domain.DependencyType {
	switch relation {
	case 3:
		return domain.DependencyRequired
	case 5:
		return domain.DependencyIncompatible
	case 4:
		return domain.DependencyEmbedded
	default:
		return domain.DependencyOptional
	}
}

// buildDownloadURL reconstructs a file's CDN URL when the API response
// omits one, following CurseForge's fixed bucketing scheme.
func buildDownloadURL(fileID int, fileName string) string {
	return fmt.Sprintf("%s/%d/%d/%s", cdnBase, fileID/1000, fileID%1000, url.PathEscape(fileName))
}

func sortFieldFor(sort domain.SortOrder) string {
	switch sort {
	case domain.SortDownloads:
		return "6"
	case domain.SortUpdated:
		return "3"
	case domain.SortNewest:
		return "11"
	default:
		return "2"
	}
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "build request for %s", url)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "request failed: %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindNetwork, "HTTP %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindParse, err, "decode response from %s", url)
	}
	return nil
}
