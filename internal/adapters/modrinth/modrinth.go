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

// Package modrinth implements ports.ModPlatform against the Modrinth v2 API.
// Modrinth never requires an API key, so this adapter is always enabled.
package modrinth

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
var baseURL = "https://api.modrinth.com/v2"

const userAgent = "MineSync/1.0.0 (contact@minesync.dev)"

var knownLoaders = []string{"forge", "fabric", "neoforge", "quilt"}

type Client struct {
	client *http.Client
}

func New(client *http.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Source() domain.ModSource { return domain.SourceModrinth }

type searchResponse struct {
	Hits      []searchHit `json:"hits"`
	TotalHits int64       `json:"total_hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
}

type searchHit struct {
	ProjectID   string   `json:"project_id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Downloads   int64    `json:"downloads"`
	IconURL     string   `json:"icon_url"`
	Versions    []string `json:"versions"`
	Categories  []string `json:"categories"`
	DateModified string  `json:"date_modified"`
	DateCreated  string  `json:"date_created"`
}

func (c *Client) SearchMods(ctx context.Context, filters domain.SearchFilters) (domain.SearchResponse, error) {
	q := url.Values{}
	q.Set("query", filters.Query)
	q.Set("facets", buildFacets(filters.GameVersion, string(filters.Loader), filters.Category))
	q.Set("index", indexFor(filters.Sort))
	if filters.Offset > 0 {
		q.Set("offset", strconv.Itoa(filters.Offset))
	}
	if filters.Limit > 0 {
		q.Set("limit", strconv.Itoa(filters.Limit))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, baseURL+"/search?"+q.Encode(), &resp); err != nil {
		return domain.SearchResponse{}, err
	}

	hits := make([]domain.ModSearchResult, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, hitToResult(h))
	}
	return domain.SearchResponse{Hits: hits, TotalHits: resp.TotalHits, Offset: resp.Offset, Limit: resp.Limit}, nil
}

type project struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	Team        string   `json:"team"`
	Downloads   int64    `json:"downloads"`
	IconURL     string   `json:"icon_url"`
	GameVersions []string `json:"game_versions"`
	Categories  []string `json:"categories"`
	SourceURL   string   `json:"source_url"`
	IssuesURL   string   `json:"issues_url"`
	Published   string   `json:"published"`
	Updated     string   `json:"updated"`
}

type teamMember struct {
	Role string `json:"role"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (c *Client) GetMod(ctx context.Context, projectID string) (domain.ModDetails, error) {
	var p project
	if err := c.getJSON(ctx, baseURL+"/project/"+projectID, &p); err != nil {
		return domain.ModDetails{}, err
	}

	author, err := c.fetchAuthor(ctx, p.Team)
	if err != nil {
		author = ""
	}

	created, _ := time.Parse(time.RFC3339, p.Published)
	updated, _ := time.Parse(time.RFC3339, p.Updated)

	return domain.ModDetails{
		ModSearchResult: domain.ModSearchResult{
			ID:           p.ID,
			Slug:         p.Slug,
			Name:         p.Title,
			Description:  p.Description,
			Author:       author,
			Downloads:    p.Downloads,
			IconURL:      p.IconURL,
			Source:       domain.SourceModrinth,
			GameVersions: p.GameVersions,
			Loaders:      loadersFromCategories(p.Categories),
			DateUpdated:  updated,
			DateCreated:  created,
		},
		Body:       p.Body,
		Categories: p.Categories,
		SourceURL:  p.SourceURL,
		IssuesURL:  p.IssuesURL,
	}, nil
}

func (c *Client) fetchAuthor(ctx context.Context, teamID string) (string, error) {
	if teamID == "" {
		return "", nil
	}
	var members []teamMember
	if err := c.getJSON(ctx, baseURL+"/team/"+teamID+"/members", &members); err != nil {
		return "", err
	}
	for _, m := range members {
		if m.Role == "Owner" {
			return m.User.Username, nil
		}
	}
	if len(members) > 0 {
		return members[0].User.Username, nil
	}
	return "", nil
}

type version struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"project_id"`
	Name          string   `json:"name"`
	VersionNumber string   `json:"version_number"`
	GameVersions  []string `json:"game_versions"`
	Loaders       []string `json:"loaders"`
	Dependencies  []struct {
		ProjectID      string `json:"project_id"`
		DependencyType string `json:"dependency_type"`
	} `json:"dependencies"`
	Files []struct {
		URL      string            `json:"url"`
		Filename string            `json:"filename"`
		Size     int64             `json:"size"`
		Primary  bool              `json:"primary"`
		Hashes   map[string]string `json:"hashes"`
	} `json:"files"`
	DatePublished string `json:"date_published"`
}

func (c *Client) GetVersions(ctx context.Context, projectID, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	q := url.Values{}
	if gameVersion != "" {
		q.Set("game_versions", fmt.Sprintf("[%q]", gameVersion))
	}
	if loader != "" {
		q.Set("loaders", fmt.Sprintf("[%q]", loader))
	}

	u := baseURL + "/project/" + projectID + "/version"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	var versions []version
	if err := c.getJSON(ctx, u, &versions); err != nil {
		return nil, err
	}

	out := make([]domain.ModVersionInfo, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionToInfo(projectID, v))
	}
	return out, nil
}

func versionToInfo(projectID string, v version) domain.ModVersionInfo {
	loaders := make([]domain.ModLoader, 0, len(v.Loaders))
	for _, l := range v.Loaders {
		loaders = append(loaders, domain.ModLoader(l))
	}

	files := make([]domain.ModVersionFile, 0, len(v.Files))
	for _, f := range v.Files {
		files = append(files, domain.ModVersionFile{
			URL: f.URL, Filename: f.Filename, Size: f.Size, Hashes: f.Hashes, Primary: f.Primary,
		})
	}

	deps := make([]domain.ModDependency, 0, len(v.Dependencies))
	for _, d := range v.Dependencies {
		if d.ProjectID == "" {
			continue
		}
		deps = append(deps, domain.ModDependency{
			ProjectID:      d.ProjectID,
			DependencyType: mrDependencyType(d.DependencyType),
		})
	}

	published, _ := time.Parse(time.RFC3339, v.DatePublished)

	return domain.ModVersionInfo{
		ID:            v.ID,
		ProjectID:     projectID,
		Name:          v.Name,
		VersionNumber: v.VersionNumber,
		GameVersions:  v.GameVersions,
		Loaders:       loaders,
		Files:         files,
		Dependencies:  deps,
		DatePublished: published,
		Source:        domain.SourceModrinth,
	}
}

func mrDependencyType(s string) domain.DependencyType {
	switch s {
	case "required":
		return domain.DependencyRequired
	case "incompatible":
		return domain.DependencyIncompatible
	case "embedded":
		return domain.DependencyEmbedded
	default:
		return domain.DependencyOptional
	}
}

func hitToResult(h searchHit) domain.ModSearchResult {
	updated, _ := time.Parse(time.RFC3339, h.DateModified)
	created, _ := time.Parse(time.RFC3339, h.DateCreated)
	return domain.ModSearchResult{
		ID:           h.ProjectID,
		Slug:         h.Slug,
		Name:         h.Title,
		Description:  h.Description,
		Author:       h.Author,
		Downloads:    h.Downloads,
		IconURL:      h.IconURL,
		Source:       domain.SourceModrinth,
		GameVersions: h.Versions,
		Loaders:      loadersFromCategories(h.Categories),
		DateUpdated:  updated,
		DateCreated:  created,
	}
}

func loadersFromCategories(categories []string) []domain.ModLoader {
	var out []domain.ModLoader
	for _, cat := range categories {
		for _, l := range knownLoaders {
			if cat == l {
				out = append(out, domain.ModLoader(l))
			}
		}
	}
	return out
}

// buildFacets encodes an AND-of-OR-groups facet string the way Modrinth's
// search API expects: each bracketed group is OR'd internally, groups are
// AND'd together.
func buildFacets(gameVersion, loader, category string) string {
	var groups []string
	if gameVersion != "" {
		groups = append(groups, fmt.Sprintf(`["versions:%s"]`, gameVersion))
	}
	if loader != "" {
		groups = append(groups, fmt.Sprintf(`["categories:%s"]`, loader))
	}
	if category != "" {
		groups = append(groups, fmt.Sprintf(`["categories:%s"]`, category))
	}
	return "[" + strings.Join(groups, ",") + "]"
}

func indexFor(sort domain.SortOrder) string {
	switch sort {
	case domain.SortDownloads:
		return "downloads"
	case domain.SortUpdated:
		return "updated"
	case domain.SortNewest:
		return "newest"
	default:
		return "relevance"
	}
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "build request for %s", url)
	}
	req.Header.Set("User-Agent", userAgent)

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
