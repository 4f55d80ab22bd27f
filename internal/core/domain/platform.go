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

package domain

import "time"

type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortDownloads SortOrder = "downloads"
	SortUpdated   SortOrder = "updated"
	SortNewest    SortOrder = "newest"
)

// SearchFilters narrows a mod-platform search request.
type SearchFilters struct {
	Query       string
	GameVersion string
	Loader      ModLoader
	Category    string
	Sort        SortOrder
	Offset      int
	Limit       int
}

// ModSearchResult is one row of a search response.
type ModSearchResult struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Author      string
	Downloads   int64
	IconURL     string
	Source      ModSource
	GameVersions []string
	Loaders     []ModLoader
	DateUpdated time.Time
	DateCreated time.Time
}

// SearchResponse is the aggregated, deduplicated result of querying every
// enabled platform.
type SearchResponse struct {
	Hits      []ModSearchResult
	TotalHits int64
	Offset    int
	Limit     int
}

// ModDetails extends ModSearchResult with the fields only needed on a
// single mod's detail view.
type ModDetails struct {
	ModSearchResult
	Body       string
	Categories []string
	SourceURL  string
	IssuesURL  string
}

type DependencyType string

const (
	DependencyRequired    DependencyType = "required"
	DependencyOptional    DependencyType = "optional"
	DependencyIncompatible DependencyType = "incompatible"
	DependencyEmbedded    DependencyType = "embedded"
)

// ModDependency is one edge in a mod's dependency graph.
type ModDependency struct {
	ProjectID      string
	DependencyType DependencyType
}

// ModVersionFile is one downloadable artifact of a ModVersionInfo.
type ModVersionFile struct {
	URL      string
	Filename string
	Size     int64
	Hashes   map[string]string
	Primary  bool
}

// ModVersionInfo is one version/release of a mod on a platform.
type ModVersionInfo struct {
	ID            string
	ProjectID     string
	Name          string
	VersionNumber string
	GameVersions  []string
	Loaders       []ModLoader
	Files         []ModVersionFile
	Dependencies  []ModDependency
	DatePublished time.Time
	Source        ModSource
}
