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

// Package modaggregator fans a mod search out across every enabled
// ports.ModPlatform, merges the results, and resolves transitive
// dependencies, looking each one up on the platform named by the Source of
// the version that requires it.
package modaggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

const modDetailsCacheTTL = 10 * time.Minute

// Aggregator is a ports.ModPlatform-of-ModPlatforms: it queries every
// configured platform and presents a single merged view.
type Aggregator struct {
	platforms []ports.ModPlatform
	byIndex   map[domain.ModSource]ports.ModPlatform
	cache     *ttlcache.Cache[string, domain.ModDetails]
	log       *slog.Logger
}

// New builds an Aggregator over the given platforms. Pass only the
// platforms that are actually usable — e.g. omit CurseForge entirely when
// no API key is configured, rather than passing a client that will always
// fail.
func New(log *slog.Logger, platforms ...ports.ModPlatform) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	byIndex := make(map[domain.ModSource]ports.ModPlatform, len(platforms))
	for _, p := range platforms {
		byIndex[p.Source()] = p
	}
	cache := ttlcache.New[string, domain.ModDetails](ttlcache.WithTTL[string, domain.ModDetails](modDetailsCacheTTL))
	go cache.Start()

	return &Aggregator{platforms: platforms, byIndex: byIndex, cache: cache, log: log}
}

// Close stops the background cache-eviction goroutine.
func (a *Aggregator) Close() {
	a.cache.Stop()
}

// SearchMods queries every configured platform concurrently. A platform
// that errors contributes an empty result rather than failing the whole
// search; the aggregator logs the failure and carries on with whatever
// succeeded.
func (a *Aggregator) SearchMods(ctx context.Context, filters domain.SearchFilters) (domain.SearchResponse, error) {
	responses := make([]domain.SearchResponse, len(a.platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.platforms {
		i, p := i, p
		g.Go(func() error {
			resp, err := p.SearchMods(gctx, filters)
			if err != nil {
				a.log.Warn("mod platform search failed", "source", p.Source(), "error", err)
				responses[i] = domain.SearchResponse{}
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	return mergeResponses(responses), nil
}

// GetMod fetches a single mod's details from its platform of origin,
// caching the result for modDetailsCacheTTL.
func (a *Aggregator) GetMod(ctx context.Context, source domain.ModSource, projectID string) (domain.ModDetails, error) {
	key := string(source) + ":" + projectID
	if item := a.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	platform, ok := a.byIndex[source]
	if !ok {
		return domain.ModDetails{}, apperr.New(apperr.KindNotFound, "no platform configured for source %q", source)
	}

	details, err := platform.GetMod(ctx, projectID)
	if err != nil {
		return domain.ModDetails{}, err
	}
	a.cache.Set(key, details, ttlcache.DefaultTTL)
	return details, nil
}

// GetVersions fetches every version of a mod compatible with the given
// game version and loader from its platform of origin.
func (a *Aggregator) GetVersions(ctx context.Context, source domain.ModSource, projectID, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	platform, ok := a.byIndex[source]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "no platform configured for source %q", source)
	}
	return platform.GetVersions(ctx, projectID, gameVersion, loader)
}

// depRef is one unresolved dependency edge: which project, on which
// platform.
type depRef struct {
	projectID string
	source    domain.ModSource
}

// ResolveDependencies walks the Required dependency graph of the given
// roots, returning the latest compatible version of every mod reachable by
// a chain of required edges (the roots themselves are not included).
// Platform lookup failures for an individual dependency are logged and
// skipped rather than aborting the whole resolution.
func (a *Aggregator) ResolveDependencies(ctx context.Context, roots []domain.ModVersionInfo, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	var worklist []depRef
	for _, root := range roots {
		for _, dep := range root.Dependencies {
			if dep.DependencyType == domain.DependencyRequired {
				worklist = append(worklist, depRef{projectID: dep.ProjectID, source: root.Source})
			}
		}
	}

	visited := make(map[string]struct{})
	var resolved []domain.ModVersionInfo

	for len(worklist) > 0 {
		ref := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		key := string(ref.source) + ":" + ref.projectID
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		versions, err := a.GetVersions(ctx, ref.source, ref.projectID, gameVersion, loader)
		if err != nil {
			a.log.Warn("failed to resolve dependency", "source", ref.source, "project", ref.projectID, "error", err)
			continue
		}
		if len(versions) == 0 {
			continue
		}

		chosen := latestVersion(versions)
		resolved = append(resolved, chosen)

		for _, dep := range chosen.Dependencies {
			if dep.DependencyType == domain.DependencyRequired {
				worklist = append(worklist, depRef{projectID: dep.ProjectID, source: chosen.Source})
			}
		}
	}

	return resolved, nil
}

func latestVersion(versions []domain.ModVersionInfo) domain.ModVersionInfo {
	latest := versions[0]
	for _, v := range versions[1:] {
		if v.DatePublished.After(latest.DatePublished) {
			latest = v
		}
	}
	return latest
}

// mergeResponses sums total hit counts, deduplicates by slug (preferring
// Modrinth's richer metadata on a collision), and resorts by downloads
// descending.
func mergeResponses(responses []domain.SearchResponse) domain.SearchResponse {
	var totalHits int64
	bySlug := make(map[string]domain.ModSearchResult)
	var order []string

	for _, resp := range responses {
		totalHits += resp.TotalHits
		for _, hit := range resp.Hits {
			key := hit.Slug
			if key == "" {
				key = string(hit.Source) + ":" + hit.ID
			}
			existing, ok := bySlug[key]
			if !ok {
				bySlug[key] = hit
				order = append(order, key)
				continue
			}
			if existing.Source != domain.SourceModrinth && hit.Source == domain.SourceModrinth {
				bySlug[key] = hit
			}
		}
	}

	hits := make([]domain.ModSearchResult, 0, len(order))
	for _, key := range order {
		hits = append(hits, bySlug[key])
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Downloads > hits[j].Downloads
	})

	return domain.SearchResponse{Hits: hits, TotalHits: totalHits}
}
