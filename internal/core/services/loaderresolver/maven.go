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

// Package loaderresolver installs Fabric, Quilt, Forge and NeoForge into an
// instance directory and produces the LoaderProfile each contributes to the
// vanilla launch configuration.
package loaderresolver

import (
	"fmt"
	"path"
	"strings"
)

// MavenCoordinate is a parsed "group:artifact:version[:classifier]"
// coordinate, shared by every loader that ships libraries through a Maven
// repository.
type MavenCoordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
}

// ParseMavenCoordinate parses a Forge/Fabric/NeoForge library name such as
// "net.minecraftforge:forge:1.20.1-47.2.0" or
// "net.minecraftforge:forge:1.20.1-47.2.0:universal".
func ParseMavenCoordinate(name string) (MavenCoordinate, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 3 {
		return MavenCoordinate{}, fmt.Errorf("invalid maven coordinate %q", name)
	}

	c := MavenCoordinate{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	if len(parts) >= 4 {
		c.Classifier = parts[3]
	}
	return c, nil
}

// RepositoryPath returns the path of this coordinate's artifact relative to
// a Maven repository root, e.g. "net/minecraftforge/forge/1.20.1-47.2.0/forge-1.20.1-47.2.0.jar".
func (c MavenCoordinate) RepositoryPath() string {
	groupPath := strings.ReplaceAll(c.GroupID, ".", "/")
	var filename string
	if c.Classifier != "" {
		filename = fmt.Sprintf("%s-%s-%s.jar", c.ArtifactID, c.Version, c.Classifier)
	} else {
		filename = fmt.Sprintf("%s-%s.jar", c.ArtifactID, c.Version)
	}
	return path.Join(groupPath, c.ArtifactID, c.Version, filename)
}

// RepositoryURL joins a base Maven repository URL with this coordinate's
// RepositoryPath.
func (c MavenCoordinate) RepositoryURL(repoBaseURL string) string {
	return strings.TrimRight(repoBaseURL, "/") + "/" + c.RepositoryPath()
}
