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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMavenCoordinate(t *testing.T) {
	cases := []struct {
		name       string
		coord      string
		wantPath   string
		wantErr    bool
	}{
		{
			name:     "group artifact version",
			coord:    "net.fabricmc:fabric-loader:0.16.14",
			wantPath: "net/fabricmc/fabric-loader/0.16.14/fabric-loader-0.16.14.jar",
		},
		{
			name:     "with classifier",
			coord:    "net.minecraftforge:forge:1.20.1-47.2.0:universal",
			wantPath: "net/minecraftforge/forge/1.20.1-47.2.0/forge-1.20.1-47.2.0-universal.jar",
		},
		{
			name:    "too few parts",
			coord:   "net.fabricmc:fabric-loader",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseMavenCoordinate(tc.coord)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantPath, c.RepositoryPath())
		})
	}
}

func TestRepositoryURL(t *testing.T) {
	c, err := ParseMavenCoordinate("net.fabricmc:fabric-loader:0.16.14")
	require.NoError(t, err)

	assert.Equal(t,
		"https://maven.fabricmc.net/net/fabricmc/fabric-loader/0.16.14/fabric-loader-0.16.14.jar",
		c.RepositoryURL("https://maven.fabricmc.net/"))
}

func TestMcToNeoForgePrefix(t *testing.T) {
	assert.Equal(t, "21.5", mcToNeoForgePrefix("1.21.5"))
	assert.Equal(t, "20.1", mcToNeoForgePrefix("1.20.1"))
}
