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

// Package config resolves process configuration from environment variables,
// with flag values (set by cmd/minesyncd) taking precedence when non-empty.
package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	AppDir            string
	CurseForgeAPIKey  string
	MSClientID        string
	LogLevel          string
	MaxDownloadWorker int
}

// FromEnv builds a Config from the process environment, applying defaults
// for anything unset.
func FromEnv() Config {
	cfg := Config{
		AppDir:            os.Getenv("MINESYNC_APP_DIR"),
		CurseForgeAPIKey:  os.Getenv("MINESYNC_CURSEFORGE_API_KEY"),
		MSClientID:        os.Getenv("MINESYNC_MS_CLIENT_ID"),
		LogLevel:          os.Getenv("MINESYNC_LOG_LEVEL"),
		MaxDownloadWorker: 4,
	}

	if cfg.AppDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.AppDir = filepath.Join(home, ".minesync")
		} else {
			cfg.AppDir = ".minesync"
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg
}

// Override applies non-empty flag values on top of an existing Config.
func (c Config) Override(appDir, apiKey, logLevel string) Config {
	if appDir != "" {
		c.AppDir = appDir
	}
	if apiKey != "" {
		c.CurseForgeAPIKey = apiKey
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	return c
}

func (c Config) CatalogPath() string {
	return filepath.Join(c.AppDir, "catalog.db")
}

func (c Config) CacheDir() string {
	return filepath.Join(c.AppDir, "cache")
}

func (c Config) InstancesDir() string {
	return filepath.Join(c.AppDir, "instances")
}

func (c Config) LibrariesDir() string {
	return filepath.Join(c.AppDir, "libraries")
}

func (c Config) KeypairPath() string {
	return filepath.Join(c.AppDir, "p2p_keypair.bin")
}
