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

// Command minesyncd wires every core service into one cli.App and runs the
// cobra command tree over it. Construction order mirrors the dependency
// graph in SPEC_FULL.md §2: the shared HTTP client and CatalogStore at the
// bottom, the leaf services (Downloader, ModPlatformAggregator,
// LoaderResolver, MinecraftService) above that, and the two orchestrators
// (InstallPipeline, SyncController) that compose them on top.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"minesync/internal/adapters/curseforge"
	"minesync/internal/adapters/modrinth"
	"minesync/internal/adapters/msauth"
	"minesync/internal/adapters/sqlite"
	"minesync/internal/applog"
	"minesync/internal/cli"
	"minesync/internal/config"
	"minesync/internal/core/ports"
	"minesync/internal/core/services/accountservice"
	"minesync/internal/core/services/downloader"
	"minesync/internal/core/services/installpipeline"
	"minesync/internal/core/services/loaderresolver"
	"minesync/internal/core/services/minecraftservice"
	"minesync/internal/core/services/modaggregator"
	"minesync/internal/core/services/synccontroller"
	"minesync/internal/httpx"
	"minesync/internal/p2p"
)

func main() {
	cfg := parseConfig(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, teardown, err := buildApp(ctx, cfg)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	defer teardown()

	root := cli.NewRootCmd(app)
	// Redeclare the same overrides already folded into cfg so `--help`
	// documents them; values were consumed by parseConfig before cobra
	// ever saw argv, so these are display-only.
	root.PersistentFlags().String("app-dir", cfg.AppDir, "data directory")
	root.PersistentFlags().String("curseforge-api-key", "", "CurseForge API key")
	root.PersistentFlags().String("log-level", cfg.LogLevel, "debug, info, warn, or error")

	if err := root.ExecuteContext(ctx); err != nil {
		// cobra already printed the error (root.go leaves SilenceErrors
		// false); just set the exit code.
		os.Exit(1)
	}
}

// parseConfig layers flag overrides from args on top of config.FromEnv().
// It uses the stdlib flag package directly, rather than cobra, because
// every dependency buildApp wires must exist before the cobra tree itself
// is constructed (cli.NewRootCmd takes a fully-built *cli.App).
func parseConfig(args []string) config.Config {
	fs := flag.NewFlagSet("minesyncd", flag.ContinueOnError)
	fs.SetOutput(nopWriter{})
	appDir := fs.String("app-dir", "", "data directory")
	apiKey := fs.String("curseforge-api-key", "", "CurseForge API key")
	logLevel := fs.String("log-level", "", "debug, info, warn, or error")
	_ = fs.Parse(args)

	return config.FromEnv().Override(*appDir, *apiKey, *logLevel)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// buildApp wires every adapter and service into one cli.App.
func buildApp(ctx context.Context, cfg config.Config) (*cli.App, func(), error) {
	if err := os.MkdirAll(cfg.AppDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create app dir: %w", err)
	}

	log := applog.New(applog.ParseLevel(cfg.LogLevel))

	store, err := sqlite.Open(cfg.CatalogPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog store: %w", err)
	}

	downloadClient := httpx.NewClient(false)
	apiClient := httpx.NewClient(true)

	platforms := []ports.ModPlatform{modrinth.New(apiClient)}
	if cfg.CurseForgeAPIKey != "" {
		platforms = append(platforms, curseforge.New(apiClient, cfg.CurseForgeAPIKey))
	} else {
		log.Info("curseforge disabled: no MINESYNC_CURSEFORGE_API_KEY set")
	}
	mods := modaggregator.New(log, platforms...)

	dl := downloader.New(downloadClient, cfg.MaxDownloadWorker)
	mc := minecraftservice.New(apiClient)
	loaders := loaderresolver.New(apiClient, cfg.LibrariesDir())

	pipeline := installpipeline.New(store, mods, dl, mc, loaders, cfg.AppDir, log)

	auth := msauth.New(apiClient, cfg.MSClientID)
	accounts := accountservice.New(store, auth)

	sync := synccontroller.New(store)

	network, err := p2p.Start(ctx, cfg.AppDir, log)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("start p2p network: %w", err)
	}
	log.Info("p2p ready", "peer_id", network.PeerID(), "listen_addr", network.ListenAddr())

	app := &cli.App{
		Store:           store,
		Mods:            mods,
		Pipeline:        pipeline,
		Sync:            sync,
		Accounts:        accounts,
		Auth:            auth,
		Network:         network,
		Log:             log,
		InstanceBaseDir: cfg.AppDir,
	}

	teardown := func() {
		if err := network.Stop(); err != nil {
			log.Warn("p2p shutdown", "error", err)
		}
		mods.Close()
		if err := store.Close(); err != nil {
			log.Warn("catalog store shutdown", "error", err)
		}
	}

	return app, teardown, nil
}
