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

package cli

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/services/installpipeline"
)

func newPackCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Install a complete modpack as a new instance",
	}
	cmd.AddCommand(newPackInstallCmd(app))
	return cmd
}

func newPackInstallCmd(app *App) *cobra.Command {
	var versionID string
	var name string

	cmd := &cobra.Command{
		Use:   "install <source> <project-id>",
		Short: "Download a modpack archive and materialize it as a new instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source := domain.ModSource(args[0])
			projectID := args[1]

			versions, err := app.Mods.GetVersions(ctx, source, projectID, "", domain.ModLoader(""))
			if err != nil {
				return err
			}
			version, err := pickPackVersion(versions, versionID)
			if err != nil {
				return err
			}
			file := packPrimaryFile(version.Files)
			if file == nil {
				return apperr.New(apperr.KindNotFound, "version %s has no downloadable files", version.ID)
			}

			progressDone := make(chan struct{})
			go reportInstallProgress(app, progressDone)

			instance, err := app.Pipeline.InstallModpack(ctx, installpipeline.InstallModpackRequest{
				InstanceName: name,
				PackURL:      file.URL,
				PackSHA1:     file.Hashes["sha1"],
				PackSize:     file.Size,
			})
			close(progressDone)
			if err != nil {
				return err
			}

			pterm.Success.Printf("installed %q as instance %s\n", instance.Name, instance.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&versionID, "version", "", "specific version ID to install; defaults to the latest")
	cmd.Flags().StringVar(&name, "name", "", "instance name override; defaults to the pack's declared name")
	return cmd
}

func pickPackVersion(versions []domain.ModVersionInfo, versionID string) (domain.ModVersionInfo, error) {
	if len(versions) == 0 {
		return domain.ModVersionInfo{}, apperr.New(apperr.KindNotFound, "no versions found")
	}
	if versionID == "" {
		return versions[0], nil
	}
	for _, v := range versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return domain.ModVersionInfo{}, apperr.New(apperr.KindNotFound, "version %s not found", versionID)
}

func packPrimaryFile(files []domain.ModVersionFile) *domain.ModVersionFile {
	for i := range files {
		if files[i].Primary {
			return &files[i]
		}
	}
	if len(files) > 0 {
		return &files[0]
	}
	return nil
}

// reportInstallProgress polls the pipeline's progress snapshot until
// progressDone closes, printing each stage transition once.
func reportInstallProgress(app *App, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastStage domain.InstallStage
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p := app.Pipeline.Progress()
			if p.Stage != lastStage {
				pterm.Info.Printf("[%s] %s\n", p.Stage, p.Message)
				lastStage = p.Stage
			}
		}
	}
}
