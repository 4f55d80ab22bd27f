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
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"minesync/internal/core/domain"
	"minesync/internal/core/services/installpipeline"
)

func newModCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mod",
		Short: "Search, install, and remove mods on an instance",
	}
	cmd.AddCommand(newModSearchCmd(app))
	cmd.AddCommand(newModInstallCmd(app))
	cmd.AddCommand(newModRemoveCmd(app))
	return cmd
}

func newModSearchCmd(app *App) *cobra.Command {
	var gameVersion string
	var loader string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every enabled mod platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := domain.SearchFilters{
				Query:       args[0],
				GameVersion: gameVersion,
				Loader:      domain.ModLoader(loader),
				Sort:        domain.SortRelevance,
				Limit:       20,
			}
			results, err := app.Mods.SearchMods(cmd.Context(), filters)
			if err != nil {
				return err
			}
			if len(results.Hits) == 0 {
				pterm.Info.Println("no mods matched")
				return nil
			}
			table := pterm.TableData{{"Source", "Project ID", "Name", "Downloads"}}
			for _, hit := range results.Hits {
				table = append(table, []string{string(hit.Source), hit.ID, hit.Name, pterm.Sprintf("%d", hit.Downloads)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		},
	}
	cmd.Flags().StringVar(&gameVersion, "game-version", "", "restrict results to a Minecraft version")
	cmd.Flags().StringVar(&loader, "loader", "", "restrict results to a mod loader")
	return cmd
}

func newModInstallCmd(app *App) *cobra.Command {
	var versionID string

	cmd := &cobra.Command{
		Use:   "install <instance-id> <source> <project-id>",
		Short: "Install a mod onto an instance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := installpipeline.InstallModRequest{
				InstanceID: args[0],
				Source:     domain.ModSource(args[1]),
				ProjectID:  args[2],
				VersionID:  versionID,
			}
			spinner, _ := pterm.DefaultSpinner.Start("resolving and downloading " + req.ProjectID)
			record, err := app.Pipeline.InstallMod(cmd.Context(), req)
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success("installed " + record.Name + " " + record.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&versionID, "version", "", "specific version ID to install; defaults to the latest compatible one")
	return cmd
}

func newModRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <instance-id> <mod-name>",
		Short: "Remove a mod from an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Pipeline.RemoveMod(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			pterm.Success.Printf("removed %s from instance %s\n", args[1], args[0])
			return nil
		},
	}
}
