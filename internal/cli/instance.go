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
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"minesync/internal/core/domain"
)

func newInstanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage modpack instances",
	}
	cmd.AddCommand(newInstanceCreateCmd(app))
	cmd.AddCommand(newInstanceListCmd(app))
	cmd.AddCommand(newInstanceDeleteCmd(app))
	return cmd
}

func newInstanceCreateCmd(app *App) *cobra.Command {
	var loader string
	var loaderVersion string

	cmd := &cobra.Command{
		Use:   "create <name> <minecraft-version>",
		Short: "Create a new empty instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, mcVersion := args[0], args[1]
			instance := domain.Instance{
				ID:               uuid.NewString(),
				Name:             name,
				MinecraftVersion: mcVersion,
				Loader:           domain.ModLoader(loader),
				LoaderVersion:    loaderVersion,
				InstancePath:     filepath.Join(app.InstanceBaseDir, "instances", name),
				CreatedAt:        time.Now(),
				UpdatedAt:        time.Now(),
			}
			if err := app.Store.CreateInstance(cmd.Context(), instance); err != nil {
				return err
			}
			pterm.Success.Printf("created instance %s (%s)\n", instance.Name, instance.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&loader, "loader", string(domain.LoaderVanilla), "mod loader (vanilla, forge, fabric, neoforge, quilt)")
	cmd.Flags().StringVar(&loaderVersion, "loader-version", "", "loader version, if the loader needs one")
	return cmd
}

func newInstanceListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := app.Store.ListInstances(cmd.Context())
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				pterm.Info.Println("no instances yet")
				return nil
			}
			table := pterm.TableData{{"ID", "Name", "Minecraft", "Loader", "Active"}}
			for _, inst := range instances {
				active := "no"
				if inst.IsActive {
					active = "yes"
				}
				table = append(table, []string{inst.ID, inst.Name, inst.MinecraftVersion, string(inst.Loader), active})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		},
	}
}

func newInstanceDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <instance-id>",
		Short: "Delete an instance's catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.DeleteInstance(cmd.Context(), args[0]); err != nil {
				return err
			}
			pterm.Success.Printf("deleted instance %s\n", args[0])
			return nil
		},
	}
}
