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
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewRootCmd builds the full minesyncd command tree over app.
func NewRootCmd(app *App) *cobra.Command {
	if !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != "" {
		pterm.DisableStyling()
		pterm.RawOutput = true
	}

	root := &cobra.Command{
		Use:           "minesyncd",
		Short:         "minesyncd manages modpack instances and peer-to-peer mod sync",
		Long:          "minesyncd installs and tracks Minecraft modpack instances, and keeps a group of peers in sync over a direct P2P connection.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newInstanceCmd(app))
	root.AddCommand(newModCmd(app))
	root.AddCommand(newPackCmd(app))
	root.AddCommand(newSyncCmd(app))
	root.AddCommand(newAccountCmd(app))

	return root
}
