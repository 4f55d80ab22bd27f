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
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/services/syncdiff"
	"minesync/internal/p2p"
)

// manifestWaitTimeout bounds how long "sync request" waits for the
// requested peer's ManifestReceivedEvent before giving up.
const manifestWaitTimeout = 15 * time.Second

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Share and apply instance manifests over the P2P network",
	}
	cmd.AddCommand(newSyncStatusCmd(app))
	cmd.AddCommand(newSyncShareCmd(app))
	cmd.AddCommand(newSyncConnectCmd(app))
	cmd.AddCommand(newSyncRequestCmd(app))
	cmd.AddCommand(newSyncConfirmCmd(app))
	cmd.AddCommand(newSyncRejectCmd(app))
	return cmd
}

func newSyncStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this node's peer ID and listen address",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := app.Network.Status()
			pterm.Printf("peer id:     %s\n", status.PeerID)
			pterm.Printf("listening:   %s\n", app.Network.ListenAddr())
			pterm.Printf("running:     %v\n", status.IsRunning)
			return nil
		},
	}
}

func newSyncShareCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "share <instance-id>",
		Short: "Start sharing an instance's manifest under a fresh share code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inst, err := app.Store.GetInstance(ctx, args[0])
			if err != nil {
				return err
			}
			mods, err := app.Store.ListInstanceMods(ctx, inst.ID)
			if err != nil {
				return err
			}
			manifest := syncdiff.BuildManifest(inst, mods, 1)

			code, err := app.Network.ShareModpack(ctx, manifest)
			if err != nil {
				return err
			}
			pterm.Success.Printf("sharing %q as %s (%d mods)\n", inst.Name, code, len(mods))
			return nil
		},
	}
}

func newSyncConnectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <peer-id> <address>",
		Short: "Dial a peer directly at a known address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Network.ConnectToPeer(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			pterm.Success.Printf("connected to %s\n", args[0])
			return nil
		},
	}
}

func newSyncRequestCmd(app *App) *cobra.Command {
	var instanceID string

	cmd := &cobra.Command{
		Use:   "request <peer-id>",
		Short: "Request a connected peer's manifest and preview the diff against a local instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			peerID := args[0]

			events := app.Network.Subscribe()
			if err := app.Network.RequestManifest(ctx, peerID); err != nil {
				return err
			}

			remote, err := waitForManifest(ctx, events, peerID)
			if err != nil {
				return err
			}

			var local domain.SyncManifest
			if instanceID != "" {
				inst, err := app.Store.GetInstance(ctx, instanceID)
				if err != nil {
					return err
				}
				mods, err := app.Store.ListInstanceMods(ctx, inst.ID)
				if err != nil {
					return err
				}
				local = syncdiff.BuildManifest(inst, mods, 1)
			}

			diff := syncdiff.ComputeDiff(local, remote)
			summary := syncdiff.Summarize(diff)

			sessionID := uuid.NewString()
			app.Sync.CreatePendingSync(sessionID, instanceID, peerID, diff, remote)

			pterm.Info.Printf("session %s: +%d -%d ~%d mods\n", sessionID, summary.ModsToAdd, summary.ModsToRemove, summary.ModsToUpdate)
			if summary.HasVersionMismatch {
				pterm.Warning.Println("minecraft version or loader differs between local and remote")
			}
			pterm.Printf("run `minesyncd sync confirm %s` to apply, or `sync reject %s` to discard\n", sessionID, sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&instanceID, "instance", "", "local instance to diff against; omitted means diff against an empty manifest")
	return cmd
}

func waitForManifest(ctx context.Context, events <-chan p2p.Event, peerID string) (domain.SyncManifest, error) {
	deadline := time.NewTimer(manifestWaitTimeout)
	defer deadline.Stop()

	for {
		select {
		case ev := <-events:
			if received, ok := ev.(p2p.ManifestReceivedEvent); ok && received.PeerID == peerID {
				return received.Manifest, nil
			}
		case <-deadline.C:
			return domain.SyncManifest{}, apperr.New(apperr.KindNotFound, "timed out waiting for manifest from %s", peerID)
		case <-ctx.Done():
			return domain.SyncManifest{}, ctx.Err()
		}
	}
}

func newSyncConfirmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <session-id>",
		Short: "Apply a previewed sync's diff to its instance's catalog records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Sync.ConfirmSync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pterm.Success.Printf("added %d, removed %d, updated %d mods\n", result.ModsAdded, result.ModsRemoved, result.ModsUpdated)
			for _, e := range result.Errors {
				pterm.Warning.Println(e)
			}
			return nil
		},
	}
}

func newSyncRejectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <session-id>",
		Short: "Discard a previewed sync without touching the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Sync.RejectSync(args[0]); err != nil {
				return err
			}
			pterm.Success.Println("sync rejected")
			return nil
		},
	}
}
