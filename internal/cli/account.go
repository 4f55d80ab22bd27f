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

	"minesync/internal/adapters/msauth"
	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

func newAccountCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the logged-in Minecraft account",
	}
	cmd.AddCommand(newAccountLoginCmd(app))
	cmd.AddCommand(newAccountLogoutCmd(app))
	cmd.AddCommand(newAccountWhoamiCmd(app))
	return cmd
}

// pollInterval backstops the device-code poll cadence when Microsoft
// doesn't return one, matching the original service's own fallback.
const pollInterval = 5 * time.Second

func newAccountLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with a Microsoft account via the device-code flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			info, err := app.Auth.StartDeviceCode(ctx)
			if err != nil {
				return err
			}
			pterm.Info.Println(info.Message)

			interval := pollInterval
			if info.Interval > 0 {
				interval = time.Duration(info.Interval) * time.Second
			}

			spinner, _ := pterm.DefaultSpinner.Start("waiting for you to finish logging in at " + info.VerificationURI)
			deadline := time.Now().Add(time.Duration(info.ExpiresIn) * time.Second)

			for time.Now().Before(deadline) {
				result, err := app.Auth.PollForToken(ctx, info.DeviceCode)
				if err != nil {
					spinner.Fail(err.Error())
					return err
				}
				switch result.Status {
				case msauth.PollSuccess:
					acct := domain.Account{
						UUID:         result.Account.UUID,
						Username:     result.Account.Username,
						AccessToken:  result.Account.AccessToken,
						RefreshToken: result.Account.RefreshToken,
						ExpiresAt:    time.Now().Add(time.Hour),
					}
					if _, err := app.Accounts.Login(ctx, acct); err != nil {
						spinner.Fail(err.Error())
						return err
					}
					spinner.Success("logged in as " + acct.Username)
					return nil
				case msauth.PollExpired:
					spinner.Fail("device code expired; run login again")
					return apperr.New(apperr.KindConflict, "device code expired")
				default:
					time.Sleep(interval)
				}
			}

			spinner.Fail("device code expired; run login again")
			return apperr.New(apperr.KindConflict, "device code expired")
		},
	}
}

func newAccountLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Accounts.Logout(cmd.Context()); err != nil {
				return err
			}
			pterm.Success.Println("logged out")
			return nil
		},
	}
}

func newAccountWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := app.Accounts.CurrentAccount(cmd.Context())
			if err != nil {
				return err
			}
			pterm.Printf("%s (%s)\n", acct.Username, acct.UUID)
			return nil
		},
	}
}
