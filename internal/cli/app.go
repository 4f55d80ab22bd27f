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

// Package cli wires every minesync service into a cobra command tree. It
// holds no business logic of its own: every command parses flags,
// delegates to a service, and renders the result with pterm.
package cli

import (
	"log/slog"

	"minesync/internal/adapters/msauth"
	"minesync/internal/core/ports"
	"minesync/internal/core/services/accountservice"
	"minesync/internal/core/services/installpipeline"
	"minesync/internal/core/services/modaggregator"
	"minesync/internal/core/services/synccontroller"
	"minesync/internal/p2p"
)

// App holds every wired service a command needs. main.go builds exactly one
// of these and hands it to NewRootCmd.
type App struct {
	Store      ports.CatalogStore
	Mods       *modaggregator.Aggregator
	Pipeline   *installpipeline.Service
	Sync       *synccontroller.Controller
	Accounts   *accountservice.Service
	Auth       *msauth.Client
	Network    *p2p.Network
	Log        *slog.Logger
	InstanceBaseDir string
}
