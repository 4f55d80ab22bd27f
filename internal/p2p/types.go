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

package p2p

import "minesync/internal/core/domain"

// Command is sent from the rest of the application to the network loop.
// Each concrete type below is one case of the loop's command switch.
type Command interface{ isCommand() }

type ShareModpackCommand struct {
	Manifest domain.SyncManifest
	Code     string
}

// ConnectToPeerCommand dials a peer directly. Addr carries the network
// address to dial; unlike the libp2p original, this transport has no DHT
// or relay to resolve a bare peer ID to an address, so the caller (which
// obtained Addr out-of-band, e.g. a LAN broadcast or manually entered
// address) must supply it.
type ConnectToPeerCommand struct {
	PeerID string
	Addr   string
}

type RequestManifestCommand struct {
	PeerID string
}

type ShutdownCommand struct{}

func (ShareModpackCommand) isCommand()   {}
func (ConnectToPeerCommand) isCommand()  {}
func (RequestManifestCommand) isCommand() {}
func (ShutdownCommand) isCommand()       {}

// Event is broadcast from the network loop to every subscriber.
type Event interface{ isEvent() }

type PeerConnectedEvent struct{ PeerID string }
type PeerDisconnectedEvent struct{ PeerID string }
type ManifestReceivedEvent struct {
	PeerID   string
	Manifest domain.SyncManifest
}
type ShareCodeReadyEvent struct{ Code string }
type NatStatusDetectedEvent struct{ IsPublic bool }
type ErrorEvent struct{ Message string }

func (PeerConnectedEvent) isEvent()      {}
func (PeerDisconnectedEvent) isEvent()   {}
func (ManifestReceivedEvent) isEvent()   {}
func (ShareCodeReadyEvent) isEvent()     {}
func (NatStatusDetectedEvent) isEvent()  {}
func (ErrorEvent) isEvent()              {}

// Status is a lightweight snapshot for display by the rest of the app.
type Status struct {
	IsRunning bool
	PeerID    string
}
