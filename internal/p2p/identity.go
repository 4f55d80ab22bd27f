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

// Package p2p implements minesync's peer-to-peer manifest exchange: a
// persistent Ed25519 identity, a share-code scheme derived from it, a
// CBOR request/response protocol carried over QUIC streams, and a single
// cooperatively-scheduled network loop that owns every piece of mutable
// state the protocol touches.
package p2p

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"minesync/internal/apperr"
)

// hexPublicKey hex-encodes an Ed25519 public key presented in a peer's
// TLS certificate, matching the PeerID format LoadOrGenerateIdentity
// derives for the local node so both sides agree on peer identifiers.
func hexPublicKey(pub any) string {
	key, ok := pub.(ed25519.PublicKey)
	if !ok {
		return ""
	}
	return hex.EncodeToString(key)
}

const keypairFileName = "p2p_keypair.bin"

// Identity is this node's persistent Ed25519 keypair and the derived peer
// ID every other node sees it as.
type Identity struct {
	PrivateKey ed25519.PrivateKey
	PeerID     string
}

// LoadOrGenerateIdentity loads the keypair at appDir/p2p_keypair.bin, or
// generates and persists a fresh one on first run. The peer ID is stable
// across restarts because it's derived from the persisted public key.
func LoadOrGenerateIdentity(appDir string) (Identity, error) {
	path := filepath.Join(appDir, keypairFileName)

	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) != ed25519.SeedSize {
			return Identity{}, apperr.New(apperr.KindP2P, "corrupt keypair file %s: want %d bytes, got %d", path, ed25519.SeedSize, len(seed))
		}
		return identityFromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return Identity{}, apperr.Wrap(apperr.KindStorage, err, "read keypair %s", path)
	}

	seed = make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return Identity{}, apperr.Wrap(apperr.KindP2P, err, "generate keypair")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Identity{}, apperr.Wrap(apperr.KindStorage, err, "create dir for %s", path)
	}
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		return Identity{}, apperr.Wrap(apperr.KindStorage, err, "write keypair %s", path)
	}
	return identityFromSeed(seed), nil
}

func identityFromSeed(seed []byte) Identity {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return Identity{PrivateKey: priv, PeerID: hex.EncodeToString(pub)}
}
