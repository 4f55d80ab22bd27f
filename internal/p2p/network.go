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

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

const (
	commandChannelSize  = 64
	eventChannelSize    = 128
	acceptedConnsBuffer = 16
)

// Network is a running peer and its listener. Callers interact with it
// exclusively through its exported methods (ShareModpack, ConnectToPeer,
// RequestManifest, Subscribe and the rest); every field is
// private to the loop goroutine and the goroutines it spawns.
type Network struct {
	identity Identity
	listener *quic.Listener
	log      *slog.Logger

	cmdCh          chan Command
	acceptedConns  chan incomingConn
	manifestEvents chan manifestReceived
	disconnected   chan string
	done           chan struct{}
	cancel         context.CancelFunc

	subMu sync.Mutex
	subs  []chan Event

	sharedMu sync.Mutex
	shared   map[string]domain.SyncManifest

	connectedPeers atomic.Int32
}

// Start loads or generates this node's identity under appDir, opens a
// QUIC listener on an OS-assigned port, and spawns the network loop.
func Start(ctx context.Context, appDir string, log *slog.Logger) (*Network, error) {
	identity, err := LoadOrGenerateIdentity(appDir)
	if err != nil {
		return nil, err
	}

	listener, err := listen(identity)
	if err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	n := &Network{
		identity:       identity,
		listener:       listener,
		log:            log,
		cmdCh:          make(chan Command, commandChannelSize),
		acceptedConns:  make(chan incomingConn, acceptedConnsBuffer),
		manifestEvents: make(chan manifestReceived, eventChannelSize),
		disconnected:   make(chan string, acceptedConnsBuffer),
		done:           make(chan struct{}),
		cancel:         cancel,
		shared:         make(map[string]domain.SyncManifest),
	}

	go n.acceptLoop(loopCtx)
	go n.runLoop(loopCtx)

	log.Info("p2p network started", "peer_id", identity.PeerID, "listen_addr", listener.Addr().String())
	return n, nil
}

// acceptLoop feeds every inbound connection to the run loop. Accepting
// the connection's identity (its peer ID) happens here, off the loop
// goroutine, since it requires reading the peer's TLS certificate, a
// blocking-ish operation the spec reserves for the worker pool rather
// than the cooperative loop.
func (n *Network) acceptLoop(ctx context.Context) {
	for {
		conn, err := n.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.log.Warn("accept failed", "error", err)
			continue
		}

		peerID := peerIDFromConn(conn)
		select {
		case n.acceptedConns <- incomingConn{peerID: peerID, conn: conn}:
		case <-ctx.Done():
			conn.CloseWithError(0, "shutting down")
			return
		}
	}
}

// Stop signals the loop and accept goroutines to exit and waits for the
// loop to acknowledge shutdown.
func (n *Network) Stop() error {
	n.cancel()
	<-n.done
	return n.listener.Close()
}

// PeerID returns this node's stable, identity-derived peer ID.
func (n *Network) PeerID() string { return n.identity.PeerID }

// ListenAddr returns the loopback-reachable address other local test/demo
// peers can dial, since the listener itself binds every interface.
func (n *Network) ListenAddr() string {
	_, port, err := net.SplitHostPort(n.listener.Addr().String())
	if err != nil {
		return n.listener.Addr().String()
	}
	return net.JoinHostPort("127.0.0.1", port)
}

// Status reports whether the loop is still running and this node's peer
// ID, for display by the rest of the app.
func (n *Network) Status() Status {
	select {
	case <-n.done:
		return Status{IsRunning: false, PeerID: n.identity.PeerID}
	default:
		return Status{IsRunning: true, PeerID: n.identity.PeerID}
	}
}

// Subscribe returns a fresh event channel; every subscriber receives
// every event. There is no Go stdlib broadcast channel, so Subscribe
// fans a single internal publish out to one buffered channel per
// subscriber, dropping a slow subscriber's event rather than blocking
// the loop (once a subscriber's buffer holds eventChannelSize unread
// events, each newly published event is dropped for that subscriber;
// the events already buffered are kept).
func (n *Network) Subscribe() <-chan Event {
	ch := make(chan Event, eventChannelSize)
	n.subMu.Lock()
	n.subs = append(n.subs, ch)
	n.subMu.Unlock()
	return ch
}

func (n *Network) publish(e Event) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// ShareModpack starts sharing manifest under a freshly generated share
// code and returns the code once the command has been accepted.
func (n *Network) ShareModpack(ctx context.Context, manifest domain.SyncManifest) (string, error) {
	code, err := GenerateShareCode(n.identity.PeerID)
	if err != nil {
		return "", err
	}
	if err := n.sendCommand(ctx, ShareModpackCommand{Manifest: manifest, Code: code}); err != nil {
		return "", err
	}
	return code, nil
}

// JoinViaCode validates a share code and, since resolving it to a
// dialable address needs an out-of-band rendezvous/relay step this MVP
// doesn't implement, returns the validated code for the caller to resolve
// before calling ConnectToPeer with the resulting address.
func (n *Network) JoinViaCode(code string) (DecodedShareCode, error) {
	return DecodeShareCode(code)
}

// ConnectToPeer dials a peer directly at addr.
func (n *Network) ConnectToPeer(ctx context.Context, peerID, addr string) error {
	return n.sendCommand(ctx, ConnectToPeerCommand{PeerID: peerID, Addr: addr})
}

// RequestManifest asks a connected peer for its currently shared
// manifest; the result arrives asynchronously as a ManifestReceivedEvent.
func (n *Network) RequestManifest(ctx context.Context, peerID string) error {
	return n.sendCommand(ctx, RequestManifestCommand{PeerID: peerID})
}

func (n *Network) sendCommand(ctx context.Context, cmd Command) error {
	select {
	case n.cmdCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-n.done:
		return apperr.New(apperr.KindP2P, "network loop already stopped")
	}
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindP2P, err, "read stream")
	}
	return data, nil
}

// peerIDFromConn derives a remote peer's ID from the Ed25519 public key
// in the leaf certificate it presented during the handshake.
func peerIDFromConn(conn *quic.Conn) string {
	state := conn.ConnectionState().TLS
	if len(state.PeerCertificates) == 0 {
		return conn.RemoteAddr().String()
	}
	return hexPublicKey(state.PeerCertificates[0].PublicKey)
}
