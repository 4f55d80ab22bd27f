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

	"github.com/quic-go/quic-go"
)

// incomingConn is handed from the accept goroutine to the loop goroutine;
// the loop is the only thing allowed to register it in peerConns.
type incomingConn struct {
	peerID string
	conn   *quic.Conn
}

// manifestReceived is handed from a per-connection response reader to the
// loop when an outgoing request completes, so dispatch (and any future
// state the response affects) stays on the loop goroutine.
type manifestReceived struct {
	peerID   string
	response responseFrame
}

// runLoop is the network's single cooperatively-scheduled task. Per-peer
// connections are local to this goroutine and never touched from outside
// it. The connected-peer count is an atomic that the loop and handleConnect
// update and buildResponse reads from inbound-stream goroutines. n.shared
// (the share-code -> manifest
// map) is written only here, from ShareModpackCommand, though it's read
// under its own mutex by inbound-stream handlers answering GetManifest/
// GetStatus on goroutines this loop doesn't own.
func (n *Network) runLoop(ctx context.Context) {
	defer close(n.done)

	peerConns := make(map[string]*quic.Conn)

	for {
		select {
		case <-ctx.Done():
			n.log.Info("p2p loop shutting down", "reason", "context canceled")
			closeAll(peerConns)
			return

		case cmd := <-n.cmdCh:
			switch c := cmd.(type) {
			case ShareModpackCommand:
				n.sharedMu.Lock()
				n.shared[c.Code] = c.Manifest
				n.sharedMu.Unlock()
				n.publish(ShareCodeReadyEvent{Code: c.Code})

			case ConnectToPeerCommand:
				n.handleConnect(ctx, c, peerConns)

			case RequestManifestCommand:
				n.handleRequestManifest(ctx, c.PeerID, peerConns)

			case ShutdownCommand:
				n.log.Info("p2p loop shutting down", "reason", "shutdown command")
				closeAll(peerConns)
				return
			}

		case ic := <-n.acceptedConns:
			peerConns[ic.peerID] = ic.conn
			total := n.connectedPeers.Add(1)
			n.log.Info("peer connected", "peer_id", ic.peerID, "total", total)
			n.publish(PeerConnectedEvent{PeerID: ic.peerID})
			go n.watchConn(ctx, ic.peerID, ic.conn)

		case mr := <-n.manifestEvents:
			n.dispatchResponse(mr)

		case peerID := <-n.disconnected:
			delete(peerConns, peerID)
			total := n.connectedPeers.Add(-1)
			n.log.Info("peer disconnected", "peer_id", peerID, "total", total)
			n.publish(PeerDisconnectedEvent{PeerID: peerID})
		}
	}
}

func (n *Network) handleConnect(ctx context.Context, c ConnectToPeerCommand, peerConns map[string]*quic.Conn) {
	if _, ok := peerConns[c.PeerID]; ok {
		return
	}
	conn, err := dial(ctx, n.identity, c.Addr)
	if err != nil {
		n.log.Warn("failed to connect to peer", "peer_id", c.PeerID, "error", err)
		n.publish(ErrorEvent{Message: err.Error()})
		return
	}
	n.connectedPeers.Add(1)
	peerConns[c.PeerID] = conn
	n.publish(PeerConnectedEvent{PeerID: c.PeerID})
	go n.watchConn(ctx, c.PeerID, conn)
}

func (n *Network) handleRequestManifest(ctx context.Context, peerID string, peerConns map[string]*quic.Conn) {
	conn, ok := peerConns[peerID]
	if !ok {
		n.publish(ErrorEvent{Message: "request manifest: no connection to peer " + peerID})
		return
	}
	go n.sendRequest(ctx, peerID, conn, requestGetManifest)
}

func (n *Network) dispatchResponse(mr manifestReceived) {
	switch mr.response.Kind {
	case responseManifest:
		if mr.response.Manifest != nil {
			n.publish(ManifestReceivedEvent{PeerID: mr.peerID, Manifest: *mr.response.Manifest})
		}
	case responseNoManifest:
		n.log.Info("peer has no manifest to share", "peer_id", mr.peerID)
	case responseStatus:
		n.log.Info("peer status", "peer_id", mr.peerID, "online_peers", mr.response.OnlinePeers, "manifest_version", mr.response.ManifestVersion)
	case responseUpdateAvailable:
		n.log.Info("peer reports update available", "peer_id", mr.peerID, "manifest_version", mr.response.ManifestVersion)
	}
}

// sendRequest opens a stream, writes a request frame, and waits for the
// response, handing the result back to the loop on manifestEvents so
// dispatch of the result happens on the loop goroutine.
func (n *Network) sendRequest(ctx context.Context, peerID string, conn *quic.Conn, kind requestKind) {
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		n.log.Warn("failed to open stream", "peer_id", peerID, "error", err)
		return
	}

	payload, err := encodeRequest(requestFrame{Kind: kind})
	if err != nil {
		stream.Close()
		n.log.Warn("failed to encode request", "peer_id", peerID, "error", err)
		return
	}
	if _, err := stream.Write(payload); err != nil {
		stream.Close()
		n.log.Warn("failed to write request", "peer_id", peerID, "error", err)
		return
	}
	stream.Close()

	raw, err := readAll(stream)
	if err != nil {
		n.log.Warn("failed to read response", "peer_id", peerID, "error", err)
		return
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		n.log.Warn("failed to decode response", "peer_id", peerID, "error", err)
		return
	}

	select {
	case n.manifestEvents <- manifestReceived{peerID: peerID, response: resp}:
	case <-ctx.Done():
	}
}

// watchConn is shared by both the listener side and the dialer side: it
// services inbound streams and, once the connection dies, tells the loop.
func (n *Network) watchConn(ctx context.Context, peerID string, conn *quic.Conn) {
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			select {
			case n.disconnected <- peerID:
			case <-ctx.Done():
			}
			return
		}
		go n.serveStream(peerID, stream)
	}
}

func (n *Network) serveStream(peerID string, stream *quic.Stream) {
	defer stream.Close()

	raw, err := readAll(stream)
	if err != nil {
		n.log.Warn("failed to read request", "peer_id", peerID, "error", err)
		return
	}
	req, err := decodeRequest(raw)
	if err != nil {
		n.log.Warn("failed to decode request", "peer_id", peerID, "error", err)
		return
	}

	resp := n.buildResponse(req.Kind)
	payload, err := encodeResponse(resp)
	if err != nil {
		n.log.Warn("failed to encode response", "peer_id", peerID, "error", err)
		return
	}
	if _, err := stream.Write(payload); err != nil {
		n.log.Warn("failed to send response", "peer_id", peerID, "error", err)
	}
}

// buildResponse answers GetManifest/GetStatus directly from n.shared
// under its own mutex. Spec's "first active share in MVP" rule only
// needs a consistent snapshot, not the full command-channel round trip
// every mutation takes.
func (n *Network) buildResponse(kind requestKind) responseFrame {
	n.sharedMu.Lock()
	defer n.sharedMu.Unlock()

	switch kind {
	case requestGetManifest:
		for _, m := range n.shared {
			m := m
			return responseFrame{Kind: responseManifest, Manifest: &m}
		}
		return responseFrame{Kind: responseNoManifest}
	case requestGetStatus:
		version := 0
		for _, m := range n.shared {
			version = m.ManifestVersion
			break
		}
		return responseFrame{Kind: responseStatus, OnlinePeers: uint32(n.connectedPeers.Load()), ManifestVersion: version}
	default:
		return responseFrame{Kind: responseNoManifest}
	}
}

func closeAll(conns map[string]*quic.Conn) {
	for _, c := range conns {
		c.CloseWithError(0, "shutdown")
	}
}
