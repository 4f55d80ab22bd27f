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
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"minesync/internal/apperr"
)

const idleConnectionTimeout = 120 * time.Second

// listenTLSConfig builds a self-signed, identity-bound TLS config for the
// QUIC listener side of a connection. The certificate's key is derived
// from the node's persistent Ed25519 identity so a peer can recognize it
// across reconnects; minesync does not run a CA, so verification is
// skipped and trust instead comes from the out-of-band share-code/
// rendezvous exchange.
func listenTLSConfig(identity Identity) (*tls.Config, error) {
	cert, err := selfSignedCert(identity.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{protocolID},
		MinVersion:   tls.VersionTLS13,
		ClientAuth:   tls.RequireAnyClientCert,
	}, nil
}

// dialTLSConfig builds the client-side counterpart, presenting the same
// identity-bound certificate so the listener can derive the dialer's peer
// ID too; minesync peers are not mutually authenticated by a CA, so
// neither side verifies the other's certificate chain.
func dialTLSConfig(identity Identity) (*tls.Config, error) {
	cert, err := selfSignedCert(identity.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true,
		NextProtos:         []string{protocolID},
		MinVersion:         tls.VersionTLS13,
	}, nil
}

func selfSignedCert(priv ed25519.PrivateKey) (tls.Certificate, error) {
	pub := priv.Public().(ed25519.PublicKey)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, apperr.Wrap(apperr.KindP2P, err, "generate certificate serial")
	}

	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "minesync-peer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(10, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtraExtensions: []pkix.Extension{
			{Id: asn1.ObjectIdentifier{2, 5, 29, 17}},
		},
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, pub, priv)
	if err != nil {
		return tls.Certificate{}, apperr.Wrap(apperr.KindP2P, err, "create self-signed certificate")
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}

func quicServerConfig() *quic.Config {
	return &quic.Config{MaxIdleTimeout: idleConnectionTimeout}
}

// listen opens a QUIC listener on an OS-assigned UDP port on all
// interfaces, as spec.md's "listen on an OS-assigned TCP port" requires
// for this transport's UDP equivalent.
func listen(identity Identity) (*quic.Listener, error) {
	tlsConf, err := listenTLSConfig(identity)
	if err != nil {
		return nil, err
	}

	addr := &net.UDPAddr{IP: net.IPv4zero, Port: 0}
	udpConn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindP2P, err, "bind udp listener")
	}

	ln, err := quic.Listen(udpConn, tlsConf, quicServerConfig())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindP2P, err, "start quic listener")
	}
	return ln, nil
}

// dial opens a QUIC connection to a peer's known address, presenting
// identity's certificate so the remote side can derive our peer ID.
func dial(ctx context.Context, identity Identity, addr string) (*quic.Conn, error) {
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindP2P, err, "bind udp socket for dial")
	}

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		udpConn.Close()
		return nil, apperr.Wrap(apperr.KindP2P, err, "resolve peer address %s", addr)
	}

	tlsConf, err := dialTLSConfig(identity)
	if err != nil {
		udpConn.Close()
		return nil, err
	}

	conn, err := quic.Dial(ctx, udpConn, raddr, tlsConf, &quic.Config{MaxIdleTimeout: idleConnectionTimeout})
	if err != nil {
		udpConn.Close()
		return nil, apperr.Wrap(apperr.KindP2P, err, "dial peer %s", addr)
	}
	return conn, nil
}
