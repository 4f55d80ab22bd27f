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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForEvent(t *testing.T, events <-chan Event, timeout time.Duration, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case e := <-events:
			if match(e) {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching event")
			return nil
		}
	}
}

func TestShareModpackEmitsShareCodeReady(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, err := Start(ctx, t.TempDir(), testLogger())
	require.NoError(t, err)
	defer host.Stop()

	events := host.Subscribe()

	manifest := domain.SyncManifest{ID: "manifest-1", Name: "Test Pack", ManifestVersion: 1}
	code, err := host.ShareModpack(ctx, manifest)
	require.NoError(t, err)
	assert.True(t, len(code) > 0)

	e := waitForEvent(t, events, 2*time.Second, func(e Event) bool {
		_, ok := e.(ShareCodeReadyEvent)
		return ok
	})
	assert.Equal(t, code, e.(ShareCodeReadyEvent).Code)
}

func TestConnectAndRequestManifestRoundTrips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, err := Start(ctx, t.TempDir(), testLogger())
	require.NoError(t, err)
	defer host.Stop()

	joiner, err := Start(ctx, t.TempDir(), testLogger())
	require.NoError(t, err)
	defer joiner.Stop()

	manifest := domain.SyncManifest{ID: "manifest-1", Name: "Test Pack", ManifestVersion: 3}
	_, err = host.ShareModpack(ctx, manifest)
	require.NoError(t, err)

	joinerEvents := joiner.Subscribe()

	require.NoError(t, joiner.ConnectToPeer(ctx, host.PeerID(), host.ListenAddr()))

	waitForEvent(t, joinerEvents, 3*time.Second, func(e Event) bool {
		_, ok := e.(PeerConnectedEvent)
		return ok
	})

	require.NoError(t, joiner.RequestManifest(ctx, host.PeerID()))

	e := waitForEvent(t, joinerEvents, 3*time.Second, func(e Event) bool {
		_, ok := e.(ManifestReceivedEvent)
		return ok
	})
	received := e.(ManifestReceivedEvent)
	assert.Equal(t, manifest.ID, received.Manifest.ID)
	assert.Equal(t, manifest.ManifestVersion, received.Manifest.ManifestVersion)
}

func TestRequestManifestWithoutSharedManifestReturnsNoManifest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, err := Start(ctx, t.TempDir(), testLogger())
	require.NoError(t, err)
	defer host.Stop()

	joiner, err := Start(ctx, t.TempDir(), testLogger())
	require.NoError(t, err)
	defer joiner.Stop()

	joinerEvents := joiner.Subscribe()
	require.NoError(t, joiner.ConnectToPeer(ctx, host.PeerID(), host.ListenAddr()))
	waitForEvent(t, joinerEvents, 3*time.Second, func(e Event) bool {
		_, ok := e.(PeerConnectedEvent)
		return ok
	})

	require.NoError(t, joiner.RequestManifest(ctx, host.PeerID()))

	// No manifest was ever shared, so no ManifestReceivedEvent should
	// arrive; give it a short window to make sure none shows up.
	select {
	case e := <-joinerEvents:
		_, ok := e.(ManifestReceivedEvent)
		assert.False(t, ok, "unexpected manifest received event: %#v", e)
	case <-time.After(500 * time.Millisecond):
	}
}
