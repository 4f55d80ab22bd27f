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

package synccontroller

import (
	"context"
	"sync"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

// Controller holds every in-flight PendingSync in memory, keyed by sync
// session ID, and applies or discards them against the catalog store.
type Controller struct {
	store ports.CatalogStore

	mu      sync.Mutex
	pending map[string]domain.PendingSync
}

func New(store ports.CatalogStore) *Controller {
	return &Controller{store: store, pending: make(map[string]domain.PendingSync)}
}

// CreatePendingSync stores a computed diff awaiting the user's confirmation
// or rejection, replacing any earlier pending preview for the same session.
func (c *Controller) CreatePendingSync(sessionID, instanceID, peerID string, diff domain.ManifestDiff, manifest domain.SyncManifest) domain.PendingSync {
	p := domain.PendingSync{
		SessionID:  sessionID,
		InstanceID: instanceID,
		PeerID:     peerID,
		Diff:       diff,
		Manifest:   manifest,
	}
	c.mu.Lock()
	c.pending[sessionID] = p
	c.mu.Unlock()
	return p
}

// GetPendingSync returns the preview held for sessionID, if any.
func (c *Controller) GetPendingSync(sessionID string) (domain.PendingSync, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[sessionID]
	return p, ok
}

// RejectSync discards a pending preview without touching the catalog store.
func (c *Controller) RejectSync(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[sessionID]; !ok {
		return apperr.New(apperr.KindNotFound, "no pending sync for session %s", sessionID)
	}
	delete(c.pending, sessionID)
	return nil
}

// ConfirmSync applies a pending preview's diff to the catalog store, marks
// the sync session active, and discards the preview regardless of whether
// applying it produced any per-mod errors. It writes no sync-history record.
func (c *Controller) ConfirmSync(ctx context.Context, sessionID string) (domain.ApplyResult, error) {
	c.mu.Lock()
	pending, ok := c.pending[sessionID]
	delete(c.pending, sessionID)
	c.mu.Unlock()

	if !ok {
		return domain.ApplyResult{}, apperr.New(apperr.KindNotFound, "no pending sync for session %s", sessionID)
	}

	result := ApplyDiff(ctx, c.store, pending.InstanceID, pending.Diff)

	if err := c.store.UpdateSyncStatus(ctx, sessionID, domain.SyncStatusActive); err != nil {
		return result, err
	}

	return result, nil
}

// CleanupFinished drops any pending preview whose backing sync session is
// no longer active or mid-sync — e.g. one abandoned after its session was
// reset by another path.
func (c *Controller) CleanupFinished(ctx context.Context) {
	c.mu.Lock()
	sessionIDs := make([]string, 0, len(c.pending))
	for id := range c.pending {
		sessionIDs = append(sessionIDs, id)
	}
	c.mu.Unlock()

	for _, id := range sessionIDs {
		session, err := c.store.GetSyncSession(ctx, id)
		if err != nil || session.Status == domain.SyncStatusInactive {
			c.mu.Lock()
			delete(c.pending, id)
			c.mu.Unlock()
		}
	}
}
