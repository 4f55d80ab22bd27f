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

// Package downloader fetches content-addressed files concurrently, skipping
// anything already correct on disk and retrying transient failures.
package downloader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"

	"minesync/internal/apperr"
	"minesync/internal/core/domain"
	"minesync/internal/httpx"
)

const maxAttempts = 3

// Downloader runs a bounded pool of workers against a batch of
// domain.DownloadTask, verifying each file's size and SHA1 once fetched.
type Downloader struct {
	client *http.Client
	pool   pond.Pool

	mu       sync.Mutex
	progress domain.ProgressSnapshot
}

// New builds a Downloader with up to maxWorkers files in flight at once.
func New(client *http.Client, maxWorkers int) *Downloader {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &Downloader{
		client: client,
		pool:   pond.NewPool(maxWorkers),
	}
}

// Progress returns a point-in-time copy of the current batch's state. Safe
// to call from another goroutine while DownloadAll is running.
func (d *Downloader) Progress() domain.ProgressSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

// DownloadAll fetches every task not already satisfied on disk, running up
// to the pool's worker count concurrently. It returns an error built from
// apperr.KindNetwork if any task ultimately failed, but still attempts every
// task regardless of earlier failures.
func (d *Downloader) DownloadAll(ctx context.Context, tasks []domain.DownloadTask) error {
	pending := make([]domain.DownloadTask, 0, len(tasks))
	var cachedBytes int64
	for _, t := range tasks {
		if isFileCached(t) {
			cachedBytes += t.Size
			continue
		}
		pending = append(pending, t)
	}

	d.mu.Lock()
	d.progress = domain.ProgressSnapshot{
		TotalFiles:      len(tasks),
		CompletedFiles:  len(tasks) - len(pending),
		TotalBytes:      sumSize(tasks),
		DownloadedBytes: cachedBytes,
		State:           domain.DownloadInProgress,
	}
	d.mu.Unlock()

	group := d.pool.NewGroupContext(ctx)
	for _, task := range pending {
		task := task
		group.SubmitErr(func() error {
			return d.downloadOne(ctx, task)
		})
	}

	err := group.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.progress.State = domain.DownloadFailed
		d.progress.FailureMessage = err.Error()
		return apperr.Wrap(apperr.KindNetwork, err, "download batch failed")
	}
	d.progress.State = domain.DownloadCompleted
	return nil
}

func (d *Downloader) downloadOne(ctx context.Context, task domain.DownloadTask) error {
	bo := &linearBackOff{step: time.Second}
	err := backoff.Retry(func() error {
		return d.tryDownload(ctx, task)
	}, backoff.WithMaxRetries(bo, maxAttempts-1))

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.progress.FailedFiles = append(d.progress.FailedFiles, task.Dest)
		return err
	}
	d.progress.CompletedFiles++
	d.progress.DownloadedBytes += task.Size
	return nil
}

func (d *Downloader) tryDownload(ctx context.Context, task domain.DownloadTask) error {
	if err := os.MkdirAll(filepath.Dir(task.Dest), 0o755); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "create directory for %s", task.Dest)
	}

	req, err := httpx.NewRequest(ctx, http.MethodGet, task.URL)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "build request for %s", task.URL)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "fetch %s", task.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindNetwork, "fetch %s: status %d", task.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, err, "read body for %s", task.URL)
	}

	if task.SHA1 != "" {
		sum := sha1.Sum(body)
		if hex.EncodeToString(sum[:]) != task.SHA1 {
			return backoff.Permanent(apperr.New(apperr.KindIntegrityMismatch, "sha1 mismatch for %s", task.Dest))
		}
	}

	if err := os.WriteFile(task.Dest, body, 0o644); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "write %s", task.Dest)
	}
	return nil
}

// isFileCached reports whether dest already holds a file matching the
// task's recorded size and hash, so DownloadAll can skip refetching it.
func isFileCached(task domain.DownloadTask) bool {
	info, err := os.Stat(task.Dest)
	if err != nil {
		return false
	}
	if task.Size > 0 && info.Size() != task.Size {
		return false
	}
	if task.SHA1 == "" {
		return task.Size > 0
	}
	sum, err := computeSHA1(task.Dest)
	if err != nil {
		return false
	}
	return sum == task.SHA1
}

func computeSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sumSize(tasks []domain.DownloadTask) int64 {
	var total int64
	for _, t := range tasks {
		total += t.Size
	}
	return total
}

// linearBackOff waits step, 2*step, 3*step, ... between retries, matching
// the fixed per-attempt delay of the reference downloader.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
