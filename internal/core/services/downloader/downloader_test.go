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

package downloader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/core/domain"
)

func TestDownloadAllSkipsCachedFiles(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "cached.bin")
	content := []byte("already here")
	require.NoError(t, os.WriteFile(dest, content, 0o644))
	sum := sha1.Sum(content)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be hit for a cached file")
	}))
	defer srv.Close()

	d := New(srv.Client(), 2)
	err := d.DownloadAll(context.Background(), []domain.DownloadTask{
		{URL: srv.URL, Dest: dest, SHA1: hex.EncodeToString(sum[:]), Size: int64(len(content))},
	})
	require.NoError(t, err)

	p := d.Progress()
	assert.Equal(t, domain.DownloadCompleted, p.State)
	assert.Equal(t, 1, p.CompletedFiles)
}

func TestDownloadAllFetchesMissingFileAndVerifiesHash(t *testing.T) {
	content := []byte("fresh bytes")
	sum := sha1.Sum(content)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "nested", "fresh.bin")

	d := New(srv.Client(), 2)
	err := d.DownloadAll(context.Background(), []domain.DownloadTask{
		{URL: srv.URL, Dest: dest, SHA1: hex.EncodeToString(sum[:]), Size: int64(len(content))},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadAllReportsHashMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("wrong content"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "bad.bin")

	d := New(srv.Client(), 1)
	err := d.DownloadAll(context.Background(), []domain.DownloadTask{
		{URL: srv.URL, Dest: dest, SHA1: "0000000000000000000000000000000000000a", Size: 13},
	})
	require.Error(t, err)

	p := d.Progress()
	assert.Equal(t, domain.DownloadFailed, p.State)
	assert.Len(t, p.FailedFiles, 1)
}

func TestIsFileCachedRejectsSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(dest, []byte("12345"), 0o644))

	cached := isFileCached(domain.DownloadTask{Dest: dest, Size: 999})
	assert.False(t, cached)
}
