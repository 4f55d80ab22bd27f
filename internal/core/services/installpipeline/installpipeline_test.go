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

package installpipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesync/internal/adapters/sqlite"
	"minesync/internal/apperr"
	"minesync/internal/core/domain"
)

type fakeModClient struct {
	versions map[string][]domain.ModVersionInfo
}

func (f *fakeModClient) GetVersions(ctx context.Context, source domain.ModSource, projectID, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	return f.versions[projectID], nil
}

func (f *fakeModClient) ResolveDependencies(ctx context.Context, roots []domain.ModVersionInfo, gameVersion string, loader domain.ModLoader) ([]domain.ModVersionInfo, error) {
	return nil, nil
}

type fakeDownloader struct {
	packZip []byte
	failOn  string
}

func (f *fakeDownloader) DownloadAll(ctx context.Context, tasks []domain.DownloadTask) error {
	for _, t := range tasks {
		if f.failOn != "" && t.URL == f.failOn {
			return apperr.New(apperr.KindNetwork, "simulated download failure for %s", t.URL)
		}
		if err := os.MkdirAll(filepath.Dir(t.Dest), 0o755); err != nil {
			return err
		}
		content := []byte("fake-downloaded-bytes")
		if f.packZip != nil && filepath.Base(t.Dest) == "pack.zip" {
			content = f.packZip
		}
		if err := os.WriteFile(t.Dest, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDownloader) Progress() domain.ProgressSnapshot { return domain.ProgressSnapshot{} }

type fakeMCResolver struct{}

func (fakeMCResolver) ResolveClientDownload(ctx context.Context, version, baseDir string) (domain.DownloadTask, error) {
	return domain.DownloadTask{URL: "https://mojang.example/" + version + ".jar", Dest: filepath.Join(baseDir, "versions", version, version+".jar"), Size: 1}, nil
}

type fakeLoaderResolver struct{}

func (fakeLoaderResolver) InstallLoader(ctx context.Context, loader domain.ModLoader, gameVersion, loaderVersion string) (domain.LoaderProfile, error) {
	return domain.LoaderProfile{MainClass: "net.minecraftforge.Launcher"}, nil
}

func (fakeLoaderResolver) LibraryDownloadTasks(profile domain.LoaderProfile, fileExists func(string) bool) []domain.DownloadTask {
	return nil
}

func buildCFModpackZip(t *testing.T) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	manifest, err := w.Create("manifest.json")
	require.NoError(t, err)
	_, err = manifest.Write([]byte(`{
		"name": "Example Pack",
		"minecraft": {"version": "1.20.1", "modLoaders": [{"id": "forge-47.3.0", "primary": true}]},
		"overrides": "overrides",
		"files": [{"projectID": 1, "fileID": 100, "required": true}]
	}`))
	require.NoError(t, err)

	override, err := w.Create("overrides/config/example.cfg")
	require.NoError(t, err)
	_, err = override.Write([]byte("enabled=true"))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestService(t *testing.T, dl Downloader, modClient ModClient) (*Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	baseDir := t.TempDir()
	svc := New(store, modClient, dl, fakeMCResolver{}, fakeLoaderResolver{}, baseDir, nil)
	return svc, store
}

func TestInstallModpackCurseForgeHappyPath(t *testing.T) {
	zipBytes := buildCFModpackZip(t)
	modClient := &fakeModClient{versions: map[string][]domain.ModVersionInfo{
		"1": {{
			ID:            "100",
			ProjectID:     "1",
			Name:          "Example Mod",
			VersionNumber: "1.0.0",
			Source:        domain.SourceCurseForge,
			Files: []domain.ModVersionFile{
				{URL: "https://cdn.example/example.jar", Filename: "example.jar", Size: 42, Primary: true, Hashes: map[string]string{"sha1": "deadbeef"}},
			},
		}},
	}}
	dl := &fakeDownloader{packZip: zipBytes}
	svc, store := newTestService(t, dl, modClient)

	inst, err := svc.InstallModpack(context.Background(), InstallModpackRequest{
		PackURL: "https://cdn.example/pack.zip",
	})
	require.NoError(t, err)

	assert.Equal(t, "Example Pack", inst.Name)
	assert.Equal(t, "1.20.1", inst.MinecraftVersion)
	assert.Equal(t, domain.LoaderForge, inst.Loader)
	assert.Equal(t, "47.3.0", inst.LoaderVersion)

	stored, err := store.GetInstance(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.Name, stored.Name)

	mods, err := store.ListInstanceMods(context.Background(), inst.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "Example Mod", mods[0].Name)
	assert.Equal(t, "example.jar", mods[0].FileName)

	modJar := filepath.Join(inst.InstancePath, "mods", "example.jar")
	assert.FileExists(t, modJar)

	overrideFile := filepath.Join(inst.InstancePath, "config", "example.cfg")
	assert.FileExists(t, overrideFile)

	assert.Equal(t, domain.StageCompleted, svc.Progress().Stage)
}

func TestInstallModpackRollsBackOnPackDownloadFailure(t *testing.T) {
	dl := &fakeDownloader{failOn: "https://cdn.example/pack.zip"}
	svc, store := newTestService(t, dl, &fakeModClient{})

	_, err := svc.InstallModpack(context.Background(), InstallModpackRequest{
		PackURL: "https://cdn.example/pack.zip",
	})
	require.Error(t, err)

	instances, err := store.ListInstances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, instances)

	assert.Equal(t, domain.StageFailed, svc.Progress().Stage)
}

func TestInstallModpackRollsBackOnMissingManifest(t *testing.T) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	require.NoError(t, w.Close())

	dl := &fakeDownloader{packZip: buf.Bytes()}
	svc, store := newTestService(t, dl, &fakeModClient{})

	_, err := svc.InstallModpack(context.Background(), InstallModpackRequest{PackURL: "https://cdn.example/pack.zip"})
	require.Error(t, err)

	instances, err := store.ListInstances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestRemoveModDeletesFileAndDeactivatesRow(t *testing.T) {
	svc, store := newTestService(t, &fakeDownloader{}, &fakeModClient{})
	ctx := context.Background()

	instanceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(instanceDir, "mods"), 0o755))
	modPath := filepath.Join(instanceDir, "mods", "example.jar")
	require.NoError(t, os.WriteFile(modPath, []byte("jar"), 0o644))

	inst := domain.Instance{ID: "inst-1", Name: "Test", InstancePath: instanceDir, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateInstance(ctx, inst))
	require.NoError(t, store.AddModToInstance(ctx, domain.ModRecord{
		ID: "mod-1", InstanceID: inst.ID, Name: "Example Mod", FileName: "example.jar", IsActive: true, InstalledAt: time.Now(),
	}))

	require.NoError(t, svc.RemoveMod(ctx, inst.ID, "Example Mod"))

	assert.NoFileExists(t, modPath)

	mods, err := store.ListInstanceMods(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestRemoveModToleratesAlreadyMissingFile(t *testing.T) {
	svc, store := newTestService(t, &fakeDownloader{}, &fakeModClient{})
	ctx := context.Background()

	instanceDir := t.TempDir()
	inst := domain.Instance{ID: "inst-2", Name: "Test", InstancePath: instanceDir, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateInstance(ctx, inst))
	require.NoError(t, store.AddModToInstance(ctx, domain.ModRecord{
		ID: "mod-2", InstanceID: inst.ID, Name: "Ghost Mod", FileName: "ghost.jar", IsActive: true, InstalledAt: time.Now(),
	}))

	err := svc.RemoveMod(ctx, inst.ID, "Ghost Mod")
	assert.NoError(t, err)
}

func TestBeginInstallBlocksConcurrentInstalls(t *testing.T) {
	svc, _ := newTestService(t, &fakeDownloader{}, &fakeModClient{})

	release, err := svc.beginInstall()
	require.NoError(t, err)
	defer release()

	_, err = svc.beginInstall()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
