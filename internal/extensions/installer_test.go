package extensions

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/pkg/models"
)

type fakeCompose struct {
	execs   []string
	failIDs map[string]bool
}

func (f *fakeCompose) ContainerExec(_ context.Context, name string, _ bool, argv ...string) (models.ProcessResult, error) {
	line := name + " " + strings.Join(argv, " ")
	f.execs = append(f.execs, line)
	for id := range f.failIDs {
		if strings.Contains(line, id) {
			return models.ProcessResult{Success: false, Output: "scripted failure", ExitCode: 1}, nil
		}
	}
	return models.ProcessResult{Success: true}, nil
}

func (f *fakeCompose) count(needle string) int {
	n := 0
	for _, line := range f.execs {
		if strings.Contains(line, needle) {
			n++
		}
	}
	return n
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestInstaller(t *testing.T, compose *fakeCompose) *Installer {
	t.Helper()
	i := NewInstaller(executor.NewLocal(), compose, filepath.Join(t.TempDir(), "extensions"), "testrun", io.Discard)
	i.tmpRoot = t.TempDir()
	i.downloader.retryGap = time.Millisecond
	return i
}

func TestInstallAllIsolatesPerItemFailure(t *testing.T) {
	archive := zipBytes(t, map[string]string{"composer.json": "{}"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	compose := &fakeCompose{}
	i := newTestInstaller(t, compose)

	report := i.InstallAll(context.Background(), []string{
		server.URL + "/one.zip",
		"definitely not a valid spec",
		server.URL + "/three.zip",
	})

	assert.Equal(t, 2, report.Installed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "not a valid spec")

	assert.DirExists(t, filepath.Join(i.extensionsDir, "one"))
	assert.DirExists(t, filepath.Join(i.extensionsDir, "three"))
}

func TestInstallFromRegistryRunsComposer(t *testing.T) {
	compose := &fakeCompose{}
	i := newTestInstaller(t, compose)

	report := i.InstallAll(context.Background(), []string{"fof/polls:*"})

	assert.Equal(t, 1, report.Installed)
	assert.Equal(t, 1, compose.count("composer require fof/polls:*"))
	assert.Equal(t, 1, compose.count("extension:enable fof-polls"))
	// cache cleared before and after registration
	assert.Equal(t, 2, compose.count("cache:clear"))
}

func TestInstallArchiveUnwrapsZipball(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"acme-theme-9f8e7d/composer.json": `{"name":"acme/theme"}`,
		"acme-theme-9f8e7d/src/index.php": "<?php",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	compose := &fakeCompose{}
	i := newTestInstaller(t, compose)

	spec := models.ExtensionSpec{URL: server.URL + "/zipball", Directory: "theme", Wrapped: true}
	require.NoError(t, i.installOne(context.Background(), spec))

	// wrapper folder is unwrapped, not installed itself
	assert.FileExists(t, filepath.Join(i.extensionsDir, "theme", "composer.json"))
	assert.NoDirExists(t, filepath.Join(i.extensionsDir, "theme", "acme-theme-9f8e7d"))
}

func TestInstallArchiveUpgradesInPlace(t *testing.T) {
	archive := zipBytes(t, map[string]string{"composer.json": `{"version":"2.0"}`})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	compose := &fakeCompose{}
	i := newTestInstaller(t, compose)

	target := filepath.Join(i.extensionsDir, "theme")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "stale.php"), []byte("old"), 0o644))

	spec := models.ExtensionSpec{URL: server.URL + "/theme.zip", Directory: "theme"}
	require.NoError(t, i.installOne(context.Background(), spec))

	assert.NoFileExists(t, filepath.Join(target, "stale.php"))
	data, err := os.ReadFile(filepath.Join(target, "composer.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2.0")
}

func TestInstallArchiveRejectsNonZipResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>500 internal error</html>"))
	}))
	defer server.Close()

	compose := &fakeCompose{}
	i := newTestInstaller(t, compose)

	spec := models.ExtensionSpec{URL: server.URL + "/fake.zip", Directory: "fake"}
	err := i.installOne(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a zip archive")
	assert.NoDirExists(t, filepath.Join(i.extensionsDir, "fake"))
}

func TestInstallArchiveSendsAuthToken(t *testing.T) {
	archive := zipBytes(t, map[string]string{"composer.json": "{}"})
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(archive)
	}))
	defer server.Close()

	compose := &fakeCompose{}
	i := newTestInstaller(t, compose)

	spec := models.ExtensionSpec{URL: server.URL + "/pkg.zip", Directory: "pkg", Token: "s3cret"}
	require.NoError(t, i.installOne(context.Background(), spec))
	assert.Equal(t, "token s3cret", gotAuth)
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	archive := zipBytes(t, map[string]string{"composer.json": "{}"})
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	d := NewDownloader()
	d.retryGap = time.Millisecond

	dest := filepath.Join(t.TempDir(), "pkg.zip")
	require.NoError(t, d.Download(context.Background(), server.URL, "", dest))
	assert.Equal(t, 3, hits)
	assert.NoError(t, ValidateArchive(dest))
}

func TestRegistrationFallsBackAndNeverAborts(t *testing.T) {
	compose := &fakeCompose{failIDs: map[string]bool{"extension:enable": true}}
	i := newTestInstaller(t, compose)

	report := i.InstallAll(context.Background(), []string{"fof/polls:*"})

	// registration failure is logged, not fatal; fallback was attempted
	assert.Equal(t, 1, report.Installed)
	assert.Equal(t, 1, compose.count("assets:publish"))
}
