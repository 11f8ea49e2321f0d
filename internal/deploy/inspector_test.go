package deploy

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/pkg/models"
)

type fakeRuntime struct {
	infos map[string]models.ContainerInfo
}

func (f *fakeRuntime) ContainerInfo(name string) (models.ContainerInfo, error) {
	if info, ok := f.infos[name]; ok {
		return info, nil
	}
	return models.ContainerInfo{
		Name:   name,
		Status: models.ContainerStatusNotFound,
		Health: models.HealthAbsent,
	}, nil
}

func installedStackDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, docker.ComposeFileName), []byte("services: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_USER=flarum\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extensions"), 0o755))
	return dir
}

func runningDB() *fakeRuntime {
	return &fakeRuntime{infos: map[string]models.ContainerInfo{
		docker.DBContainer: {Name: docker.DBContainer, Status: models.ContainerStatusRunning},
	}}
}

func TestIsInstalledFalseOnFreshHost(t *testing.T) {
	s := NewStateInspector(&fakeRuntime{}, t.TempDir(), io.Discard)
	assert.False(t, s.IsInstalled())
}

func TestIsInstalledTrueOnFullInstall(t *testing.T) {
	s := NewStateInspector(runningDB(), installedStackDir(t), io.Discard)
	assert.True(t, s.IsInstalled())
}

func TestIsInstalledToleratesOneStaleSignal(t *testing.T) {
	// all files present but the database container is down: 3 of 4 passes
	s := NewStateInspector(&fakeRuntime{}, installedStackDir(t), io.Discard)
	assert.True(t, s.IsInstalled())
}

func TestIsInstalledFailsBelowQuorum(t *testing.T) {
	dir := installedStackDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, docker.ComposeFileName)))
	require.NoError(t, os.Remove(filepath.Join(dir, ".env")))

	s := NewStateInspector(&fakeRuntime{}, dir, io.Discard)
	assert.False(t, s.IsInstalled())
}

func TestNeedsUpdateWhenContainerAbsent(t *testing.T) {
	s := NewStateInspector(&fakeRuntime{}, t.TempDir(), io.Discard)

	needs, err := s.NeedsUpdate("1.8.10")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestNeedsUpdateComparesRunningTag(t *testing.T) {
	rt := &fakeRuntime{infos: map[string]models.ContainerInfo{
		docker.WebContainer: {
			Name:   docker.WebContainer,
			Image:  "mondedie/flarum:1.8.9",
			Status: models.ContainerStatusRunning,
		},
	}}
	s := NewStateInspector(rt, t.TempDir(), io.Discard)

	needs, err := s.NeedsUpdate("1.8.10")
	require.NoError(t, err)
	assert.True(t, needs)

	needs, err = s.NeedsUpdate("1.8.9")
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestImageTagHandlesRegistryPorts(t *testing.T) {
	assert.Equal(t, "1.8.10", imageTag("registry.local:5000/flarum:1.8.10"))
	assert.Equal(t, "", imageTag("registry.local:5000/flarum"))
	assert.Equal(t, "", imageTag(""))
}
