package deploy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/pkg/models"
)

type containerRuntime interface {
	ContainerInfo(name string) (models.ContainerInfo, error)
}

// StateInspector decides whether the stack is installed and whether it is
// running the wanted version. All checks are read-only.
type StateInspector struct {
	runtime  containerRuntime
	stackDir string
	out      io.Writer
}

func NewStateInspector(runtime containerRuntime, stackDir string, out io.Writer) *StateInspector {
	return &StateInspector{
		runtime:  runtime,
		stackDir: stackDir,
		out:      out,
	}
}

// IsInstalled runs four independent checks and requires three to pass.
// A quorum instead of a strict AND keeps one stale or slow signal (say,
// the database container mid-restart) from reporting a working install
// as absent.
func (s *StateInspector) IsInstalled() bool {
	checks := []struct {
		name string
		ok   bool
	}{
		{"stack definition", s.fileExists(docker.ComposeFileName)},
		{"data directories", s.fileExists("assets") && s.fileExists("extensions")},
		{"database container", s.dbRunning()},
		{"environment file", s.fileExists(".env")},
	}

	passed := 0
	for _, check := range checks {
		if check.ok {
			passed++
		} else {
			fmt.Fprintf(s.out, "  [info] install check failed: %s\n", check.name)
		}
	}

	return passed >= 3
}

// NeedsUpdate compares the running web image tag against targetVersion.
// An absent container or unreadable tag counts as needing an update.
func (s *StateInspector) NeedsUpdate(targetVersion string) (bool, error) {
	info, err := s.runtime.ContainerInfo(docker.WebContainer)
	if err != nil {
		return false, err
	}

	current := imageTag(info.Image)
	if current == "" || current != targetVersion {
		return true, nil
	}

	fmt.Fprintf(s.out, "  [info] stack is up to date (%s)\n", targetVersion)
	return false, nil
}

func (s *StateInspector) fileExists(name string) bool {
	_, err := os.Stat(filepath.Join(s.stackDir, name))
	return err == nil
}

func (s *StateInspector) dbRunning() bool {
	info, err := s.runtime.ContainerInfo(docker.DBContainer)
	return err == nil && info.Running()
}

// imageTag extracts the tag from an image reference, tolerating registry
// hosts that themselves contain a colon (registry:5000/img:tag).
func imageTag(ref string) string {
	idx := strings.LastIndex(ref, ":")
	if idx < 0 || strings.Contains(ref[idx:], "/") {
		return ""
	}
	return ref[idx+1:]
}
