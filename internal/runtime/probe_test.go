package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/pkg/models"
)

type fakeExecutor struct {
	outputs map[string]string
	failOn  string
}

func (f *fakeExecutor) Run(_ context.Context, cmd executor.Command) (models.ProcessResult, error) {
	line := cmd.String()
	if f.failOn != "" && strings.Contains(line, f.failOn) {
		return models.ProcessResult{Success: false, Output: "command not found", ExitCode: 127}, nil
	}
	for needle, output := range f.outputs {
		if strings.Contains(line, needle) {
			return models.ProcessResult{Success: true, Output: output}, nil
		}
	}
	return models.ProcessResult{Success: true}, nil
}

func allTools() map[string]string {
	return map[string]string{
		"docker version":         "27.3.1\n",
		"docker compose version": "2.29.7\n",
		"nginx -v":               "nginx version: nginx/1.24.0\n",
		"certbot --version":      "certbot 2.9.0\n",
	}
}

func statusByName(t *testing.T, statuses []ToolStatus, name string) ToolStatus {
	t.Helper()
	for _, s := range statuses {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no status reported for %q", name)
	return ToolStatus{}
}

func TestProbeHostReportsVersions(t *testing.T) {
	exec := &fakeExecutor{outputs: allTools()}
	statuses := ProbeHost(context.Background(), exec)

	require.Len(t, statuses, 5)
	assert.Equal(t, "27.3.1", statusByName(t, statuses, "docker").Version)
	assert.Equal(t, "2.29.7", statusByName(t, statuses, "docker compose").Version)
	assert.Equal(t, "1.24.0", statusByName(t, statuses, "nginx").Version)
	assert.Equal(t, "2.9.0", statusByName(t, statuses, "certbot").Version)
}

func TestProbeHostReportsMissingTool(t *testing.T) {
	exec := &fakeExecutor{outputs: allTools(), failOn: "certbot"}
	statuses := ProbeHost(context.Background(), exec)

	status := statusByName(t, statuses, "certbot")
	assert.False(t, status.Available)
	assert.Contains(t, status.Detail, "certbot")
}

func TestRequireStackToolsSkipsTLSToolsWithoutDomain(t *testing.T) {
	exec := &fakeExecutor{outputs: allTools(), failOn: "certbot"}

	// no domain: certbot is not required
	err := RequireStackTools(context.Background(), exec, false)
	if err != nil {
		// the docker socket check can legitimately fail on the test host
		assert.NotContains(t, err.Error(), "certbot")
	}

	err = RequireStackTools(context.Background(), exec, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certbot")
}

func TestRequireStackToolsFailsWithoutDocker(t *testing.T) {
	exec := &fakeExecutor{outputs: allTools(), failOn: "docker"}

	err := RequireStackTools(context.Background(), exec, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker")
}
