package ssl

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/pkg/models"
)

const tlsVhost = `server {
    server_name demo.example.com;
    listen 443 ssl;
    location / {
        proxy_pass http://localhost:8001;
    }
}
`

type fakeExecutor struct {
	commands []string
	// results maps a substring of the command line to the scripted result.
	results map[string]models.ProcessResult
}

func (f *fakeExecutor) Run(_ context.Context, cmd executor.Command) (models.ProcessResult, error) {
	line := cmd.String()
	f.commands = append(f.commands, line)
	for needle, result := range f.results {
		if strings.Contains(line, needle) {
			return result, nil
		}
	}
	return models.ProcessResult{Success: true}, nil
}

func newTestManager(t *testing.T, exec executor.Executor, vhostContent string) *CertManager {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.example.com"), []byte(vhostContent), 0o644))
	return NewCertManager(exec, dir, io.Discard)
}

func TestIssueCertificateSucceeds(t *testing.T) {
	exec := &fakeExecutor{}
	m := newTestManager(t, exec, tlsVhost)

	require.NoError(t, m.IssueCertificate(context.Background(), "demo.example.com", "admin@example.com"))
	require.Len(t, exec.commands, 1)
	assert.Contains(t, exec.commands[0], "certbot --nginx -d demo.example.com")
}

func TestIssueCertificateTreatsAlreadyIssuedAsSuccess(t *testing.T) {
	exec := &fakeExecutor{results: map[string]models.ProcessResult{
		"--nginx":      {Success: false, Output: "Certificate already exists", ExitCode: 1},
		"certificates": {Success: true, Output: "Certificate Name: demo.example.com\n  Domains: demo.example.com"},
	}}
	m := newTestManager(t, exec, tlsVhost)

	require.NoError(t, m.IssueCertificate(context.Background(), "demo.example.com", "admin@example.com"))
	require.Len(t, exec.commands, 2)
	assert.Contains(t, exec.commands[1], "certbot certificates -d demo.example.com")
}

func TestIssueCertificatePropagatesRealFailure(t *testing.T) {
	exec := &fakeExecutor{results: map[string]models.ProcessResult{
		"--nginx":      {Success: false, Output: "DNS problem: NXDOMAIN", ExitCode: 1},
		"certificates": {Success: true, Output: "No certificates found."},
	}}
	m := newTestManager(t, exec, tlsVhost)

	err := m.IssueCertificate(context.Background(), "demo.example.com", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NXDOMAIN")
}

func TestIssueCertificateDetectsTruncatedVhost(t *testing.T) {
	exec := &fakeExecutor{}
	// certbot "rewrote" the vhost but lost the closing brace
	m := newTestManager(t, exec, "server {\n    listen 443 ssl;\n")

	err := m.IssueCertificate(context.Background(), "demo.example.com", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "damaged")
}

func TestIssueCertificateDetectsMissingTLSDirective(t *testing.T) {
	exec := &fakeExecutor{}
	m := newTestManager(t, exec, "server {\n    listen 80;\n}\n")

	err := m.IssueCertificate(context.Background(), "demo.example.com", "admin@example.com")
	require.Error(t, err)
}
