package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fora-sh/fora/internal/executor"
)

const dockerSocketPath = "/var/run/docker.sock"

// ToolStatus describes one host dependency: whether it is usable and, when
// it is, the version string its CLI reported.
type ToolStatus struct {
	Name      string
	Available bool
	Version   string
	Detail    string
}

type probe struct {
	name    string
	argv    []string
	trim    func(string) string
	missing string
}

var probes = []probe{
	{
		name:    "docker",
		argv:    []string{"docker", "version", "--format", "{{.Server.Version}}"},
		missing: "install docker and start the daemon",
	},
	{
		name:    "docker compose",
		argv:    []string{"docker", "compose", "version", "--short"},
		missing: "install the docker compose plugin",
	},
	{
		name:    "nginx",
		argv:    []string{"nginx", "-v"},
		trim:    trimNginxVersion,
		missing: "install nginx (required for domain setups)",
	},
	{
		name:    "certbot",
		argv:    []string{"certbot", "--version"},
		trim:    trimCertbotVersion,
		missing: "install certbot (required for TLS certificates)",
	},
}

// ProbeHost runs every dependency check and reports their status. It never
// returns an error; an unusable tool is reported, not fatal, so the caller
// can decide which dependencies its invocation actually needs.
func ProbeHost(ctx context.Context, exec executor.Executor) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(probes)+1)

	for _, p := range probes {
		statuses = append(statuses, runProbe(ctx, exec, p))
	}

	statuses = append(statuses, probeDockerSocket())
	return statuses
}

// RequireStackTools fails when the tools every deployment needs are not
// usable. nginx and certbot are only checked when a domain is configured.
func RequireStackTools(ctx context.Context, exec executor.Executor, withDomain bool) error {
	needed := map[string]bool{
		"docker":         true,
		"docker compose": true,
		"docker socket":  true,
	}
	if withDomain {
		needed["nginx"] = true
		needed["certbot"] = true
	}

	var missing []string
	for _, status := range ProbeHost(ctx, exec) {
		if needed[status.Name] && !status.Available {
			missing = append(missing, status.Name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing host dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

func runProbe(ctx context.Context, exec executor.Executor, p probe) ToolStatus {
	result, err := exec.Run(ctx, executor.Command{
		Name:         p.argv[0],
		Args:         p.argv[1:],
		AllowFailure: true,
	})
	if err != nil || !result.Success {
		return ToolStatus{Name: p.name, Available: false, Detail: p.missing}
	}

	version := strings.TrimSpace(result.Output)
	if p.trim != nil {
		version = p.trim(version)
	}
	return ToolStatus{Name: p.name, Available: true, Version: version}
}

func probeDockerSocket() ToolStatus {
	if _, err := os.Stat(dockerSocketPath); err != nil {
		return ToolStatus{
			Name:      "docker socket",
			Available: false,
			Detail:    fmt.Sprintf("socket not found at %s", dockerSocketPath),
		}
	}
	return ToolStatus{Name: "docker socket", Available: true, Version: dockerSocketPath}
}

// nginx -v prints to stderr in the form "nginx version: nginx/1.24.0".
func trimNginxVersion(raw string) string {
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		return strings.TrimSpace(raw[idx+1:])
	}
	return raw
}

// certbot --version prints "certbot 2.9.0".
func trimCertbotVersion(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, "certbot"))
}
