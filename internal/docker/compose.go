package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/pkg/models"
)

const ComposeFileName = "docker-compose.yml"

// ContainerInspector is the read side of the container runtime, satisfied
// by *Client.
type ContainerInspector interface {
	ContainerInfo(name string) (models.ContainerInfo, error)
	RecentLogs(name string, tail int) (string, error)
	Processes(name string) (string, error)
}

// ComposeManager drives the stack definition under dir through the compose
// CLI. Decisions about success defer to observed container state, not to
// compose exit codes, which are unreliable while images are still pulling.
type ComposeManager struct {
	exec      executor.Executor
	inspector ContainerInspector
	dir       string
	out       io.Writer
}

func NewComposeManager(exec executor.Executor, inspector ContainerInspector, dir string, out io.Writer) *ComposeManager {
	return &ComposeManager{
		exec:      exec,
		inspector: inspector,
		dir:       dir,
		out:       out,
	}
}

func (m *ComposeManager) ComposePath() string {
	return filepath.Join(m.dir, ComposeFileName)
}

func (m *ComposeManager) command(allowFailure bool, args ...string) executor.Command {
	full := append([]string{"compose", "-f", m.ComposePath()}, args...)
	return executor.Command{
		Name:         "docker",
		Args:         full,
		Dir:          m.dir,
		Timeout:      ComposeOpTimeout,
		AllowFailure: allowFailure,
	}
}

// Validate runs a syntax check on the stack definition. An invalid
// definition is fatal; nothing may be started from it.
func (m *ComposeManager) Validate(ctx context.Context) error {
	result, err := m.exec.Run(ctx, m.command(false, "config", "-q"))
	if err != nil {
		return fmt.Errorf("stack definition is invalid: %w\n%s", err, result.Output)
	}
	return nil
}

// RecreateContainers is the idempotent bring-up: stop everything (the stack
// may not exist yet, so failures are ignored), remove stopped containers,
// validate the definition, then start detached. A non-zero exit from "up"
// does not necessarily mean failure, so actual container state is
// re-queried and at least one running container counts as success; final
// correctness is the health wait's job.
func (m *ComposeManager) RecreateContainers(ctx context.Context) error {
	fmt.Fprintln(m.out, "  --> stopping stack...")
	if _, err := m.exec.Run(ctx, m.command(true, "stop")); err != nil {
		return err
	}
	if _, err := m.exec.Run(ctx, m.command(true, "rm", "-f")); err != nil {
		return err
	}

	if err := m.Validate(ctx); err != nil {
		return err
	}

	fmt.Fprintln(m.out, "  --> starting stack...")
	up := m.command(true, "up", "-d")
	up.Timeout = ComposeUpTimeout
	result, err := m.exec.Run(ctx, up)
	if err != nil {
		return err
	}

	if !result.Success {
		running := 0
		for _, name := range StackContainers() {
			info, err := m.inspector.ContainerInfo(name)
			if err == nil && info.Running() {
				running++
			}
		}
		if running == 0 {
			return fmt.Errorf("stack failed to start and no container is running\n%s", result.Output)
		}
		fmt.Fprintf(m.out, "  [warn] compose up exited %d but %d container(s) are running, continuing\n",
			result.ExitCode, running)
	}

	fmt.Fprintln(m.out, "  [done] stack started")
	return nil
}

// ContainerExec runs a command inside a named container of the stack.
func (m *ComposeManager) ContainerExec(ctx context.Context, name string, allowFailure bool, argv ...string) (models.ProcessResult, error) {
	args := append([]string{"exec", name}, argv...)
	return m.exec.Run(ctx, executor.Command{
		Name:         "docker",
		Args:         args,
		Timeout:      ContainerExecTimeout,
		AllowFailure: allowFailure,
	})
}

// SetImageTag rewrites the image reference of one service in the stack
// definition, preserving everything else.
func SetImageTag(composePath, service, imageRef string) error {
	data, err := os.ReadFile(composePath)
	if err != nil {
		return fmt.Errorf("failed to read stack definition: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse stack definition: %w", err)
	}

	services, ok := doc["services"].(map[string]any)
	if !ok {
		return fmt.Errorf("stack definition has no services section")
	}
	svc, ok := services[service].(map[string]any)
	if !ok {
		return fmt.Errorf("stack definition has no service %q", service)
	}
	svc["image"] = imageRef

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render stack definition: %w", err)
	}

	if err := os.WriteFile(composePath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write stack definition: %w", err)
	}

	return nil
}
