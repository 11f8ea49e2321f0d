package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fora-sh/fora/internal/executor"
)

// HealthWaiter polls a container until it is running and its healthcheck
// (if any) passes. The loop is strictly bounded; on timeout it reports
// failure rather than blocking.
type HealthWaiter struct {
	inspector ContainerInspector
	exec      executor.Executor
	stackDir  string
	interval  time.Duration
	out       io.Writer
}

func NewHealthWaiter(inspector ContainerInspector, exec executor.Executor, stackDir string, out io.Writer) *HealthWaiter {
	return &HealthWaiter{
		inspector: inspector,
		exec:      exec,
		stackDir:  stackDir,
		interval:  HealthPollInterval,
		out:       out,
	}
}

// WaitForHealthy blocks until the container is ready or the budget runs
// out. Diagnostics are dumped periodically during the wait to aid failure
// analysis; they never influence the decision.
func (w *HealthWaiter) WaitForHealthy(ctx context.Context, name string, timeout time.Duration) bool {
	attempts := int(timeout/w.interval) + 1
	fmt.Fprintf(w.out, "  --> waiting for %s (up to %s)...\n", name, timeout)

	polls := 0
	err := executor.Retry(attempts, w.interval, func() error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		polls++
		info, err := w.inspector.ContainerInfo(name)
		if err != nil {
			return err
		}
		if info.Ready() {
			return nil
		}

		if polls%DiagnosticsEveryPolls == 0 {
			w.dumpDiagnostics(ctx, name)
		}
		return fmt.Errorf("%s not ready: status=%s health=%s", name, info.Status, info.Health)
	})

	if err != nil {
		fmt.Fprintf(w.out, "  [warn] %s did not become healthy within %s\n", name, timeout)
		w.dumpDiagnostics(ctx, name)
		return false
	}

	fmt.Fprintf(w.out, "  [done] %s is healthy\n", name)
	return true
}

func (w *HealthWaiter) dumpDiagnostics(ctx context.Context, name string) {
	if logs, err := w.inspector.RecentLogs(name, 40); err == nil && logs != "" {
		fmt.Fprintf(w.out, "  [info] recent logs from %s:\n%s\n", name, indent(logs))
	}

	if procs, err := w.inspector.Processes(name); err == nil && procs != "" {
		fmt.Fprintf(w.out, "  [info] processes in %s:\n%s\n", name, indent(procs))
	}

	result, err := w.exec.Run(ctx, executor.Command{
		Name:         "docker",
		Args:         []string{"compose", "-f", w.stackDir + "/" + ComposeFileName, "ps"},
		Dir:          w.stackDir,
		Timeout:      InspectTimeout,
		AllowFailure: true,
	})
	if err == nil && result.Output != "" {
		fmt.Fprintf(w.out, "  [info] stack containers:\n%s\n", indent(result.Output))
	}

	if entries, err := os.ReadDir(w.stackDir); err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		fmt.Fprintf(w.out, "  [info] stack dir: %s\n", strings.Join(names, " "))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    | " + line
	}
	return strings.Join(lines, "\n")
}
