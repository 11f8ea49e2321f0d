package executor

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/fora-sh/fora/pkg/models"
)

// Command describes one external invocation. Timeout of zero means the
// caller's context is the only bound. AllowFailure turns a non-zero exit
// into a reported-but-not-returned failure, for steps where the exit code
// is a weak signal of true state.
type Command struct {
	Name         string
	Args         []string
	Dir          string
	Timeout      time.Duration
	AllowFailure bool
}

func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Executor is the single handle through which components touch the host.
// Nothing below cmd/ calls os/exec directly.
type Executor interface {
	Run(ctx context.Context, cmd Command) (models.ProcessResult, error)
}

// Local runs commands on the host fora itself runs on.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Run(ctx context.Context, cmd Command) (models.ProcessResult, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir

	out, err := execCmd.CombinedOutput()
	result := models.ProcessResult{
		Success: err == nil,
		Output:  string(out),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("command timed out after %s: %s", cmd.Timeout, cmd.String())
		} else {
			err = fmt.Errorf("command failed: %s: %w\n%s", cmd.String(), err, result.Output)
		}
		if cmd.AllowFailure {
			return result, nil
		}
		return result, err
	}

	return result, nil
}
