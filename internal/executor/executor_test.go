package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCapturesOutput(t *testing.T) {
	local := NewLocal()

	result, err := local.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "out")
	assert.Contains(t, result.Output, "err")
}

func TestLocalReportsExitCode(t *testing.T) {
	local := NewLocal()

	result, err := local.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo broken; exit 3"},
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, err.Error(), "broken")
}

func TestLocalAllowFailureSwallowsError(t *testing.T) {
	local := NewLocal()

	result, err := local.Run(context.Background(), Command{
		Name:         "sh",
		Args:         []string{"-c", "exit 1"},
		AllowFailure: true,
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ExitCode)
}

func TestLocalEnforcesTimeout(t *testing.T) {
	local := NewLocal()

	start := time.Now()
	_, err := local.Run(context.Background(), Command{
		Name:    "sleep",
		Args:    []string{"10"},
		Timeout: 100 * time.Millisecond,
	})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timed out"))
	assert.Less(t, time.Since(start), 5*time.Second)
}
