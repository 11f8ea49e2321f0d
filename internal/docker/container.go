package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

type PullProgress struct {
	Status         string `json:"status"`
	ProgressDetail struct {
		Current int64 `json:"current"`
		Total   int64 `json:"total"`
	} `json:"progressDetail"`
	Progress string `json:"progress"`
	ID       string `json:"id"`
}

func (c *Client) PullImage(imageName string, progressWriter io.Writer) error {
	ctx, cancel := context.WithTimeout(c.ctx, ImagePullTimeout)
	defer cancel()

	reader, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	var lastStatus string

	for scanner.Scan() {
		var progress PullProgress
		if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
			continue
		}

		if progress.Status != lastStatus && progress.ID == "" {
			if progressWriter != nil {
				statusMsg := progress.Status
				if strings.Contains(statusMsg, "Digest:") || strings.Contains(statusMsg, "Status:") {
					continue
				}
				fmt.Fprintf(progressWriter, "  %s\n", statusMsg)
			}
			lastStatus = progress.Status
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull output: %w", err)
	}

	return nil
}

// RecentLogs returns the last tail lines of a container's output, used for
// failure diagnostics during health waits.
func (c *Client) RecentLogs(name string, tail int) (string, error) {
	ctx, cancel := context.WithTimeout(c.ctx, InspectTimeout)
	defer cancel()

	logs, err := c.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get container logs: %w", err)
	}
	defer logs.Close()

	data, err := io.ReadAll(io.LimitReader(logs, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read container logs: %w", err)
	}

	return string(data), nil
}

// Processes returns the container's process list as a plain text table.
func (c *Client) Processes(name string) (string, error) {
	ctx, cancel := context.WithTimeout(c.ctx, InspectTimeout)
	defer cancel()

	top, err := c.cli.ContainerTop(ctx, name, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list container processes: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(top.Titles, "\t"))
	b.WriteString("\n")
	for _, proc := range top.Processes {
		b.WriteString(strings.Join(proc, "\t"))
		b.WriteString("\n")
	}

	return b.String(), nil
}
