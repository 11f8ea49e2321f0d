package docker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/fora-sh/fora/pkg/models"
)

// Fixed logical names for the stack's containers. Every inspect, health
// and log operation addresses containers through these.
const (
	WebContainer  = "flarum_web"
	DBContainer   = "flarum_db"
	CronContainer = "flarum_cron"
)

func StackContainers() []string {
	return []string{WebContainer, DBContainer, CronContainer}
}

type Client struct {
	cli *client.Client
	ctx context.Context
}

func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create container runtime client: %w", err)
	}

	return &Client{
		cli: cli,
		ctx: context.Background(),
	}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// ContainerInfo returns a live snapshot for a container by name. A missing
// container is not an error; it comes back with status "not found".
func (c *Client) ContainerInfo(name string) (models.ContainerInfo, error) {
	ctx, cancel := context.WithTimeout(c.ctx, InspectTimeout)
	defer cancel()

	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return models.ContainerInfo{
				Name:   name,
				Status: models.ContainerStatusNotFound,
				Health: models.HealthAbsent,
			}, nil
		}
		return models.ContainerInfo{}, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	info := models.ContainerInfo{
		Name:   name,
		Status: models.ContainerStatus(inspect.State.Status),
		Health: models.HealthAbsent,
	}
	if inspect.Config != nil {
		info.Image = inspect.Config.Image
	}
	if inspect.State.Health != nil {
		info.Health = models.HealthStatus(strings.ToLower(inspect.State.Health.Status))
	}

	return info, nil
}

// PublishedPort returns the host port bound to internalPort/tcp on the
// named container, or "" when nothing is published.
func (c *Client) PublishedPort(name string, internalPort int) (string, error) {
	ctx, cancel := context.WithTimeout(c.ctx, InspectTimeout)
	defer cancel()

	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	if inspect.NetworkSettings == nil {
		return "", nil
	}

	port := nat.Port(strconv.Itoa(internalPort) + "/tcp")
	bindings := inspect.NetworkSettings.Ports[port]
	if len(bindings) == 0 {
		return "", nil
	}

	return bindings[0].HostPort, nil
}
