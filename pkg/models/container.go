package models

type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "created"
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusPaused     ContainerStatus = "paused"
	ContainerStatusDead       ContainerStatus = "dead"
	ContainerStatusNotFound   ContainerStatus = "not found"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthStarting  HealthStatus = "starting"
	// HealthAbsent means the container defines no healthcheck; a running
	// container without one counts as healthy.
	HealthAbsent HealthStatus = "absent"
)

// ContainerInfo is a live snapshot from the container runtime, never
// persisted anywhere.
type ContainerInfo struct {
	Name   string
	Image  string
	Status ContainerStatus
	Health HealthStatus
}

func (c ContainerInfo) Running() bool {
	return c.Status == ContainerStatusRunning
}

// Ready reports whether the container is running and its healthcheck, if it
// has one, passes.
func (c ContainerInfo) Ready() bool {
	if !c.Running() {
		return false
	}
	return c.Health == HealthHealthy || c.Health == HealthAbsent
}
