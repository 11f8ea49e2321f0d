package docker

import "time"

const (
	ImagePullTimeout  = 10 * time.Minute
	InspectTimeout    = 10 * time.Second
	ComposeOpTimeout  = 2 * time.Minute
	ComposeUpTimeout  = 10 * time.Minute
	ContainerExecTimeout = 5 * time.Minute

	// HealthPollInterval is the gap between health probes; every fourth
	// probe also dumps diagnostics.
	HealthPollInterval    = 15 * time.Second
	DiagnosticsEveryPolls = 4
)
