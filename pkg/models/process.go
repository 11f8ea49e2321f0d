package models

// ProcessResult is the uniform contract every external command returns
// through, whether it ran locally or inside a container.
type ProcessResult struct {
	Success  bool
	Output   string
	ExitCode int
}
