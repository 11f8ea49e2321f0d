package models

// ExtensionSpec is one installable unit, parsed from a single line of the
// extension list. Exactly one of Registry or URL is set.
type ExtensionSpec struct {
	// Registry is a composer reference like "fof/polls:*".
	Registry string

	// URL points at a zip archive. Token, when present, authenticates the
	// download; Directory names the install target under extensions/.
	URL       string
	Directory string
	Token     string

	// Wrapped marks API-produced zipballs whose content sits one level
	// below a synthetic top-level folder that must be unwrapped.
	Wrapped bool
}

func (s ExtensionSpec) FromRegistry() bool {
	return s.Registry != ""
}

// InstallReport aggregates a batch run; one item failing never stops the
// others, so both counters can be non-zero.
type InstallReport struct {
	Installed int
	Failed    int
	Failures  []string
}
