package express

// ReleaseInfo describes the latest published release.
type ReleaseInfo struct {
	// Version is the release identifier, e.g. "v2.0.0".
	Version string
	// DownloadURL points at the gzip-compressed tar archive of the release.
	DownloadURL string
}

// Outcome reports how an init or upgrade run ended.
type Outcome int

const (
	// OutcomeUnknown is the zero value returned alongside errors.
	OutcomeUnknown Outcome = iota
	// OutcomeInstalled means a fresh release was installed.
	OutcomeInstalled
	// OutcomeAlreadyInitialized means the install directory already existed.
	OutcomeAlreadyInitialized
	// OutcomeUpgraded means a newer release replaced the installed one.
	OutcomeUpgraded
	// OutcomeAlreadyLatest means the installed release is current.
	OutcomeAlreadyLatest
)

// String renders the message shown to the user once a run is over.
func (o Outcome) String() string {
	switch o {
	case OutcomeInstalled:
		return "Platform9 Express initialization complete"
	case OutcomeAlreadyInitialized:
		return "Platform9 Express already initialized"
	case OutcomeUpgraded:
		return "Platform9 Express upgrade complete"
	case OutcomeAlreadyLatest:
		return "Platform9 Express is already the latest version"
	case OutcomeUnknown:
		return "unknown"
	}

	return "unknown"
}

// Changed reports whether the run modified the install directory.
func (o Outcome) Changed() bool {
	return o == OutcomeInstalled || o == OutcomeUpgraded
}
