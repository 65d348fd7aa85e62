package output

// VerbosityLevel controls how much the logger prints.
type VerbosityLevel int

const (
	// VerbosityDefault prints warnings and errors only.
	VerbosityDefault VerbosityLevel = iota

	// VerbosityVerbose additionally prints progress and statistics.
	VerbosityVerbose

	// VerbosityDebug additionally prints timed debug diagnostics.
	VerbosityDebug
)
