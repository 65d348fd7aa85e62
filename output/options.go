package output

import "time"

// Format selects the result rendering.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat converts a CLI string to a Format, defaulting to text.
func ParseFormat(value string) Format {
	switch value {
	case "json":
		return FormatJSON
	case "sarif":
		return FormatSARIF
	default:
		return FormatText
	}
}

// Options configures the formatters.
type Options struct {
	// MinSeverity drops findings below this severity; empty keeps all
	MinSeverity string

	// ShowStatistics appends solver statistics to text output
	ShowStatistics bool
}

// NewDefaultOptions returns the default formatter configuration.
func NewDefaultOptions() *Options {
	return &Options{}
}

// ScanInfo carries run metadata into the formatters.
type ScanInfo struct {
	Target            string
	Timestamp         time.Time
	Duration          time.Duration
	FilesAnalyzed     int
	FunctionsAnalyzed int
	ToolVersion       string
}
