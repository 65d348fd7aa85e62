package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/engine"
)

// SARIFFormatter renders an analysis state as SARIF 2.1.0.
type SARIFFormatter struct {
	writer  io.Writer
	options *Options
}

// NewSARIFFormatter creates a SARIF formatter writing to stdout.
func NewSARIFFormatter(opts *Options) *SARIFFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &SARIFFormatter{writer: os.Stdout, options: opts}
}

// NewSARIFFormatterWithWriter creates a formatter with a custom writer
// (for testing).
func NewSARIFFormatterWithWriter(w io.Writer, opts *Options) *SARIFFormatter {
	sf := NewSARIFFormatter(opts)
	sf.writer = w
	return sf
}

// Format writes all vulnerabilities as a SARIF run.
func (f *SARIFFormatter) Format(state *engine.AnalysisState, info ScanInfo) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("dataflow-engine",
		"https://github.com/shivasurya/code-pathfinder")

	filter := NewSeverityFilter(f.options.MinSeverity)
	vulns := filter.Vulnerabilities(state.Vulnerabilities)

	f.buildRules(vulns, run)
	for _, vuln := range vulns {
		f.buildResult(vuln, run)
	}

	report.AddRun(run)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// buildRules registers one SARIF rule per vulnerability type present.
func (f *SARIFFormatter) buildRules(vulns []*taint.Vulnerability, run *sarif.Run) {
	seen := make(map[string]bool)
	for _, vuln := range vulns {
		ruleID := string(vuln.Type)
		if seen[ruleID] {
			continue
		}
		seen[ruleID] = true

		description := fmt.Sprintf("Tainted data reaches a %s sink", vuln.Type)
		if vuln.CWE != "" {
			description += " (" + vuln.CWE + ")"
		}

		rule := run.AddRule(ruleID).
			WithDescription(description).
			WithName(ruleID).
			WithHelpURI("https://github.com/shivasurya/code-pathfinder")
		rule.WithDefaultConfiguration(
			sarif.NewReportingConfiguration().WithLevel(severityToLevel(string(vuln.Severity))))
		rule.WithProperties(map[string]interface{}{
			"tags":              []string{"security", "taint"},
			"security-severity": severityToScore(string(vuln.Severity)),
		})
	}
}

func (f *SARIFFormatter) buildResult(vuln *taint.Vulnerability, run *sarif.Run) {
	message := vuln.Description
	result := run.CreateResultForRule(string(vuln.Type)).
		WithMessage(sarif.NewTextMessage(message))

	region := sarif.NewRegion()
	if vuln.Sink.Range != nil && vuln.Sink.Range.Start.Line > 0 {
		region.WithStartLine(vuln.Sink.Range.Start.Line)
		if vuln.Sink.Range.Start.Column > 0 {
			region.WithStartColumn(vuln.Sink.Range.Start.Column)
		}
	} else {
		region.WithStartLine(1)
	}

	location := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(
					sarif.NewArtifactLocation().WithUri(vuln.Sink.Function),
				).
				WithRegion(region),
		)
	result.AddLocation(location)
}

func severityToLevel(severity string) string {
	switch severity {
	case "critical", "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "note"
	}
}

func severityToScore(severity string) string {
	switch severity {
	case "critical":
		return "9.0"
	case "high":
		return "7.0"
	case "medium":
		return "5.0"
	case "low":
		return "3.0"
	default:
		return "5.0"
	}
}
