package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/security"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/engine"
)

// TextFormatter renders an analysis state as human-readable text.
type TextFormatter struct {
	writer  io.Writer
	options *Options
}

// NewTextFormatter creates a text formatter writing to stdout.
func NewTextFormatter(opts *Options) *TextFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &TextFormatter{writer: os.Stdout, options: opts}
}

// NewTextFormatterWithWriter creates a formatter with a custom writer
// (for testing).
func NewTextFormatterWithWriter(w io.Writer, opts *Options) *TextFormatter {
	tf := NewTextFormatter(opts)
	tf.writer = w
	return tf
}

// severityOrder is the output ordering, most severe first.
var severityOrder = []string{"critical", "high", "medium", "low"}

// Format writes the vulnerabilities, security findings and summary.
func (f *TextFormatter) Format(state *engine.AnalysisState, info ScanInfo) error {
	filter := NewSeverityFilter(f.options.MinSeverity)
	vulns := filter.Vulnerabilities(state.Vulnerabilities)
	findings := filter.Findings(state.SecurityFindings)

	fmt.Fprintln(f.writer, "Dataflow Analysis Report")
	fmt.Fprintln(f.writer)

	if len(vulns) == 0 && len(findings) == 0 {
		fmt.Fprintln(f.writer, "No security issues found.")
		f.writeSummary(state, info, vulns)
		return nil
	}

	if len(vulns) > 0 {
		fmt.Fprintln(f.writer, "Taint Vulnerabilities:")
		fmt.Fprintln(f.writer)
		grouped := groupVulnsBySeverity(vulns)
		for _, severity := range severityOrder {
			for _, vuln := range grouped[severity] {
				f.writeVulnerability(vuln)
			}
		}
	}

	if len(findings) > 0 {
		fmt.Fprintln(f.writer, "Structural Findings:")
		fmt.Fprintln(f.writer)
		for _, finding := range findings {
			f.writeFinding(finding)
		}
	}

	f.writeSummary(state, info, vulns)
	return nil
}

func (f *TextFormatter) writeVulnerability(vuln *taint.Vulnerability) {
	fmt.Fprintf(f.writer, "  [%s] %s (%s)\n", strings.ToUpper(string(vuln.Severity)), vuln.Type, vuln.CWE)
	fmt.Fprintf(f.writer, "      %s\n", vuln.Description)
	fmt.Fprintf(f.writer, "      source: %s (%s), sink: %s in %s, block %s\n",
		vuln.Source.Variable, vuln.Source.Function, vuln.SinkCall, vuln.Sink.Function, vuln.Sink.BlockID)
	if len(vuln.Path) > 0 {
		fmt.Fprintf(f.writer, "      path: %s\n", strings.Join(vuln.Path, " -> "))
	}
	if vuln.Sanitized {
		fmt.Fprintf(f.writer, "      sanitized at %d point(s)\n", len(vuln.SanitizationPoints))
	}
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeFinding(finding *security.Finding) {
	cwe := finding.CWE
	if cwe == "" {
		cwe = "-"
	}
	fmt.Fprintf(f.writer, "  [%s] %s (%s) in %s, block %s\n",
		strings.ToUpper(string(finding.Severity)), finding.Kind, cwe, finding.Function, finding.BlockID)
	fmt.Fprintf(f.writer, "      %s\n", finding.Description)
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeSummary(state *engine.AnalysisState, info ScanInfo, vulns []*taint.Vulnerability) {
	fmt.Fprintln(f.writer, "Summary:")
	counts := make(map[string]int)
	for _, vuln := range vulns {
		counts[string(vuln.Severity)]++
	}
	for _, severity := range severityOrder {
		if counts[severity] > 0 {
			fmt.Fprintf(f.writer, "  %s: %d\n", severity, counts[severity])
		}
	}
	fmt.Fprintf(f.writer, "  functions analyzed: %d\n", state.FunctionsAnalyzed)
	if info.Duration > 0 {
		fmt.Fprintf(f.writer, "  duration: %s\n", info.Duration.Round(1e6))
	}
	if len(state.Warnings) > 0 {
		fmt.Fprintf(f.writer, "  warnings: %d\n", len(state.Warnings))
	}

	if f.options.ShowStatistics {
		f.writeStatistics(state)
	}
}

func (f *TextFormatter) writeStatistics(state *engine.AnalysisState) {
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "Statistics:")
	for _, name := range state.FunctionOrder {
		analysis := state.Functions[name]
		var parts []string
		if analysis.Liveness != nil {
			parts = append(parts, fmt.Sprintf("liveness %d sweeps", analysis.Liveness.Iterations))
		}
		if analysis.ReachingDefinitions != nil {
			parts = append(parts, fmt.Sprintf("reaching-defs %d sweeps, %d definitions",
				analysis.ReachingDefinitions.Iterations, len(analysis.ReachingDefinitions.Definitions)))
		}
		if analysis.Taint != nil {
			parts = append(parts, fmt.Sprintf("taint %d facts", analysis.Taint.Taint.Size()))
		}
		if len(parts) > 0 {
			fmt.Fprintf(f.writer, "  %s: %s\n", name, strings.Join(parts, "; "))
		}
	}
}

func groupVulnsBySeverity(vulns []*taint.Vulnerability) map[string][]*taint.Vulnerability {
	grouped := make(map[string][]*taint.Vulnerability)
	for _, vuln := range vulns {
		grouped[string(vuln.Severity)] = append(grouped[string(vuln.Severity)], vuln)
	}
	return grouped
}
