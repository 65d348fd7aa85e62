package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/engine"
)

// JSONFormatter renders an analysis state as JSON.
type JSONFormatter struct {
	writer  io.Writer
	options *Options
}

// NewJSONFormatter creates a JSON formatter writing to stdout.
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &JSONFormatter{writer: os.Stdout, options: opts}
}

// NewJSONFormatterWithWriter creates a formatter with a custom writer
// (for testing).
func NewJSONFormatterWithWriter(w io.Writer, opts *Options) *JSONFormatter {
	jf := NewJSONFormatter(opts)
	jf.writer = w
	return jf
}

// JSONOutput is the complete JSON document.
type JSONOutput struct {
	Tool            JSONTool            `json:"tool"`
	Scan            JSONScan            `json:"scan"`
	Vulnerabilities []JSONVulnerability `json:"vulnerabilities"`
	Findings        []JSONFinding       `json:"findings"`
	Summary         JSONSummary         `json:"summary"`
	Warnings        []string            `json:"warnings,omitempty"`
	Errors          []string            `json:"errors,omitempty"`
}

// JSONTool contains tool metadata.
type JSONTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// JSONScan contains scan metadata.
type JSONScan struct {
	Target    string  `json:"target"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration"`
	Files     int     `json:"files"`
	Functions int     `json:"functions"`
}

// JSONVulnerability is one taint flow finding.
type JSONVulnerability struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	CWE         string   `json:"cwe,omitempty"`
	Description string   `json:"description"`
	Source      JSONSite `json:"source"`
	Sink        JSONSite `json:"sink"`
	SinkCall    string   `json:"sink_call"`          //nolint:tagliatelle
	ArgIndex    int      `json:"arg_index"`          //nolint:tagliatelle
	Path        []string `json:"path"`
	Sanitized   bool     `json:"sanitized"`
}

// JSONSite locates one end of a flow.
type JSONSite struct {
	Function  string `json:"function"`
	Block     string `json:"block"`
	Statement string `json:"statement,omitempty"`
	Variable  string `json:"variable,omitempty"`
}

// JSONFinding is one structural security finding.
type JSONFinding struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	CWE         string `json:"cwe,omitempty"`
	Function    string `json:"function"`
	Block       string `json:"block"`
	Variable    string `json:"variable,omitempty"`
	Description string `json:"description"`
}

// JSONSummary tallies the run.
type JSONSummary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"` //nolint:tagliatelle
}

// Format writes the complete document with indentation.
func (f *JSONFormatter) Format(state *engine.AnalysisState, info ScanInfo) error {
	filter := NewSeverityFilter(f.options.MinSeverity)
	vulns := filter.Vulnerabilities(state.Vulnerabilities)
	findings := filter.Findings(state.SecurityFindings)

	doc := JSONOutput{
		Tool: JSONTool{Name: "dataflow-engine", Version: info.ToolVersion},
		Scan: JSONScan{
			Target:    info.Target,
			Timestamp: info.Timestamp.UTC().Format(time.RFC3339),
			Duration:  info.Duration.Seconds(),
			Files:     info.FilesAnalyzed,
			Functions: state.FunctionsAnalyzed,
		},
		Vulnerabilities: make([]JSONVulnerability, 0, len(vulns)),
		Findings:        make([]JSONFinding, 0, len(findings)),
		Summary: JSONSummary{
			Total:      len(vulns) + len(findings),
			BySeverity: make(map[string]int),
		},
		Warnings: state.Warnings,
		Errors:   state.Errors,
	}

	for _, vuln := range vulns {
		doc.Summary.BySeverity[string(vuln.Severity)]++
		doc.Vulnerabilities = append(doc.Vulnerabilities, toJSONVulnerability(vuln))
	}
	for _, finding := range findings {
		doc.Summary.BySeverity[string(finding.Severity)]++
		doc.Findings = append(doc.Findings, JSONFinding{
			ID:          finding.ID,
			Kind:        string(finding.Kind),
			Severity:    string(finding.Severity),
			CWE:         finding.CWE,
			Function:    finding.Function,
			Block:       finding.BlockID,
			Variable:    finding.Variable,
			Description: finding.Description,
		})
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func toJSONVulnerability(vuln *taint.Vulnerability) JSONVulnerability {
	return JSONVulnerability{
		ID:          vuln.ID,
		Type:        string(vuln.Type),
		Severity:    string(vuln.Severity),
		CWE:         vuln.CWE,
		Description: vuln.Description,
		Source: JSONSite{
			Function:  vuln.Source.Function,
			Block:     vuln.Source.BlockID,
			Statement: vuln.Source.StatementID,
			Variable:  vuln.Source.Variable,
		},
		Sink: JSONSite{
			Function:  vuln.Sink.Function,
			Block:     vuln.Sink.BlockID,
			Statement: vuln.Sink.StatementID,
			Variable:  vuln.Sink.Variable,
		},
		SinkCall:  vuln.SinkCall,
		ArgIndex:  vuln.ArgIndex,
		Path:      vuln.Path,
		Sanitized: vuln.Sanitized,
	}
}
