package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/security"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/engine"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

func sampleState() *engine.AnalysisState {
	state := &engine.AnalysisState{
		Functions: map[string]*engine.FunctionAnalysis{
			"main": {Function: "main"},
		},
		FunctionOrder:     []string{"main"},
		FunctionsAnalyzed: 1,
		Vulnerabilities: []*taint.Vulnerability{
			{
				ID:          "TV-1",
				Type:        registry.VulnCommandInjection,
				Severity:    registry.SeverityCritical,
				CWE:         "CWE-78",
				SinkCall:    "system",
				ArgIndex:    0,
				Source:      taint.Site{Function: "main", BlockID: "1", Variable: "buf"},
				Sink:        taint.Site{Function: "main", BlockID: "2"},
				Path:        []string{"main:B1", "main:B2"},
				Description: "command_injection: tainted value from scanf reaches system (argument 0)",
			},
			{
				ID:       "TV-2",
				Type:     registry.VulnFormatString,
				Severity: registry.SeverityLow,
				SinkCall: "printf",
				Source:   taint.Site{Function: "main", BlockID: "1", Variable: "fmt"},
				Sink:     taint.Site{Function: "main", BlockID: "2"},
			},
		},
		SecurityFindings: []*security.Finding{
			{
				ID:          "SF-1",
				Kind:        security.FindingDoubleFree,
				Severity:    registry.SeverityHigh,
				CWE:         "CWE-415",
				Function:    "main",
				BlockID:     "2",
				Variable:    "p",
				Description: "double free of p",
			},
		},
	}
	return state
}

func sampleInfo() ScanInfo {
	return ScanInfo{
		Target:            "test.json",
		Timestamp:         time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Duration:          1500 * time.Millisecond,
		FilesAnalyzed:     1,
		FunctionsAnalyzed: 1,
		ToolVersion:       "0.3.0",
	}
}

func TestTextFormatter_Output(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewTextFormatterWithWriter(&buf, NewDefaultOptions())

	assert.NoError(t, formatter.Format(sampleState(), sampleInfo()))

	out := buf.String()
	assert.Contains(t, out, "command_injection")
	assert.Contains(t, out, "CWE-78")
	assert.Contains(t, out, "main:B1 -> main:B2")
	assert.Contains(t, out, "double free of p")
	assert.Contains(t, out, "critical: 1")
	// Critical is printed before low.
	assert.Less(t, strings.Index(out, "command_injection"), strings.Index(out, "format_string"))
}

func TestTextFormatter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	state := &engine.AnalysisState{FunctionsAnalyzed: 2}

	assert.NoError(t, NewTextFormatterWithWriter(&buf, nil).Format(state, sampleInfo()))
	assert.Contains(t, buf.String(), "No security issues found.")
}

func TestTextFormatter_MinSeverityFilter(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{MinSeverity: "high"}

	assert.NoError(t, NewTextFormatterWithWriter(&buf, opts).Format(sampleState(), sampleInfo()))

	out := buf.String()
	assert.Contains(t, out, "command_injection")
	assert.NotContains(t, out, "format_string")
}

func TestJSONFormatter_Output(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, NewJSONFormatterWithWriter(&buf, nil).Format(sampleState(), sampleInfo()))

	var doc JSONOutput
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "dataflow-engine", doc.Tool.Name)
	assert.Equal(t, "test.json", doc.Scan.Target)
	assert.Len(t, doc.Vulnerabilities, 2)
	assert.Len(t, doc.Findings, 1)
	assert.Equal(t, 3, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.BySeverity["critical"])
	assert.Equal(t, "command_injection", doc.Vulnerabilities[0].Type)
	assert.Equal(t, "buf", doc.Vulnerabilities[0].Source.Variable)
}

func TestSARIFFormatter_Output(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, NewSARIFFormatterWithWriter(&buf, nil).Format(sampleState(), sampleInfo()))

	var doc map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc["version"])

	out := buf.String()
	assert.Contains(t, out, "dataflow-engine")
	assert.Contains(t, out, "command_injection")
}

func TestSeverityFilter_Empty(t *testing.T) {
	filter := NewSeverityFilter("")
	vulns := sampleState().Vulnerabilities
	assert.Len(t, filter.Vulnerabilities(vulns), 2)
}

func TestSeverityFilter_Threshold(t *testing.T) {
	filter := NewSeverityFilter("medium")
	vulns := filter.Vulnerabilities(sampleState().Vulnerabilities)
	assert.Len(t, vulns, 1)
	assert.Equal(t, registry.SeverityCritical, vulns[0].Severity)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatSARIF, ParseFormat("sarif"))
	assert.Equal(t, FormatText, ParseFormat("anything"))
}
