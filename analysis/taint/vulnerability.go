package taint

import (
	"fmt"
	"hash/fnv"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

// Site locates one end of a taint flow.
type Site struct {
	Function    string
	BlockID     string
	StatementID string
	Variable    string
	Range       *cfg.Range
}

// Vulnerability is one detected taint flow into a sink.
// Vulnerabilities are append-only once emitted.
type Vulnerability struct {
	// ID is a stable unique identifier
	ID string

	// Type is the weakness class
	Type registry.VulnerabilityType

	// Severity comes from the sink record
	Severity registry.Severity

	// Source is the site where taint entered
	Source Site

	// Sink is the dangerous use site. ArgIndex is the sink argument
	// carrying the taint, or -1 when matched via used variables.
	Sink     Site
	SinkCall string
	ArgIndex int

	// Path is the full propagation path, source to sink
	Path []string

	// Sanitized and SanitizationPoints carry partial sanitization info
	Sanitized          bool
	SanitizationPoints []SanitizationPoint

	// CWE is the weakness identifier, if mapped
	CWE string

	// Description is a human-readable finding summary
	Description string
}

// newVulnerability builds a vulnerability from a fact reaching a sink.
func newVulnerability(fact *Fact, sink registry.TaintSink, sinkSite Site, sinkCall string, argIndex int, path []string) *Vulnerability {
	vulnType := registry.VulnerabilityTypeFor(sink.Category)
	cwe := sink.CWE
	if cwe == "" {
		cwe = registry.CWEFor(vulnType)
	}
	return &Vulnerability{
		ID:       vulnerabilityID(vulnType, fact, sinkSite, argIndex),
		Type:     vulnType,
		Severity: sink.Severity,
		Source: Site{
			Function:    fact.SourceFunction,
			BlockID:     fact.OriginBlock,
			StatementID: fact.OriginStatement,
			Variable:    fact.Variable,
			Range:       fact.OriginRange,
		},
		Sink:               sinkSite,
		SinkCall:           sinkCall,
		ArgIndex:           argIndex,
		Path:               path,
		Sanitized:          fact.Sanitized,
		SanitizationPoints: append([]SanitizationPoint{}, fact.SanitizationPoints...),
		CWE:                cwe,
		Description: fmt.Sprintf("%s: tainted value from %s reaches %s (argument %d)",
			vulnType, fact.Source, sinkCall, argIndex),
	}
}

// vulnerabilityID derives a stable identifier from the finding's
// location and shape, so identical inputs produce identical IDs
// across runs.
func vulnerabilityID(vulnType registry.VulnerabilityType, fact *Fact, sinkSite Site, argIndex int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%d",
		vulnType, fact.Variable, fact.Source, sinkSite.Function, sinkSite.BlockID, sinkSite.StatementID, argIndex)
	return fmt.Sprintf("TV-%016x", h.Sum64())
}
