package output

import (
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/security"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

// SeverityFilter limits output to findings at or above a minimum
// severity. An empty minimum keeps everything.
type SeverityFilter struct {
	minRank int
}

// NewSeverityFilter creates a filter for the given minimum severity.
func NewSeverityFilter(minSeverity string) *SeverityFilter {
	return &SeverityFilter{minRank: registry.SeverityRank(registry.Severity(minSeverity))}
}

// Vulnerabilities returns the vulnerabilities passing the filter.
func (f *SeverityFilter) Vulnerabilities(vulns []*taint.Vulnerability) []*taint.Vulnerability {
	if f.minRank == 0 {
		return vulns
	}
	filtered := make([]*taint.Vulnerability, 0, len(vulns))
	for _, vuln := range vulns {
		if registry.SeverityRank(vuln.Severity) >= f.minRank {
			filtered = append(filtered, vuln)
		}
	}
	return filtered
}

// Findings returns the security findings passing the filter.
func (f *SeverityFilter) Findings(findings []*security.Finding) []*security.Finding {
	if f.minRank == 0 {
		return findings
	}
	filtered := make([]*security.Finding, 0, len(findings))
	for _, finding := range findings {
		if registry.SeverityRank(finding.Severity) >= f.minRank {
			filtered = append(filtered, finding)
		}
	}
	return filtered
}
