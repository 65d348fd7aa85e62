package engine

import (
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/liveness"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/reachingdefs"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/security"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/interproc"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/callgraph"
)

// FunctionAnalysis aggregates every per-function result.
type FunctionAnalysis struct {
	Function            string
	File                string
	ValidationFindings  []string
	Liveness            *liveness.Result
	ReachingDefinitions *reachingdefs.Result
	Taint               *taint.Result
	SecurityFindings    []*security.Finding
}

// AnalysisState is the final product of one engine run. Per-block
// results are additionally indexed by "functionName_blockId" keys.
// All slices and indexes are built in deterministic order; two runs on
// identical input produce identical states.
type AnalysisState struct {
	// Functions maps function name to its analysis results
	Functions map[string]*FunctionAnalysis

	// FunctionOrder holds function names in analysis order
	FunctionOrder []string

	// LivenessByBlock indexes liveness sets by "functionName_blockId"
	LivenessByBlock map[string]*liveness.BlockInfo

	// ReachingByBlock indexes RD sets by "functionName_blockId"
	ReachingByBlock map[string]*reachingdefs.BlockInfo

	// TaintByBlock indexes taint facts by "functionName_blockId",
	// then by variable
	TaintByBlock map[string]map[string][]*taint.Fact

	// CallGraph is the program call graph; Run builds it on every run,
	// whichever analyses are enabled
	CallGraph *callgraph.Graph

	// InterRD, InterTaint and ContextTaint hold the inter-procedural
	// results when enabled
	InterRD      *interproc.RDResult
	InterTaint   *interproc.TaintResult
	ContextTaint *interproc.ContextTaintResult

	// Vulnerabilities aggregates taint vulnerabilities of every
	// function, ordered by function then detection order
	Vulnerabilities []*taint.Vulnerability

	// SecurityFindings aggregates structural findings of every function
	SecurityFindings []*security.Finding

	// Warnings aggregates non-fatal diagnostics of every component
	Warnings []string

	// Errors aggregates file-level failures (undecodable documents)
	Errors []string

	// FunctionsAnalyzed counts functions that went through the solvers
	FunctionsAnalyzed int
}

// BlockKey builds the per-block index key.
func BlockKey(functionName, blockID string) string {
	return functionName + "_" + blockID
}

// newAnalysisState creates an empty state.
func newAnalysisState() *AnalysisState {
	return &AnalysisState{
		Functions:       make(map[string]*FunctionAnalysis),
		LivenessByBlock: make(map[string]*liveness.BlockInfo),
		ReachingByBlock: make(map[string]*reachingdefs.BlockInfo),
		TaintByBlock:    make(map[string]map[string][]*taint.Fact),
	}
}

// VulnerabilityCounts tallies vulnerabilities by severity.
func (s *AnalysisState) VulnerabilityCounts() map[string]int {
	counts := make(map[string]int)
	for _, vuln := range s.Vulnerabilities {
		counts[string(vuln.Severity)]++
	}
	return counts
}
