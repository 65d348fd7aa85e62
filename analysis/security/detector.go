// Package security implements pattern-based structural security checks
// over a function CFG, layered on top of the intra-procedural taint
// results.
package security

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
)

// FindingKind classifies a structural security finding.
type FindingKind string

const (
	FindingTaintedSink       FindingKind = "tainted_sink"
	FindingMissingBoundCheck FindingKind = "missing_bounds_check"
	FindingUseAfterFree      FindingKind = "use_after_free"
	FindingDoubleFree        FindingKind = "double_free"
	FindingFormatString      FindingKind = "format_string_taint"
	FindingUnsafeFunction    FindingKind = "unsafe_function"
	FindingUninitializedUse  FindingKind = "uninitialized_use"
)

// Finding is one structural security detection.
type Finding struct {
	ID          string
	Kind        FindingKind
	Severity    registry.Severity
	CWE         string
	Function    string
	BlockID     string
	StatementID string
	Variable    string
	Call        string
	Range       *cfg.Range
	Description string
}

// Detector runs the structural checks. The checks are intentionally
// approximate: they need no dataflow fixed point beyond what the taint
// solver already computed.
type Detector struct {
	reg *registry.Registry
}

// NewDetector creates a detector backed by the given registry.
func NewDetector(reg *registry.Registry) *Detector {
	return &Detector{reg: reg}
}

// unboundedBufferOps are the copy routines checked for a preceding
// bounds check.
var unboundedBufferOps = map[string]bool{
	"strcpy": true, "strcat": true, "sprintf": true, "gets": true,
}

// printfFamily are the formatted-output routines checked for tainted
// format arguments.
var printfFamily = map[string]bool{
	"printf": true, "fprintf": true, "sprintf": true, "snprintf": true,
	"vprintf": true, "vfprintf": true, "vsprintf": true, "syslog": true,
}

// Detect runs all checks over the function and returns the findings
// grouped by check (call-site checks, free discipline, uninitialized
// use), each group in block order.
func (d *Detector) Detect(fn *cfg.FunctionCFG, taintMap *taint.Map) []*Finding {
	var findings []*Finding
	findings = append(findings, d.checkCallSites(fn, taintMap)...)
	findings = append(findings, d.checkFreeDiscipline(fn)...)
	findings = append(findings, d.checkUninitializedUse(fn)...)
	return findings
}

// checkCallSites covers the call-driven checks: tainted sinks, unsafe
// buffer operations without bounds checks, format-string taint, and
// plain unsafe-function use.
func (d *Detector) checkCallSites(fn *cfg.FunctionCFG, taintMap *taint.Map) []*Finding {
	var findings []*Finding
	dominators := fn.ComputeDominators()

	for _, block := range fn.BlocksInOrder() {
		for _, stmt := range block.Statements {
			for _, call := range extraction.ExtractCalls(stmt.Text) {
				if d.reg.IsUnsafeFunction(call.Name) {
					findings = append(findings, d.newFinding(FindingUnsafeFunction,
						registry.SeverityMedium, "", fn, block, stmt, "", call.Name,
						fmt.Sprintf("call to unsafe function %s", call.Name)))

					if tainted, variable := d.taintedUse(stmt, taintMap); tainted {
						sink, _ := d.reg.Sink(call.Name)
						findings = append(findings, d.newFinding(FindingTaintedSink,
							sink.Severity, sink.CWE, fn, block, stmt, variable, call.Name,
							fmt.Sprintf("tainted variable %s reaches unsafe function %s", variable, call.Name)))
					}
				}

				if unboundedBufferOps[call.Name] && !d.hasBoundsHint(fn, block, dominators) {
					findings = append(findings, d.newFinding(FindingMissingBoundCheck,
						registry.SeverityHigh, "CWE-120", fn, block, stmt, "", call.Name,
						fmt.Sprintf("%s without a preceding bounds check", call.Name)))
				}

				if printfFamily[call.Name] {
					if tainted, variable := d.taintedUse(stmt, taintMap); tainted {
						findings = append(findings, d.newFinding(FindingFormatString,
							registry.SeverityHigh, "CWE-134", fn, block, stmt, variable, call.Name,
							fmt.Sprintf("tainted variable %s used at %s", variable, call.Name)))
					}
				}
			}
		}
	}

	return findings
}

// taintedUse returns the first used variable of the statement that
// carries active taint.
func (d *Detector) taintedUse(stmt *cfg.Statement, taintMap *taint.Map) (bool, string) {
	if taintMap == nil {
		return false, ""
	}
	for _, used := range stmt.Used {
		if taintMap.IsTainted(used) {
			return true, used
		}
	}
	return false, ""
}

// hasBoundsHint looks for a textual bounds hint (strlen, sizeof, or a
// comparison operator) in any predecessor block, or in any block that
// dominates the call site (a dominating check always executes first).
func (d *Detector) hasBoundsHint(fn *cfg.FunctionCFG, block *cfg.BasicBlock, dominators map[string][]string) bool {
	candidates := append([]string{}, block.Predecessors...)
	for _, domID := range dominators[block.ID] {
		if domID != block.ID && !containsID(candidates, domID) {
			candidates = append(candidates, domID)
		}
	}

	for _, candidateID := range candidates {
		candidate, ok := fn.Blocks[candidateID]
		if !ok {
			continue
		}
		for _, stmt := range candidate.Statements {
			text := stmt.Text
			if strings.Contains(text, "strlen") || strings.Contains(text, "sizeof") ||
				strings.ContainsAny(text, "<>") {
				return true
			}
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// checkFreeDiscipline tracks free() calls in source order to detect
// double-free and use-after-free.
func (d *Detector) checkFreeDiscipline(fn *cfg.FunctionCFG) []*Finding {
	var findings []*Finding
	freed := make(map[string]string) // variable → block where freed

	for _, block := range fn.BlocksInOrder() {
		for _, stmt := range block.Statements {
			for _, call := range extraction.ExtractCalls(stmt.Text) {
				if call.Name != "free" || len(call.Arguments) == 0 {
					continue
				}
				vars := extraction.BaseVariablesOf(call.Arguments[0])
				if len(vars) == 0 {
					continue
				}
				variable := vars[0]
				if _, already := freed[variable]; already {
					findings = append(findings, d.newFinding(FindingDoubleFree,
						registry.SeverityHigh, "CWE-415", fn, block, stmt, variable, "free",
						fmt.Sprintf("double free of %s", variable)))
					continue
				}
				freed[variable] = block.ID
			}

			// A use of a freed variable in a different block.
			for _, used := range stmt.Used {
				freedBlock, wasFreed := freed[used]
				if !wasFreed || freedBlock == block.ID {
					continue
				}
				findings = append(findings, d.newFinding(FindingUseAfterFree,
					registry.SeverityCritical, "CWE-416", fn, block, stmt, used, "",
					fmt.Sprintf("use of %s after free in block %s", used, freedBlock)))
			}
		}
	}

	return findings
}

// checkUninitializedUse flags reads of variables that are neither
// parameters nor written by any earlier statement in source order.
func (d *Detector) checkUninitializedUse(fn *cfg.FunctionCFG) []*Finding {
	var findings []*Finding
	written := make(map[string]bool)
	reported := make(map[string]bool)

	for _, block := range fn.BlocksInOrder() {
		for _, stmt := range block.Statements {
			for _, used := range stmt.Used {
				if written[used] || fn.IsParameter(used) || reported[used] {
					continue
				}
				reported[used] = true
				findings = append(findings, d.newFinding(FindingUninitializedUse,
					registry.SeverityMedium, "CWE-457", fn, block, stmt, used, "",
					fmt.Sprintf("variable %s read before any write", used)))
			}
			for _, defined := range stmt.Defined {
				written[defined] = true
			}
		}
	}

	return findings
}

func (d *Detector) newFinding(kind FindingKind, severity registry.Severity, cwe string, fn *cfg.FunctionCFG, block *cfg.BasicBlock, stmt *cfg.Statement, variable, call, description string) *Finding {
	return &Finding{
		ID:          findingID(kind, fn.Name, block.ID, stmt.ID, variable, call),
		Kind:        kind,
		Severity:    severity,
		CWE:         cwe,
		Function:    fn.Name,
		BlockID:     block.ID,
		StatementID: stmt.ID,
		Variable:    variable,
		Call:        call,
		Range:       stmt.Range,
		Description: description,
	}
}

// findingID derives a stable identifier from the finding's location
// and shape, identical across runs on identical input.
func findingID(kind FindingKind, function, blockID, statementID, variable, call string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s", kind, function, blockID, statementID, variable, call)
	return fmt.Sprintf("SF-%016x", h.Sum64())
}
