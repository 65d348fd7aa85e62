package taint

import (
	"fmt"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

// Analyzer runs intra-procedural taint analysis over one function.
type Analyzer struct {
	reg   *registry.Registry
	level SensitivityLevel
}

// NewAnalyzer creates an analyzer with the given registry and
// sensitivity level.
func NewAnalyzer(reg *registry.Registry, level SensitivityLevel) *Analyzer {
	return &Analyzer{reg: reg, level: level}
}

// Result holds the taint solution and detected vulnerabilities for one
// function.
type Result struct {
	FunctionName    string
	Taint           *Map
	Vulnerabilities []*Vulnerability
	Warnings        []string
	Iterations      int
	Converged       bool
}

// worklistItem identifies one fact pending propagation.
type worklistItem struct {
	blockID  string
	variable string
	source   string
}

// Seed identifies an externally injected fact that still needs
// intra-procedural propagation, e.g. parameter taint injected by the
// inter-procedural solver.
type Seed struct {
	BlockID  string
	Variable string
	Source   string
}

// PropagateSeeds runs the propagation worklist from externally
// injected facts. The facts must already be present in result.Taint.
func (a *Analyzer) PropagateSeeds(fn *cfg.FunctionCFG, result *Result, seeds []Seed) {
	worklist := make([]worklistItem, 0, len(seeds))
	for _, seed := range seeds {
		worklist = append(worklist, worklistItem{seed.BlockID, seed.Variable, seed.Source})
	}
	a.propagate(fn, result, worklist)
}

// Analyze runs the four phases over the function:
//
//  1. seed taint facts at source call sites (and argv assignments)
//  2. propagate through assignments via a worklist, applying
//     sanitizers
//  3. propagate control-dependent (implicit) flow when the
//     sensitivity level enables it
//  4. check sinks and emit vulnerabilities
//
// Malformed CFGs are analyzed best-effort: structural findings become
// warnings and the solver never fails.
func (a *Analyzer) Analyze(fn *cfg.FunctionCFG) *Result {
	result := &Result{
		FunctionName: fn.Name,
		Taint:        NewMap(fn.Name),
		Converged:    true,
	}

	if findings := fn.Validate(); len(findings) > 0 {
		result.Warnings = append(result.Warnings, findings...)
	}

	worklist := a.seedSources(fn, result)
	a.propagate(fn, result, worklist)
	if a.level.AtLeast(SensitivityConservative) {
		a.propagateControlDependent(fn, result)
	}
	a.CheckSinks(fn, result)

	return result
}

// qualify builds the function-qualified label of a block for
// propagation paths.
func qualify(fn *cfg.FunctionCFG, block *cfg.BasicBlock) string {
	return fn.Name + ":" + block.Label
}

// normalizeVar folds struct field references onto their base variable
// below precise sensitivity; at precise and above each field is a
// distinct variable.
func (a *Analyzer) normalizeVar(name string) string {
	if a.level.AtLeast(SensitivityPrecise) {
		return name
	}
	if idx := strings.Index(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// seedSources implements phase 1: every call to a registered source
// taints the variable the source writes, and argv-pattern assignments
// taint their target.
func (a *Analyzer) seedSources(fn *cfg.FunctionCFG, result *Result) []worklistItem {
	var worklist []worklistItem

	for _, block := range fn.BlocksInOrder() {
		for _, stmt := range block.Statements {
			for _, call := range extraction.ExtractCalls(stmt.Text) {
				source, ok := a.reg.Source(call.Name)
				if !ok {
					continue
				}
				target := sourceTarget(stmt, call, source)
				if target == "" {
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"function %s: source call %s at %s has no extractable target", fn.Name, call.Name, stmt.ID))
					continue
				}
				target = a.normalizeVar(target)
				fact := &Fact{
					Variable:        target,
					Source:          call.Name,
					Tainted:         true,
					Path:            []string{qualify(fn, block)},
					Category:        source.Category,
					TaintType:       source.TaintType,
					SourceFunction:  fn.Name,
					OriginBlock:     block.ID,
					OriginStatement: stmt.ID,
					OriginRange:     stmt.Range,
					Labels:          []Label{LabelForCategory(source.Category)},
				}
				if a.level == SensitivityMaximum {
					fact.Context = qualify(fn, block)
				}
				if result.Taint.Add(block.ID, fact) {
					worklist = append(worklist, worklistItem{block.ID, target, call.Name})
				}
			}

			// argv-pattern assignment: name = argv[i] and friends.
			if len(stmt.Defined) > 0 && stmt.UsesVar("argv") {
				target := a.normalizeVar(stmt.Defined[0])
				fact := &Fact{
					Variable:        target,
					Source:          "argv",
					Tainted:         true,
					Path:            []string{qualify(fn, block)},
					Category:        registry.CategoryCommandLine,
					TaintType:       registry.TaintString,
					SourceFunction:  fn.Name,
					OriginBlock:     block.ID,
					OriginStatement: stmt.ID,
					OriginRange:     stmt.Range,
					Labels:          []Label{LabelCommandLine},
				}
				if result.Taint.Add(block.ID, fact) {
					worklist = append(worklist, worklistItem{block.ID, target, "argv"})
				}
			}
		}
	}

	return worklist
}

// sourceTarget locates the variable a source call taints.
func sourceTarget(stmt *cfg.Statement, call extraction.ExtractedCall, source registry.TaintSource) string {
	switch source.Mechanism {
	case registry.MechanismAddressOfArg:
		for _, arg := range call.Arguments {
			trimmed := strings.TrimSpace(arg)
			if strings.HasPrefix(trimmed, "&") {
				vars := extraction.BaseVariablesOf(trimmed)
				if len(vars) > 0 {
					return vars[0]
				}
			}
		}
	case registry.MechanismArgIndex:
		if source.ArgIndex < len(call.Arguments) {
			vars := extraction.BaseVariablesOf(call.Arguments[source.ArgIndex])
			if len(vars) > 0 {
				return vars[0]
			}
		}
	case registry.MechanismReturnValue:
		if len(stmt.Defined) > 0 {
			return stmt.Defined[0]
		}
	}
	return ""
}

// propagate implements phase 2: pop facts and flow them through every
// statement that reads the tainted variable. Sanitizer calls record
// sanitization points and stop propagation; writes create derived
// facts at the writing statement's block.
func (a *Analyzer) propagate(fn *cfg.FunctionCFG, result *Result, worklist []worklistItem) {
	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		parent := a.lookupFact(result.Taint, item)
		if parent == nil || !parent.Tainted {
			continue
		}

		for _, block := range fn.BlocksInOrder() {
			for _, stmt := range block.Statements {
				if !a.statementReads(stmt, item.variable) {
					continue
				}

				if sanitizer, call, ok := a.sanitizerOn(stmt, item.variable); ok {
					a.applySanitizer(fn, result, parent, block, stmt, sanitizer, call)
					continue
				}

				for _, defined := range stmt.Defined {
					target := a.normalizeVar(defined)
					if result.Taint.Has(block.ID, target, parent.Source) {
						continue
					}
					derived := parent.clone()
					derived.Variable = target
					derived.Tainted = true
					derived.Path = extendPath(parent.Path, qualify(fn, block))
					if len(derived.Labels) == 0 {
						derived.Labels = []Label{LabelDerived}
					}
					if a.level == SensitivityMaximum {
						derived.Context = qualify(fn, block)
					}
					if result.Taint.Add(block.ID, derived) {
						worklist = append(worklist, worklistItem{block.ID, target, derived.Source})
					}
				}
			}
		}
	}
}

// lookupFact resolves a worklist item back to its fact.
func (a *Analyzer) lookupFact(m *Map, item worklistItem) *Fact {
	for _, fact := range m.Get(item.blockID, item.variable) {
		if fact.Source == item.source {
			return fact
		}
	}
	return nil
}

// statementReads checks whether a statement uses the variable,
// honoring field folding.
func (a *Analyzer) statementReads(stmt *cfg.Statement, variable string) bool {
	for _, used := range stmt.Used {
		if a.normalizeVar(used) == variable {
			return true
		}
	}
	return false
}

// sanitizerOn returns the sanitizer applied to the variable by this
// statement, if any: the call's declared input argument (or any
// argument when the declared one is absent) must reference it.
func (a *Analyzer) sanitizerOn(stmt *cfg.Statement, variable string) (registry.Sanitizer, extraction.ExtractedCall, bool) {
	for _, call := range extraction.ExtractCalls(stmt.Text) {
		sanitizer, ok := a.reg.SanitizerFor(call.Name)
		if !ok {
			continue
		}
		if sanitizer.InputArg < len(call.Arguments) {
			for _, v := range extraction.BaseVariablesOf(call.Arguments[sanitizer.InputArg]) {
				if a.normalizeVar(v) == variable {
					return sanitizer, call, true
				}
			}
			continue
		}
		for _, arg := range call.Arguments {
			for _, v := range extraction.BaseVariablesOf(arg) {
				if a.normalizeVar(v) == variable {
					return sanitizer, call, true
				}
			}
		}
	}
	return registry.Sanitizer{}, extraction.ExtractedCall{}, false
}

// applySanitizer records a sanitization point on the flowing fact and,
// when the statement assigns the sanitized value, creates the fact for
// the assigned variable. Taint-removing sanitizers clear the taint;
// either way propagation stops here.
func (a *Analyzer) applySanitizer(fn *cfg.FunctionCFG, result *Result, parent *Fact, block *cfg.BasicBlock, stmt *cfg.Statement, sanitizer registry.Sanitizer, call extraction.ExtractedCall) {
	point := SanitizationPoint{
		BlockID:     block.ID,
		StatementID: stmt.ID,
		Range:       stmt.Range,
		Sanitizer:   call.Name,
		Type:        sanitizer.Type,
	}

	parent.SanitizationPoints = append(parent.SanitizationPoints, point)
	if sanitizer.RemovesTaint {
		parent.Tainted = false
		parent.Sanitized = true
	}

	for _, defined := range stmt.Defined {
		target := a.normalizeVar(defined)
		if result.Taint.Has(block.ID, target, parent.Source) {
			continue
		}
		sanitized := parent.clone()
		sanitized.Variable = target
		sanitized.Path = extendPath(parent.Path, qualify(fn, block))
		sanitized.SanitizationPoints = append([]SanitizationPoint{}, parent.SanitizationPoints...)
		if sanitizer.RemovesTaint {
			sanitized.Tainted = false
			sanitized.Sanitized = true
		}
		result.Taint.Add(block.ID, sanitized)
	}
}

// extendPath appends a qualified block label unless it is already the
// last path element.
func extendPath(path []string, label string) []string {
	extended := append([]string{}, path...)
	if len(extended) > 0 && extended[len(extended)-1] == label {
		return extended
	}
	return append(extended, label)
}

// CheckSinks implements phase 4: every call to a registered sink is
// checked for tainted values in its dangerous arguments. A call that
// is also a registered source with an extractable target at this site
// is a source, not a sink.
//
// CheckSinks appends to result.Vulnerabilities; after inter-procedural
// propagation grows the taint map, callers reset the list and run it
// again.
func (a *Analyzer) CheckSinks(fn *cfg.FunctionCFG, result *Result) {
	for _, block := range fn.BlocksInOrder() {
		for _, stmt := range block.Statements {
			for _, call := range extraction.ExtractCalls(stmt.Text) {
				sink, ok := a.reg.Sink(call.Name)
				if !ok {
					continue
				}
				if source, isSource := a.reg.Source(call.Name); isSource {
					if sourceTarget(stmt, call, source) != "" {
						continue
					}
				}
				a.checkSinkCall(fn, result, block, stmt, call, sink)
			}
		}
	}
}

// checkSinkCall emits one vulnerability per (tainted variable, sink
// argument index) pair. Sinks with no declared dangerous arguments
// fall back to the statement's used variables with argument index -1.
func (a *Analyzer) checkSinkCall(fn *cfg.FunctionCFG, result *Result, block *cfg.BasicBlock, stmt *cfg.Statement, call extraction.ExtractedCall, sink registry.TaintSink) {
	sinkSite := Site{
		Function:    fn.Name,
		BlockID:     block.ID,
		StatementID: stmt.ID,
		Range:       stmt.Range,
	}

	emitted := make(map[string]bool)
	emit := func(fact *Fact, argIndex int) {
		key := fmt.Sprintf("%s\x00%s\x00%d", fact.Variable, fact.Source, argIndex)
		if emitted[key] {
			return
		}
		emitted[key] = true
		path := extendPath(fact.Path, qualify(fn, block))
		site := sinkSite
		site.Variable = fact.Variable
		result.Vulnerabilities = append(result.Vulnerabilities,
			newVulnerability(fact, sink, site, call.Name, argIndex, path))
	}

	if len(sink.DangerousArgs) > 0 {
		for _, argIndex := range sink.DangerousArgs {
			if argIndex >= len(call.Arguments) {
				continue
			}
			for _, v := range extraction.BaseVariablesOf(call.Arguments[argIndex]) {
				for _, fact := range result.Taint.TaintedFacts(a.normalizeVar(v)) {
					emit(fact, argIndex)
				}
			}
		}
		return
	}

	for _, used := range stmt.Used {
		for _, fact := range result.Taint.TaintedFacts(a.normalizeVar(used)) {
			emit(fact, -1)
		}
	}
}
