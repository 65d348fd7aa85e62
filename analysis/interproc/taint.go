package interproc

import (
	"fmt"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/callgraph"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

const taintOuterIterationCap = 10

// TaintResult holds the bookkeeping of the inter-procedural taint
// pass. The per-function taint maps passed into NewTaintSolver are
// extended in place by Solve.
type TaintResult struct {
	Iterations    int
	Converged     bool
	InjectedFacts int
	Warnings      []string
}

// TaintSolver propagates taint across function boundaries via
// parameter mapping, return-value flow and library summaries.
type TaintSolver struct {
	graph       *callgraph.Graph
	perFunction map[string]*taint.Result
	reg         *registry.Registry
	analyzer    *taint.Analyzer
}

// NewTaintSolver creates the solver. The analyzer is used to continue
// intra-procedural propagation after facts are injected.
func NewTaintSolver(graph *callgraph.Graph, perFunction map[string]*taint.Result, reg *registry.Registry, level taint.SensitivityLevel) *TaintSolver {
	return &TaintSolver{
		graph:       graph,
		perFunction: perFunction,
		reg:         reg,
		analyzer:    taint.NewAnalyzer(reg, level),
	}
}

// Solve runs a worklist over functions. Each pass processes every
// queued function's call sites:
//
//   - tainted actual arguments inject parameter taint at the callee
//     entry block
//   - tainted return expressions inject a return_<callee> fact and,
//     when a receiver is detectable, taint on the receiving variable
//     at the call-site block
//   - external callees are modeled by library summaries
//
// A function is re-queued when taint is injected into it, along with
// its callers. The outer loop is capped at 10 iterations.
func (s *TaintSolver) Solve() *TaintResult {
	result := &TaintResult{Converged: true}

	queue := make(map[string]bool)
	for _, name := range s.graph.FunctionOrder {
		if node := s.graph.Functions[name]; node != nil && node.CFG != nil {
			queue[name] = true
		}
	}

	for iteration := 0; len(queue) > 0; iteration++ {
		if iteration >= taintOuterIterationCap {
			result.Converged = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"inter-procedural taint did not converge after %d iterations", taintOuterIterationCap))
			break
		}
		result.Iterations = iteration + 1

		next := make(map[string]bool)
		for _, name := range s.graph.FunctionOrder {
			if !queue[name] {
				continue
			}
			s.processFunction(name, result, next)
		}
		queue = next
	}

	return result
}

// processFunction handles every call site of one caller.
func (s *TaintSolver) processFunction(caller string, result *TaintResult, next map[string]bool) {
	callerNode := s.graph.Functions[caller]
	if callerNode == nil || callerNode.CFG == nil {
		return
	}
	callerResult := s.perFunction[caller]
	if callerResult == nil {
		return
	}

	for _, call := range s.graph.CallsFrom[caller] {
		callee := s.graph.Functions[call.Callee]
		if callee == nil {
			continue
		}
		if callee.CFG != nil {
			s.propagateIntoCallee(callerNode, callerResult, call, callee, result, next)
			s.propagateReturn(callerNode, callerResult, call, callee, result, next)
			continue
		}
		if summary, ok := s.reg.Summary(call.Callee); ok {
			s.applySummary(callerNode, callerResult, call, summary, result, next)
		}
	}
}

// taintedArgFacts returns the active facts of the argument's base
// variables, looked up at the call-site block and the caller entry
// block (parameters are tainted at entry).
func (s *TaintSolver) taintedArgFacts(callerNode *callgraph.FunctionNode, callerResult *taint.Result, callBlockID, argExpr string) []*taint.Fact {
	var facts []*taint.Fact
	seen := make(map[string]bool)
	blocks := []string{callBlockID, callerNode.CFG.EntryBlockID}

	for _, v := range extraction.BaseVariablesOf(argExpr) {
		for _, blockID := range blocks {
			for _, fact := range callerResult.Taint.Get(blockID, v) {
				if !fact.Tainted {
					continue
				}
				key := fact.Variable + "\x00" + fact.Source + "\x00" + fact.SourceFunction
				if seen[key] {
					continue
				}
				seen[key] = true
				facts = append(facts, fact)
			}
		}
		// Fall back to any block: derived facts may live where the
		// variable was last written.
		if len(facts) == 0 {
			for _, fact := range callerResult.Taint.TaintedFacts(v) {
				key := fact.Variable + "\x00" + fact.Source + "\x00" + fact.SourceFunction
				if seen[key] {
					continue
				}
				seen[key] = true
				facts = append(facts, fact)
			}
		}
	}

	return facts
}

// propagateIntoCallee injects parameter taint at the callee entry
// block for every tainted actual argument.
func (s *TaintSolver) propagateIntoCallee(callerNode *callgraph.FunctionNode, callerResult *taint.Result, call *callgraph.Call, callee *callgraph.FunctionNode, result *TaintResult, next map[string]bool) {
	calleeResult := s.perFunction[call.Callee]
	if calleeResult == nil {
		return
	}
	entryID := callee.CFG.EntryBlockID

	var seeds []taint.Seed
	for _, param := range callee.Parameters {
		if param.Index >= len(call.Arguments) {
			continue
		}
		for _, parent := range s.taintedArgFacts(callerNode, callerResult, call.BlockID, call.Arguments[param.Index]) {
			injected := cloneForCallee(parent, param.Name, call.Callee)
			if calleeResult.Taint.Add(entryID, injected) {
				result.InjectedFacts++
				seeds = append(seeds, taint.Seed{BlockID: entryID, Variable: param.Name, Source: injected.Source})
			}
		}
	}

	if len(seeds) > 0 {
		s.analyzer.PropagateSeeds(callee.CFG, calleeResult, seeds)
		next[call.Callee] = true
		for _, callerOfCallee := range s.graph.Callers(call.Callee) {
			next[callerOfCallee] = true
		}
	}
}

// propagateReturn flows tainted return expressions of the callee back
// to the call site.
func (s *TaintSolver) propagateReturn(callerNode *callgraph.FunctionNode, callerResult *taint.Result, call *callgraph.Call, callee *callgraph.FunctionNode, result *TaintResult, next map[string]bool) {
	calleeResult := s.perFunction[call.Callee]
	if calleeResult == nil {
		return
	}

	returnFact := s.taintedReturnFact(callee, calleeResult)
	if returnFact == nil {
		return
	}

	var seeds []taint.Seed

	pseudo := cloneForCallee(returnFact, "return_"+call.Callee, callerNode.Name)
	pseudo.SourceFunction = returnFact.SourceFunction
	if callerResult.Taint.Add(call.BlockID, pseudo) {
		result.InjectedFacts++
	}

	if receiver := ReturnReceiver(call.StatementText); receiver != "" {
		received := cloneForCallee(returnFact, receiver, callerNode.Name)
		received.SourceFunction = returnFact.SourceFunction
		if callerResult.Taint.Add(call.BlockID, received) {
			result.InjectedFacts++
			seeds = append(seeds, taint.Seed{BlockID: call.BlockID, Variable: receiver, Source: received.Source})
		}
	}

	if len(seeds) > 0 {
		s.analyzer.PropagateSeeds(callerNode.CFG, callerResult, seeds)
		next[callerNode.Name] = true
		for _, callerOfCaller := range s.graph.Callers(callerNode.Name) {
			next[callerOfCaller] = true
		}
	}
}

// taintedReturnFact finds the first tainted variable used by a return
// statement of the function, checking the return block and the entry
// block (for parameter taint).
func (s *TaintSolver) taintedReturnFact(callee *callgraph.FunctionNode, calleeResult *taint.Result) *taint.Fact {
	for _, block := range callee.CFG.BlocksInOrder() {
		for _, stmt := range block.Statements {
			if stmt.Type != cfg.StatementReturn &&
				!strings.HasPrefix(strings.TrimSpace(stmt.Text), "return") {
				continue
			}
			for _, used := range stmt.Used {
				for _, blockID := range []string{block.ID, callee.CFG.EntryBlockID} {
					for _, fact := range calleeResult.Taint.Get(blockID, used) {
						if fact.Tainted {
							return fact
						}
					}
				}
				for _, fact := range calleeResult.Taint.TaintedFacts(used) {
					return fact
				}
			}
		}
	}
	return nil
}

// applySummary models an external callee through its library summary:
// taint on any source parameter flows to every sink parameter and,
// when the summary says so, to the return value.
func (s *TaintSolver) applySummary(callerNode *callgraph.FunctionNode, callerResult *taint.Result, call *callgraph.Call, summary registry.LibrarySummary, result *TaintResult, next map[string]bool) {
	var parent *taint.Fact
	for _, srcIdx := range summary.SourceParams {
		if srcIdx >= len(call.Arguments) {
			continue
		}
		facts := s.taintedArgFacts(callerNode, callerResult, call.BlockID, call.Arguments[srcIdx])
		if len(facts) > 0 {
			parent = facts[0]
			break
		}
	}
	if parent == nil {
		return
	}

	var seeds []taint.Seed

	for _, sinkIdx := range summary.SinkParams {
		if sinkIdx >= len(call.Arguments) {
			continue
		}
		vars := extraction.BaseVariablesOf(call.Arguments[sinkIdx])
		if len(vars) == 0 {
			continue
		}
		target := cloneForCallee(parent, vars[0], callerNode.Name)
		target.SourceFunction = parent.SourceFunction
		if callerResult.Taint.Add(call.BlockID, target) {
			result.InjectedFacts++
			seeds = append(seeds, taint.Seed{BlockID: call.BlockID, Variable: vars[0], Source: target.Source})
		}
	}

	if summary.TaintsReturn {
		pseudo := cloneForCallee(parent, "return_"+call.Callee, callerNode.Name)
		pseudo.SourceFunction = parent.SourceFunction
		if callerResult.Taint.Add(call.BlockID, pseudo) {
			result.InjectedFacts++
		}
		if receiver := ReturnReceiver(call.StatementText); receiver != "" {
			received := cloneForCallee(parent, receiver, callerNode.Name)
			received.SourceFunction = parent.SourceFunction
			if callerResult.Taint.Add(call.BlockID, received) {
				result.InjectedFacts++
				seeds = append(seeds, taint.Seed{BlockID: call.BlockID, Variable: receiver, Source: received.Source})
			}
		}
	}

	if len(seeds) > 0 {
		s.analyzer.PropagateSeeds(callerNode.CFG, callerResult, seeds)
		next[callerNode.Name] = true
	}
}

// cloneForCallee copies a fact for injection across a function
// boundary, retargeting the variable and extending the propagation
// path with the receiving function.
func cloneForCallee(parent *taint.Fact, variable, function string) *taint.Fact {
	injected := &taint.Fact{
		Variable:        variable,
		Source:          parent.Source,
		Tainted:         true,
		Path:            appendUnique(parent.Path, function),
		Category:        parent.Category,
		TaintType:       parent.TaintType,
		SourceFunction:  parent.SourceFunction,
		OriginBlock:     parent.OriginBlock,
		OriginStatement: parent.OriginStatement,
		OriginRange:     parent.OriginRange,
		Sanitized:       parent.Sanitized,
		Labels:          append([]taint.Label{}, parent.Labels...),
	}
	injected.SanitizationPoints = append(injected.SanitizationPoints, parent.SanitizationPoints...)
	return injected
}

func appendUnique(path []string, element string) []string {
	extended := append([]string{}, path...)
	if len(extended) > 0 && extended[len(extended)-1] == element {
		return extended
	}
	return append(extended, element)
}
