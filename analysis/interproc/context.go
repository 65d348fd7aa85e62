package interproc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/callgraph"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

// DefaultContextSize is the default k for k-limited call contexts.
const DefaultContextSize = 2

const contextIterationCap = 10

// ContextKey renders a call stack as a context string: "f1 → f2".
func ContextKey(frames []string) string {
	return strings.Join(frames, " → ")
}

// contextFactKey is the merge identity across contexts.
func contextFactKey(fact *taint.Fact) string {
	return fact.Variable + "\x00" + fact.Source + "\x00" + fact.SourceFunction
}

// ContextTaintResult refines the context-insensitive taint solution
// with per-context fact stores.
type ContextTaintResult struct {
	// K is the context depth used
	K int

	// Facts maps function → context string → facts, merged by
	// (variable, source, sourceFunction) identity
	Facts map[string]map[string][]*taint.Fact

	// Baseline is the context-insensitive inter-procedural result
	Baseline *TaintResult

	Iterations int
	Converged  bool
	Warnings   []string
}

// FactsAt returns the facts of a function under one context.
func (r *ContextTaintResult) FactsAt(function, context string) []*taint.Fact {
	contexts, ok := r.Facts[function]
	if !ok {
		return nil
	}
	return contexts[context]
}

// Contexts returns the context strings recorded for a function.
func (r *ContextTaintResult) Contexts(function string) []string {
	contexts, ok := r.Facts[function]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(contexts))
	for key := range contexts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SolveContextSensitiveTaint runs the k-limited refinement:
//
//  1. the context-insensitive solver establishes the baseline
//  2. starting from root functions (no callers), call edges are walked
//     under growing contexts; tainted actual arguments map to callee
//     parameters under the extended context, and context-specific
//     return taint flows back to the caller's context
//
// Contexts are truncated to the last k frames; facts merge across
// contexts by (variable, source, sourceFunction).
func SolveContextSensitiveTaint(graph *callgraph.Graph, perFunction map[string]*taint.Result, reg *registry.Registry, level taint.SensitivityLevel, k int) *ContextTaintResult {
	if k <= 0 {
		k = DefaultContextSize
	}

	baseline := NewTaintSolver(graph, perFunction, reg, level).Solve()

	result := &ContextTaintResult{
		K:         k,
		Facts:     make(map[string]map[string][]*taint.Fact),
		Baseline:  baseline,
		Converged: true,
	}

	type ctxItem struct {
		function string
		frames   []string
	}

	var queue []ctxItem
	for _, name := range graph.FunctionOrder {
		node := graph.Functions[name]
		if node == nil || node.CFG == nil {
			continue
		}
		if len(graph.Callers(name)) == 0 {
			queue = append(queue, ctxItem{function: name, frames: []string{name}})
		}
	}
	if len(queue) == 0 {
		// Fully cyclic program: every function roots its own context.
		for _, name := range graph.FunctionOrder {
			if node := graph.Functions[name]; node != nil && node.CFG != nil {
				queue = append(queue, ctxItem{function: name, frames: []string{name}})
			}
		}
	}

	visited := make(map[string]bool)

	for iteration := 0; len(queue) > 0; iteration++ {
		if iteration >= contextIterationCap {
			result.Converged = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"context-sensitive taint did not converge after %d iterations", contextIterationCap))
			break
		}
		result.Iterations = iteration + 1

		var next []ctxItem
		for _, item := range queue {
			sigma := ContextKey(item.frames)
			visitKey := item.function + "\x00" + sigma
			if visited[visitKey] {
				continue
			}
			visited[visitKey] = true

			callerResult := perFunction[item.function]
			callerNode := graph.Functions[item.function]
			if callerResult == nil || callerNode == nil || callerNode.CFG == nil {
				continue
			}

			for _, call := range graph.CallsFrom[item.function] {
				callee := graph.Functions[call.Callee]
				if callee == nil || callee.CFG == nil {
					continue
				}
				calleeFrames := limitFrames(append(append([]string{}, item.frames...), call.Callee), result.K)
				sigmaPrime := ContextKey(calleeFrames)

				// Map tainted actuals to parameters under σ·G.
				for _, param := range callee.Parameters {
					if param.Index >= len(call.Arguments) {
						continue
					}
					for _, v := range extraction.BaseVariablesOf(call.Arguments[param.Index]) {
						for _, parent := range taintedUnderContext(result, callerResult, item.function, sigma, v) {
							fact := cloneForCallee(parent, param.Name, call.Callee)
							fact.Context = sigmaPrime
							mergeContextFact(result, call.Callee, sigmaPrime, fact)
						}
					}
				}

				// Context-specific return taint back to the caller at σ.
				if returnFact := contextReturnFact(result, perFunction, callee, sigmaPrime); returnFact != nil {
					if receiver := ReturnReceiver(call.StatementText); receiver != "" {
						fact := cloneForCallee(returnFact, receiver, item.function)
						fact.Context = sigma
						mergeContextFact(result, item.function, sigma, fact)
					}
				}

				next = append(next, ctxItem{function: call.Callee, frames: calleeFrames})
			}
		}
		queue = next
	}

	return result
}

// taintedUnderContext unions the baseline facts of a variable with the
// facts refined for this context.
func taintedUnderContext(result *ContextTaintResult, callerResult *taint.Result, function, sigma, variable string) []*taint.Fact {
	var facts []*taint.Fact
	seen := make(map[string]bool)

	for _, fact := range callerResult.Taint.TaintedFacts(variable) {
		key := contextFactKey(fact)
		if !seen[key] {
			seen[key] = true
			facts = append(facts, fact)
		}
	}
	for _, fact := range result.FactsAt(function, sigma) {
		if fact.Variable != variable || !fact.Tainted {
			continue
		}
		key := contextFactKey(fact)
		if !seen[key] {
			seen[key] = true
			facts = append(facts, fact)
		}
	}

	return facts
}

// contextReturnFact finds a tainted fact flowing out of the callee's
// return statements, preferring context-refined facts over baseline.
func contextReturnFact(result *ContextTaintResult, perFunction map[string]*taint.Result, callee *callgraph.FunctionNode, sigmaPrime string) *taint.Fact {
	calleeResult := perFunction[callee.Name]
	if calleeResult == nil {
		return nil
	}

	for _, block := range callee.CFG.BlocksInOrder() {
		for _, stmt := range block.Statements {
			if !strings.HasPrefix(strings.TrimSpace(stmt.Text), "return") {
				continue
			}
			for _, used := range stmt.Used {
				for _, fact := range result.FactsAt(callee.Name, sigmaPrime) {
					if fact.Variable == used && fact.Tainted {
						return fact
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

// mergeContextFact inserts a fact into the per-context store unless an
// identical (variable, source, sourceFunction) fact is present.
func mergeContextFact(result *ContextTaintResult, function, context string, fact *taint.Fact) {
	contexts, ok := result.Facts[function]
	if !ok {
		contexts = make(map[string][]*taint.Fact)
		result.Facts[function] = contexts
	}
	key := contextFactKey(fact)
	for _, existing := range contexts[context] {
		if contextFactKey(existing) == key {
			return
		}
	}
	contexts[context] = append(contexts[context], fact)
}

// limitFrames keeps the last k frames of a call stack.
func limitFrames(frames []string, k int) []string {
	if len(frames) <= k {
		return frames
	}
	return frames[len(frames)-k:]
}

