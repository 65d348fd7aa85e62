// Package interproc implements the cross-function analyses: summary
// propagation of reaching definitions, inter-procedural taint, and the
// k-limited context-sensitive taint refinement.
package interproc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/reachingdefs"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/callgraph"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
)

const rdOuterIterationCap = 20

// ParameterFlow records that a callee definition of a formal parameter
// was live at the callee exit for a given call site. Actual-argument
// substitution is not performed; the flow is only logged.
type ParameterFlow struct {
	Caller       string
	Callee       string
	CallBlockID  string
	Parameter    string
	DefinitionID string
}

// CallContext is the per-call-site binding of formals to actuals.
type CallContext struct {
	Call           *callgraph.Call
	ParameterMap   map[string]string // formal name → actual expression
	ReturnReceiver string            // caller variable receiving the result, "" if none
}

// RDResult holds the inter-procedural reaching-definitions solution.
// The per-function results passed into SolveReachingDefinitions are
// extended in place;
// RDResult records the cross-function bookkeeping.
type RDResult struct {
	ParameterFlows []ParameterFlow
	Iterations     int
	Converged      bool
	Warnings       []string
}

// receiverPatterns match, in order: "type *name = call", "type name =
// call", and "name = call".
var receiverPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*[A-Za-z_]\w*[\s\*]+\*?\s*([A-Za-z_]\w*)\s*=`),
	regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=[^=]`),
}

// SolveReachingDefinitions runs context-insensitive summary
// propagation over the call graph, as an outer fixed point on top of
// the intra-procedural results.
//
// Per call site F→G:
//   - formals are bound to actuals positionally and the caller
//     variable receiving the return value is located by pattern
//   - callee-exit definitions of formal parameters are logged as
//     parameter flows (no substitution)
//   - return statements of G synthesize a definition of the receiver
//     variable at the call-site block
//   - callee-exit definitions of global variables propagate into the
//     caller's OUT with an extended propagation path
//
// External callees are skipped. The outer loop is capped at 20
// iterations.
func SolveReachingDefinitions(graph *callgraph.Graph, perFunction map[string]*reachingdefs.Result) *RDResult {
	result := &RDResult{Converged: true}
	loggedFlows := make(map[string]bool)
	injected := make(map[string]bool)

	for iteration := 0; ; iteration++ {
		if iteration >= rdOuterIterationCap {
			result.Converged = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"inter-procedural reaching definitions did not converge after %d iterations", rdOuterIterationCap))
			break
		}
		result.Iterations = iteration + 1

		changed := false
		for _, call := range graph.Calls {
			callee := graph.Functions[call.Callee]
			if callee == nil || callee.IsExternal || callee.CFG == nil {
				continue
			}
			callerRD := perFunction[call.Caller]
			calleeRD := perFunction[call.Callee]
			if callerRD == nil || calleeRD == nil {
				continue
			}

			ctx := BindCallContext(call, callee)
			if propagateCallSite(graph, call, ctx, callerRD, calleeRD, result, loggedFlows, injected) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return result
}

// BindCallContext builds the formal→actual binding and locates the
// return-value receiver for one call site.
func BindCallContext(call *callgraph.Call, callee *callgraph.FunctionNode) *CallContext {
	ctx := &CallContext{
		Call:         call,
		ParameterMap: make(map[string]string),
	}
	for _, param := range callee.Parameters {
		if param.Index < len(call.Arguments) {
			ctx.ParameterMap[param.Name] = call.Arguments[param.Index]
		}
	}
	ctx.ReturnReceiver = ReturnReceiver(call.StatementText)
	return ctx
}

// ReturnReceiver extracts the caller variable receiving a call's
// return value from the call statement text, or "" when the value is
// discarded.
func ReturnReceiver(text string) string {
	normalized := extraction.Normalize(text)
	for _, pattern := range receiverPatterns {
		if m := pattern.FindStringSubmatch(normalized); m != nil {
			name := m[len(m)-1]
			if !extraction.IsReservedKeyword(name) {
				return name
			}
		}
	}
	return ""
}

// propagateCallSite applies the three summary rules for one call site.
// Returns true when the caller's sets changed.
func propagateCallSite(graph *callgraph.Graph, call *callgraph.Call, ctx *CallContext, callerRD, calleeRD *reachingdefs.Result, result *RDResult, loggedFlows, injected map[string]bool) bool {
	calleeCFG := graph.Functions[call.Callee].CFG
	exitInfo := calleeRD.Blocks[calleeCFG.ExitBlockID]
	if exitInfo == nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"function %s: no exit block info, call from %s skipped", call.Callee, call.Caller))
		return false
	}

	changed := false

	// Parameter flow logging.
	for _, param := range graph.Functions[call.Callee].Parameters {
		for _, def := range exitInfo.Out[param.Name] {
			key := call.Caller + "\x00" + call.BlockID + "\x00" + call.Callee + "\x00" + def.ID
			if loggedFlows[key] {
				continue
			}
			loggedFlows[key] = true
			result.ParameterFlows = append(result.ParameterFlows, ParameterFlow{
				Caller:       call.Caller,
				Callee:       call.Callee,
				CallBlockID:  call.BlockID,
				Parameter:    param.Name,
				DefinitionID: def.ID,
			})
		}
	}

	callerInfo := callerRD.Blocks[call.BlockID]
	if callerInfo == nil {
		return changed
	}

	// Return-value definition at the call-site block.
	if ctx.ReturnReceiver != "" && calleeHasReturn(calleeCFG) {
		defID := fmt.Sprintf("ret_%s_%s_%s", call.Callee, call.Caller, call.BlockID)
		if !injected[defID] {
			injected[defID] = true
			callerInfo.Out[ctx.ReturnReceiver] = append(callerInfo.Out[ctx.ReturnReceiver], &reachingdefs.Definition{
				Variable:    ctx.ReturnReceiver,
				ID:          defID,
				BlockID:     call.BlockID,
				StatementID: call.StatementID,
				OriginBlock: calleeCFG.ExitBlockID,
				Path:        []string{calleeCFG.ExitBlockID, call.BlockID},
			})
			changed = true
		}
	}

	// Global definitions propagate from callee exit into the caller.
	for _, variable := range sortedVarKeys(exitInfo.Out) {
		if !IsGlobalVariable(variable) {
			continue
		}
		for _, def := range exitInfo.Out[variable] {
			key := "glob\x00" + call.Caller + "\x00" + call.BlockID + "\x00" + def.ID
			if injected[key] {
				continue
			}
			injected[key] = true
			flowed := &reachingdefs.Definition{
				Variable:    def.Variable,
				ID:          def.ID,
				BlockID:     def.BlockID,
				StatementID: def.StatementID,
				OriginBlock: def.OriginBlock,
				Path:        append(append([]string{}, def.Path...), call.BlockID),
				IsParameter: def.IsParameter,
			}
			callerInfo.Out[variable] = append(callerInfo.Out[variable], flowed)
			changed = true
		}
	}

	return changed
}

// calleeHasReturn checks whether the callee contains a return
// statement carrying a value.
func calleeHasReturn(fn *cfg.FunctionCFG) bool {
	for _, stmt := range fn.AllStatements() {
		if stmt.Type == cfg.StatementReturn ||
			strings.HasPrefix(strings.TrimSpace(stmt.Text), "return") {
			return true
		}
	}
	return false
}

// IsGlobalVariable applies the global-variable heuristic: an ALL-CAPS
// identifier longer than one character. Ordinary locals that happen to
// be ALL-CAPS are misclassified; a real symbol table from the exporter
// would be needed to do better.
func IsGlobalVariable(name string) bool {
	if len(name) <= 1 {
		return false
	}
	hasLetter := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			return false
		}
		if c >= 'A' && c <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func sortedVarKeys(m map[string][]*reachingdefs.Definition) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
