// Package reachingdefs implements forward may-analysis of reaching
// definitions over a single function CFG, with per-definition
// propagation paths.
package reachingdefs

import (
	"fmt"
	"sort"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
)

// Definition identifies one writing site of one variable.
type Definition struct {
	// Variable is the variable name this definition writes
	Variable string

	// ID uniquely identifies this definition within the function:
	// "p0", "p1", ... for synthetic parameter definitions,
	// "d0", "d1", ... for statement definitions in traversal order
	ID string

	// BlockID is the block containing the defining statement
	BlockID string

	// StatementID is the defining statement, empty for parameters
	StatementID string

	// OriginBlock is the block where the definition was created.
	// Never mutated after creation.
	OriginBlock string

	// Path is the ordered list of block IDs this fact has traversed.
	// Loop traversals are compacted to a "[b1→…→bN]*" marker element.
	Path []string

	// Killed is true iff this specific fact was killed at the most
	// recent block it flowed into
	Killed bool

	// IsParameter marks synthetic definitions of formal parameters
	IsParameter bool
}

// clone copies the definition including its path.
func (d *Definition) clone() *Definition {
	c := *d
	c.Path = append([]string{}, d.Path...)
	return &c
}

// BlockInfo holds the four reaching-definitions sets of one block,
// keyed by variable name. Fact identity within a list is by
// definition ID.
type BlockInfo struct {
	Gen  map[string][]*Definition
	Kill map[string][]*Definition
	In   map[string][]*Definition
	Out  map[string][]*Definition
}

func newBlockInfo() *BlockInfo {
	return &BlockInfo{
		Gen:  make(map[string][]*Definition),
		Kill: make(map[string][]*Definition),
		In:   make(map[string][]*Definition),
		Out:  make(map[string][]*Definition),
	}
}

// Result holds the reaching-definitions solution for one function.
type Result struct {
	FunctionName string

	// Blocks maps block ID to its GEN/KILL/IN/OUT sets
	Blocks map[string]*BlockInfo

	// Definitions is the canonical list of all definitions in the
	// function: parameters first, then statement definitions in
	// traversal order
	Definitions []*Definition

	// Iterations is the number of sweeps performed
	Iterations int

	// Converged is false when the iteration cap was reached
	Converged bool

	// Warnings collects non-fatal findings
	Warnings []string
}

// ReachingAt returns the definitions of a variable reaching the entry
// of the given block.
func (r *Result) ReachingAt(blockID, varName string) []*Definition {
	info, ok := r.Blocks[blockID]
	if !ok {
		return nil
	}
	return info.In[varName]
}

// OutAt returns the definitions of a variable leaving the given block.
func (r *Result) OutAt(blockID, varName string) []*Definition {
	info, ok := r.Blocks[blockID]
	if !ok {
		return nil
	}
	return info.Out[varName]
}

// Solve computes reaching definitions for every block of the function.
//
// Transfer:  OUT(B) = GEN(B) ∪ (IN(B) \ KILL(B))
// Meet:      IN(B) = ⋃ OUT(P) over predecessors P
//
// GEN(B) keeps only the last write per variable in the block; earlier
// same-block writes are locally killed. The entry block additionally
// generates synthetic parameter definitions for parameters not written
// inside it. KILL(B) contains, for every variable written in B, all
// definitions of that variable from other blocks.
//
// Blocks are visited in insertion order; each sweep reads the OUT
// values from the start of the sweep. Convergence is tested by
// definition-ID set equality per variable. The sweep count is capped
// at 10×|blocks| with a warning on saturation.
func Solve(fn *cfg.FunctionCFG) *Result {
	result := &Result{
		FunctionName: fn.Name,
		Blocks:       make(map[string]*BlockInfo),
		Converged:    true,
	}

	defsByVar := collectDefinitions(fn, result)

	for _, block := range fn.BlocksInOrder() {
		info := newBlockInfo()
		computeGen(fn, block, info, result)
		computeKill(block, info, defsByVar)
		result.Blocks[block.ID] = info
	}

	maxSweeps := 10 * len(fn.BlockOrder)
	if maxSweeps == 0 {
		maxSweeps = 1
	}

	for sweep := 0; ; sweep++ {
		if sweep >= maxSweeps {
			result.Converged = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"function %s: reaching definitions did not converge after %d sweeps", fn.Name, maxSweeps))
			break
		}
		result.Iterations = sweep + 1

		// Snapshot of OUT from the start of this sweep.
		snapshot := make(map[string]map[string][]*Definition, len(fn.BlockOrder))
		for id, info := range result.Blocks {
			snapshot[id] = info.Out
		}

		changed := false
		for _, id := range fn.BlockOrder {
			block := fn.Blocks[id]
			info := result.Blocks[id]

			newIn := mergePredecessors(fn, block, snapshot, result)
			newOut := applyTransfer(id, info, newIn)

			if !idSetsEqual(info.In, newIn) || !idSetsEqual(info.Out, newOut) {
				changed = true
			}
			info.In = newIn
			info.Out = newOut
		}
		if !changed {
			break
		}
	}

	return result
}

// collectDefinitions enumerates every definition in the function:
// synthetic parameter definitions first, then one definition per
// (variable, statement) with a non-empty defined set, in traversal
// order. Returns the per-variable index.
func collectDefinitions(fn *cfg.FunctionCFG, result *Result) map[string][]*Definition {
	defsByVar := make(map[string][]*Definition)

	for i, param := range fn.Parameters {
		def := &Definition{
			Variable:    param,
			ID:          fmt.Sprintf("p%d", i),
			BlockID:     fn.EntryBlockID,
			OriginBlock: fn.EntryBlockID,
			Path:        []string{fn.EntryBlockID},
			IsParameter: true,
		}
		result.Definitions = append(result.Definitions, def)
		defsByVar[param] = append(defsByVar[param], def)
	}

	counter := 0
	for _, block := range fn.BlocksInOrder() {
		for _, stmt := range block.Statements {
			for _, varName := range stmt.Defined {
				def := &Definition{
					Variable:    varName,
					ID:          fmt.Sprintf("d%d", counter),
					BlockID:     block.ID,
					StatementID: stmt.ID,
					OriginBlock: block.ID,
					Path:        []string{block.ID},
				}
				counter++
				result.Definitions = append(result.Definitions, def)
				defsByVar[varName] = append(defsByVar[varName], def)
			}
		}
	}

	return defsByVar
}

// computeGen fills GEN(B): the last write per variable in the block,
// plus, for the entry block, parameter definitions of parameters not
// written inside it.
func computeGen(fn *cfg.FunctionCFG, block *cfg.BasicBlock, info *BlockInfo, result *Result) {
	lastWrite := make(map[string]*Definition)
	writeOrder := []string{}
	for _, def := range result.Definitions {
		if def.BlockID != block.ID || def.IsParameter {
			continue
		}
		if _, seen := lastWrite[def.Variable]; !seen {
			writeOrder = append(writeOrder, def.Variable)
		}
		lastWrite[def.Variable] = def
	}

	if block.ID == fn.EntryBlockID {
		for _, def := range result.Definitions {
			if !def.IsParameter {
				continue
			}
			if _, written := lastWrite[def.Variable]; written {
				continue
			}
			info.Gen[def.Variable] = append(info.Gen[def.Variable], def.clone())
		}
	}

	for _, varName := range writeOrder {
		info.Gen[varName] = append(info.Gen[varName], lastWrite[varName].clone())
	}
}

// computeKill fills KILL(B): for every variable written in the block,
// all definitions of that variable from other blocks.
func computeKill(block *cfg.BasicBlock, info *BlockInfo, defsByVar map[string][]*Definition) {
	written := make(map[string]bool)
	for _, stmt := range block.Statements {
		for _, varName := range stmt.Defined {
			written[varName] = true
		}
	}
	vars := make([]string, 0, len(written))
	for varName := range written {
		vars = append(vars, varName)
	}
	sort.Strings(vars)

	for _, varName := range vars {
		for _, def := range defsByVar[varName] {
			if def.BlockID != block.ID {
				info.Kill[varName] = append(info.Kill[varName], def)
			}
		}
	}
}

// mergePredecessors computes IN(B) as the union of predecessor OUT
// sets, deduplicated by definition ID in predecessor order. Each fact
// is cloned and its propagation path extended with B.
func mergePredecessors(fn *cfg.FunctionCFG, block *cfg.BasicBlock, snapshot map[string]map[string][]*Definition, result *Result) map[string][]*Definition {
	in := make(map[string][]*Definition)
	seen := make(map[string]bool)

	for _, predID := range block.Predecessors {
		predOut, ok := snapshot[predID]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"function %s: block %s has unresolved predecessor %s, skipped", fn.Name, block.ID, predID))
			continue
		}
		for _, varName := range sortedKeys(predOut) {
			for _, def := range predOut[varName] {
				if seen[def.ID] {
					continue
				}
				seen[def.ID] = true
				flowed := def.clone()
				flowed.Killed = false
				flowed.Path = flowAppend(flowed.Path, block.ID)
				in[varName] = append(in[varName], flowed)
			}
		}
	}

	return in
}

// applyTransfer computes OUT(B) = GEN(B) ∪ (IN(B) \ KILL(B)).
// Facts killed in this block are flagged on the IN copy. When a
// definition both survives from IN and is generated by B (a loop
// around its own defining block), the surviving copy wins so the
// compacted cyclic propagation path is preserved.
func applyTransfer(blockID string, info *BlockInfo, in map[string][]*Definition) map[string][]*Definition {
	out := make(map[string][]*Definition)
	present := make(map[string]bool)

	for _, varName := range sortedKeys(in) {
		killed := make(map[string]bool)
		for _, def := range info.Kill[varName] {
			killed[def.ID] = true
		}
		for _, def := range in[varName] {
			if killed[def.ID] {
				def.Killed = true
				continue
			}
			survived := def.clone()
			survived.Path = surviveAppend(survived.Path, blockID)
			out[varName] = append(out[varName], survived)
			present[def.ID] = true
		}
	}

	for _, varName := range sortedKeys(info.Gen) {
		for _, def := range info.Gen[varName] {
			if present[def.ID] {
				continue
			}
			out[varName] = append(out[varName], def.clone())
		}
	}

	return out
}

// flowAppend extends a propagation path along a CFG edge into blockID.
// Revisiting a block folds the loop segment into a single "[b1→…→bN]*"
// marker element followed by the block itself; once a path carries the
// marker for a block, further traversals leave the path stable.
func flowAppend(path []string, blockID string) []string {
	idx := -1
	for i, elem := range path {
		if elem == blockID {
			idx = i
			break
		}
	}

	if idx < 0 {
		return append(path, blockID)
	}

	if hasCycleMarker(path, blockID) {
		if path[len(path)-1] != blockID {
			return append(path, blockID)
		}
		return path
	}

	segment := append(append([]string{}, path[idx:]...), blockID)
	marker := "[" + joinArrow(segment) + "]*"
	compacted := append([]string{}, path[:idx]...)
	return append(compacted, marker, blockID)
}

// surviveAppend records that a fact survived through blockID. The flow
// into IN already positioned the path at blockID, so this is a no-op
// unless the fact was generated here without flowing in.
func surviveAppend(path []string, blockID string) []string {
	if len(path) > 0 && path[len(path)-1] == blockID {
		return path
	}
	return flowAppend(path, blockID)
}

func hasCycleMarker(path []string, blockID string) bool {
	suffix := "→" + blockID + "]*"
	for _, elem := range path {
		if len(elem) > 2 && elem[0] == '[' && len(elem) >= len(suffix) && elem[len(elem)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

func joinArrow(parts []string) string {
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += "→"
		}
		joined += p
	}
	return joined
}

// idSetsEqual compares two variable-keyed fact maps by definition-ID
// set equality per variable.
func idSetsEqual(a, b map[string][]*Definition) bool {
	if len(a) != len(b) {
		return false
	}
	for varName, defsA := range a {
		defsB, ok := b[varName]
		if !ok || len(defsA) != len(defsB) {
			return false
		}
		ids := make(map[string]bool, len(defsA))
		for _, def := range defsA {
			ids[def.ID] = true
		}
		for _, def := range defsB {
			if !ids[def.ID] {
				return false
			}
		}
	}
	return true
}

func sortedKeys(m map[string][]*Definition) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
