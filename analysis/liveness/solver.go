// Package liveness implements backward may-analysis of variable
// liveness over a single function CFG.
package liveness

import (
	"fmt"
	"sort"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
)

// BlockInfo holds the liveness sets of one basic block.
// Sets are sorted for deterministic output.
type BlockInfo struct {
	// In is the set of variables live at block entry
	In []string

	// Out is the set of variables live at block exit
	Out []string
}

// Result holds the liveness solution for one function.
type Result struct {
	FunctionName string

	// Blocks maps block ID to its liveness sets
	Blocks map[string]*BlockInfo

	// Use maps block ID to its USE set (variables read in the block)
	Use map[string][]string

	// Def maps block ID to its DEF set (variables written in the block)
	Def map[string][]string

	// Iterations is the number of sweeps performed
	Iterations int

	// Converged is false when the iteration cap was reached
	Converged bool

	// Warnings collects non-fatal findings
	Warnings []string
}

// IsLiveAtEntry returns true if the variable is live at block entry.
func (r *Result) IsLiveAtEntry(blockID, varName string) bool {
	info, ok := r.Blocks[blockID]
	if !ok {
		return false
	}
	return containsString(info.In, varName)
}

// IsLiveAtExit returns true if the variable is live at block exit.
func (r *Result) IsLiveAtExit(blockID, varName string) bool {
	info, ok := r.Blocks[blockID]
	if !ok {
		return false
	}
	return containsString(info.Out, varName)
}

// Solve computes liveness for every block of the function.
//
// Transfer:  IN(B) = USE(B) ∪ (OUT(B) \ DEF(B))
// Meet:      OUT(B) = ⋃ IN(S) over successors S
//
// USE(B) is the union of every variable read anywhere in the block,
// including reads preceded by a local write. This matches the
// engine's historical behavior; the classical upward-exposed-uses
// definition would be tighter.
//
// Blocks are visited in reverse insertion order. Within one sweep all
// transfers read the IN/OUT values from the start of the sweep;
// updates are committed atomically at sweep end. The sweep count is
// capped at 10×|blocks|; on saturation a warning is recorded and the
// last computed state is returned.
func Solve(fn *cfg.FunctionCFG) *Result {
	result := &Result{
		FunctionName: fn.Name,
		Blocks:       make(map[string]*BlockInfo),
		Use:          make(map[string][]string),
		Def:          make(map[string][]string),
		Converged:    true,
	}

	use := make(map[string]map[string]bool)
	def := make(map[string]map[string]bool)
	in := make(map[string]map[string]bool)
	out := make(map[string]map[string]bool)

	for _, block := range fn.BlocksInOrder() {
		useSet := make(map[string]bool)
		defSet := make(map[string]bool)
		for _, stmt := range block.Statements {
			for _, v := range stmt.Used {
				useSet[v] = true
			}
			for _, v := range stmt.Defined {
				defSet[v] = true
			}
		}
		use[block.ID] = useSet
		def[block.ID] = defSet
		in[block.ID] = make(map[string]bool)
		out[block.ID] = make(map[string]bool)
	}

	reverseOrder := make([]string, len(fn.BlockOrder))
	for i, id := range fn.BlockOrder {
		reverseOrder[len(fn.BlockOrder)-1-i] = id
	}

	maxSweeps := 10 * len(fn.BlockOrder)
	if maxSweeps == 0 {
		maxSweeps = 1
	}

	for sweep := 0; ; sweep++ {
		if sweep >= maxSweeps {
			result.Converged = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"function %s: liveness did not converge after %d sweeps", fn.Name, maxSweeps))
			break
		}
		result.Iterations = sweep + 1

		// Compute every block's next IN/OUT against the sweep snapshot.
		nextIn := make(map[string]map[string]bool, len(reverseOrder))
		nextOut := make(map[string]map[string]bool, len(reverseOrder))
		for _, id := range reverseOrder {
			block := fn.Blocks[id]

			newOut := make(map[string]bool)
			for _, succID := range block.Successors {
				succIn, ok := in[succID]
				if !ok {
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"function %s: block %s has unresolved successor %s, skipped", fn.Name, id, succID))
					continue
				}
				for v := range succIn {
					newOut[v] = true
				}
			}

			newIn := make(map[string]bool)
			for v := range use[id] {
				newIn[v] = true
			}
			for v := range newOut {
				if !def[id][v] {
					newIn[v] = true
				}
			}

			nextIn[id] = newIn
			nextOut[id] = newOut
		}

		// Commit atomically and test for a fixed point.
		changed := false
		for _, id := range reverseOrder {
			if !setsEqual(in[id], nextIn[id]) || !setsEqual(out[id], nextOut[id]) {
				changed = true
			}
			in[id] = nextIn[id]
			out[id] = nextOut[id]
		}
		if !changed {
			break
		}
	}

	for _, id := range fn.BlockOrder {
		result.Blocks[id] = &BlockInfo{In: sortedSet(in[id]), Out: sortedSet(out[id])}
		result.Use[id] = sortedSet(use[id])
		result.Def[id] = sortedSet(def[id])
	}
	return result
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

func sortedSet(set map[string]bool) []string {
	items := make([]string, 0, len(set))
	for v := range set {
		items = append(items, v)
	}
	sort.Strings(items)
	return items
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
