package taint

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
)

// Implicit (control-dependent) flow: when the condition of a branch
// reads tainted data, every variable written in a block controlled by
// that branch is information-dependent on the taint.

const controlDepSweepCap = 10

// propagateControlDependent implements phase 3. Conservative and
// balanced levels treat every block reachable from a branch as
// control-dependent; precise and maximum restrict that to blocks
// reachable from some but not all branches, which excludes the
// post-dominating join blocks. Balanced and above iterate so taint
// introduced into one conditional's body flows into nested
// conditionals; conservative runs a single sweep.
func (a *Analyzer) propagateControlDependent(fn *cfg.FunctionCFG, result *Result) {
	dependents := a.controlDependents(fn)
	if len(dependents) == 0 {
		return
	}

	sweeps := controlDepSweepCap
	if !a.level.AtLeast(SensitivityBalanced) {
		sweeps = 1
	}

	for sweep := 0; sweep < sweeps; sweep++ {
		result.Iterations = sweep + 1
		changed := false

		for _, condID := range fn.BlockOrder {
			dependentIDs, ok := dependents[condID]
			if !ok {
				continue
			}
			condBlock := fn.Blocks[condID]

			for _, condVar := range a.conditionVariables(condBlock) {
				facts := result.Taint.TaintedFacts(condVar)
				if len(facts) == 0 {
					continue
				}
				parent := facts[0]

				for _, depID := range dependentIDs {
					depBlock, exists := fn.Blocks[depID]
					if !exists {
						result.Warnings = append(result.Warnings, fmt.Sprintf(
							"function %s: control-dependent block %s not found, skipped", fn.Name, depID))
						continue
					}
					if a.taintDependentBlock(fn, result, parent, condBlock, depBlock) {
						changed = true
					}
				}
			}
		}

		if !changed {
			return
		}
		if sweep == sweeps-1 && sweeps == controlDepSweepCap {
			result.Converged = false
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"function %s: control-dependent taint did not stabilize after %d sweeps", fn.Name, sweeps))
		}
	}
}

// taintDependentBlock marks every variable defined in the dependent
// block as control-dependent on the parent fact. Returns true when a
// new fact was added.
func (a *Analyzer) taintDependentBlock(fn *cfg.FunctionCFG, result *Result, parent *Fact, condBlock, depBlock *cfg.BasicBlock) bool {
	changed := false
	for _, stmt := range depBlock.Statements {
		for _, defined := range stmt.Defined {
			target := a.normalizeVar(defined)
			if result.Taint.Has(depBlock.ID, target, parent.Source) {
				// Preserve the existing fact, only add the label.
				for _, fact := range result.Taint.Get(depBlock.ID, target) {
					if fact.Source == parent.Source {
						fact.AddLabel(LabelControlDependent)
					}
				}
				continue
			}
			implicit := parent.clone()
			implicit.Variable = target
			implicit.Tainted = true
			implicit.Path = extendPath(parent.Path, qualify(fn, depBlock))
			implicit.AddLabel(LabelControlDependent)
			if a.level == SensitivityMaximum {
				implicit.Context = qualify(fn, condBlock)
			}
			if result.Taint.Add(depBlock.ID, implicit) {
				changed = true
			}
		}
	}
	return changed
}

// conditionVariables returns the variables read by the block's
// conditional statements; blocks whose branch decision is carried by
// their last statement fall back to that statement's uses.
func (a *Analyzer) conditionVariables(block *cfg.BasicBlock) []string {
	var vars []string
	seen := make(map[string]bool)
	add := func(names []string) {
		for _, name := range names {
			normalized := a.normalizeVar(name)
			if !seen[normalized] {
				seen[normalized] = true
				vars = append(vars, normalized)
			}
		}
	}

	for _, stmt := range block.Statements {
		if stmt.Type == cfg.StatementConditional || stmt.Type == cfg.StatementLoop {
			add(stmt.Used)
		}
	}
	if len(vars) == 0 && len(block.Statements) > 0 {
		add(block.Statements[len(block.Statements)-1].Used)
	}
	return vars
}

// controlDependents maps each conditional block (two or more
// successors) to the blocks control-dependent on it.
func (a *Analyzer) controlDependents(fn *cfg.FunctionCFG) map[string][]string {
	dependents := make(map[string][]string)

	for _, condID := range fn.BlockOrder {
		condBlock := fn.Blocks[condID]
		if len(condBlock.Successors) < 2 {
			continue
		}

		branchReach := make([]map[string]bool, len(condBlock.Successors))
		for i, succID := range condBlock.Successors {
			branchReach[i] = reachableFrom(fn, succID)
		}

		var deps []string
		if a.level.AtLeast(SensitivityPrecise) {
			// Reachable from some but not all branches: blocks every
			// branch reaches post-dominate the condition and are not
			// controlled by it.
			for _, id := range fn.BlockOrder {
				if id == condID {
					continue
				}
				count := 0
				for _, reach := range branchReach {
					if reach[id] {
						count++
					}
				}
				if count > 0 && count < len(branchReach) {
					deps = append(deps, id)
				}
			}
		} else {
			for _, id := range fn.BlockOrder {
				if id == condID {
					continue
				}
				for _, reach := range branchReach {
					if reach[id] {
						deps = append(deps, id)
						break
					}
				}
			}
		}

		if len(deps) > 0 {
			dependents[condID] = deps
		}
	}

	return dependents
}

// reachableFrom computes the block IDs reachable from start, start
// included.
func reachableFrom(fn *cfg.FunctionCFG, start string) map[string]bool {
	reached := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		block, ok := fn.Blocks[id]
		if !ok {
			continue
		}
		reached[id] = true
		stack = append(stack, block.Successors...)
	}
	return reached
}
