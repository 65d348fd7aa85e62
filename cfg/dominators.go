package cfg

// Dominator computation over the function CFG. A block X dominates
// block Y if every path from entry to Y passes through X. The security
// detector consults dominators to decide whether a bounds check always
// executes before an unsafe buffer operation.

// ComputeDominators calculates the dominator sets for every block.
// Returns a map from block ID to the list of its dominators, the
// block itself included. The lists are not kept in block insertion
// order.
//
// Algorithm: iterative dataflow.
//  1. Entry dominates only itself; every other block starts dominated
//     by all blocks.
//  2. Until a fixed point: Dom(B) = {B} ∪ ⋂ Dom(P) over predecessors P.
func (fc *FunctionCFG) ComputeDominators() map[string][]string {
	dominators := make(map[string][]string, len(fc.Blocks))

	allIDs := append([]string{}, fc.BlockOrder...)
	for _, id := range fc.BlockOrder {
		if id == fc.EntryBlockID {
			dominators[id] = []string{id}
		} else {
			dominators[id] = append([]string{}, allIDs...)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, id := range fc.BlockOrder {
			if id == fc.EntryBlockID {
				continue
			}
			block := fc.Blocks[id]

			var next []string
			if len(block.Predecessors) > 0 {
				next = append([]string{}, dominators[block.Predecessors[0]]...)
				for _, predID := range block.Predecessors[1:] {
					next = intersectOrdered(next, dominators[predID])
				}
			}
			if !containsString(next, id) {
				next = append(next, id)
			}

			if !stringSlicesEqual(dominators[id], next) {
				dominators[id] = next
				changed = true
			}
		}
	}

	return dominators
}

// Dominates returns true if block dominator dominates block dominated.
func (fc *FunctionCFG) Dominates(dominator, dominated string, dominators map[string][]string) bool {
	return containsString(dominators[dominated], dominator)
}

func intersectOrdered(a, b []string) []string {
	result := []string{}
	for _, item := range a {
		if containsString(b, item) {
			result = append(result, item)
		}
	}
	return result
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
