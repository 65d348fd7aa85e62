package cfg

import "fmt"

// Validate checks the structural invariants of the CFG and returns a
// list of human-readable findings. An empty list means the CFG is
// well-formed. The analysis engine may still run on an invalid CFG;
// callers decide whether to discard flagged functions.
//
// Invariants checked:
//   - entry and exit blocks exist
//   - the entry block has zero predecessors
//   - the exit block has zero successors
//   - every predecessor/successor reference resolves to a known block
//   - the edge relation is bidirectionally consistent
func (fc *FunctionCFG) Validate() []string {
	var findings []string

	entry, hasEntry := fc.Blocks[fc.EntryBlockID]
	if fc.EntryBlockID == "" || !hasEntry {
		findings = append(findings, fmt.Sprintf("function %s: missing entry block", fc.Name))
	} else if len(entry.Predecessors) > 0 {
		findings = append(findings, fmt.Sprintf(
			"function %s: entry block %s has %d predecessors, expected 0",
			fc.Name, entry.ID, len(entry.Predecessors)))
	}

	exit, hasExit := fc.Blocks[fc.ExitBlockID]
	if fc.ExitBlockID == "" || !hasExit {
		findings = append(findings, fmt.Sprintf("function %s: missing exit block", fc.Name))
	} else if len(exit.Successors) > 0 {
		findings = append(findings, fmt.Sprintf(
			"function %s: exit block %s has %d successors, expected 0",
			fc.Name, exit.ID, len(exit.Successors)))
	}

	for _, block := range fc.BlocksInOrder() {
		for _, succID := range block.Successors {
			succ, ok := fc.Blocks[succID]
			if !ok {
				findings = append(findings, fmt.Sprintf(
					"function %s: block %s lists unknown successor %s",
					fc.Name, block.ID, succID))
				continue
			}
			if !containsString(succ.Predecessors, block.ID) {
				findings = append(findings, fmt.Sprintf(
					"function %s: block %s lists successor %s, but %s does not list %s as predecessor",
					fc.Name, block.ID, succID, succID, block.ID))
			}
		}
		for _, predID := range block.Predecessors {
			pred, ok := fc.Blocks[predID]
			if !ok {
				findings = append(findings, fmt.Sprintf(
					"function %s: block %s lists unknown predecessor %s",
					fc.Name, block.ID, predID))
				continue
			}
			if !containsString(pred.Successors, block.ID) {
				findings = append(findings, fmt.Sprintf(
					"function %s: block %s lists predecessor %s, but %s does not list %s as successor",
					fc.Name, block.ID, predID, predID, block.ID))
			}
		}
	}

	return findings
}

// IsValid returns true if Validate reports no findings.
func (fc *FunctionCFG) IsValid() bool {
	return len(fc.Validate()) == 0
}
