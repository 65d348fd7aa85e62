package cfg

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// The on-wire CFG representation is a JSON document emitted by the
// external Clang-based exporter: a translation-unit object whose
// "functions" field maps function names to block arrays. Block IDs may
// be integers or strings; they are normalized to strings here.

type jsonTranslationUnit struct {
	Functions map[string]jsonFunction `json:"functions"`
}

type jsonFunction struct {
	Name       string      `json:"name"`
	Blocks     []jsonBlock `json:"blocks"`
	Range      *Range      `json:"range,omitempty"`
	Parameters []string    `json:"parameters,omitempty"`
	Signature  string      `json:"signature,omitempty"`
}

type jsonBlock struct {
	ID           json.RawMessage   `json:"id"`
	Label        string            `json:"label"`
	IsEntry      bool              `json:"isEntry"`
	IsExit       bool              `json:"isExit"`
	Successors   []json.RawMessage `json:"successors"`
	Predecessors []json.RawMessage `json:"predecessors"`
	Statements   []jsonStatement   `json:"statements"`
}

type jsonStatement struct {
	Text  string `json:"text"`
	Range *Range `json:"range,omitempty"`
}

// LoadTranslationUnit decodes exporter JSON into a TranslationUnit.
// Functions are ingested in sorted name order so analysis results are
// identical across runs regardless of JSON map ordering.
//
// Returns the translation unit, a list of warnings (missing
// parameters, dangling edges normalized away), and an error only when
// the document itself cannot be decoded.
func LoadTranslationUnit(data []byte, file string) (*TranslationUnit, []string, error) {
	var doc jsonTranslationUnit
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decoding CFG document %s: %w", file, err)
	}

	tu := NewTranslationUnit(file)
	var warnings []string

	names := make([]string, 0, len(doc.Functions))
	for name := range doc.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		jf := doc.Functions[name]
		if jf.Name == "" {
			jf.Name = name
		}
		fn, fnWarnings := buildFunction(jf)
		warnings = append(warnings, fnWarnings...)
		tu.AddFunction(fn)
	}

	return tu, warnings, nil
}

// buildFunction converts one decoded function into a FunctionCFG.
func buildFunction(jf jsonFunction) (*FunctionCFG, []string) {
	fn := NewFunctionCFG(jf.Name)
	fn.Range = jf.Range
	var warnings []string

	stmtIndex := 0
	for _, jb := range jf.Blocks {
		block := &BasicBlock{
			ID:      normalizeID(jb.ID),
			Label:   jb.Label,
			IsEntry: jb.IsEntry,
			IsExit:  jb.IsExit,
		}
		if block.Label == "" {
			block.Label = "B" + block.ID
		}
		for _, js := range jb.Statements {
			stmt := &Statement{
				ID:    fmt.Sprintf("s%d", stmtIndex),
				Type:  Classify(js.Text),
				Text:  js.Text,
				Range: js.Range,
			}
			stmtIndex++
			block.Statements = append(block.Statements, stmt)
		}
		fn.AddBlock(block)

		// Edge lists are wired after all blocks exist; remember the raw
		// references on the block for the second pass below.
		for _, succ := range jb.Successors {
			block.Successors = append(block.Successors, normalizeID(succ))
		}
		for _, pred := range jb.Predecessors {
			block.Predecessors = append(block.Predecessors, normalizeID(pred))
		}
	}

	// Drop dangling references so solvers never chase missing blocks.
	for _, block := range fn.BlocksInOrder() {
		block.Successors, warnings = pruneDangling(fn, jf.Name, block.ID, "successor", block.Successors, warnings)
		block.Predecessors, warnings = pruneDangling(fn, jf.Name, block.ID, "predecessor", block.Predecessors, warnings)
	}

	resolveEntryExit(fn)
	warnings = append(warnings, resolveParameters(fn, jf)...)
	return fn, warnings
}

// pruneDangling removes edge references that resolve to no block.
func pruneDangling(fn *FunctionCFG, fnName, blockID, kind string, refs []string, warnings []string) ([]string, []string) {
	kept := refs[:0]
	for _, ref := range refs {
		if _, ok := fn.Blocks[ref]; ok {
			kept = append(kept, ref)
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"function %s: block %s references unknown %s %s, dropped", fnName, blockID, kind, ref))
	}
	return kept, warnings
}

// resolveEntryExit falls back to structural detection when the
// exporter did not mark entry/exit blocks: a block with no
// predecessors is the entry, a block with no successors is the exit.
func resolveEntryExit(fn *FunctionCFG) {
	if fn.EntryBlockID == "" {
		for _, block := range fn.BlocksInOrder() {
			if len(block.Predecessors) == 0 {
				fn.EntryBlockID = block.ID
				block.IsEntry = true
				break
			}
		}
	}
	if fn.ExitBlockID == "" {
		for _, block := range fn.BlocksInOrder() {
			if len(block.Successors) == 0 {
				fn.ExitBlockID = block.ID
				block.IsExit = true
			}
		}
	}
}

// resolveParameters fills fn.Parameters from, in order: the explicit
// parameter list, the signature field, or the first statement of the
// entry block when it looks like a signature.
func resolveParameters(fn *FunctionCFG, jf jsonFunction) []string {
	if len(jf.Parameters) > 0 {
		fn.Parameters = jf.Parameters
		return nil
	}
	if jf.Signature != "" {
		if params, ok := DeriveParameters(jf.Signature, fn.Name); ok {
			fn.Parameters = params
			return nil
		}
	}
	if entry := fn.EntryBlock(); entry != nil && len(entry.Statements) > 0 {
		first := entry.Statements[0].Text
		if strings.Contains(first, fn.Name) {
			if params, ok := DeriveParameters(first, fn.Name); ok {
				fn.Parameters = params
				return nil
			}
		}
	}
	return []string{fmt.Sprintf(
		"function %s: could not locate signature, parameter list is empty", fn.Name)}
}

// normalizeID converts an integer or string JSON block ID to a string.
func normalizeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10)
	}
	return strings.Trim(string(raw), `"`)
}
