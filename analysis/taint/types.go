// Package taint implements forward worklist taint propagation over a
// function CFG, with source seeding, sanitizer handling, control-
// dependent (implicit) flow and sink vulnerability detection.
package taint

import (
	"sort"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

// Label tags the provenance of a taint fact.
type Label string

const (
	LabelUserInput        Label = "UserInput"
	LabelFileContent      Label = "FileContent"
	LabelNetworkData      Label = "NetworkData"
	LabelEnvironment      Label = "Environment"
	LabelCommandLine      Label = "CommandLine"
	LabelDatabase         Label = "Database"
	LabelConfiguration    Label = "Configuration"
	LabelDerived          Label = "Derived"
	LabelControlDependent Label = "ControlDependent"
)

// LabelForCategory maps a source category to its provenance label.
func LabelForCategory(category registry.TaintSourceCategory) Label {
	switch category {
	case registry.CategoryUserInput:
		return LabelUserInput
	case registry.CategoryFileIO:
		return LabelFileContent
	case registry.CategoryNetwork:
		return LabelNetworkData
	case registry.CategoryEnvironment:
		return LabelEnvironment
	case registry.CategoryCommandLine:
		return LabelCommandLine
	case registry.CategoryDatabase:
		return LabelDatabase
	case registry.CategoryConfiguration:
		return LabelConfiguration
	default:
		return LabelDerived
	}
}

// SensitivityLevel selects how aggressively taint is propagated.
type SensitivityLevel string

const (
	SensitivityMinimal      SensitivityLevel = "minimal"
	SensitivityConservative SensitivityLevel = "conservative"
	SensitivityBalanced     SensitivityLevel = "balanced"
	SensitivityPrecise      SensitivityLevel = "precise"
	SensitivityMaximum      SensitivityLevel = "maximum"
)

// sensitivityRank orders levels so feature gates can compare them.
func sensitivityRank(level SensitivityLevel) int {
	switch level {
	case SensitivityMinimal:
		return 1
	case SensitivityConservative:
		return 2
	case SensitivityBalanced:
		return 3
	case SensitivityPrecise:
		return 4
	case SensitivityMaximum:
		return 5
	default:
		return 3
	}
}

// AtLeast returns true when level enables features gated at minimum.
func (level SensitivityLevel) AtLeast(minimum SensitivityLevel) bool {
	return sensitivityRank(level) >= sensitivityRank(minimum)
}

// ParseSensitivity converts a CLI string to a SensitivityLevel,
// defaulting to balanced for unknown values.
func ParseSensitivity(value string) SensitivityLevel {
	switch strings.ToLower(value) {
	case "minimal":
		return SensitivityMinimal
	case "conservative":
		return SensitivityConservative
	case "balanced":
		return SensitivityBalanced
	case "precise":
		return SensitivityPrecise
	case "maximum":
		return SensitivityMaximum
	default:
		return SensitivityBalanced
	}
}

// SanitizationPoint records one sanitizer application on a fact's path.
type SanitizationPoint struct {
	BlockID     string
	StatementID string
	Range       *cfg.Range
	Sanitizer   string
	Type        registry.SanitizationType
}

// Fact is the taint information of one variable at one block for one
// source description.
type Fact struct {
	// Variable is the tainted variable name
	Variable string

	// Source is the textual source description (e.g. "scanf", "argv")
	Source string

	// Tainted is false once a taint-removing sanitizer applied
	Tainted bool

	// Path is the ordered propagation path of function-qualified block
	// labels (e.g. "main:B1")
	Path []string

	// Category is the source category, if known
	Category registry.TaintSourceCategory

	// TaintType is the shape of the tainted value, if known
	TaintType registry.TaintType

	// SourceFunction is the function where the taint originated
	SourceFunction string

	// OriginBlock, OriginStatement and OriginRange locate the source site
	OriginBlock     string
	OriginStatement string
	OriginRange     *cfg.Range

	// Sanitized is true once a taint-removing sanitizer applied; a
	// sanitizer that keeps the taint only adds a sanitization point
	Sanitized bool

	// SanitizationPoints lists every sanitizer application
	SanitizationPoints []SanitizationPoint

	// Labels tag the fact's provenance
	Labels []Label

	// Context is the call-site context string. The intra-procedural
	// analyzer records it only under maximum sensitivity (k=1:
	// "function:block"); the context-sensitive inter-procedural solver
	// records its call-stack context ("f1 → f2") at any level
	Context string
}

// HasLabel returns true if the fact carries the given label.
func (f *Fact) HasLabel(label Label) bool {
	for _, l := range f.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel appends a label if not already present.
func (f *Fact) AddLabel(label Label) {
	if !f.HasLabel(label) {
		f.Labels = append(f.Labels, label)
	}
}

// clone copies the fact including its path, labels and points.
func (f *Fact) clone() *Fact {
	c := *f
	c.Path = append([]string{}, f.Path...)
	c.Labels = append([]Label{}, f.Labels...)
	c.SanitizationPoints = append([]SanitizationPoint{}, f.SanitizationPoints...)
	return &c
}

// Map holds every taint fact of one function, indexed by block and
// variable. Fact identity is (block, variable, source).
type Map struct {
	// FunctionName qualifies block labels in propagation paths
	FunctionName string

	// ByBlock maps block ID → variable → facts
	ByBlock map[string]map[string][]*Fact

	keys map[string]bool
}

// NewMap creates an empty taint map for a function.
func NewMap(functionName string) *Map {
	return &Map{
		FunctionName: functionName,
		ByBlock:      make(map[string]map[string][]*Fact),
		keys:         make(map[string]bool),
	}
}

func factKey(blockID, variable, source string) string {
	return blockID + "\x00" + variable + "\x00" + source
}

// Add inserts a fact unless the (block, variable, source) triple is
// already present. Returns true when the fact was inserted.
func (m *Map) Add(blockID string, fact *Fact) bool {
	key := factKey(blockID, fact.Variable, fact.Source)
	if m.keys[key] {
		return false
	}
	m.keys[key] = true
	vars, ok := m.ByBlock[blockID]
	if !ok {
		vars = make(map[string][]*Fact)
		m.ByBlock[blockID] = vars
	}
	vars[fact.Variable] = append(vars[fact.Variable], fact)
	return true
}

// Has returns true when the (block, variable, source) triple exists.
func (m *Map) Has(blockID, variable, source string) bool {
	return m.keys[factKey(blockID, variable, source)]
}

// Get returns the facts for a variable at a block.
func (m *Map) Get(blockID, variable string) []*Fact {
	vars, ok := m.ByBlock[blockID]
	if !ok {
		return nil
	}
	return vars[variable]
}

// FactsFor returns every fact of a variable across all blocks, in
// sorted block order.
func (m *Map) FactsFor(variable string) []*Fact {
	var facts []*Fact
	for _, blockID := range m.BlockIDs() {
		facts = append(facts, m.ByBlock[blockID][variable]...)
	}
	return facts
}

// IsTainted returns true if the variable carries active taint in any
// block.
func (m *Map) IsTainted(variable string) bool {
	for _, facts := range m.ByBlock {
		for _, fact := range facts[variable] {
			if fact.Tainted {
				return true
			}
		}
	}
	return false
}

// IsTaintedAt returns true if the variable carries active taint at the
// given block.
func (m *Map) IsTaintedAt(blockID, variable string) bool {
	for _, fact := range m.Get(blockID, variable) {
		if fact.Tainted {
			return true
		}
	}
	return false
}

// TaintedFacts returns the active facts of a variable across blocks.
func (m *Map) TaintedFacts(variable string) []*Fact {
	var facts []*Fact
	for _, blockID := range m.BlockIDs() {
		for _, fact := range m.ByBlock[blockID][variable] {
			if fact.Tainted {
				facts = append(facts, fact)
			}
		}
	}
	return facts
}

// BlockIDs returns the block IDs carrying facts, sorted.
func (m *Map) BlockIDs() []string {
	ids := make([]string, 0, len(m.ByBlock))
	for id := range m.ByBlock {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Variables returns every variable carrying facts, sorted.
func (m *Map) Variables() []string {
	seen := make(map[string]bool)
	for _, vars := range m.ByBlock {
		for v := range vars {
			seen[v] = true
		}
	}
	names := make([]string, 0, len(seen))
	for v := range seen {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of facts in the map.
func (m *Map) Size() int {
	return len(m.keys)
}
