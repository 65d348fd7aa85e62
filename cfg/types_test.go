package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildDiamond() *FunctionCFG {
	fn := NewFunctionCFG("diamond")
	fn.AddBlock(&BasicBlock{ID: "1", Label: "B1", IsEntry: true})
	fn.AddBlock(&BasicBlock{ID: "2", Label: "B2"})
	fn.AddBlock(&BasicBlock{ID: "3", Label: "B3"})
	fn.AddBlock(&BasicBlock{ID: "4", Label: "B4", IsExit: true})
	fn.AddEdge("1", "2")
	fn.AddEdge("1", "3")
	fn.AddEdge("2", "4")
	fn.AddEdge("3", "4")
	return fn
}

func TestAddEdge_Bidirectional(t *testing.T) {
	fn := buildDiamond()

	b1, _ := fn.GetBlock("1")
	b2, _ := fn.GetBlock("2")
	assert.Contains(t, b1.Successors, "2")
	assert.Contains(t, b2.Predecessors, "1")
}

func TestAddEdge_NoDuplicates(t *testing.T) {
	fn := buildDiamond()
	fn.AddEdge("1", "2")

	b1, _ := fn.GetBlock("1")
	assert.Equal(t, []string{"2", "3"}, b1.Successors)
}

func TestAddEdge_UnknownBlockIgnored(t *testing.T) {
	fn := buildDiamond()
	fn.AddEdge("1", "99")

	b1, _ := fn.GetBlock("1")
	assert.NotContains(t, b1.Successors, "99")
}

func TestBlocksInOrder_InsertionOrder(t *testing.T) {
	fn := buildDiamond()

	var ids []string
	for _, block := range fn.BlocksInOrder() {
		ids = append(ids, block.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
}

func TestEntryExitDetection(t *testing.T) {
	fn := buildDiamond()
	assert.Equal(t, "1", fn.EntryBlockID)
	assert.Equal(t, "4", fn.ExitBlockID)
}

func TestValidate_WellFormed(t *testing.T) {
	fn := buildDiamond()
	assert.Empty(t, fn.Validate())
	assert.True(t, fn.IsValid())
}

func TestValidate_EntryWithPredecessors(t *testing.T) {
	fn := buildDiamond()
	fn.AddEdge("4", "1")
	// The exit gained a successor and the entry a predecessor.
	findings := fn.Validate()
	assert.Len(t, findings, 2)
}

func TestValidate_DanglingSuccessor(t *testing.T) {
	fn := buildDiamond()
	b2, _ := fn.GetBlock("2")
	b2.Successors = append(b2.Successors, "missing")

	findings := fn.Validate()
	assert.Len(t, findings, 1)
	assert.Contains(t, findings[0], "unknown successor")
}

func TestValidate_BidirectionalInconsistency(t *testing.T) {
	fn := buildDiamond()
	b3, _ := fn.GetBlock("3")
	// Remove the back-reference without touching b1's successor list.
	b3.Predecessors = []string{}

	findings := fn.Validate()
	assert.Len(t, findings, 1)
	assert.Contains(t, findings[0], "does not list")
}

func TestStatementSets(t *testing.T) {
	stmt := &Statement{ID: "s0"}
	stmt.AddDefined("x")
	stmt.AddDefined("x")
	stmt.AddUsed("y")

	assert.Equal(t, []string{"x"}, stmt.Defined)
	assert.True(t, stmt.Defines("x"))
	assert.True(t, stmt.UsesVar("y"))
	assert.False(t, stmt.UsesVar("x"))
}

func TestTranslationUnit_Order(t *testing.T) {
	tu := NewTranslationUnit("a.json")
	tu.AddFunction(NewFunctionCFG("main"))
	tu.AddFunction(NewFunctionCFG("helper"))

	var names []string
	for _, fn := range tu.FunctionsInOrder() {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"main", "helper"}, names)
}

func TestComputeDominators_Diamond(t *testing.T) {
	fn := buildDiamond()
	doms := fn.ComputeDominators()

	assert.ElementsMatch(t, []string{"1"}, doms["1"])
	assert.ElementsMatch(t, []string{"1", "2"}, doms["2"])
	// The join block is dominated only by the entry and itself.
	assert.ElementsMatch(t, []string{"1", "4"}, doms["4"])
	assert.True(t, fn.Dominates("1", "4", doms))
	assert.False(t, fn.Dominates("2", "4", doms))
}
