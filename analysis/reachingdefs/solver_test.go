package reachingdefs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
)

// loop function: parameter n, body block L with self-loop incrementing i.
// E → L, L → L, L → X.
func buildSelfLoop() *cfg.FunctionCFG {
	fn := cfg.NewFunctionCFG("loop")
	fn.Parameters = []string{"n"}
	fn.AddBlock(&cfg.BasicBlock{ID: "E", Label: "entry", IsEntry: true})
	fn.AddBlock(&cfg.BasicBlock{ID: "L", Label: "body", Statements: []*cfg.Statement{
		{ID: "s0", Type: cfg.StatementAssignment, Text: "i = i + 1;", Defined: []string{"i"}, Used: []string{"i"}},
	}})
	fn.AddBlock(&cfg.BasicBlock{ID: "X", Label: "exit", IsExit: true})
	fn.AddEdge("E", "L")
	fn.AddEdge("L", "L")
	fn.AddEdge("L", "X")
	return fn
}

func TestSolve_ParameterDefinitions(t *testing.T) {
	fn := buildSelfLoop()
	result := Solve(fn)

	// One synthetic parameter definition plus the write of i.
	assert.Len(t, result.Definitions, 2)
	assert.Equal(t, "p0", result.Definitions[0].ID)
	assert.True(t, result.Definitions[0].IsParameter)
	assert.Equal(t, "n", result.Definitions[0].Variable)
	assert.Equal(t, "d0", result.Definitions[1].ID)
	assert.Equal(t, "i", result.Definitions[1].Variable)
}

func TestSolve_LoopInAndOut(t *testing.T) {
	fn := buildSelfLoop()
	result := Solve(fn)

	// At L, IN contains both the parameter definition of n and the
	// definition of i generated in L itself (around the back edge).
	inN := result.ReachingAt("L", "n")
	assert.Len(t, inN, 1)
	assert.Equal(t, "p0", inN[0].ID)

	inI := result.ReachingAt("L", "i")
	assert.Len(t, inI, 1)
	assert.Equal(t, "d0", inI[0].ID)

	// OUT of L carries the definition of i with a compacted cyclic path.
	outI := result.OutAt("L", "i")
	assert.Len(t, outI, 1)
	hasMarker := false
	for _, elem := range outI[0].Path {
		if strings.HasSuffix(elem, "]*") {
			hasMarker = true
		}
	}
	assert.True(t, hasMarker, "expected a cycle marker in path %v", outI[0].Path)

	assert.True(t, result.Converged)
}

func TestSolve_GenLastWriteWins(t *testing.T) {
	fn := cfg.NewFunctionCFG("two")
	fn.AddBlock(&cfg.BasicBlock{ID: "1", Label: "B1", IsEntry: true, IsExit: true, Statements: []*cfg.Statement{
		{ID: "s0", Type: cfg.StatementAssignment, Text: "x = 1;", Defined: []string{"x"}},
		{ID: "s1", Type: cfg.StatementAssignment, Text: "x = 2;", Defined: []string{"x"}},
	}})

	result := Solve(fn)
	gen := result.Blocks["1"].Gen["x"]
	assert.Len(t, gen, 1)
	assert.Equal(t, "d1", gen[0].ID)
	assert.Equal(t, "s1", gen[0].StatementID)
}

func TestSolve_KillAcrossBlocks(t *testing.T) {
	// B1: x = 1;  B2: x = 2;  B1 → B2 → B3
	fn := cfg.NewFunctionCFG("kill")
	fn.AddBlock(&cfg.BasicBlock{ID: "1", Label: "B1", IsEntry: true, Statements: []*cfg.Statement{
		{ID: "s0", Type: cfg.StatementAssignment, Text: "x = 1;", Defined: []string{"x"}},
	}})
	fn.AddBlock(&cfg.BasicBlock{ID: "2", Label: "B2", Statements: []*cfg.Statement{
		{ID: "s1", Type: cfg.StatementAssignment, Text: "x = 2;", Defined: []string{"x"}},
	}})
	fn.AddBlock(&cfg.BasicBlock{ID: "3", Label: "B3", IsExit: true})
	fn.AddEdge("1", "2")
	fn.AddEdge("2", "3")

	result := Solve(fn)

	// B2 kills B1's definition of x.
	kill := result.Blocks["2"].Kill["x"]
	assert.Len(t, kill, 1)
	assert.Equal(t, "d0", kill[0].ID)

	// Only d1 reaches B3.
	inX := result.ReachingAt("3", "x")
	assert.Len(t, inX, 1)
	assert.Equal(t, "d1", inX[0].ID)

	// The killed fact is flagged in B2's IN.
	for _, def := range result.Blocks["2"].In["x"] {
		if def.ID == "d0" {
			assert.True(t, def.Killed)
		}
	}
}

func TestSolve_FixedPointInvariant(t *testing.T) {
	fn := buildSelfLoop()
	result := Solve(fn)

	// OUT(B) = GEN(B) ∪ (IN(B) \ KILL(B)) by definition-ID sets.
	for _, id := range fn.BlockOrder {
		info := result.Blocks[id]
		expected := map[string]bool{}
		for _, defs := range info.Gen {
			for _, def := range defs {
				expected[def.ID] = true
			}
		}
		killed := map[string]bool{}
		for _, defs := range info.Kill {
			for _, def := range defs {
				killed[def.ID] = true
			}
		}
		for _, defs := range info.In {
			for _, def := range defs {
				if !killed[def.ID] {
					expected[def.ID] = true
				}
			}
		}
		actual := map[string]bool{}
		for _, defs := range info.Out {
			for _, def := range defs {
				actual[def.ID] = true
			}
		}
		assert.Equal(t, expected, actual, "block %s", id)
	}
}

func TestSolve_PathEdgesAreReal(t *testing.T) {
	fn := buildSelfLoop()
	result := Solve(fn)

	// Consecutive plain path elements must be CFG edges.
	for _, id := range fn.BlockOrder {
		for _, defs := range result.Blocks[id].Out {
			for _, def := range defs {
				var prev string
				for _, elem := range def.Path {
					if strings.HasPrefix(elem, "[") {
						prev = ""
						continue
					}
					if prev != "" {
						from := fn.Blocks[prev]
						assert.Contains(t, from.Successors, elem,
							"path %v has non-edge %s→%s", def.Path, prev, elem)
					}
					prev = elem
				}
			}
		}
	}
}

func TestSolve_OriginBlockImmutable(t *testing.T) {
	fn := buildSelfLoop()
	result := Solve(fn)

	for _, defs := range result.Blocks["X"].In {
		for _, def := range defs {
			if def.ID == "d0" {
				assert.Equal(t, "L", def.OriginBlock)
			}
		}
	}
}

func TestSolve_Idempotent(t *testing.T) {
	fn := buildSelfLoop()
	first := Solve(fn)
	second := Solve(fn)

	for _, id := range fn.BlockOrder {
		assert.Equal(t, first.Blocks[id].In, second.Blocks[id].In, "block %s IN", id)
		assert.Equal(t, first.Blocks[id].Out, second.Blocks[id].Out, "block %s OUT", id)
	}
}
