package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

const directFlowDoc = `{
  "functions": {
    "main": {
      "name": "main",
      "signature": "int main(int argc, char **argv)",
      "blocks": [
        {
          "id": 1,
          "label": "B1",
          "isEntry": true,
          "successors": [2],
          "predecessors": [],
          "statements": [
            {"text": "scanf(\"%d\", &buf);", "range": {"start": {"line": 3, "column": 5}, "end": {"line": 3, "column": 25}}}
          ]
        },
        {
          "id": 2,
          "label": "B2",
          "isExit": true,
          "successors": [],
          "predecessors": [1],
          "statements": [
            {"text": "system(buf);"}
          ]
        }
      ]
    }
  }
}`

const interprocDoc = `{
  "functions": {
    "g": {
      "name": "g",
      "blocks": [
        {"id": "g1", "label": "B1", "isEntry": true, "successors": ["g2"], "predecessors": [], "statements": [{"text": "char *p = getenv(\"X\");"}]},
        {"id": "g2", "label": "B2", "isExit": true, "successors": [], "predecessors": ["g1"], "statements": [{"text": "return p;"}]}
      ]
    },
    "f": {
      "name": "f",
      "blocks": [
        {"id": "f1", "label": "B1", "isEntry": true, "successors": ["f2"], "predecessors": [], "statements": [{"text": "char *q = g();"}]},
        {"id": "f2", "label": "B2", "isExit": true, "successors": [], "predecessors": ["f1"], "statements": [{"text": "system(q);"}]}
      ]
    }
  }
}`

func loadUnits(t *testing.T, doc string) []*cfg.TranslationUnit {
	t.Helper()
	unit, _, err := cfg.LoadTranslationUnit([]byte(doc), "test.json")
	assert.NoError(t, err)
	return []*cfg.TranslationUnit{unit}
}

func TestRun_DirectFlow(t *testing.T) {
	state := Run(loadUnits(t, directFlowDoc), DefaultConfig())

	assert.Equal(t, 1, state.FunctionsAnalyzed)
	assert.Len(t, state.Vulnerabilities, 1)
	assert.Equal(t, registry.VulnCommandInjection, state.Vulnerabilities[0].Type)

	// Per-block indexes keyed "functionName_blockId".
	assert.Contains(t, state.LivenessByBlock, "main_1")
	assert.Contains(t, state.ReachingByBlock, "main_2")
	assert.Contains(t, state.TaintByBlock, "main_1")

	// Parameters were derived from the signature.
	main := state.CallGraph.Functions["main"]
	assert.Equal(t, 2, len(main.Parameters))
}

func TestRun_AnalysesAreOptional(t *testing.T) {
	config := DefaultConfig()
	config.EnableLiveness = false
	config.EnableReachingDefinitions = false
	config.EnableTaintAnalysis = false

	state := Run(loadUnits(t, directFlowDoc), config)

	assert.Empty(t, state.LivenessByBlock)
	assert.Empty(t, state.ReachingByBlock)
	assert.Empty(t, state.TaintByBlock)
	assert.Empty(t, state.Vulnerabilities)
	// The security detector still ran.
	assert.NotNil(t, state.Functions["main"])
}

func TestRun_InterProceduralFlow(t *testing.T) {
	config := DefaultConfig()
	config.EnableInterProcedural = true

	state := Run(loadUnits(t, interprocDoc), config)

	assert.NotNil(t, state.InterRD)
	assert.NotNil(t, state.InterTaint)
	assert.Nil(t, state.ContextTaint)

	// The cross-function command injection in f is surfaced.
	found := false
	for _, vuln := range state.Vulnerabilities {
		if vuln.Sink.Function == "f" && vuln.Type == registry.VulnCommandInjection {
			found = true
			assert.Equal(t, "g", vuln.Source.Function)
		}
	}
	assert.True(t, found, "expected a command injection in f sourced from g")
}

func TestRun_ContextSensitiveFlow(t *testing.T) {
	config := DefaultConfig()
	config.EnableInterProcedural = true
	config.EnableContextSensitive = true

	state := Run(loadUnits(t, interprocDoc), config)

	assert.NotNil(t, state.ContextTaint)
	assert.Equal(t, 2, state.ContextTaint.K)
}

func TestRun_Deterministic(t *testing.T) {
	config := DefaultConfig()
	config.EnableInterProcedural = true

	first := Run(loadUnits(t, interprocDoc), config)
	second := Run(loadUnits(t, interprocDoc), config)

	assert.Equal(t, first.FunctionOrder, second.FunctionOrder)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Len(t, second.Vulnerabilities, len(first.Vulnerabilities))
	for i := range first.Vulnerabilities {
		assert.Equal(t, first.Vulnerabilities[i].ID, second.Vulnerabilities[i].ID)
		assert.Equal(t, first.Vulnerabilities[i].Path, second.Vulnerabilities[i].Path)
	}
}

func TestRun_DuplicateFunctionWarns(t *testing.T) {
	unitA, _, err := cfg.LoadTranslationUnit([]byte(directFlowDoc), "a.json")
	assert.NoError(t, err)
	unitB, _, err := cfg.LoadTranslationUnit([]byte(directFlowDoc), "b.json")
	assert.NoError(t, err)

	state := Run([]*cfg.TranslationUnit{unitA, unitB}, DefaultConfig())

	assert.Equal(t, 1, state.FunctionsAnalyzed)
	warned := false
	for _, warning := range state.Warnings {
		if warning == "function main defined in multiple files, keeping the first (a.json)" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestLoadAndRun_BadDocumentIsIsolated(t *testing.T) {
	files := map[string][]byte{
		"good.json": []byte(directFlowDoc),
		"bad.json":  []byte("{not json"),
	}
	state := LoadAndRun(files, []string{"bad.json", "good.json"}, DefaultConfig())

	assert.Len(t, state.Errors, 1)
	assert.Equal(t, 1, state.FunctionsAnalyzed)
	assert.Len(t, state.Vulnerabilities, 1)
}

func TestRun_SensitivityReachesTaintSolver(t *testing.T) {
	doc := `{
  "functions": {
    "f": {
      "name": "f",
      "blocks": [
        {"id": 1, "label": "B1", "isEntry": true, "successors": [2, 3], "predecessors": [], "statements": [
          {"text": "scanf(\"%d\", &t);"},
          {"text": "if (t > 0)"}
        ]},
        {"id": 2, "label": "B2", "successors": [4], "predecessors": [1], "statements": [{"text": "x = 1;"}]},
        {"id": 3, "label": "B3", "successors": [4], "predecessors": [1], "statements": [{"text": "x = 2;"}]},
        {"id": 4, "label": "B4", "isExit": true, "successors": [], "predecessors": [2, 3], "statements": [{"text": "system(x);"}]}
      ]
    }
  }
}`

	minimal := DefaultConfig()
	minimal.Sensitivity = taint.SensitivityMinimal
	assert.Empty(t, Run(loadUnits(t, doc), minimal).Vulnerabilities)

	precise := DefaultConfig()
	precise.Sensitivity = taint.SensitivityPrecise
	assert.NotEmpty(t, Run(loadUnits(t, doc), precise).Vulnerabilities)
}

func TestBlockKey(t *testing.T) {
	assert.Equal(t, "main_3", BlockKey("main", "3"))
}
