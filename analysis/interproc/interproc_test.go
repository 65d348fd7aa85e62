package interproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/reachingdefs"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/callgraph"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

//
// ========== HELPERS ==========
//

func stmtOf(id, text string) *cfg.Statement {
	stmt := &cfg.Statement{ID: id, Text: text, Type: cfg.Classify(text)}
	cfg.DeriveDefUse(stmt)
	return stmt
}

func singleBlock(name string, params []string, texts ...string) *cfg.FunctionCFG {
	fn := cfg.NewFunctionCFG(name)
	fn.Parameters = params
	block := &cfg.BasicBlock{ID: "1", Label: "B1", IsEntry: true, IsExit: true}
	for i, text := range texts {
		block.Statements = append(block.Statements, stmtOf(name+"_s"+string(rune('0'+i)), text))
	}
	fn.AddBlock(block)
	return fn
}

// g() { p = getenv("X"); return p; }  f() { q = g(); system(q); }
func buildReturnFlowProgram() (map[string]*cfg.FunctionCFG, []string) {
	g := cfg.NewFunctionCFG("g")
	g.AddBlock(&cfg.BasicBlock{ID: "g1", Label: "B1", IsEntry: true, Statements: []*cfg.Statement{
		stmtOf("g_s0", `char *p = getenv("X");`),
	}})
	g.AddBlock(&cfg.BasicBlock{ID: "g2", Label: "B2", IsExit: true, Statements: []*cfg.Statement{
		stmtOf("g_s1", "return p;"),
	}})
	g.AddEdge("g1", "g2")

	f := cfg.NewFunctionCFG("f")
	f.AddBlock(&cfg.BasicBlock{ID: "f1", Label: "B1", IsEntry: true, Statements: []*cfg.Statement{
		stmtOf("f_s0", "char *q = g();"),
	}})
	f.AddBlock(&cfg.BasicBlock{ID: "f2", Label: "B2", IsExit: true, Statements: []*cfg.Statement{
		stmtOf("f_s1", "system(q);"),
	}})
	f.AddEdge("f1", "f2")

	functions := map[string]*cfg.FunctionCFG{"g": g, "f": f}
	return functions, []string{"f", "g"}
}

func analyzeAll(functions map[string]*cfg.FunctionCFG, order []string, level taint.SensitivityLevel) (map[string]*taint.Result, *callgraph.Graph, *taint.Analyzer) {
	reg := registry.Default()
	analyzer := taint.NewAnalyzer(reg, level)
	results := make(map[string]*taint.Result)
	for _, name := range order {
		results[name] = analyzer.Analyze(functions[name])
	}
	graph := callgraph.Build(functions, order)
	return results, graph, analyzer
}

//
// ========== RETURN RECEIVER TESTS ==========
//

func TestReturnReceiver(t *testing.T) {
	assert.Equal(t, "q", ReturnReceiver("char *q = g();"))
	assert.Equal(t, "n", ReturnReceiver("int n = helper(argc);"))
	assert.Equal(t, "x", ReturnReceiver("x = compute();"))
	assert.Equal(t, "", ReturnReceiver("helper(argc);"))
	assert.Equal(t, "", ReturnReceiver("return g();"))
}

//
// ========== GLOBAL HEURISTIC TESTS ==========
//

func TestIsGlobalVariable(t *testing.T) {
	assert.True(t, IsGlobalVariable("MAX_SIZE"))
	assert.True(t, IsGlobalVariable("G_STATE"))
	assert.False(t, IsGlobalVariable("x"))
	assert.False(t, IsGlobalVariable("N"))
	assert.False(t, IsGlobalVariable("count"))
	assert.False(t, IsGlobalVariable("Count"))
}

//
// ========== INTER-PROCEDURAL TAINT TESTS (S5) ==========
//

func TestSolveTaint_ReturnValueFlow(t *testing.T) {
	functions, order := buildReturnFlowProgram()
	results, graph, analyzer := analyzeAll(functions, order, taint.SensitivityBalanced)

	solver := NewTaintSolver(graph, results, registry.Default(), taint.SensitivityBalanced)
	interResult := solver.Solve()
	assert.True(t, interResult.Converged)
	assert.Greater(t, interResult.InjectedFacts, 0)

	// q in f carries taint originating at g's getenv.
	qFacts := results["f"].Taint.Get("f1", "q")
	assert.Len(t, qFacts, 1)
	assert.Equal(t, "getenv", qFacts[0].Source)
	assert.Equal(t, "g", qFacts[0].SourceFunction)
	assert.Contains(t, qFacts[0].Path, "f")

	// The pseudo return variable is recorded at the call site.
	assert.True(t, results["f"].Taint.IsTaintedAt("f1", "return_g"))

	// Re-running sink checks surfaces the command injection in f.
	results["f"].Vulnerabilities = nil
	analyzer.CheckSinks(functions["f"], results["f"])
	assert.Len(t, results["f"].Vulnerabilities, 1)
	vuln := results["f"].Vulnerabilities[0]
	assert.Equal(t, registry.VulnCommandInjection, vuln.Type)
	assert.Equal(t, "f", vuln.Sink.Function)
	assert.Equal(t, "g", vuln.Source.Function)
}

func TestSolveTaint_ParameterInjection(t *testing.T) {
	// f() { scanf("%s", &buf); h(buf); }  h(s) { system(s); }
	functions := map[string]*cfg.FunctionCFG{
		"f": singleBlock("f", nil, `scanf("%s", &buf);`, "h(buf);"),
		"h": singleBlock("h", []string{"s"}, "system(s);"),
	}
	order := []string{"f", "h"}
	results, graph, analyzer := analyzeAll(functions, order, taint.SensitivityBalanced)

	solver := NewTaintSolver(graph, results, registry.Default(), taint.SensitivityBalanced)
	solver.Solve()

	// The parameter s is tainted at h's entry.
	sFacts := results["h"].Taint.Get("1", "s")
	assert.Len(t, sFacts, 1)
	assert.Equal(t, "scanf", sFacts[0].Source)
	assert.Equal(t, "f", sFacts[0].SourceFunction)

	results["h"].Vulnerabilities = nil
	analyzer.CheckSinks(functions["h"], results["h"])
	assert.Len(t, results["h"].Vulnerabilities, 1)
	assert.Equal(t, registry.VulnCommandInjection, results["h"].Vulnerabilities[0].Type)
}

func TestSolveTaint_LibrarySummary(t *testing.T) {
	// Taint flows through the external strcpy into dst.
	functions := map[string]*cfg.FunctionCFG{
		"f": singleBlock("f", nil, `scanf("%s", &src);`, "strcpy(dst, src);", "system(dst);"),
	}
	order := []string{"f"}
	results, graph, analyzer := analyzeAll(functions, order, taint.SensitivityBalanced)

	solver := NewTaintSolver(graph, results, registry.Default(), taint.SensitivityBalanced)
	solver.Solve()

	assert.True(t, results["f"].Taint.IsTainted("dst"))

	results["f"].Vulnerabilities = nil
	analyzer.CheckSinks(functions["f"], results["f"])
	found := false
	for _, vuln := range results["f"].Vulnerabilities {
		if vuln.Type == registry.VulnCommandInjection {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSolveTaint_ExternalWithoutSummarySkipped(t *testing.T) {
	functions := map[string]*cfg.FunctionCFG{
		"f": singleBlock("f", nil, `scanf("%s", &x);`, "mystery(x);"),
	}
	order := []string{"f"}
	results, graph, _ := analyzeAll(functions, order, taint.SensitivityBalanced)

	solver := NewTaintSolver(graph, results, registry.Default(), taint.SensitivityBalanced)
	interResult := solver.Solve()

	assert.True(t, interResult.Converged)
	assert.Equal(t, 0, interResult.InjectedFacts)
}

//
// ========== INTER-PROCEDURAL RD TESTS ==========
//

func TestSolveReachingDefinitions_ReturnValueDefinition(t *testing.T) {
	functions, order := buildReturnFlowProgram()
	graph := callgraph.Build(functions, order)

	rdResults := make(map[string]*reachingdefs.Result)
	for _, name := range order {
		rdResults[name] = reachingdefs.Solve(functions[name])
	}

	result := SolveReachingDefinitions(graph, rdResults)
	assert.True(t, result.Converged)

	// A synthetic definition of q lands in f's OUT at the call block.
	outQ := rdResults["f"].Blocks["f1"].Out["q"]
	found := false
	for _, def := range outQ {
		if def.OriginBlock == "g2" {
			found = true
			assert.Contains(t, def.Path, "f1")
		}
	}
	assert.True(t, found, "expected a return-value definition of q sourced at g's exit")
}

func TestSolveReachingDefinitions_GlobalPropagation(t *testing.T) {
	// g writes the ALL-CAPS global LIMIT; the definition reaches f.
	g := singleBlock("g", nil, "LIMIT = 100;")
	f := singleBlock("f", nil, "g();")
	functions := map[string]*cfg.FunctionCFG{"f": f, "g": g}
	order := []string{"f", "g"}
	graph := callgraph.Build(functions, order)

	rdResults := map[string]*reachingdefs.Result{
		"f": reachingdefs.Solve(f),
		"g": reachingdefs.Solve(g),
	}

	result := SolveReachingDefinitions(graph, rdResults)
	assert.True(t, result.Converged)

	outLimit := rdResults["f"].Blocks["1"].Out["LIMIT"]
	assert.NotEmpty(t, outLimit)
	assert.Equal(t, "g", graph.Calls[0].Callee)
}

func TestSolveReachingDefinitions_ParameterFlowLogged(t *testing.T) {
	// h writes its own parameter; the flow is logged, not substituted.
	h := singleBlock("h", []string{"s"}, "s = s + 1;")
	f := singleBlock("f", nil, "h(x);")
	functions := map[string]*cfg.FunctionCFG{"f": f, "h": h}
	order := []string{"f", "h"}
	graph := callgraph.Build(functions, order)

	rdResults := map[string]*reachingdefs.Result{
		"f": reachingdefs.Solve(f),
		"h": reachingdefs.Solve(h),
	}

	result := SolveReachingDefinitions(graph, rdResults)

	assert.Len(t, result.ParameterFlows, 1)
	flow := result.ParameterFlows[0]
	assert.Equal(t, "f", flow.Caller)
	assert.Equal(t, "h", flow.Callee)
	assert.Equal(t, "s", flow.Parameter)
}

func TestBindCallContext(t *testing.T) {
	functions, order := buildReturnFlowProgram()
	graph := callgraph.Build(functions, order)

	call := graph.CallsFrom["f"][0]
	ctx := BindCallContext(call, graph.Functions["g"])
	assert.Equal(t, "q", ctx.ReturnReceiver)
	assert.Empty(t, ctx.ParameterMap)
}

//
// ========== CONTEXT-SENSITIVE TAINT TESTS ==========
//

func TestSolveContextSensitiveTaint_ContextKeys(t *testing.T) {
	assert.Equal(t, "f → g", ContextKey([]string{"f", "g"}))
	assert.Equal(t, []string{"g", "h"}, limitFrames([]string{"f", "g", "h"}, 2))
}

func TestSolveContextSensitiveTaint_RefinesParameterTaint(t *testing.T) {
	// f() { scanf("%s", &buf); h(buf); }  h(s) { system(s); }
	functions := map[string]*cfg.FunctionCFG{
		"f": singleBlock("f", nil, `scanf("%s", &buf);`, "h(buf);"),
		"h": singleBlock("h", []string{"s"}, "system(s);"),
	}
	order := []string{"f", "h"}
	results, graph, _ := analyzeAll(functions, order, taint.SensitivityBalanced)

	ctxResult := SolveContextSensitiveTaint(graph, results, registry.Default(), taint.SensitivityBalanced, 2)

	assert.Equal(t, 2, ctxResult.K)
	assert.NotNil(t, ctxResult.Baseline)

	contexts := ctxResult.Contexts("h")
	assert.Contains(t, contexts, "f → h")

	facts := ctxResult.FactsAt("h", "f → h")
	foundS := false
	for _, fact := range facts {
		if fact.Variable == "s" && fact.Tainted {
			foundS = true
			assert.Equal(t, "f → h", fact.Context)
		}
	}
	assert.True(t, foundS, "expected parameter taint for s under context f → h")
}

func TestSolveContextSensitiveTaint_DefaultK(t *testing.T) {
	functions := map[string]*cfg.FunctionCFG{
		"f": singleBlock("f", nil, "x = 1;"),
	}
	results, graph, _ := analyzeAll(functions, []string{"f"}, taint.SensitivityBalanced)

	ctxResult := SolveContextSensitiveTaint(graph, results, registry.Default(), taint.SensitivityBalanced, 0)
	assert.Equal(t, DefaultContextSize, ctxResult.K)
}
