// Package engine orchestrates the analysis pipeline: CFG validation,
// per-function dataflow solvers, the security detector, and the
// inter-procedural passes, aggregated into one AnalysisState.
package engine

import (
	"fmt"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/interproc"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/liveness"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/reachingdefs"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/security"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/callgraph"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
)

// Run executes the full pipeline over the translation units.
//
// The pipeline is single-threaded and fully synchronous: functions are
// analyzed sequentially in translation-unit order, and the
// inter-procedural passes run after every per-function analysis
// completed. On identical input the returned state is identical.
func Run(units []*cfg.TranslationUnit, config Config) *AnalysisState {
	config = config.normalize()
	state := newAnalysisState()

	// Union all functions into one table keyed by name.
	functions := make(map[string]*cfg.FunctionCFG)
	fileOf := make(map[string]string)
	var order []string
	for _, unit := range units {
		for _, fn := range unit.FunctionsInOrder() {
			if _, duplicate := functions[fn.Name]; duplicate {
				state.Warnings = append(state.Warnings, fmt.Sprintf(
					"function %s defined in multiple files, keeping the first (%s)", fn.Name, fileOf[fn.Name]))
				continue
			}
			functions[fn.Name] = fn
			fileOf[fn.Name] = unit.File
			order = append(order, fn.Name)
		}
	}

	// Validate and populate missing def/use sets before any solver runs.
	for _, name := range order {
		fn := functions[name]
		analysis := &FunctionAnalysis{Function: name, File: fileOf[name]}
		if findings := fn.Validate(); len(findings) > 0 {
			analysis.ValidationFindings = findings
			state.Warnings = append(state.Warnings, findings...)
		}
		fn.DeriveDefUseAll()
		state.Functions[name] = analysis
		state.FunctionOrder = append(state.FunctionOrder, name)
	}

	// The call graph is built once per run; taint and the
	// inter-procedural passes depend on it.
	state.CallGraph = callgraph.Build(functions, order)
	config.Logger.Debug("call graph: %d functions, %d call sites",
		len(state.CallGraph.Functions), len(state.CallGraph.Calls))

	// Per-function solvers, in dependency order.
	analyzer := taint.NewAnalyzer(config.Registry, config.Sensitivity)
	detector := security.NewDetector(config.Registry)
	taintResults := make(map[string]*taint.Result)
	rdResults := make(map[string]*reachingdefs.Result)

	for _, name := range order {
		fn := functions[name]
		analysis := state.Functions[name]
		config.Logger.Progress("analyzing %s", name)

		if config.EnableLiveness {
			analysis.Liveness = liveness.Solve(fn)
			state.Warnings = append(state.Warnings, analysis.Liveness.Warnings...)
		}
		if config.EnableReachingDefinitions {
			analysis.ReachingDefinitions = reachingdefs.Solve(fn)
			rdResults[name] = analysis.ReachingDefinitions
			state.Warnings = append(state.Warnings, analysis.ReachingDefinitions.Warnings...)
		}
		if config.EnableTaintAnalysis {
			analysis.Taint = analyzer.Analyze(fn)
			taintResults[name] = analysis.Taint
			state.Warnings = append(state.Warnings, analysis.Taint.Warnings...)
		}

		var taintMap *taint.Map
		if analysis.Taint != nil {
			taintMap = analysis.Taint.Taint
		}
		analysis.SecurityFindings = detector.Detect(fn, taintMap)
		state.FunctionsAnalyzed++
	}

	// Inter-procedural passes over the completed per-function results.
	if config.EnableInterProcedural {
		if config.EnableReachingDefinitions {
			state.InterRD = interproc.SolveReachingDefinitions(state.CallGraph, rdResults)
			state.Warnings = append(state.Warnings, state.InterRD.Warnings...)
		}
		if config.EnableTaintAnalysis {
			state.InterTaint = interproc.NewTaintSolver(
				state.CallGraph, taintResults, config.Registry, config.Sensitivity).Solve()
			state.Warnings = append(state.Warnings, state.InterTaint.Warnings...)

			// The taint maps grew; sink checks run again so cross-
			// function flows surface as vulnerabilities.
			for _, name := range order {
				result := taintResults[name]
				if result == nil {
					continue
				}
				result.Vulnerabilities = nil
				analyzer.CheckSinks(functions[name], result)
			}

			if config.EnableContextSensitive {
				state.ContextTaint = interproc.SolveContextSensitiveTaint(
					state.CallGraph, taintResults, config.Registry, config.Sensitivity, config.ContextSize)
				state.Warnings = append(state.Warnings, state.ContextTaint.Warnings...)
			}
		}
	}

	indexState(state, functions)
	return state
}

// indexState builds the "functionName_blockId" indexes and the
// aggregate slices, in function then block order.
func indexState(state *AnalysisState, functions map[string]*cfg.FunctionCFG) {
	for _, name := range state.FunctionOrder {
		fn := functions[name]
		analysis := state.Functions[name]

		if analysis.Liveness != nil {
			for _, blockID := range fn.BlockOrder {
				if info, ok := analysis.Liveness.Blocks[blockID]; ok {
					state.LivenessByBlock[BlockKey(name, blockID)] = info
				}
			}
		}
		if analysis.ReachingDefinitions != nil {
			for _, blockID := range fn.BlockOrder {
				if info, ok := analysis.ReachingDefinitions.Blocks[blockID]; ok {
					state.ReachingByBlock[BlockKey(name, blockID)] = info
				}
			}
		}
		if analysis.Taint != nil {
			for _, blockID := range analysis.Taint.Taint.BlockIDs() {
				state.TaintByBlock[BlockKey(name, blockID)] = analysis.Taint.Taint.ByBlock[blockID]
			}
			state.Vulnerabilities = append(state.Vulnerabilities, analysis.Taint.Vulnerabilities...)
		}
		state.SecurityFindings = append(state.SecurityFindings, analysis.SecurityFindings...)
	}
}

// LoadAndRun decodes the given CFG documents and runs the pipeline.
// File-level decode failures are recorded in the state's Errors and do
// not affect the remaining files.
func LoadAndRun(files map[string][]byte, fileOrder []string, config Config) *AnalysisState {
	var units []*cfg.TranslationUnit
	var loadErrors []string
	var loadWarnings []string

	for _, path := range fileOrder {
		unit, warnings, err := cfg.LoadTranslationUnit(files[path], path)
		if err != nil {
			loadErrors = append(loadErrors, err.Error())
			continue
		}
		loadWarnings = append(loadWarnings, warnings...)
		units = append(units, unit)
	}

	state := Run(units, config)
	state.Errors = append(loadErrors, state.Errors...)
	state.Warnings = append(loadWarnings, state.Warnings...)
	return state
}
