package engine

import (
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
)

// Config selects which analyses the orchestrator runs and how.
type Config struct {
	// EnableLiveness runs the liveness solver per function
	EnableLiveness bool

	// EnableReachingDefinitions runs the reaching-definitions solver
	// per function
	EnableReachingDefinitions bool

	// EnableTaintAnalysis runs the taint solver and vulnerability
	// detection per function
	EnableTaintAnalysis bool

	// EnableInterProcedural runs the call-graph-wide passes:
	// inter-procedural reaching definitions and taint
	EnableInterProcedural bool

	// EnableContextSensitive additionally runs the k-limited
	// context-sensitive taint refinement
	EnableContextSensitive bool

	// Sensitivity selects the taint propagation level
	Sensitivity taint.SensitivityLevel

	// ContextSize is the k for context-sensitive taint, default 2
	ContextSize int

	// Registry supplies sources, sinks, sanitizers and summaries;
	// nil selects the shipped defaults
	Registry *registry.Registry

	// Logger receives progress and warnings; nil disables logging
	Logger Logger
}

// DefaultConfig enables every per-function analysis at balanced
// sensitivity, with inter-procedural passes off.
func DefaultConfig() Config {
	return Config{
		EnableLiveness:            true,
		EnableReachingDefinitions: true,
		EnableTaintAnalysis:       true,
		Sensitivity:               taint.SensitivityBalanced,
		ContextSize:               2,
	}
}

// Logger is the subset of the output logger the engine needs.
// *output.Logger satisfies it.
type Logger interface {
	Progress(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Warning(format string, args ...interface{})
}

// nopLogger is used when the caller provides no logger.
type nopLogger struct{}

func (nopLogger) Progress(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{})  {}

// normalize fills zero-value fields with defaults.
func (c Config) normalize() Config {
	if c.Registry == nil {
		c.Registry = registry.Default()
	}
	if c.Sensitivity == "" {
		c.Sensitivity = taint.SensitivityBalanced
	}
	if c.ContextSize <= 0 {
		c.ContextSize = 2
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	return c
}
