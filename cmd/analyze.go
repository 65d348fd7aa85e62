package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analysis/taint"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/analytics"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/engine"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/output"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/registry"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <cfg.json|dir> [...]",
	Short: "Analyze clang-exported CFG documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exitCode, err := runAnalyze(cmd, args)
		if err != nil {
			analytics.ReportEvent(analytics.AnalyzeFailed)
			return err
		}
		if exitCode != output.ExitCodeSuccess {
			os.Exit(int(exitCode))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("liveness", true, "Run liveness analysis")
	analyzeCmd.Flags().Bool("reaching-defs", true, "Run reaching definitions analysis")
	analyzeCmd.Flags().Bool("taint", true, "Run taint analysis and vulnerability detection")
	analyzeCmd.Flags().Bool("interprocedural", false, "Run inter-procedural analyses over the call graph")
	analyzeCmd.Flags().Bool("context-sensitive", false, "Refine inter-procedural taint with k-limited contexts")
	analyzeCmd.Flags().String("sensitivity", "balanced", "Taint sensitivity: minimal|conservative|balanced|precise|maximum")
	analyzeCmd.Flags().Int("context-size", 2, "k for context-sensitive taint")
	analyzeCmd.Flags().String("format", "text", "Output format: text|json|sarif")
	analyzeCmd.Flags().StringP("output", "o", "", "Write results to file instead of stdout")
	analyzeCmd.Flags().String("fail-on", "", "Comma-separated severities that set exit code 1")
	analyzeCmd.Flags().String("min-severity", "", "Drop findings below this severity")
	analyzeCmd.Flags().String("registry", "", "YAML overlay with custom sources/sinks/sanitizers")
	analyzeCmd.Flags().Bool("statistics", false, "Append solver statistics to text output")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) (output.ExitCode, error) {
	started := time.Now()
	logger := output.NewLoggerWithWriter(loggerVerbosity(), os.Stderr)

	failOn := splitSeverities(mustString(cmd, "fail-on"))
	if err := output.ValidateSeverities(failOn); err != nil {
		return output.ExitCodeError, err
	}

	reg := registry.Default()
	if overlayPath := mustString(cmd, "registry"); overlayPath != "" {
		if err := reg.LoadOverlay(overlayPath); err != nil {
			return output.ExitCodeError, err
		}
	}

	files, order, err := collectCFGFiles(args)
	if err != nil {
		return output.ExitCodeError, err
	}
	if len(order) == 0 {
		return output.ExitCodeError, fmt.Errorf("no CFG documents found under %s", strings.Join(args, ", "))
	}

	analytics.ReportEventWithProperties(analytics.AnalyzeStarted, map[string]interface{}{
		"files": len(order),
	})

	config := engine.Config{
		EnableLiveness:            mustBool(cmd, "liveness"),
		EnableReachingDefinitions: mustBool(cmd, "reaching-defs"),
		EnableTaintAnalysis:       mustBool(cmd, "taint"),
		EnableInterProcedural:     mustBool(cmd, "interprocedural"),
		EnableContextSensitive:    mustBool(cmd, "context-sensitive"),
		Sensitivity:               taint.ParseSensitivity(mustString(cmd, "sensitivity")),
		ContextSize:               mustInt(cmd, "context-size"),
		Registry:                  reg,
		Logger:                    logger,
	}

	stopTiming := logger.StartTiming("analysis")
	state := engine.LoadAndRun(files, order, config)
	stopTiming()

	for _, warning := range state.Warnings {
		logger.Debug("%s", warning)
	}
	for _, loadErr := range state.Errors {
		logger.Error("%s", loadErr)
	}

	writer, closeWriter, err := resolveWriter(mustString(cmd, "output"))
	if err != nil {
		return output.ExitCodeError, err
	}
	defer closeWriter()

	info := output.ScanInfo{
		Target:            strings.Join(args, ","),
		Timestamp:         started,
		Duration:          time.Since(started),
		FilesAnalyzed:     len(order),
		FunctionsAnalyzed: state.FunctionsAnalyzed,
		ToolVersion:       Version,
	}
	opts := &output.Options{
		MinSeverity:    mustString(cmd, "min-severity"),
		ShowStatistics: mustBool(cmd, "statistics"),
	}

	if err := formatState(writer, state, info, opts, mustString(cmd, "format")); err != nil {
		return output.ExitCodeError, err
	}
	logger.PrintTimingSummary()

	analytics.ReportEventWithProperties(analytics.AnalyzeCompleted, map[string]interface{}{
		"functions":       state.FunctionsAnalyzed,
		"vulnerabilities": len(state.Vulnerabilities),
	})

	return output.DetermineExitCode(state.Vulnerabilities, failOn, len(state.Errors) > 0), nil
}

// formatState routes to the formatter for the requested format.
func formatState(w io.Writer, state *engine.AnalysisState, info output.ScanInfo, opts *output.Options, format string) error {
	switch output.ParseFormat(format) {
	case output.FormatJSON:
		return output.NewJSONFormatterWithWriter(w, opts).Format(state, info)
	case output.FormatSARIF:
		return output.NewSARIFFormatterWithWriter(w, opts).Format(state, info)
	default:
		return output.NewTextFormatterWithWriter(w, opts).Format(state, info)
	}
}

// collectCFGFiles expands the argument list into CFG JSON documents.
// Directories are walked for .json files; results are sorted for
// deterministic analysis order.
func collectCFGFiles(args []string) (map[string][]byte, []string, error) {
	files := make(map[string][]byte)
	var order []string

	addFile := func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if _, seen := files[path]; !seen {
			files[path] = data
			order = append(order, path)
		}
		return nil
	}

	for _, arg := range args {
		stat, err := os.Stat(arg)
		if err != nil {
			return nil, nil, err
		}
		if !stat.IsDir() {
			if err := addFile(arg); err != nil {
				return nil, nil, err
			}
			continue
		}
		walkErr := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, ".json") {
				return addFile(path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, walkErr
		}
	}

	sort.Strings(order)
	return files, order, nil
}

// resolveWriter opens the output file, or returns stdout.
func resolveWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func splitSeverities(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	severities := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			severities = append(severities, trimmed)
		}
	}
	return severities
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name) //nolint:all
	return value
}

func mustBool(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name) //nolint:all
	return value
}

func mustInt(cmd *cobra.Command, name string) int {
	value, _ := cmd.Flags().GetInt(name) //nolint:all
	return value
}
