package cmd

import (
	"fmt"
	"os"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/analytics"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/output"
	"github.com/spf13/cobra"
)

var (
	verboseFlag bool
	debugFlag   bool
	Version     = "0.3.0"
	GitCommit   = "HEAD"
)

var rootCmd = &cobra.Command{
	Use:   "dataflow",
	Short: "Static dataflow and taint analysis for C/C++ control flow graphs",
	Long: `Code Pathfinder Dataflow - static analysis over clang-exported CFGs.

Computes liveness, reaching definitions and taint propagation per function,
detects taint flows into dangerous sinks (with sanitizer awareness and
control-dependent flow), and propagates taint across function boundaries
through the call graph.

Learn more: https://codepathfinder.dev`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		disableMetrics, _ := cmd.Flags().GetBool("disable-metrics") //nolint:all
		verboseFlag, _ = cmd.Flags().GetBool("verbose")             //nolint:all
		debugFlag, _ = cmd.Flags().GetBool("debug")                 //nolint:all
		analytics.LoadEnvFile()
		analytics.Init(disableMetrics)
		analytics.SetVersion(Version)

		// Show banner for help command
		if cmd.Name() == "help" || (len(os.Args) == 1 || (len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h"))) {
			noBanner, _ := cmd.Flags().GetBool("no-banner") //nolint:all
			logger := output.NewLogger(output.VerbosityDefault)
			if output.ShouldShowBanner(logger.IsTTY(), noBanner) {
				output.PrintBanner(logger.GetWriter(), Version, output.DefaultBannerOptions())
			} else if logger.IsTTY() && !noBanner {
				fmt.Fprintln(os.Stderr, output.CompactBanner(Version))
				fmt.Fprintln(os.Stderr)
			}
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("disable-metrics", false, "Disable metrics collection")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug output with timings")
	rootCmd.PersistentFlags().Bool("no-banner", false, "Disable startup banner")
}

// loggerVerbosity maps the persistent flags to a verbosity level.
func loggerVerbosity() output.VerbosityLevel {
	switch {
	case debugFlag:
		return output.VerbosityDebug
	case verboseFlag:
		return output.VerbosityVerbose
	default:
		return output.VerbosityDefault
	}
}
