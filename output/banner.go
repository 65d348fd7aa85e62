package output

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

// BannerOptions configures the startup banner display.
type BannerOptions struct {
	ShowBanner  bool
	ShowVersion bool
}

// DefaultBannerOptions returns the default banner configuration.
func DefaultBannerOptions() BannerOptions {
	return BannerOptions{ShowBanner: true, ShowVersion: true}
}

// ShouldShowBanner decides whether the ASCII banner is appropriate:
// TTY output and not explicitly disabled.
func ShouldShowBanner(isTTY, noBanner bool) bool {
	return isTTY && !noBanner
}

// PrintBanner displays the dataflow logo and version information.
func PrintBanner(w io.Writer, version string, opts BannerOptions) {
	if w == nil {
		return
	}
	if opts.ShowBanner {
		fmt.Fprintln(w, ASCIILogo())
	}
	if opts.ShowVersion {
		fmt.Fprintf(w, "Code Pathfinder Dataflow v%s\n", version)
	}
	fmt.Fprintln(w)
}

// ASCIILogo generates the ASCII art logo.
func ASCIILogo() string {
	fig := figure.NewFigure("Dataflow", "standard", true)
	return fig.String()
}

// CompactBanner returns a single-line banner for non-TTY output.
func CompactBanner(version string) string {
	return fmt.Sprintf("Code Pathfinder Dataflow v%s", version)
}
