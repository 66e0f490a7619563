package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshokin/posture-monitor/internal/version"
)

var (
	// shortVersion prints only the semantic version.
	shortVersion bool

	// versionCmd prints the build information injected with ldflags.
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long: `Prints the posture-monitor version with the commit hash and build timestamp
injected at build time. The same version is sent in the User-Agent of webhook calls.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout(), shortVersion)
		},
	}
)

// printVersion writes the full build banner, or only the version when short is set.
func printVersion(w io.Writer, short bool) {
	if short {
		_, _ = fmt.Fprintln(w, version.Short())
		return
	}

	_, _ = fmt.Fprintln(w, version.Full())
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "print only the version number")
}
