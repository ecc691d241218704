package cli

import (
	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type rootOptions struct {
	configFile string
	jsonOutput bool
}

// NewRootCommand builds the oasstub command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "oasstub",
		Short: "Stub HTTP server driven by OpenAPI documents",
		Long: `oasstub serves stub responses for the operations of registered OpenAPI
documents. APIs are registered through the admin API or loaded from a
definitions directory at startup; each response can be customised with
headers, delays, failures and expr or CEL plugins.

Configuration is read from the file given with --config, then from
OASSTUB_* environment variables, then from command line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to the configuration file")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")

	root.AddCommand(
		newServeCommand(opts),
		newValidateCommand(opts),
		newVersionCommand(opts, info),
	)
	return root
}
