package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// NewRootCommand builds the pagesmith command tree.
// Running the root command with no subcommand runs the pipeline once.
func NewRootCommand() *cobra.Command {
	opts := &runOptions{}

	root := &cobra.Command{
		Use:   "pagesmith",
		Short: "Pagesmith - multi-agent product page generator",
		Long: `Pagesmith turns one product description into three structured pages:
an FAQ, a product page and a comparison against a fictional competitor.

Five agents exchange messages over an in-memory or Redis-backed bus while an
orchestrator sequences them with a state machine. The pages are written as
JSON files to the output directory.`,
		Version: versionString(),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
		// Enable strict flag parsing - unknown flags will cause an error
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	flags := root.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the config file (default: ./pagesmith.yml if present)")
	flags.StringVar(&opts.input, "input", "", "Product JSON file to read")
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory the pages are written to")
	flags.StringVar(&opts.busDriver, "bus", "", "Message bus driver: memory or redis")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the redis bus driver")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(newVersionCommand())
	return root
}

// Execute builds the root command and runs it with os.Args.
// This is called by main.main().
func Execute() error {
	return NewRootCommand().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pagesmith version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pagesmith %s\n", versionString())
		},
	}
}
