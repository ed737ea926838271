package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relserve",
		Short: "Serve desktop application releases and auto-updates",
		Long: `Relserve resolves download and update requests from desktop
applications against a list of published releases.

Supported release sources:
  - GitHub releases (--backend github)
  - A YAML or JSON release index (--backend index)
  - A directory with one sub-directory per release (--backend local)`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}

			format, _ := cmd.Flags().GetString("log-format")
			switch format {
			case "text":
			case "json":
				logrus.SetFormatter(&logrus.JSONFormatter{})
			default:
				return fmt.Errorf("unknown log format %q, expected text or json", format)
			}
			return nil
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("log-format", "text", "Log format: text or json")
	flags.StringP("config", "c", "", "Path to a YAML or TOML config file")
	addConfigFlags(flags)

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewResolveCmd())
	rootCmd.AddCommand(NewSnapshotCmd())
	rootCmd.AddCommand(NewManifestCmd())

	return rootCmd
}
